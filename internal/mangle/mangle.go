// Package mangle implements the minifying identifier mangler: given the
// bundle's final set of bundle-wide unique names and how often each is
// referenced, it hands back a replacement mapping under one of the
// `{none, mangle, auto}` modes.
//
// The frequency-ranked short-name assignment works by compiling a
// character-frequency histogram of the source text into a "shortest
// characters first" alphabet, then handing names out to symbols in
// descending use-count order. The mangling pass runs against a single flat
// namespace, since every module has already been flattened into one file's
// worth of top-level names by the time the mangler runs.
package mangle

import (
	"fmt"
	"sort"

	"luabundle/internal/renamer"
)

type Mode uint8

const (
	ModeNone Mode = iota
	ModeMangle
	ModeAuto
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none":
		return ModeNone, nil
	case "mangle":
		return ModeMangle, nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeNone, fmt.Errorf("unknown mangle mode %q: want one of none, mangle, auto", s)
	}
}

// Candidate is one bundle-wide unique name eligible for mangling, together
// with how many times it is referenced. Frequency ranking means the
// most-used names get the shortest replacements.
type Candidate struct {
	Name     string
	UseCount int32
}

// charFreq is a histogram over the mangler's 63-character alphabet
// (a-z, A-Z, 0-9, _), used to decide which characters make the
// cheapest-to-print short names. The last of its 64 slots is unused.
type charFreq [64]int32

func (f *charFreq) scan(text string, delta int32) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'a' && c <= 'z':
			f[c-'a'] += delta
		case c >= 'A' && c <= 'Z':
			f[c-('A'-26)] += delta
		case c >= '0' && c <= '9':
			f[c+(52-'0')] += delta
		case c == '_':
			f[62] += delta
		}
	}
}

const alphabetTail = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"

type nameMinifier struct {
	head string
	tail string
}

type charAndCount struct {
	index byte
	count int32
	char  string
}

func (f *charFreq) compile() nameMinifier {
	arr := make([]charAndCount, len(alphabetTail))
	for i := range alphabetTail {
		arr[i] = charAndCount{index: byte(i), count: f[i], char: alphabetTail[i : i+1]}
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].count != arr[j].count {
			return arr[i].count > arr[j].count
		}
		return arr[i].index < arr[j].index
	})

	var m nameMinifier
	for _, item := range arr {
		if item.char < "0" || item.char > "9" {
			m.head += item.char
		}
		m.tail += item.char
	}
	return m
}

// numberToName maps a dense non-negative integer to a valid identifier: the
// first character must come from head (can't start with a digit), every
// following character comes from tail.
func (m *nameMinifier) numberToName(i int) string {
	j := i % len(m.head)
	name := m.head[j : j+1]
	i /= len(m.head)

	for i > 0 {
		i--
		j := i % len(m.tail)
		name += m.tail[j : j+1]
		i /= len(m.tail)
	}
	return name
}

// Mangler assigns collision-free short names, seeded with the reserved
// words that must never be handed out. It keeps its own reservation set
// separate from the renamer's allocator since it runs against a different,
// smaller namespace of only the already-finalized unique names.
type Mangler struct {
	reserved []string
}

func New(reserved []string) *Mangler {
	return &Mangler{reserved: reserved}
}

// Assign computes the replacement mapping for mode over candidates, scanning
// sourceForFrequency (typically the beautified, pre-mangle bundle text) to
// bias short names toward the characters this particular bundle uses most.
// ModeNone, or an empty candidate list, returns nil. ModeMangle renames
// every candidate.
// ModeAuto renames only when the replacement is strictly shorter, leaving
// already-short names untouched.
func (m *Mangler) Assign(sourceForFrequency string, candidates []Candidate, mode Mode) map[string]string {
	if mode == ModeNone || len(candidates) == 0 {
		return nil
	}

	var freq charFreq
	freq.scan(sourceForFrequency, 1)
	minifier := freq.compile()

	sorted := append([]Candidate{}, candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UseCount > sorted[j].UseCount
	})

	alloc := renamer.NewAllocator()
	for _, r := range m.reserved {
		alloc.Reserve(r)
	}

	out := make(map[string]string, len(sorted))
	next := 0
	for _, c := range sorted {
		var short string
		for {
			short = minifier.numberToName(next)
			next++
			if !alloc.IsUsed(short) {
				break
			}
		}
		alloc.Reserve(short)

		if mode == ModeAuto && len(short) >= len(c.Name) {
			continue
		}
		out[c.Name] = short
	}
	return out
}
