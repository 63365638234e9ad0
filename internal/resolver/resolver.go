// Package resolver maps an import specifier plus importing directory to a
// canonical module key and an actual file on disk.
package resolver

import (
	"fmt"
	"strings"

	"luabundle/internal/fs"
)

// Options configures the two accepted source-file extensions, so both
// dialects of the base language are accepted.
type Options struct {
	PrimaryExt   string // e.g. ".lua"
	SecondaryExt string // e.g. ".luau"
	IndexName    string // e.g. "init"
}

func DefaultOptions() Options {
	return Options{PrimaryExt: ".lua", SecondaryExt: ".luau", IndexName: "init"}
}

type UnresolvedImport struct {
	Specifier string
	Importer  string
}

func (e *UnresolvedImport) Error() string {
	return fmt.Sprintf("%s: could not resolve import %q", e.Importer, e.Specifier)
}

type Result struct {
	// Key is the canonical, normalised path that identifies this module
	// everywhere else in the bundler.
	Key string
	// AbsPath is the file actually read from disk.
	AbsPath string
}

type Resolver struct {
	fs      fs.FS
	opts    Options
	rootDir string
}

func New(f fs.FS, root string, opts Options) *Resolver {
	return &Resolver{fs: f, opts: opts, rootDir: root}
}

// Resolve determines the base directory from the specifier's prefix, then
// tries a fixed candidate list in order.
func (r *Resolver) Resolve(specifier string, importerDir string) (*Result, error) {
	base := importerDir
	p := specifier

	switch {
	case strings.HasPrefix(specifier, "@/"):
		p = strings.TrimPrefix(specifier, "@/")
		base = r.rootDir
	case strings.HasPrefix(specifier, "./"):
		p = strings.TrimPrefix(specifier, "./")
		base = importerDir
	case strings.HasPrefix(specifier, "../"):
		p = specifier
		base = importerDir
	default:
		base = importerDir
	}

	joined := r.fs.Join(base, p)

	for _, candidate := range r.candidates(joined) {
		if _, ok := r.fs.ReadFile(candidate); ok {
			return &Result{Key: Normalize(candidate), AbsPath: candidate}, nil
		}
	}

	return nil, &UnresolvedImport{Specifier: specifier, Importer: importerDir}
}

// candidates produces the fixed try-list: p, p+primaryExt, p+secondaryExt,
// p/init+primaryExt, p/init+secondaryExt.
func (r *Resolver) candidates(p string) []string {
	return []string{
		p,
		p + r.opts.PrimaryExt,
		p + r.opts.SecondaryExt,
		r.fs.Join(p, r.opts.IndexName+r.opts.PrimaryExt),
		r.fs.Join(p, r.opts.IndexName+r.opts.SecondaryExt),
	}
}

// Normalize canonicalises a path: backslashes become forward slashes,
// doubled separators collapse, and "." / ".." segments cancel. It is
// idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")

	isAbs := strings.HasPrefix(p, "/")
	segments := strings.Split(p, "/")
	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !isAbs {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}
	joined := strings.Join(out, "/")
	if isAbs {
		return "/" + joined
	}
	return joined
}
