// Package bundler wires path resolution, module graph discovery, and
// linking together with the printer and mangler into a single entry point:
// Bundle(opts) -> flattened source output.
package bundler

import (
	"os"
	"path/filepath"

	"luabundle/internal/ast"
	"luabundle/internal/cache"
	"luabundle/internal/config"
	"luabundle/internal/fs"
	"luabundle/internal/graph"
	"luabundle/internal/lexer"
	"luabundle/internal/linker"
	"luabundle/internal/mangle"
	"luabundle/internal/parser"
	"luabundle/internal/printer"
	"luabundle/internal/resolver"
)

// Bundle resolves, links, and prints the module graph rooted at
// opts.EntryPath using the real filesystem and the on-disk extraction cache
// under the user's cache directory.
func Bundle(opts config.Options) (string, error) {
	return bundleWith(opts, fs.RealFS(), cache.NewMemCache(0), openUserDiskCache())
}

func openUserDiskCache() *cache.DiskCache {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil
	}
	disk, err := cache.OpenDiskCache(filepath.Join(base, "luabundle"))
	if err != nil {
		return nil
	}
	return disk
}

// bundleWith is the seam production code and tests share: everything above
// this point is about acquiring a filesystem and a cache, everything below
// is the actual resolve-link-print pipeline.
func bundleWith(opts config.Options, filesystem fs.FS, mem *cache.MemCache, disk *cache.DiskCache) (string, error) {
	root := filesystem.Dir(opts.EntryPath)
	res := resolver.New(filesystem, root, resolver.DefaultOptions())
	reader := newReader(filesystem, mem, disk)
	builder := graph.NewBuilder(filesystem, res, reader, opts.Define)

	modules, err := builder.Build(opts.EntryPath)
	if err != nil {
		return "", err
	}

	items, err := linker.Link(modules)
	if err != nil {
		return "", err
	}

	stmts := stmtsOf(items)
	beautiful := printer.FormatBeautiful(stmts)
	if !opts.Minify {
		return beautiful, nil
	}

	// Re-parse the beautified text so the mangler works from a fresh,
	// consistent tree. A failure here means the printer produced something the
	// parser rejects — a bundler bug, not a user error.
	reparsed, err := parser.Parse(beautiful)
	if err != nil {
		return "", &ReparseError{Err: err}
	}

	if opts.Mangle != mangle.ModeNone {
		candidates, reserved := mangleInputs(items, beautiful)
		mapping := mangle.New(reserved).Assign(beautiful, candidates, opts.Mangle)
		applyMangleMap(reparsed.Stmts, mapping)
	}

	return printer.FormatMini(reparsed.Stmts), nil
}

func stmtsOf(items []*linker.Item) []ast.Stmt {
	out := make([]ast.Stmt, len(items))
	for i, it := range items {
		out[i] = *it.Stmt
	}
	return out
}

// mangleInputs derives the mangler's candidate set (every bundle-wide unique
// top-level name the linker produced) and its reservation list (every
// identifier the beautified text actually contains that is not itself a
// candidate, i.e. a genuine builtin or nested-scope local the mangler must
// never shadow) by lexing the already-linked, already-printed source once.
func mangleInputs(items []*linker.Item, beautiful string) ([]mangle.Candidate, []string) {
	names := make(map[string]bool)
	for _, it := range items {
		switch it.Kind {
		case linker.KindFunction, linker.KindMethod, linker.KindMemberAssignment:
			names[baseSegment(it.UniqueID)] = true
		case linker.KindLocalBinding:
			for _, n := range splitComma(it.UniqueID) {
				names[n] = true
			}
		}
	}

	counts := make(map[string]int32)
	all := make(map[string]bool)
	lex := lexer.New(beautiful)
	for lex.Tok.Kind != lexer.TEOF {
		if lex.Tok.Kind == lexer.TIdentifier {
			all[lex.Tok.Text] = true
			counts[lex.Tok.Text]++
		}
		lex.Next()
	}

	var candidates []mangle.Candidate
	for n := range names {
		candidates = append(candidates, mangle.Candidate{Name: n, UseCount: counts[n]})
	}

	reserved := make([]string, 0, len(lexer.Keywords))
	for kw := range lexer.Keywords {
		reserved = append(reserved, kw)
	}
	for n := range all {
		if !names[n] {
			reserved = append(reserved, n)
		}
	}

	return candidates, reserved
}

func baseSegment(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
