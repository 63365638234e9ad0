// Package graph discovers the set of modules reachable from an entry file
// by following import declarations, and holds the per-module data (its
// parsed body, its imports and exports) the rest of the bundler works from.
package graph

import (
	"fmt"
	"strings"

	"luabundle/internal/ast"
	"luabundle/internal/fs"
	"luabundle/internal/resolver"
	"luabundle/internal/surface"
)

type Binding = surface.Binding

type ImportDecl struct {
	SourceSpecifier string
	Bindings        []Binding
	// TargetKey is the resolved module key this import points to.
	TargetKey string
}

type ExportDecl struct {
	Names []string
}

// Module is one file in the discovered graph.
type Module struct {
	Key         string
	DisplayName string
	Directory   string
	Imports     []ImportDecl
	Exports     []ExportDecl
	AstBody     []ast.Stmt
	IsEntry     bool
	FileSeq     int
}

type ReadFailure struct {
	Path string
	Err  error
}

func (e *ReadFailure) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

// Reader is implemented by anything that can produce a module's raw source
// and parsed AST — in production this reads from disk and calls the real
// surface extractor and parser; tests can substitute a cache-backed or
// mock-backed reader.
type Reader interface {
	ReadRaw(path string) (string, bool)
	Extract(src string) (*surface.Result, error)
	Parse(src string) (*ast.Block, error)
}

// Builder walks the import graph depth-first starting from an entry file.
type Builder struct {
	fs       fs.FS
	resolver *resolver.Resolver
	reader   Reader
	define   map[string]string

	visited map[string]int // key -> index into modules
	modules []*Module
}

func NewBuilder(f fs.FS, res *resolver.Resolver, reader Reader, define map[string]string) *Builder {
	return &Builder{
		fs:       f,
		resolver: res,
		reader:   reader,
		define:   define,
		visited:  make(map[string]int),
	}
}

// Build discovers the module graph rooted at entryPath and returns the
// modules in discovery order, with the entry module always first.
func (b *Builder) Build(entryPath string) ([]*Module, error) {
	abs, ok := b.fs.Abs(entryPath)
	if !ok {
		abs = entryPath
	}
	key := resolver.Normalize(abs)
	if _, err := b.discover(key, abs, true); err != nil {
		return nil, err
	}
	return b.modules, nil
}

func (b *Builder) discover(key string, absPath string, isEntry bool) (*Module, error) {
	if idx, ok := b.visited[key]; ok {
		return b.modules[idx], nil
	}

	raw, ok := b.reader.ReadRaw(absPath)
	if !ok {
		return nil, &ReadFailure{Path: absPath, Err: fmt.Errorf("file not found")}
	}

	raw = applyDefines(raw, b.define)

	extracted, err := b.reader.Extract(raw)
	if err != nil {
		return nil, &ExtractError{Path: absPath, Err: err}
	}

	block, err := b.reader.Parse(extracted.CleanedSrc)
	if err != nil {
		return nil, &ParseError{Path: absPath, Err: err}
	}

	mod := &Module{
		Key:         key,
		DisplayName: displayName(absPath),
		Directory:   b.fs.Dir(absPath),
		AstBody:     block.Stmts,
		IsEntry:     isEntry,
	}
	for _, exp := range extracted.Exports {
		mod.Exports = append(mod.Exports, ExportDecl{Names: exp.Names})
	}

	// Reserve this module's slot before recursing so an import cycle back to
	// it resolves to the same node instead of re-entering.
	mod.FileSeq = len(b.modules) + 1
	b.modules = append(b.modules, mod)
	b.visited[key] = len(b.modules) - 1

	for _, imp := range extracted.Imports {
		res, err := b.resolver.Resolve(imp.SourceSpecifier, mod.Directory)
		if err != nil {
			return nil, err
		}
		if _, err := b.discover(res.Key, res.AbsPath, false); err != nil {
			return nil, err
		}
		mod.Imports = append(mod.Imports, ImportDecl{
			SourceSpecifier: imp.SourceSpecifier,
			Bindings:        imp.Bindings,
			TargetKey:       res.Key,
		})
	}

	return mod, nil
}

func displayName(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// applyDefines performs a literal string-for-string replacement of each
// key with its replacement, before any parsing. This can alter token
// structure: every occurrence of a key is replaced, including inside longer
// identifiers, string literals and comments, and the order in which keys
// are applied is not defined.
func applyDefines(src string, define map[string]string) string {
	if len(define) == 0 {
		return src
	}
	for name, replacement := range define {
		src = strings.ReplaceAll(src, name, replacement)
	}
	return src
}

// ByKey returns the module with the given key, or nil.
func ByKey(modules []*Module, key string) *Module {
	for _, m := range modules {
		if m.Key == key {
			return m
		}
	}
	return nil
}
