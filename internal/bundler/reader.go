package bundler

import (
	"luabundle/internal/ast"
	"luabundle/internal/cache"
	"luabundle/internal/fs"
	"luabundle/internal/parser"
	"luabundle/internal/surface"
)

// diskReader is the production graph.Reader: it reads from a real (or mock)
// fs.FS and routes extraction through the two-level cache so a module
// reached through more than one import path, or unchanged since the last
// invocation, is not extracted again. Parsing is not cached.
type diskReader struct {
	fs   fs.FS
	mem  *cache.MemCache
	disk *cache.DiskCache
}

func newReader(f fs.FS, mem *cache.MemCache, disk *cache.DiskCache) *diskReader {
	return &diskReader{fs: f, mem: mem, disk: disk}
}

func (r *diskReader) ReadRaw(path string) (string, bool) {
	return r.fs.ReadFile(path)
}

func (r *diskReader) Extract(src string) (*surface.Result, error) {
	return cache.Extract(src, r.mem, r.disk)
}

func (r *diskReader) Parse(src string) (*ast.Block, error) {
	return parser.Parse(src)
}
