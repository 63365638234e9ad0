// Package cache memoizes import/export surface extraction across modules
// and across runs, keyed by the source file's content hash. Within a single
// run an in-memory LRU avoids re-extracting a file reached through more
// than one import path; across runs an on-disk msgpack store skips the
// extraction entirely for files that have not changed since the last build.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"

	"luabundle/internal/surface"
)

// diskCacheSchemaVersion guards against decoding a payload written by an
// older, incompatible build of the extractor.
const diskCacheSchemaVersion uint16 = 1

// Digest is a content hash: SHA-256 of a module's raw source bytes.
type Digest [sha256.Size]byte

// Sum computes the Digest of src.
func Sum(src string) Digest {
	return sha256.Sum256([]byte(src))
}

// Entry is the cached result of extracting a module's surface syntax.
type Entry struct {
	Digest Digest
	Result *surface.Result
}

// MemCache is an in-memory, process-lifetime LRU of extraction results.
type MemCache struct {
	lru *lru.Cache[Digest, *surface.Result]
}

// NewMemCache builds a MemCache holding up to size entries. size <= 0 falls
// back to a default of 128 entries rather than failing.
func NewMemCache(size int) *MemCache {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[Digest, *surface.Result](size)
	if err != nil {
		// Only returns an error for size <= 0, already ruled out above.
		panic(err)
	}
	return &MemCache{lru: c}
}

// Get returns the cached extraction result for src's content, if present.
func (c *MemCache) Get(src string) (*surface.Result, bool) {
	return c.lru.Get(Sum(src))
}

// Put stores an extraction result under src's content digest.
func (c *MemCache) Put(src string, res *surface.Result) {
	c.lru.Add(Sum(src), res)
}

// diskPayload is the on-disk, msgpack-encoded form of a cached extraction.
// surface.Result is stored flattened rather than encoded directly so the
// wire format doesn't change shape if surface.Result's fields do.
type diskPayload struct {
	Schema     uint16
	Imports    []diskImport
	Exports    [][]string
	CleanedSrc string
}

type diskImport struct {
	SourceSpecifier string
	Names           []string
	Aliases         []string
}

// DiskCache persists extraction results between bundler invocations under a
// single directory, one file per content digest.
type DiskCache struct {
	dir string
}

// OpenDiskCache opens (creating if necessary) a disk cache rooted at dir.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(d Digest) string {
	return filepath.Join(c.dir, hex.EncodeToString(d[:])+".mp")
}

// Get reads the cached extraction result for src's content, if present.
func (c *DiskCache) Get(src string) (*surface.Result, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	f, err := os.Open(c.pathFor(Sum(src)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload diskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, false, nil
	}
	return payload.toResult(), true, nil
}

// Put writes an extraction result for src's content, replacing any existing
// entry atomically.
func (c *DiskCache) Put(src string, res *surface.Result) error {
	if c == nil {
		return nil
	}
	path := c.pathFor(Sum(src))
	tmp, err := os.CreateTemp(c.dir, "tmp-*.mp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := msgpack.NewEncoder(tmp).Encode(fromResult(res)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func fromResult(res *surface.Result) diskPayload {
	p := diskPayload{Schema: diskCacheSchemaVersion, CleanedSrc: res.CleanedSrc}
	for _, imp := range res.Imports {
		di := diskImport{SourceSpecifier: imp.SourceSpecifier}
		for _, b := range imp.Bindings {
			di.Names = append(di.Names, b.Name)
			di.Aliases = append(di.Aliases, b.Alias)
		}
		p.Imports = append(p.Imports, di)
	}
	for _, exp := range res.Exports {
		p.Exports = append(p.Exports, exp.Names)
	}
	return p
}

func (p diskPayload) toResult() *surface.Result {
	res := &surface.Result{CleanedSrc: p.CleanedSrc}
	for _, di := range p.Imports {
		imp := surface.Import{SourceSpecifier: di.SourceSpecifier}
		for i, name := range di.Names {
			imp.Bindings = append(imp.Bindings, surface.Binding{Name: name, Alias: di.Aliases[i]})
		}
		res.Imports = append(res.Imports, imp)
	}
	for _, names := range p.Exports {
		res.Exports = append(res.Exports, surface.Export{Names: names})
	}
	return res
}

// Extract runs surface.Extract on src, consulting mem and disk (either may
// be nil) before falling back to a live extraction, and populates both on a
// miss.
func Extract(src string, mem *MemCache, disk *DiskCache) (*surface.Result, error) {
	if mem != nil {
		if res, ok := mem.Get(src); ok {
			return res, nil
		}
	}
	if disk != nil {
		if res, ok, err := disk.Get(src); err != nil {
			return nil, err
		} else if ok {
			if mem != nil {
				mem.Put(src, res)
			}
			return res, nil
		}
	}

	res, err := surface.Extract(src)
	if err != nil {
		return nil, err
	}
	if mem != nil {
		mem.Put(src, res)
	}
	if disk != nil {
		if err := disk.Put(src, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}
