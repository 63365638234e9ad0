// Package config holds the bundler's runtime options and loads the optional
// project manifest that seeds them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"luabundle/internal/mangle"
)

// Options is the input to the bundler entry point: entry_path, minify,
// define, mangle.
type Options struct {
	EntryPath  string
	OutputPath string // empty means write to stdout
	Minify     bool
	Mangle     mangle.Mode
	Define     map[string]string
}

// Manifest is a project's luabundle.toml: a [bundle] table holding this
// bundler's own knobs.
type Manifest struct {
	Path   string
	Root   string
	Bundle BundleConfig
}

type BundleConfig struct {
	Entry  string            `toml:"entry"`
	Output string            `toml:"output"`
	Minify bool              `toml:"minify"`
	Mangle string            `toml:"mangle"`
	Define map[string]string `toml:"define"`
}

// FindManifest searches startDir and its ancestors for luabundle.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "luabundle.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest parses path as a luabundle.toml project manifest.
func LoadManifest(path string) (*Manifest, error) {
	var bundle BundleConfig
	meta, err := toml.DecodeFile(path, &struct {
		Bundle *BundleConfig `toml:"bundle"`
	}{Bundle: &bundle})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("bundle") {
		return nil, fmt.Errorf("%s: missing [bundle]", path)
	}
	if !meta.IsDefined("bundle", "entry") || strings.TrimSpace(bundle.Entry) == "" {
		return nil, fmt.Errorf("%s: missing [bundle].entry", path)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Bundle: bundle}, nil
}

// ToOptions resolves the manifest's entry/output paths relative to its
// directory and folds in its bundle knobs, so a manifest behaves exactly
// like the equivalent set of CLI flags.
func (m *Manifest) ToOptions() (Options, error) {
	mode, err := mangle.ParseMode(m.Bundle.Mangle)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", m.Path, err)
	}
	opts := Options{
		EntryPath: filepath.Join(m.Root, filepath.FromSlash(m.Bundle.Entry)),
		Minify:    m.Bundle.Minify,
		Mangle:    mode,
		Define:    m.Bundle.Define,
	}
	if m.Bundle.Output != "" {
		opts.OutputPath = filepath.Join(m.Root, filepath.FromSlash(m.Bundle.Output))
	}
	return opts, nil
}
