package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/config"
	"luabundle/internal/mangle"
)

func writeManifest(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "luabundle.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadManifestRequiresBundleEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[bundle]\noutput = \"out.lua\"\n")

	_, err := config.LoadManifest(path)
	require.Error(t, err)
}

func TestLoadManifestAndToOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[bundle]
entry = "src/main.lua"
output = "dist/bundle.lua"
minify = true
mangle = "auto"

[bundle.define]
DEBUG = "false"
`)

	m, err := config.LoadManifest(path)
	require.NoError(t, err)

	opts, err := m.ToOptions()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "src", "main.lua"), opts.EntryPath)
	require.Equal(t, filepath.Join(dir, "dist", "bundle.lua"), opts.OutputPath)
	require.True(t, opts.Minify)
	require.Equal(t, mangle.ModeAuto, opts.Mangle)
	require.Equal(t, "false", opts.Define["DEBUG"])
}

func TestFindManifestWalksUpToAncestor(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[bundle]\nentry = \"main.lua\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, ok, err := config.FindManifest(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "luabundle.toml"), found)
}
