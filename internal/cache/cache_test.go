package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/cache"
)

const sampleSrc = `import add from "math"

export local function double(x)
	return add(x, x)
end
`

func TestMemCacheHitAvoidsReextraction(t *testing.T) {
	mem := cache.NewMemCache(4)

	res, err := cache.Extract(sampleSrc, mem, nil)
	require.NoError(t, err)
	require.Len(t, res.Imports, 1)

	cached, ok := mem.Get(sampleSrc)
	require.True(t, ok)
	require.Same(t, res, cached)
}

func TestDiskCachePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	disk1, err := cache.OpenDiskCache(dir)
	require.NoError(t, err)
	_, err = cache.Extract(sampleSrc, nil, disk1)
	require.NoError(t, err)

	disk2, err := cache.OpenDiskCache(dir)
	require.NoError(t, err)
	res, ok, err := disk2.Get(sampleSrc)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "math", res.Imports[0].SourceSpecifier)
	require.Len(t, res.Exports, 1)
	require.Equal(t, []string{"double"}, res.Exports[0].Names)
}

func TestDiskCacheMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	disk, err := cache.OpenDiskCache(dir)
	require.NoError(t, err)

	_, ok, err := disk.Get("local x = 1\n")
	require.NoError(t, err)
	require.False(t, ok)
}
