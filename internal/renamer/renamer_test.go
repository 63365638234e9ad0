package renamer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/renamer"
)

func TestNextReturnsRequestedNameFirst(t *testing.T) {
	a := renamer.NewAllocator()
	require.Equal(t, "add", a.Next("add"))
}

func TestNextAppendsStableSuffixOnCollision(t *testing.T) {
	a := renamer.NewAllocator()
	require.Equal(t, "add", a.Next("add"))
	require.Equal(t, "add2", a.Next("add"))
	require.Equal(t, "add3", a.Next("add"))
}

func TestReserveSkipsSuffixAlreadyClaimed(t *testing.T) {
	a := renamer.NewAllocator()
	a.Reserve("add2")
	require.Equal(t, "add", a.Next("add"))
	require.Equal(t, "add3", a.Next("add"))
}

func TestIsUsedReflectsReserveAndNext(t *testing.T) {
	a := renamer.NewAllocator()
	require.False(t, a.IsUsed("add"))
	a.Reserve("add")
	require.True(t, a.IsUsed("add"))

	require.False(t, a.IsUsed("sum"))
	a.Next("sum")
	require.True(t, a.IsUsed("sum"))
}

func TestReserveIsIdempotent(t *testing.T) {
	a := renamer.NewAllocator()
	a.Reserve("add")
	a.Reserve("add")
	require.Equal(t, "add2", a.Next("add"))
}
