package printer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/parser"
	"luabundle/internal/printer"
)

func TestFormatBeautifulRoundTrips(t *testing.T) {
	src := `local function add(a, b)
	return a + b
end
`
	block, err := parser.Parse(src)
	require.NoError(t, err)

	out := printer.FormatBeautiful(block.Stmts)
	require.Contains(t, out, "local function add(a,b)")
	require.Contains(t, out, "return a + b")

	reparsed, err := parser.Parse(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Stmts, 1)
}

func TestFormatMiniProducesReparseableOutput(t *testing.T) {
	src := `
local a = 1
local b = 2
if a == b then
	return a
else
	return b
end
`
	block, err := parser.Parse(src)
	require.NoError(t, err)

	mini := printer.FormatMini(block.Stmts)
	require.NotContains(t, mini, "\t")

	reparsed, err := parser.Parse(mini)
	require.NoError(t, err)
	require.Len(t, reparsed.Stmts, 3)
}

func TestFormatMiniKeepsWordOperatorsSeparated(t *testing.T) {
	block, err := parser.Parse("local x = a and b\n")
	require.NoError(t, err)

	mini := printer.FormatMini(block.Stmts)
	require.Contains(t, mini, "a and b")
}

func TestFormatMiniTableConstructor(t *testing.T) {
	block, err := parser.Parse("local t = {x = 1, 2, 3}\n")
	require.NoError(t, err)

	out := printer.FormatMini(block.Stmts)
	reparsed, err := parser.Parse(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Stmts, 1)
}
