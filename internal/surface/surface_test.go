package surface_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/surface"
)

func TestExtractImportWithAlias(t *testing.T) {
	res, err := surface.Extract(`import add as sum, sub from "./math"
print(sum(1, 2))
`)
	require.NoError(t, err)
	require.Len(t, res.Imports, 1)
	require.Equal(t, "./math", res.Imports[0].SourceSpecifier)
	require.Equal(t, []surface.Binding{{Name: "add", Alias: "sum"}, {Name: "sub", Alias: "sub"}}, res.Imports[0].Bindings)
	require.NotContains(t, res.CleanedSrc, "import ")
}

func TestExtractExportFunctionKeepsDeclaration(t *testing.T) {
	res, err := surface.Extract(`export local function add(a, b)
	return a + b
end
`)
	require.NoError(t, err)
	require.Len(t, res.Exports, 1)
	require.Equal(t, []string{"add"}, res.Exports[0].Names)
	require.Contains(t, res.CleanedSrc, "local function add(a, b)")
	require.NotContains(t, res.CleanedSrc, "export")
}

func TestExtractExportLocalNameList(t *testing.T) {
	res, err := surface.Extract("export local a, b = 1, 2\n")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, res.Exports[0].Names)
}

func TestExtractExportWithoutLocalIsError(t *testing.T) {
	_, err := surface.Extract("export function f() end\n")
	require.Error(t, err)
}

func TestExtractImportWithoutFromIsError(t *testing.T) {
	_, err := surface.Extract(`import add "./math"` + "\n")
	require.Error(t, err)
}

func TestExtractImportSpecifierMustBeQuoted(t *testing.T) {
	_, err := surface.Extract("import add from math\n")
	require.Error(t, err)
}
