package bundler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/ast"
	"luabundle/internal/cache"
	"luabundle/internal/config"
	"luabundle/internal/fs"
	"luabundle/internal/parser"
)

func TestBundleBeautifulInlinesImportedModule(t *testing.T) {
	files := map[string]string{
		"/proj/main.lua": `
import add from "./math"

print(add(1, 2))
`,
		"/proj/math.lua": `
export local function add(a, b)
	return a + b
end
`,
	}
	mockFS := fs.MockFS(files)
	out, err := bundleWith(config.Options{EntryPath: "/proj/main.lua"}, mockFS, cache.NewMemCache(0), nil)
	require.NoError(t, err)
	require.Contains(t, out, "local function add(a,b)")
	require.Contains(t, out, "print(add(1,2))")
	require.NotContains(t, out, "import ")
	require.NotContains(t, out, "export ")
}

func TestBundleMinifyProducesReparseableOutput(t *testing.T) {
	files := map[string]string{
		"/proj/main.lua": `
import add from "./math"

print(add(1, 2))
`,
		"/proj/math.lua": `
export local function add(a, b)
	return a + b
end
`,
	}
	mockFS := fs.MockFS(files)
	out, err := bundleWith(config.Options{EntryPath: "/proj/main.lua", Minify: true}, mockFS, cache.NewMemCache(0), nil)
	require.NoError(t, err)
	require.NotContains(t, out, "\n\t")
	require.True(t, strings.Contains(out, "print("))
	_, err = parser.Parse(out)
	require.NoError(t, err)
}

func TestBundleUnresolvedImportFails(t *testing.T) {
	files := map[string]string{
		"/proj/main.lua": `import x from "./missing"` + "\n",
	}
	mockFS := fs.MockFS(files)
	_, err := bundleWith(config.Options{EntryPath: "/proj/main.lua"}, mockFS, cache.NewMemCache(0), nil)
	require.Error(t, err)
}

// TestApplyMangleMapDoesNotRenameShadowedParameter mirrors the linker's own
// scoping contract test at the mangle layer: mapping renames the top-level
// "x" to "x2", but a nested function's parameter also spelled "x" must keep
// referring to itself, not the mangled top-level binding.
func TestApplyMangleMapDoesNotRenameShadowedParameter(t *testing.T) {
	block, err := parser.Parse(`
local x = 9

local function outer()
	local function inner(x)
		return x
	end
	return inner(5)
end
`)
	require.NoError(t, err)

	applyMangleMap(block.Stmts, map[string]string{"x": "x2", "outer": "o"})

	local := block.Stmts[0].Data.(*ast.SLocal)
	require.Equal(t, "x2", local.Names[0])

	outer := block.Stmts[1].Data.(*ast.SFunctionDecl)
	require.Equal(t, "o", outer.Name)

	inner := outer.Fn.Body[0].Data.(*ast.SFunctionDecl)
	require.Equal(t, "x", inner.Fn.Args[0].Name)
	ret := inner.Fn.Body[0].Data.(*ast.SReturn)
	ident := ret.Values[0].Data.(*ast.EIdentifier)
	require.Equal(t, "x", ident.Name)
}

func TestMangleInputsReservesNonCandidateIdentifiers(t *testing.T) {
	candidates, reserved := mangleInputs(nil, "print(helper())")
	require.Empty(t, candidates)
	require.Contains(t, reserved, "print")
	require.Contains(t, reserved, "helper")
}
