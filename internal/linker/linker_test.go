package linker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/ast"
	"luabundle/internal/fs"
	"luabundle/internal/graph"
	"luabundle/internal/linker"
	"luabundle/internal/parser"
	"luabundle/internal/resolver"
	"luabundle/internal/surface"
)

// diskReader wires the real surface extractor and parser to an in-memory
// filesystem, mirroring what internal/bundler assembles for production use.
type diskReader struct {
	fs fs.FS
}

func (r *diskReader) ReadRaw(path string) (string, bool) { return r.fs.ReadFile(path) }
func (r *diskReader) Extract(src string) (*surface.Result, error) { return surface.Extract(src) }
func (r *diskReader) Parse(src string) (*ast.Block, error) { return parser.Parse(src) }

func buildModules(t *testing.T, files map[string]string, entry string) []*graph.Module {
	t.Helper()
	f := fs.MockFS(files)
	res := resolver.New(f, "/", resolver.DefaultOptions())
	b := graph.NewBuilder(f, res, &diskReader{fs: f}, nil)
	modules, err := b.Build(entry)
	require.NoError(t, err)
	return modules
}

// funcNames collects the final printed names of every function-item in
// emission order, for asserting declaration-before-use ordering cheaply.
func funcNames(items []*linker.Item) []string {
	var out []string
	for _, it := range items {
		if it.Kind == linker.KindFunction {
			out = append(out, it.Stmt.Data.(*ast.SFunctionDecl).Name)
		}
	}
	return out
}

func TestLinkRenamesConflictingExports(t *testing.T) {
	modules := buildModules(t, map[string]string{
		"/main.lua": `
import helper from "./a"
import helper as bHelper from "./b"

helper()
bHelper()
`,
		"/a.lua": `
export local function helper()
	return 1
end
`,
		"/b.lua": `
export local function helper()
	return 2
end
`,
	}, "/main.lua")

	items, err := linker.Link(modules)
	require.NoError(t, err)

	names := funcNames(items)
	require.Len(t, names, 2)
	require.Equal(t, "helper", names[0])
	require.Equal(t, "helper2", names[1])
}

func TestLinkDeclarationBeforeUse(t *testing.T) {
	modules := buildModules(t, map[string]string{
		"/main.lua": `
import run from "./lib"

run()
`,
		"/lib.lua": `
local function inner()
	return 1
end

export local function run()
	return inner()
end
`,
	}, "/main.lua")

	items, err := linker.Link(modules)
	require.NoError(t, err)

	names := funcNames(items)
	require.Equal(t, []string{"inner", "run"}, names)
}

func TestLinkTolerantOfImportCycles(t *testing.T) {
	modules := buildModules(t, map[string]string{
		"/main.lua": `
import a from "./a"

a()
`,
		"/a.lua": `
import b from "./b"

export local function a()
	return b
end
`,
		"/b.lua": `
import a as aRef from "./a"

export local function b()
	return aRef
end
`,
	}, "/main.lua")

	items, err := linker.Link(modules)
	require.NoError(t, err)
	require.Len(t, funcNames(items), 2)
}

// TestLinkDoesNotCaptureShadowedParameter guards the scoping contract: the
// entry module has a top-level non-exported local named "x" and a nested
// function with its own parameter named "x". The nested "return x" makes
// "x" a dependency of "outer", so the conflict cascade moves main.lua's
// export "x" to "x2" and the entry's local keeps "x". The parameter and the
// references to it inside the nested function must keep the spelling "x".
func TestLinkDoesNotCaptureShadowedParameter(t *testing.T) {
	modules := buildModules(t, map[string]string{
		"/main.lua": `
export local function x()
	return 1
end
`,
		"/user.lua": `
import x as mainX from "./main"

local x = 9

local function outer()
	local function inner(x)
		return x
	end
	return inner(5) + mainX()
end
`,
	}, "/user.lua")

	items, err := linker.Link(modules)
	require.NoError(t, err)

	var outer *ast.SFunctionDecl
	for _, it := range items {
		if it.Kind == linker.KindFunction {
			decl := it.Stmt.Data.(*ast.SFunctionDecl)
			if decl.Name == "outer" {
				outer = decl
			}
		}
	}
	require.NotNil(t, outer)

	inner := outer.Fn.Body[0].Data.(*ast.SFunctionDecl)
	require.Equal(t, "inner", inner.Name)
	require.Equal(t, "x", inner.Fn.Args[0].Name)

	ret := inner.Fn.Body[0].Data.(*ast.SReturn)
	ident := ret.Values[0].Data.(*ast.EIdentifier)
	require.Equal(t, "x", ident.Name)
}

// TestLinkCascadeFreesVacatedExportNameForUnrelatedLocal exercises a module
// A that exports a name ("config") colliding with an unrelated module B's
// own non-exported top-level local of the same spelling, with no import
// relationship between A and B. The cascade must rename A's export out of
// the way rather than B's local, and B's local must end up keeping its
// original spelling once A's claim on it has moved elsewhere, rather than
// being left bumped to a name A no longer even holds.
func TestLinkCascadeFreesVacatedExportNameForUnrelatedLocal(t *testing.T) {
	modules := buildModules(t, map[string]string{
		"/main.lua": `
import pingA from "./a"
import pingB from "./b"

pingA()
pingB()
`,
		"/a.lua": `
export local config = "A"

export local function pingA()
	return config
end
`,
		"/b.lua": `
local config = "B"

export local function pingB()
	return config
end
`,
	}, "/main.lua")

	items, err := linker.Link(modules)
	require.NoError(t, err)

	var aConfig, bConfig *ast.SLocal
	var pingAFn, pingBFn *ast.SFunctionDecl
	for _, it := range items {
		switch d := it.Stmt.Data.(type) {
		case *ast.SLocal:
			if len(d.Inits) != 1 {
				continue
			}
			s, ok := d.Inits[0].Data.(*ast.EString)
			if !ok {
				continue
			}
			switch s.Value {
			case "A":
				aConfig = d
			case "B":
				bConfig = d
			}
		case *ast.SFunctionDecl:
			switch d.Name {
			case "pingA":
				pingAFn = d
			case "pingB":
				pingBFn = d
			}
		}
	}

	require.NotNil(t, aConfig)
	require.NotNil(t, bConfig)
	require.Equal(t, "config2", aConfig.Names[0])
	require.Equal(t, "config", bConfig.Names[0])

	require.NotNil(t, pingAFn)
	retA := pingAFn.Fn.Body[0].Data.(*ast.SReturn)
	require.Equal(t, "config2", retA.Values[0].Data.(*ast.EIdentifier).Name)

	require.NotNil(t, pingBFn)
	retB := pingBFn.Fn.Body[0].Data.(*ast.SReturn)
	require.Equal(t, "config", retB.Values[0].Data.(*ast.EIdentifier).Name)
}

func TestLinkEntryStatementsKeepSourceOrder(t *testing.T) {
	modules := buildModules(t, map[string]string{
		"/main.lua": `
import run from "./lib"

local first = 1
local second = 2
run()
`,
		"/lib.lua": `
export local function run()
	return 1
end
`,
	}, "/main.lua")

	items, err := linker.Link(modules)
	require.NoError(t, err)

	// The last three items are the entry module's own statements, appended
	// verbatim in source order after every imported declaration.
	require.GreaterOrEqual(t, len(items), 3)
	tail := items[len(items)-3:]
	require.Equal(t, []string{"first", "second"}, []string{
		tail[0].Stmt.Data.(*ast.SLocal).Names[0],
		tail[1].Stmt.Data.(*ast.SLocal).Names[0],
	})
}
