package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/ast"
	"luabundle/internal/fs"
	"luabundle/internal/graph"
	"luabundle/internal/parser"
	"luabundle/internal/resolver"
	"luabundle/internal/surface"
)

type reader struct{ fs fs.FS }

func (r *reader) ReadRaw(path string) (string, bool)          { return r.fs.ReadFile(path) }
func (r *reader) Extract(src string) (*surface.Result, error) { return surface.Extract(src) }
func (r *reader) Parse(src string) (*ast.Block, error)        { return parser.Parse(src) }

func build(t *testing.T, files map[string]string, entry string) ([]*graph.Module, error) {
	t.Helper()
	mockFS := fs.MockFS(files)
	res := resolver.New(mockFS, "/proj", resolver.DefaultOptions())
	b := graph.NewBuilder(mockFS, res, &reader{fs: mockFS}, nil)
	return b.Build(entry)
}

func TestBuildEntryIsAlwaysFirstModule(t *testing.T) {
	files := map[string]string{
		"/proj/main.lua": `import add from "./math"
print(add(1, 2))
`,
		"/proj/math.lua": `export local function add(a, b)
	return a + b
end
`,
	}
	modules, err := build(t, files, "/proj/main.lua")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	require.True(t, modules[0].IsEntry)
	require.Equal(t, 1, modules[0].FileSeq)
	require.False(t, modules[1].IsEntry)
}

func TestBuildCycleDoesNotInfiniteLoop(t *testing.T) {
	files := map[string]string{
		"/proj/main.lua": `import a from "./a"
print(a)
`,
		"/proj/a.lua": `import b from "./b"
export local a = b
`,
		"/proj/b.lua": `import a from "./a"
export local b = 1
`,
	}
	modules, err := build(t, files, "/proj/main.lua")
	require.NoError(t, err)
	require.Len(t, modules, 3)
}

func TestBuildUnresolvedImportPropagatesError(t *testing.T) {
	files := map[string]string{
		"/proj/main.lua": `import x from "./missing"
`,
	}
	_, err := build(t, files, "/proj/main.lua")
	require.Error(t, err)
	var unresolved *resolver.UnresolvedImport
	require.ErrorAs(t, err, &unresolved)
}

func TestBuildAppliesDefinesBeforeParsing(t *testing.T) {
	mockFS := fs.MockFS(map[string]string{
		"/proj/main.lua": "local x = VERSION\n",
	})
	res := resolver.New(mockFS, "/proj", resolver.DefaultOptions())
	b := graph.NewBuilder(mockFS, res, &reader{fs: mockFS}, map[string]string{"VERSION": "3"})

	modules, err := b.Build("/proj/main.lua")
	require.NoError(t, err)
	local, ok := modules[0].AstBody[0].Data.(*ast.SLocal)
	require.True(t, ok)
	num, ok := local.Inits[0].Data.(*ast.ENumber)
	require.True(t, ok)
	require.Equal(t, 3.0, num.Value)
}
