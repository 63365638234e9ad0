package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/ast"
	"luabundle/internal/parser"
)

func TestParseLocalFunctionYieldsSFunctionDecl(t *testing.T) {
	block, err := parser.Parse("local function add(a, b)\n\treturn a + b\nend\n")
	require.NoError(t, err)
	require.Len(t, block.Stmts, 1)
	decl, ok := block.Stmts[0].Data.(*ast.SFunctionDecl)
	require.True(t, ok)
	require.Equal(t, "add", decl.Name)
	require.Len(t, decl.Fn.Args, 2)
}

func TestParseDottedFunctionYieldsSMethodDecl(t *testing.T) {
	block, err := parser.Parse("function T.make(x)\n\treturn x\nend\n")
	require.NoError(t, err)
	decl, ok := block.Stmts[0].Data.(*ast.SMethodDecl)
	require.True(t, ok)
	require.Equal(t, []string{"T", "make"}, decl.Path)
	require.False(t, decl.Colon)
}

func TestParseColonMethodInjectsImplicitSelf(t *testing.T) {
	block, err := parser.Parse("function T:greet()\nend\n")
	require.NoError(t, err)
	decl, ok := block.Stmts[0].Data.(*ast.SMethodDecl)
	require.True(t, ok)
	require.True(t, decl.Colon)
	require.Equal(t, []ast.Arg{{Name: "self"}}, decl.Fn.Args)
}

func TestParseBinaryPrecedenceMulBindsTighterThanAdd(t *testing.T) {
	block, err := parser.Parse("local x = 1 + 2 * 3\n")
	require.NoError(t, err)
	local := block.Stmts[0].Data.(*ast.SLocal)
	top := local.Inits[0].Data.(*ast.EBinary)
	require.Equal(t, "+", top.Op)
	right := top.Right.Data.(*ast.EBinary)
	require.Equal(t, "*", right.Op)
}

func TestParseCaretIsRightAssociative(t *testing.T) {
	block, err := parser.Parse("local x = 2 ^ 3 ^ 2\n")
	require.NoError(t, err)
	local := block.Stmts[0].Data.(*ast.SLocal)
	top := local.Inits[0].Data.(*ast.EBinary)
	require.Equal(t, "^", top.Op)
	_, leftIsNumber := top.Left.Data.(*ast.ENumber)
	require.True(t, leftIsNumber)
	_, rightIsBinary := top.Right.Data.(*ast.EBinary)
	require.True(t, rightIsBinary)
}

func TestParseTableConstructorMixedFields(t *testing.T) {
	block, err := parser.Parse(`local t = {x = 1, 2, [3+0] = "y"}` + "\n")
	require.NoError(t, err)
	local := block.Stmts[0].Data.(*ast.SLocal)
	table := local.Inits[0].Data.(*ast.ETable)
	require.Len(t, table.Fields, 3)
	key0, ok := table.Fields[0].Key.Data.(*ast.EString)
	require.True(t, ok)
	require.Equal(t, "x", key0.Value)
	require.Nil(t, table.Fields[1].Key.Data)
}

func TestParseUnexpectedTokenIsAnError(t *testing.T) {
	_, err := parser.Parse("local x = +\n")
	require.Error(t, err)
}

func TestParseUnclosedBlockIsAnError(t *testing.T) {
	_, err := parser.Parse("if true then\n\treturn 1\n")
	require.Error(t, err)
}
