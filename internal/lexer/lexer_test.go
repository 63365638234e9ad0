package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"luabundle/internal/lexer"
)

func tokenKinds(src string) []lexer.T {
	l := lexer.New(src)
	var kinds []lexer.T
	for l.Tok.Kind != lexer.TEOF {
		kinds = append(kinds, l.Tok.Kind)
		l.Next()
	}
	return kinds
}

func TestLexKeywordsAreNotIdentifiers(t *testing.T) {
	l := lexer.New("local")
	require.Equal(t, lexer.TLocal, l.Tok.Kind)
}

func TestLexIdentifierAndNumber(t *testing.T) {
	kinds := tokenKinds("x = 3.5")
	require.Equal(t, []lexer.T{lexer.TIdentifier, lexer.TEq, lexer.TNumber}, kinds)
}

func TestLexStringHandlesEscapes(t *testing.T) {
	l := lexer.New(`"a\nb"`)
	require.Equal(t, lexer.TString, l.Tok.Kind)
	require.Equal(t, "a\nb", l.Tok.Text)
}

func TestLexMultiCharOperatorsPreferLongestMatch(t *testing.T) {
	kinds := tokenKinds("a...b..c==d~=e")
	require.Equal(t, []lexer.T{
		lexer.TIdentifier, lexer.TDotDotDot, lexer.TIdentifier, lexer.TDotDot,
		lexer.TIdentifier, lexer.TEqEq, lexer.TIdentifier, lexer.TNotEq, lexer.TIdentifier,
	}, kinds)
}

func TestLexUnterminatedStringIsAnError(t *testing.T) {
	l := lexer.New(`"unterminated`)
	require.Error(t, l.Err())
}

func TestLexSkipsComments(t *testing.T) {
	kinds := tokenKinds("-- a comment\nlocal x")
	require.Equal(t, []lexer.T{lexer.TLocal, lexer.TIdentifier}, kinds)
}
