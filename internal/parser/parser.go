// Package parser implements a recursive-descent parser for the base
// scripting language, turning a token stream from internal/lexer into the
// internal/ast tree.
package parser

import (
	"fmt"

	"luabundle/internal/ast"
	"luabundle/internal/lexer"
)

type Parser struct {
	lex *lexer.Lexer
	err error
}

// Parse implements the lexer/parser collaborator contract: parse(src) ->
// (ok, ast_or_error).
func Parse(src string) (*ast.Block, error) {
	p := &Parser{lex: lexer.New(src)}
	block := p.parseBlock(blockTerminators())
	if p.err != nil {
		return nil, p.err
	}
	if lerr := p.lex.Err(); lerr != nil {
		return nil, lerr
	}
	if p.lex.Tok.Kind != lexer.TEOF {
		return nil, fmt.Errorf("byte %d: unexpected trailing token", p.lex.Tok.Loc)
	}
	return &ast.Block{Stmts: block}, nil
}

func blockTerminators() map[lexer.T]bool {
	return map[lexer.T]bool{
		lexer.TEOF: true, lexer.TEnd: true, lexer.TElse: true,
		lexer.TElseif: true, lexer.TUntil: true,
	}
}

func (p *Parser) fail(format string, args ...interface{}) {
	if p.err == nil {
		p.err = fmt.Errorf("byte %d: %s", p.lex.Tok.Loc, fmt.Sprintf(format, args...))
	}
}

func (p *Parser) expect(kind lexer.T, what string) int32 {
	loc := p.lex.Tok.Loc
	if p.lex.Tok.Kind != kind {
		p.fail("expected %s", what)
		return loc
	}
	p.lex.Next()
	return loc
}

func (p *Parser) at(kind lexer.T) bool { return p.lex.Tok.Kind == kind }

////////////////////////////////////////////////////////////////////////////////
// Statements

func (p *Parser) parseBlock(terminators map[lexer.T]bool) []ast.Stmt {
	var stmts []ast.Stmt
	for p.err == nil && !terminators[p.lex.Tok.Kind] {
		if p.at(lexer.TSemi) {
			p.lex.Next()
			continue
		}
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	loc := ast.Loc{Start: p.lex.Tok.Loc}

	switch p.lex.Tok.Kind {
	case lexer.TLocal:
		return p.parseLocal(loc)
	case lexer.TFunction:
		return p.parseFunctionDecl(loc)
	case lexer.TIf:
		return p.parseIf(loc)
	case lexer.TWhile:
		return p.parseWhile(loc)
	case lexer.TRepeat:
		return p.parseRepeat(loc)
	case lexer.TFor:
		return p.parseFor(loc)
	case lexer.TDo:
		p.lex.Next()
		body := p.parseBlock(blockTerminators())
		p.expect(lexer.TEnd, "'end'")
		return ast.Stmt{Loc: loc, Data: &ast.SDo{Body: body}}
	case lexer.TReturn:
		p.lex.Next()
		var values []ast.Expr
		if !blockTerminators()[p.lex.Tok.Kind] && !p.at(lexer.TSemi) {
			values = p.parseExprList()
		}
		if p.at(lexer.TSemi) {
			p.lex.Next()
		}
		return ast.Stmt{Loc: loc, Data: &ast.SReturn{Values: values}}
	case lexer.TBreak:
		p.lex.Next()
		return ast.Stmt{Loc: loc, Data: &ast.SBreak{}}
	default:
		return p.parseExprStmt(loc)
	}
}

func (p *Parser) parseLocal(loc ast.Loc) ast.Stmt {
	p.lex.Next() // 'local'
	if p.at(lexer.TFunction) {
		p.lex.Next()
		name := p.lex.Tok.Text
		p.expect(lexer.TIdentifier, "function name")
		fn := p.parseFnBody(false)
		return ast.Stmt{Loc: loc, Data: &ast.SFunctionDecl{Name: name, Fn: fn}}
	}

	var names []string
	names = append(names, p.identifier())
	for p.at(lexer.TComma) {
		p.lex.Next()
		names = append(names, p.identifier())
	}
	var inits []ast.Expr
	if p.at(lexer.TEq) {
		p.lex.Next()
		inits = p.parseExprList()
	}
	return ast.Stmt{Loc: loc, Data: &ast.SLocal{Names: names, Inits: inits}}
}

func (p *Parser) identifier() string {
	name := p.lex.Tok.Text
	p.expect(lexer.TIdentifier, "identifier")
	return name
}

// parseFunctionDecl handles "function Name(...)", "function A.b.c(...)" and
// "function A:b(...)". A single simple name is an SFunctionDecl (Item kind
// "function"); a dotted path is an SMethodDecl (Item kind "method").
func (p *Parser) parseFunctionDecl(loc ast.Loc) ast.Stmt {
	p.lex.Next() // 'function'
	path := []string{p.identifier()}
	colon := false
	for p.at(lexer.TDot) {
		p.lex.Next()
		path = append(path, p.identifier())
	}
	if p.at(lexer.TColon) {
		p.lex.Next()
		path = append(path, p.identifier())
		colon = true
	}
	fn := p.parseFnBody(colon)
	if len(path) == 1 {
		return ast.Stmt{Loc: loc, Data: &ast.SFunctionDecl{Name: path[0], Fn: fn}}
	}
	return ast.Stmt{Loc: loc, Data: &ast.SMethodDecl{Path: path, Colon: colon, Fn: fn}}
}

func (p *Parser) parseFnBody(isMethod bool) ast.Fn {
	p.expect(lexer.TLParen, "'('")
	var args []ast.Arg
	hasRest := false
	if isMethod {
		args = append(args, ast.Arg{Name: "self"})
	}
	for !p.at(lexer.TRParen) && p.err == nil {
		if p.at(lexer.TDotDotDot) {
			p.lex.Next()
			hasRest = true
			break
		}
		args = append(args, ast.Arg{Name: p.identifier()})
		if p.at(lexer.TComma) {
			p.lex.Next()
			continue
		}
		break
	}
	p.expect(lexer.TRParen, "')'")
	body := p.parseBlock(blockTerminators())
	p.expect(lexer.TEnd, "'end'")
	return ast.Fn{Args: args, HasRest: hasRest, Body: body, IsMethod: isMethod}
}

func (p *Parser) parseIf(loc ast.Loc) ast.Stmt {
	var clauses []ast.IfClause
	p.lex.Next() // 'if'
	cond := p.parseExpr()
	p.expect(lexer.TThen, "'then'")
	body := p.parseBlock(blockTerminators())
	clauses = append(clauses, ast.IfClause{Cond: cond, Body: body})

	for p.at(lexer.TElseif) {
		p.lex.Next()
		c := p.parseExpr()
		p.expect(lexer.TThen, "'then'")
		b := p.parseBlock(blockTerminators())
		clauses = append(clauses, ast.IfClause{Cond: c, Body: b})
	}
	if p.at(lexer.TElse) {
		p.lex.Next()
		b := p.parseBlock(blockTerminators())
		clauses = append(clauses, ast.IfClause{Cond: ast.Expr{}, Body: b})
	}
	p.expect(lexer.TEnd, "'end'")
	return ast.Stmt{Loc: loc, Data: &ast.SIf{Clauses: clauses}}
}

func (p *Parser) parseWhile(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	cond := p.parseExpr()
	p.expect(lexer.TDo, "'do'")
	body := p.parseBlock(blockTerminators())
	p.expect(lexer.TEnd, "'end'")
	return ast.Stmt{Loc: loc, Data: &ast.SWhile{Cond: cond, Body: body}}
}

func (p *Parser) parseRepeat(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	body := p.parseBlock(blockTerminators())
	p.expect(lexer.TUntil, "'until'")
	cond := p.parseExpr()
	return ast.Stmt{Loc: loc, Data: &ast.SRepeat{Body: body, Cond: cond}}
}

func (p *Parser) parseFor(loc ast.Loc) ast.Stmt {
	p.lex.Next()
	first := p.identifier()
	if p.at(lexer.TEq) {
		p.lex.Next()
		start := p.parseExpr()
		p.expect(lexer.TComma, "','")
		stop := p.parseExpr()
		var step ast.Expr
		if p.at(lexer.TComma) {
			p.lex.Next()
			step = p.parseExpr()
		}
		p.expect(lexer.TDo, "'do'")
		body := p.parseBlock(blockTerminators())
		p.expect(lexer.TEnd, "'end'")
		return ast.Stmt{Loc: loc, Data: &ast.SNumericFor{Var: first, Start: start, Stop: stop, Step: step, Body: body}}
	}

	vars := []string{first}
	for p.at(lexer.TComma) {
		p.lex.Next()
		vars = append(vars, p.identifier())
	}
	p.expect(lexer.TIn, "'in'")
	exprs := p.parseExprList()
	p.expect(lexer.TDo, "'do'")
	body := p.parseBlock(blockTerminators())
	p.expect(lexer.TEnd, "'end'")
	return ast.Stmt{Loc: loc, Data: &ast.SGenericFor{Vars: vars, Exprs: exprs, Body: body}}
}

// parseExprStmt parses either a call statement or an assignment, both of
// which start with a prefix expression.
func (p *Parser) parseExprStmt(loc ast.Loc) ast.Stmt {
	first := p.parseSuffixedExpr()

	if p.at(lexer.TComma) || p.at(lexer.TEq) {
		targets := []ast.Expr{first}
		for p.at(lexer.TComma) {
			p.lex.Next()
			targets = append(targets, p.parseSuffixedExpr())
		}
		p.expect(lexer.TEq, "'='")
		values := p.parseExprList()
		return ast.Stmt{Loc: loc, Data: &ast.SAssign{Targets: targets, Values: values}}
	}

	switch first.Data.(type) {
	case *ast.ECall, *ast.EMethodCall:
		return ast.Stmt{Loc: loc, Data: &ast.SCall{Call: first}}
	}
	p.fail("expected statement")
	return ast.Stmt{Loc: loc, Data: &ast.SCall{Call: first}}
}

////////////////////////////////////////////////////////////////////////////////
// Expressions

func (p *Parser) parseExprList() []ast.Expr {
	list := []ast.Expr{p.parseExpr()}
	for p.at(lexer.TComma) {
		p.lex.Next()
		list = append(list, p.parseExpr())
	}
	return list
}

// Binary operator precedence, low to high. "or"/"and" bind loosest, ".."
// (concat) is right-associative, "^" is right-associative.
var binPrec = map[lexer.T]int{
	lexer.TOr: 1, lexer.TAnd: 2,
	lexer.TLt: 3, lexer.TGt: 3, lexer.TLtEq: 3, lexer.TGtEq: 3, lexer.TEqEq: 3, lexer.TNotEq: 3,
	lexer.TDotDot: 4,
	lexer.TPlus:   5, lexer.TMinus: 5,
	lexer.TStar: 6, lexer.TSlash: 6, lexer.TPercent: 6,
	lexer.TCaret: 8,
}

var opText = map[lexer.T]string{
	lexer.TOr: "or", lexer.TAnd: "and", lexer.TLt: "<", lexer.TGt: ">",
	lexer.TLtEq: "<=", lexer.TGtEq: ">=", lexer.TEqEq: "==", lexer.TNotEq: "~=",
	lexer.TDotDot: "..", lexer.TPlus: "+", lexer.TMinus: "-", lexer.TStar: "*",
	lexer.TSlash: "/", lexer.TPercent: "%", lexer.TCaret: "^",
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinExpr(0)
}

func (p *Parser) parseBinExpr(minPrec int) ast.Expr {
	left := p.parseUnaryExpr()
	for {
		prec, ok := binPrec[p.lex.Tok.Kind]
		if !ok || prec < minPrec {
			return left
		}
		op := opText[p.lex.Tok.Kind]
		loc := left.Loc
		p.lex.Next()
		nextMin := prec + 1
		if isRightAssocOp(op) {
			nextMin = prec
		}
		right := p.parseBinExpr(nextMin)
		left = ast.Expr{Loc: loc, Data: &ast.EBinary{Op: op, Left: left, Right: right}}
	}
}

func isRightAssocOp(op string) bool {
	return op == ".." || op == "^"
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	loc := ast.Loc{Start: p.lex.Tok.Loc}
	switch p.lex.Tok.Kind {
	case lexer.TNot:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EUnary{Op: "not", Value: p.parseUnaryExpr()}}
	case lexer.TMinus:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EUnary{Op: "-", Value: p.parseUnaryExpr()}}
	case lexer.THash:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EUnary{Op: "#", Value: p.parseUnaryExpr()}}
	}
	return p.parseSuffixedExpr()
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	loc := ast.Loc{Start: p.lex.Tok.Loc}
	switch p.lex.Tok.Kind {
	case lexer.TIdentifier:
		name := p.lex.Tok.Text
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EIdentifier{Name: name}}
	case lexer.TNumber:
		n := p.lex.Tok.Number
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.ENumber{Value: n}}
	case lexer.TString:
		s := p.lex.Tok.Text
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EString{Value: s}}
	case lexer.TTrue:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EBoolean{Value: true}}
	case lexer.TFalse:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EBoolean{Value: false}}
	case lexer.TNil:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.ENil{}}
	case lexer.TDotDotDot:
		p.lex.Next()
		return ast.Expr{Loc: loc, Data: &ast.EVarArg{}}
	case lexer.TFunction:
		p.lex.Next()
		fn := p.parseFnBody(false)
		return ast.Expr{Loc: loc, Data: &ast.EFunction{Fn: fn}}
	case lexer.TLParen:
		p.lex.Next()
		inner := p.parseExpr()
		p.expect(lexer.TRParen, "')'")
		return ast.Expr{Loc: loc, Data: &ast.EParen{Value: inner}}
	case lexer.TLBrace:
		return p.parseTable(loc)
	}
	p.fail("unexpected token in expression")
	return ast.Expr{Loc: loc, Data: &ast.ENil{}}
}

func (p *Parser) parseTable(loc ast.Loc) ast.Expr {
	p.lex.Next() // '{'
	var fields []ast.TableField
	for !p.at(lexer.TRBrace) && p.err == nil {
		if p.at(lexer.TLBracket) {
			p.lex.Next()
			key := p.parseExpr()
			p.expect(lexer.TRBracket, "']'")
			p.expect(lexer.TEq, "'='")
			value := p.parseExpr()
			fields = append(fields, ast.TableField{Key: key, Value: value})
		} else if p.at(lexer.TIdentifier) && p.peekIsAssignAfterIdent() {
			name := p.identifier()
			p.expect(lexer.TEq, "'='")
			value := p.parseExpr()
			fields = append(fields, ast.TableField{
				Key:   ast.Expr{Data: &ast.EString{Value: name}},
				Value: value,
			})
		} else {
			fields = append(fields, ast.TableField{Value: p.parseExpr()})
		}
		if p.at(lexer.TComma) || p.at(lexer.TSemi) {
			p.lex.Next()
			continue
		}
		break
	}
	p.expect(lexer.TRBrace, "'}'")
	return ast.Expr{Loc: loc, Data: &ast.ETable{Fields: fields}}
}

// peekIsAssignAfterIdent distinguishes "{ name = value }" from "{ name }"
// (a positional entry that happens to be a bare identifier) without a true
// two-token lookahead buffer: since the lexer only exposes one token of
// lookahead, we copy the lexer by value, advance one token, and restore the
// copy. This is only called when the current token is an identifier.
func (p *Parser) peekIsAssignAfterIdent() bool {
	// The Lexer struct holds all of its state, so a value copy is a snapshot.
	saveLex := *p.lex
	name := p.lex.Tok.Text
	p.lex.Next()
	isAssign := p.lex.Tok.Kind == lexer.TEq
	*p.lex = saveLex
	_ = name
	return isAssign
}

func (p *Parser) parseSuffixedExpr() ast.Expr {
	expr := p.parsePrimaryExpr()
	for {
		loc := expr.Loc
		switch p.lex.Tok.Kind {
		case lexer.TDot:
			p.lex.Next()
			name := p.identifier()
			expr = ast.Expr{Loc: loc, Data: &ast.EMember{Target: expr, Name: name}}
		case lexer.TLBracket:
			p.lex.Next()
			key := p.parseExpr()
			p.expect(lexer.TRBracket, "']'")
			expr = ast.Expr{Loc: loc, Data: &ast.EIndex{Target: expr, Key: key}}
		case lexer.TColon:
			p.lex.Next()
			name := p.identifier()
			args := p.parseCallArgs()
			expr = ast.Expr{Loc: loc, Data: &ast.EMethodCall{Target: expr, Name: name, Args: args}}
		case lexer.TLParen, lexer.TString, lexer.TLBrace:
			args := p.parseCallArgs()
			expr = ast.Expr{Loc: loc, Data: &ast.ECall{Target: expr, Args: args}}
		default:
			return expr
		}
	}
}

func (p *Parser) parseCallArgs() []ast.Expr {
	switch p.lex.Tok.Kind {
	case lexer.TString:
		loc := ast.Loc{Start: p.lex.Tok.Loc}
		s := p.lex.Tok.Text
		p.lex.Next()
		return []ast.Expr{{Loc: loc, Data: &ast.EString{Value: s}}}
	case lexer.TLBrace:
		return []ast.Expr{p.parseTable(ast.Loc{Start: p.lex.Tok.Loc})}
	}
	p.expect(lexer.TLParen, "'('")
	var args []ast.Expr
	if !p.at(lexer.TRParen) {
		args = p.parseExprList()
	}
	p.expect(lexer.TRParen, "')'")
	return args
}
