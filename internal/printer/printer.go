// Package printer implements the pretty-printer/minifier back end:
// FormatBeautiful and FormatMini both walk the same statement list and
// differ only in whitespace policy.
//
// Because the AST arriving here has already been fully rewritten by
// internal/linker without altering its shape — renaming only ever replaces
// an identifier's Name field, it never restructures the expression tree —
// the printer never needs to re-derive operator precedence or re-insert
// parentheses: every EParen node the parser recorded is printed exactly
// where it was written, so the output is syntactically valid by
// construction.
package printer

import (
	"strconv"
	"strings"

	"luabundle/internal/ast"
)

// FormatBeautiful renders stmts with indentation and newlines.
func FormatBeautiful(stmts []ast.Stmt) string {
	p := &printer{}
	p.printStmts(stmts)
	return p.sb.String()
}

// FormatMini renders stmts without indentation, separating statements with
// ";" and inserting a single space only where omitting one would let two
// tokens run together. A newline still follows each function header and
// each block opener ("do", "then", "else", "repeat").
func FormatMini(stmts []ast.Stmt) string {
	p := &printer{minify: true}
	p.printStmts(stmts)
	return p.sb.String()
}

type printer struct {
	sb       strings.Builder
	indent   int
	minify   bool
	lastByte byte
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// token prints text that could merge with a preceding identifier/number/
// keyword if no space separates them, so the minified output stays valid,
// re-parseable source.
func (p *printer) token(text string) {
	if text == "" {
		return
	}
	if p.minify && isIdentByte(p.lastByte) && isIdentByte(text[0]) {
		p.sb.WriteByte(' ')
	}
	p.sb.WriteString(text)
	p.lastByte = text[len(text)-1]
}

// raw prints punctuation that never needs a guard space.
func (p *printer) raw(text string) {
	if text == "" {
		return
	}
	p.sb.WriteString(text)
	p.lastByte = text[len(text)-1]
}

func (p *printer) space() {
	if !p.minify {
		p.raw(" ")
	}
}

func (p *printer) newline() {
	p.raw("\n")
}

func (p *printer) printIndent() {
	if !p.minify {
		p.raw(strings.Repeat("\t", p.indent))
	}
}

func (p *printer) statementSep() {
	if p.minify {
		p.raw(";")
	} else {
		p.newline()
	}
}

func (p *printer) printStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		p.printIndent()
		p.printStmt(s)
		p.statementSep()
	}
}

func (p *printer) printBlockBody(body []ast.Stmt) {
	p.indent++
	p.printStmts(body)
	p.indent--
}

func (p *printer) printStmt(stmt ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		p.token("local")
		p.space()
		p.token("function")
		p.space()
		p.token(s.Name)
		p.printFn(s.Fn, false)

	case *ast.SMethodDecl:
		p.token("function")
		p.space()
		for i, seg := range s.Path {
			if i == 0 {
				p.token(seg)
				continue
			}
			if s.Colon && i == len(s.Path)-1 {
				p.raw(":")
			} else {
				p.raw(".")
			}
			p.token(seg)
		}
		p.printFn(s.Fn, s.Colon)

	case *ast.SLocal:
		p.token("local")
		p.space()
		p.printNameList(s.Names)
		if len(s.Inits) > 0 {
			p.space()
			p.raw("=")
			p.space()
			p.printExprList(s.Inits)
		}

	case *ast.SAssign:
		p.printExprList(s.Targets)
		p.space()
		p.raw("=")
		p.space()
		p.printExprList(s.Values)

	case *ast.SCall:
		p.printExpr(s.Call)

	case *ast.SReturn:
		p.token("return")
		if len(s.Values) > 0 {
			p.space()
			p.printExprList(s.Values)
		}

	case *ast.SBreak:
		p.token("break")

	case *ast.SDo:
		p.token("do")
		p.newline()
		p.printBlockBody(s.Body)
		p.printIndent()
		p.token("end")

	case *ast.SWhile:
		p.token("while")
		p.space()
		p.printExpr(s.Cond)
		p.space()
		p.token("do")
		p.newline()
		p.printBlockBody(s.Body)
		p.printIndent()
		p.token("end")

	case *ast.SRepeat:
		p.token("repeat")
		p.newline()
		p.printBlockBody(s.Body)
		p.printIndent()
		p.token("until")
		p.space()
		p.printExpr(s.Cond)

	case *ast.SIf:
		for i, c := range s.Clauses {
			if i > 0 {
				p.printIndent()
			}
			if c.Cond.Data != nil {
				if i == 0 {
					p.token("if")
				} else {
					p.token("elseif")
				}
				p.space()
				p.printExpr(c.Cond)
				p.space()
				p.token("then")
			} else {
				p.token("else")
			}
			p.newline()
			p.printBlockBody(c.Body)
		}
		p.printIndent()
		p.token("end")

	case *ast.SNumericFor:
		p.token("for")
		p.space()
		p.token(s.Var)
		p.raw("=")
		p.printExpr(s.Start)
		p.raw(",")
		p.printExpr(s.Stop)
		if s.Step.Data != nil {
			p.raw(",")
			p.printExpr(s.Step)
		}
		p.space()
		p.token("do")
		p.newline()
		p.printBlockBody(s.Body)
		p.printIndent()
		p.token("end")

	case *ast.SGenericFor:
		p.token("for")
		p.space()
		p.printNameList(s.Vars)
		p.space()
		p.token("in")
		p.space()
		p.printExprList(s.Exprs)
		p.space()
		p.token("do")
		p.newline()
		p.printBlockBody(s.Body)
		p.printIndent()
		p.token("end")
	}
}

func (p *printer) printNameList(names []string) {
	for i, n := range names {
		if i > 0 {
			p.raw(",")
		}
		p.token(n)
	}
}

func (p *printer) printExprList(exprs []ast.Expr) {
	for i, e := range exprs {
		if i > 0 {
			p.raw(",")
		}
		p.printExpr(e)
	}
}

func (p *printer) printFn(fn ast.Fn, skipFirstSelf bool) {
	p.raw("(")
	args := fn.Args
	if skipFirstSelf && len(args) > 0 {
		args = args[1:]
	}
	for i, a := range args {
		if i > 0 {
			p.raw(",")
		}
		p.token(a.Name)
	}
	if fn.HasRest {
		if len(args) > 0 {
			p.raw(",")
		}
		p.raw("...")
	}
	p.raw(")")
	p.newline()
	p.printBlockBody(fn.Body)
	p.printIndent()
	p.token("end")
}

func (p *printer) printExpr(e ast.Expr) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		p.token(d.Name)

	case *ast.ENumber:
		p.token(formatNumber(d.Value))

	case *ast.EString:
		p.raw(quoteString(d.Value))

	case *ast.EBoolean:
		if d.Value {
			p.token("true")
		} else {
			p.token("false")
		}

	case *ast.ENil:
		p.token("nil")

	case *ast.EVarArg:
		p.raw("...")

	case *ast.EParen:
		p.raw("(")
		p.printExpr(d.Value)
		p.raw(")")

	case *ast.EUnary:
		p.token(d.Op)
		if d.Op == "not" {
			p.space()
		}
		p.printExpr(d.Value)

	case *ast.EBinary:
		p.printExpr(d.Left)
		if isWordOp(d.Op) {
			p.space()
			p.token(d.Op)
			p.space()
		} else {
			p.space()
			p.raw(d.Op)
			p.space()
		}
		p.printExpr(d.Right)

	case *ast.EMember:
		p.printExpr(d.Target)
		p.raw(".")
		p.token(d.Name)

	case *ast.EIndex:
		p.printExpr(d.Target)
		p.raw("[")
		p.printExpr(d.Key)
		p.raw("]")

	case *ast.EMethodCall:
		p.printExpr(d.Target)
		p.raw(":")
		p.token(d.Name)
		p.raw("(")
		p.printExprList(d.Args)
		p.raw(")")

	case *ast.ECall:
		p.printExpr(d.Target)
		p.raw("(")
		p.printExprList(d.Args)
		p.raw(")")

	case *ast.ETable:
		p.raw("{")
		for i, f := range d.Fields {
			if i > 0 {
				p.raw(",")
			}
			if f.Key.Data != nil {
				if key, ok := f.Key.Data.(*ast.EString); ok && isPlainIdentifier(key.Value) {
					p.token(key.Value)
				} else {
					p.raw("[")
					p.printExpr(f.Key)
					p.raw("]")
				}
				p.raw("=")
			}
			p.printExpr(f.Value)
		}
		p.raw("}")

	case *ast.EFunction:
		p.token("function")
		p.printFn(d.Fn, false)
	}
}

// isWordOp reports whether op is a binary keyword operator ("and", "or")
// that must be surrounded by whitespace even when minifying, since running
// it into an adjacent identifier would change the token stream. The unary
// "not" is printed by the EUnary case instead.
func isWordOp(op string) bool {
	return op == "and" || op == "or"
}

func isPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
