// Package extract walks a single top-level statement and records every
// free identifier and qualified member path it depends on, so the linker
// can figure out which other declarations must be emitted before it.
package extract

import (
	"strings"

	"luabundle/internal/ast"
)

// Deps computes the dependency set for a single top-level statement. Call
// targets contribute their full dotted path (so "T.make()" depends on both
// "T" and "T.make"), while assignment/declaration targets contribute only
// their base identifier, since the declared name itself is not a
// dependency of the statement that declares it.
func Deps(stmt ast.Stmt) map[string]bool {
	v := &visitor{deps: make(map[string]bool)}
	v.visitStmt(stmt)
	return v.deps
}

type visitor struct {
	deps map[string]bool
}

func (v *visitor) add(name string) {
	if name != "" {
		v.deps[name] = true
	}
}

// chainPath walks a member-access chain of identifier and constant-string
// index accesses and returns the full dotted path, e.g. "A.b.c". It returns
// ok=false if the chain contains anything else (a call, a non-literal
// index, a parenthesised sub-expression, ...) — such a chain never
// collapses to a single dotted-path dependency.
func chainPath(e ast.Expr) ([]string, bool) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		return []string{d.Name}, true
	case *ast.EMember:
		base, ok := chainPath(d.Target)
		if !ok {
			return nil, false
		}
		return append(base, d.Name), true
	case *ast.EIndex:
		key, ok := d.Key.Data.(*ast.EString)
		if !ok {
			return nil, false
		}
		base, ok := chainPath(d.Target)
		if !ok {
			return nil, false
		}
		return append(base, key.Value), true
	default:
		return nil, false
	}
}

func (v *visitor) visitStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		v.visitStmt(s)
	}
}

func (v *visitor) visitStmt(stmt ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		v.visitFn(s.Fn)

	case *ast.SMethodDecl:
		// The base of the dotted declaration target must exist already;
		// the declared path itself is not a dependency of this statement.
		v.add(s.Path[0])
		v.visitFn(s.Fn)

	case *ast.SLocal:
		for _, e := range s.Inits {
			v.visitExpr(e)
		}

	case *ast.SAssign:
		for _, t := range s.Targets {
			v.visitAssignTarget(t)
		}
		for _, e := range s.Values {
			v.visitExpr(e)
		}

	case *ast.SCall:
		v.visitExpr(s.Call)

	case *ast.SReturn:
		for _, e := range s.Values {
			v.visitExpr(e)
		}

	case *ast.SBreak:
		// no dependencies

	case *ast.SDo:
		v.visitStmts(s.Body)

	case *ast.SWhile:
		v.visitExpr(s.Cond)
		v.visitStmts(s.Body)

	case *ast.SRepeat:
		v.visitStmts(s.Body)
		v.visitExpr(s.Cond)

	case *ast.SIf:
		for _, c := range s.Clauses {
			if c.Cond.Data != nil {
				v.visitExpr(c.Cond)
			}
			v.visitStmts(c.Body)
		}

	case *ast.SNumericFor:
		v.visitExpr(s.Start)
		v.visitExpr(s.Stop)
		if s.Step.Data != nil {
			v.visitExpr(s.Step)
		}
		v.visitStmts(s.Body)

	case *ast.SGenericFor:
		for _, e := range s.Exprs {
			v.visitExpr(e)
		}
		v.visitStmts(s.Body)
	}
}

// visitAssignTarget records only the base identifier of an assignment
// target chain, plus any dependencies nested inside a non-literal index
// key.
func (v *visitor) visitAssignTarget(e ast.Expr) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		// A bare identifier target declares/assigns that name; it is not a
		// dependency of the statement that assigns to it.
	case *ast.EMember:
		if id, ok := d.Target.Data.(*ast.EIdentifier); ok {
			v.add(id.Name)
		} else {
			v.visitAssignTarget(d.Target)
		}
	case *ast.EIndex:
		if id, ok := d.Target.Data.(*ast.EIdentifier); ok {
			v.add(id.Name)
		} else {
			v.visitAssignTarget(d.Target)
		}
		v.visitExpr(d.Key)
	default:
		v.visitExpr(e)
	}
}

func (v *visitor) visitFn(fn ast.Fn) {
	v.visitStmts(fn.Body)
}

func (v *visitor) visitExpr(e ast.Expr) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		v.add(d.Name)

	case *ast.ENumber, *ast.EString, *ast.EBoolean, *ast.ENil, *ast.EVarArg:
		// no dependencies

	case *ast.EParen:
		v.visitExpr(d.Value)

	case *ast.EUnary:
		v.visitExpr(d.Value)

	case *ast.EBinary:
		v.visitExpr(d.Left)
		v.visitExpr(d.Right)

	case *ast.EMember, *ast.EIndex:
		if path, ok := chainPath(e); ok {
			v.add(strings.Join(path, "."))
			v.add(path[0])
			return
		}
		// Not a clean chain: fall back to generic recursion.
		switch m := d.(type) {
		case *ast.EMember:
			v.visitExpr(m.Target)
		case *ast.EIndex:
			v.visitExpr(m.Target)
			v.visitExpr(m.Key)
		}

	case *ast.ECall:
		v.visitCallTarget(d.Target)
		for _, a := range d.Args {
			v.visitExpr(a)
		}

	case *ast.EMethodCall:
		if path, ok := chainPath(d.Target); ok {
			full := append(append([]string{}, path...), d.Name)
			v.add(strings.Join(full, "."))
			v.add(path[0])
		} else {
			v.visitExpr(d.Target)
		}
		for _, a := range d.Args {
			v.visitExpr(a)
		}

	case *ast.ETable:
		for _, f := range d.Fields {
			if f.Key.Data != nil {
				v.visitExpr(f.Key)
			}
			v.visitExpr(f.Value)
		}

	case *ast.EFunction:
		v.visitFn(d.Fn)
	}
}

// visitCallTarget implements the "the base of a call expression is not
// re-recorded as a dotted-path dependency" rule: a clean chain target
// contributes exactly one dotted-path dependency (the call's own path),
// not also a second one from generically recursing into it.
func (v *visitor) visitCallTarget(target ast.Expr) {
	if path, ok := chainPath(target); ok {
		v.add(strings.Join(path, "."))
		v.add(path[0])
		return
	}
	v.visitExpr(target)
}
