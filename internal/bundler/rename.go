package bundler

import "luabundle/internal/ast"

// applyMangleMap renames every top-level declaration in stmts (and every
// reference to one) using mapping, the linker's bundle-wide unique names
// mapped to their short mangled forms. mapping's domain is exactly the set
// of top-level declared names the linker produced; a nested local, a nested
// function's own name, a nested function's formal parameters, or a
// for-loop variable can happen to share one of those spellings purely by
// coincidence of source text, and such a shadowing name must not be
// renamed nor have its references resolved through mapping. The walk shape
// mirrors the linker's own rewrite pass (internal/linker/plan.go),
// generalized from a per-module lookup down to a single flat map since
// mangling runs after linking has already flattened every module into one
// namespace.
func applyMangleMap(stmts []ast.Stmt, mapping map[string]string) {
	w := &mangleWalk{mapping: mapping}
	for i := range stmts {
		w.topStmt(&stmts[i])
	}
}

type mangleWalk struct {
	mapping map[string]string
}

func (w *mangleWalk) resolve(name string) string {
	if r, ok := w.mapping[name]; ok {
		return r
	}
	return name
}

func cloneMangleShadow(shadow map[string]bool) map[string]bool {
	out := make(map[string]bool, len(shadow))
	for k := range shadow {
		out[k] = true
	}
	return out
}

// topStmt handles one of the statements passed directly to applyMangleMap:
// its own declared name (if any) is always resolved through mapping, since
// that is precisely the binding the linker allocated a unique name for.
// Everything nested underneath goes through stmt with a fresh shadow set.
func (w *mangleWalk) topStmt(stmt *ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		s.Name = w.resolve(s.Name)
		w.nestedFn(&s.Fn, nil)
	case *ast.SMethodDecl:
		if len(s.Path) > 0 {
			s.Path[0] = w.resolve(s.Path[0])
		}
		w.nestedFn(&s.Fn, nil)
	case *ast.SLocal:
		for i := range s.Inits {
			w.expr(&s.Inits[i], nil)
		}
		for i, n := range s.Names {
			s.Names[i] = w.resolve(n)
		}
	default:
		w.stmt(stmt, map[string]bool{})
	}
}

func (w *mangleWalk) block(stmts []ast.Stmt, shadow map[string]bool) {
	local := cloneMangleShadow(shadow)
	for i := range stmts {
		w.stmt(&stmts[i], local)
	}
}

// stmt handles a statement reached through nesting. Any name it binds is
// added to shadow instead of resolved through mapping.
func (w *mangleWalk) stmt(stmt *ast.Stmt, shadow map[string]bool) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		shadow[s.Name] = true
		w.nestedFn(&s.Fn, shadow)
	case *ast.SMethodDecl:
		if len(s.Path) > 0 && !shadow[s.Path[0]] {
			s.Path[0] = w.resolve(s.Path[0])
		}
		w.nestedFn(&s.Fn, shadow)
	case *ast.SLocal:
		for i := range s.Inits {
			w.expr(&s.Inits[i], shadow)
		}
		for _, n := range s.Names {
			shadow[n] = true
		}
	case *ast.SAssign:
		for i := range s.Targets {
			w.expr(&s.Targets[i], shadow)
		}
		for i := range s.Values {
			w.expr(&s.Values[i], shadow)
		}
	case *ast.SCall:
		w.expr(&s.Call, shadow)
	case *ast.SReturn:
		for i := range s.Values {
			w.expr(&s.Values[i], shadow)
		}
	case *ast.SDo:
		w.block(s.Body, shadow)
	case *ast.SWhile:
		w.expr(&s.Cond, shadow)
		w.block(s.Body, shadow)
	case *ast.SRepeat:
		local := cloneMangleShadow(shadow)
		for i := range s.Body {
			w.stmt(&s.Body[i], local)
		}
		w.expr(&s.Cond, local)
	case *ast.SIf:
		for i := range s.Clauses {
			if s.Clauses[i].Cond.Data != nil {
				w.expr(&s.Clauses[i].Cond, shadow)
			}
			w.block(s.Clauses[i].Body, shadow)
		}
	case *ast.SNumericFor:
		w.expr(&s.Start, shadow)
		w.expr(&s.Stop, shadow)
		if s.Step.Data != nil {
			w.expr(&s.Step, shadow)
		}
		loopShadow := cloneMangleShadow(shadow)
		loopShadow[s.Var] = true
		w.block(s.Body, loopShadow)
	case *ast.SGenericFor:
		for i := range s.Exprs {
			w.expr(&s.Exprs[i], shadow)
		}
		loopShadow := cloneMangleShadow(shadow)
		for _, n := range s.Vars {
			loopShadow[n] = true
		}
		w.block(s.Body, loopShadow)
	}
}

func (w *mangleWalk) nestedFn(fn *ast.Fn, shadow map[string]bool) {
	inner := cloneMangleShadow(shadow)
	for _, a := range fn.Args {
		inner[a.Name] = true
	}
	w.block(fn.Body, inner)
}

func (w *mangleWalk) expr(e *ast.Expr, shadow map[string]bool) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		if !shadow[d.Name] {
			d.Name = w.resolve(d.Name)
		}
	case *ast.EParen:
		w.expr(&d.Value, shadow)
	case *ast.EUnary:
		w.expr(&d.Value, shadow)
	case *ast.EBinary:
		w.expr(&d.Left, shadow)
		w.expr(&d.Right, shadow)
	case *ast.EMember:
		w.expr(&d.Target, shadow)
	case *ast.EIndex:
		w.expr(&d.Target, shadow)
		w.expr(&d.Key, shadow)
	case *ast.EMethodCall:
		w.expr(&d.Target, shadow)
		for i := range d.Args {
			w.expr(&d.Args[i], shadow)
		}
	case *ast.ECall:
		w.expr(&d.Target, shadow)
		for i := range d.Args {
			w.expr(&d.Args[i], shadow)
		}
	case *ast.ETable:
		for i := range d.Fields {
			if d.Fields[i].Key.Data != nil {
				w.expr(&d.Fields[i].Key, shadow)
			}
			w.expr(&d.Fields[i].Value, shadow)
		}
	case *ast.EFunction:
		w.nestedFn(&d.Fn, shadow)
	}
}
