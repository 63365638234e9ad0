package linker

import (
	"luabundle/internal/ast"
	"luabundle/internal/graph"
	"luabundle/internal/lexer"
	"luabundle/internal/renamer"
)

// maxCascadeRounds bounds the conflict-cascade fixpoint loop: a bundle
// whose renames never stabilize within this many rounds is treated as
// exhausted rather than left to loop forever.
const maxCascadeRounds = 10

// Plan is the result of the name allocator and rename planner: the
// per-module lookup tables the rewriter and the emission orderer both
// consume.
type Plan struct {
	Items []*Item

	// exportedUnique[moduleKey][originalExportName] = the unique name chosen
	// for that export.
	exportedUnique map[string]map[string]string
	// aliasMap[moduleKey][localAliasName] = the unique exporter name it
	// refers to.
	aliasMap map[string]map[string]string
	aliasSet map[string]map[string]bool
	// localRewriteMap[moduleKey][originalName] = the unique name chosen for
	// that module's own top-level declaration.
	localRewriteMap map[string]map[string]string
	// globalRename is the process-wide fallback: populated whenever a
	// non-exported top-level binding is renamed away from its original
	// spelling.
	globalRename map[string]string
}

// NameExhaustion is returned when the conflict-cascade fixpoint does not
// settle within maxCascadeRounds: a bundle that never stabilizes is
// reported, not silently truncated.
type NameExhaustion struct {
	Name string
}

func (e *NameExhaustion) Error() string {
	return "could not find a stable unique name for " + e.Name + " after " + itoa(maxCascadeRounds) + " cascade rounds"
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	out := []byte{}
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}
	return string(out)
}

// Build allocates every process-wide unique name, builds the
// alias/local-rewrite/global-rename lookup tables, applies the
// conflict-cascade rule, and finally mutates each module's own declaration
// sites in place with their chosen unique names.
//
// Exported names are claimed, and the cascade that resolves conflicts
// between them and other modules' plain references runs, before any
// non-exported top-level binding is claimed. This lets a non-exported local
// fall back to its own natural spelling whenever the cascade moves a
// colliding export out of the way, instead of the local being bumped first
// and then stranded once the export it collided with has itself moved on.
func Build(modules []*graph.Module) (*Plan, error) {
	alloc := renamer.NewAllocator()
	for kw := range lexer.Keywords {
		alloc.Reserve(kw)
	}

	p := &Plan{
		exportedUnique:  make(map[string]map[string]string),
		aliasMap:        make(map[string]map[string]string),
		aliasSet:        make(map[string]map[string]bool),
		localRewriteMap: make(map[string]map[string]string),
		globalRename:    make(map[string]string),
	}

	// Priority rule 1: every non-entry module's exports, in file_seq order.
	for _, m := range modules {
		if m.IsEntry {
			continue
		}
		p.claimExports(alloc, m)
	}
	// Priority rule 2: the entry module's exports next.
	for _, m := range modules {
		if m.IsEntry {
			p.claimExports(alloc, m)
		}
	}

	p.Items = buildItems(modules)

	p.bindAliases(modules)

	if err := p.resolveCascade(alloc, modules); err != nil {
		return nil, err
	}

	// Priority rule 3: every non-exported top-level binding, claimed in the
	// order items are built (entry first, since it is file_seq 1), now that
	// the exports' final spellings have settled and any name an export
	// vacated along the way has been freed for reuse.
	isExported := exportSets(modules)
	for _, it := range p.Items {
		switch it.Kind {
		case KindFunction, KindLocalBinding:
			for _, name := range it.DeclaredNames {
				p.bindLocal(alloc, it.ModuleKey, name, isExported[it.ModuleKey][name])
			}
		}
	}

	p.applyRenamesToAST()

	return p, nil
}

func exportSets(modules []*graph.Module) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, m := range modules {
		set := make(map[string]bool)
		for _, exp := range m.Exports {
			for _, n := range exp.Names {
				set[n] = true
			}
		}
		out[m.Key] = set
	}
	return out
}

func (p *Plan) claimExports(alloc *renamer.Allocator, m *graph.Module) {
	if p.exportedUnique[m.Key] == nil {
		p.exportedUnique[m.Key] = make(map[string]string)
	}
	for _, exp := range m.Exports {
		for _, name := range exp.Names {
			if _, ok := p.exportedUnique[m.Key][name]; ok {
				continue
			}
			p.exportedUnique[m.Key][name] = alloc.Next(name)
		}
	}
}

// bindLocal records the unique name for a top-level declaration. Exported
// names were already claimed by claimExports and finalized by
// resolveCascade; this only allocates a fresh one for names that are not
// exported.
func (p *Plan) bindLocal(alloc *renamer.Allocator, moduleKey, name string, exported bool) {
	if p.localRewriteMap[moduleKey] == nil {
		p.localRewriteMap[moduleKey] = make(map[string]string)
	}
	if _, already := p.localRewriteMap[moduleKey][name]; already {
		return
	}

	var unique string
	if exported {
		unique = p.exportedUnique[moduleKey][name]
	} else {
		unique = alloc.Next(name)
		if unique != name {
			p.globalRename[name] = unique
		}
	}
	p.localRewriteMap[moduleKey][name] = unique
}

// bindAliases wires each import binding to the unique name its source
// module's export was allocated. An import of a name the target module
// never exports is dead: it resolves as a normal free identifier.
func (p *Plan) bindAliases(modules []*graph.Module) {
	for _, m := range modules {
		for _, imp := range m.Imports {
			target := graph.ByKey(modules, imp.TargetKey)
			if target == nil {
				continue
			}
			for _, b := range imp.Bindings {
				unique, ok := p.exportedUnique[target.Key][b.Name]
				if !ok {
					continue
				}
				if p.aliasMap[m.Key] == nil {
					p.aliasMap[m.Key] = make(map[string]string)
					p.aliasSet[m.Key] = make(map[string]bool)
				}
				alias := b.Alias
				if alias == "" {
					alias = b.Name
				}
				p.aliasMap[m.Key][alias] = unique
				p.aliasSet[m.Key][alias] = true
			}
		}
	}
}

// resolveCascade implements the conflict-cascade rule: an export whose
// allocated unique name collides with a plain dependency reference made by
// a module that did not legitimately import it under that name must be
// renamed, and the process repeats until no more collisions appear.
//
// Renaming an export frees the spelling it is moving away from: nothing
// else in the bundle can be relying on that exact spelling yet, since
// non-exported top-level bindings are not claimed until after this cascade
// has fully settled. Freeing it lets whichever module actually originated
// that spelling (a non-exported local, most commonly) keep it unchanged
// instead of being displaced by a name its own export claim never really
// needed.
func (p *Plan) resolveCascade(alloc *renamer.Allocator, modules []*graph.Module) error {
	for round := 0; round < maxCascadeRounds; round++ {
		type conflict struct {
			moduleKey string
			origName  string
		}
		var conflicts []conflict
		seen := make(map[conflict]bool)

		for _, it := range p.Items {
			for dep := range it.Deps {
				for _, m := range modules {
					if m.Key == it.ModuleKey {
						continue
					}
					exports := p.exportedUnique[m.Key]
					for orig, unique := range exports {
						if unique != dep {
							continue
						}
						if p.aliasSet[it.ModuleKey][dep] && p.aliasMap[it.ModuleKey][dep] == unique {
							continue
						}
						c := conflict{m.Key, orig}
						if !seen[c] {
							seen[c] = true
							conflicts = append(conflicts, c)
						}
					}
				}
			}
		}

		if len(conflicts) == 0 {
			return nil
		}

		for _, c := range conflicts {
			old := p.exportedUnique[c.moduleKey][c.origName]
			next := alloc.Next(c.origName)
			if next != old {
				alloc.Release(old)
			}
			p.exportedUnique[c.moduleKey][c.origName] = next
			if p.localRewriteMap[c.moduleKey] == nil {
				p.localRewriteMap[c.moduleKey] = make(map[string]string)
			}
			p.localRewriteMap[c.moduleKey][c.origName] = next
			p.refreshAliasesFor(modules, c.moduleKey, c.origName, next)
		}
	}
	return &NameExhaustion{Name: "conflict-cascade"}
}

func (p *Plan) refreshAliasesFor(modules []*graph.Module, targetKey, origName, next string) {
	for _, m := range modules {
		for _, imp := range m.Imports {
			if imp.TargetKey != targetKey {
				continue
			}
			for _, b := range imp.Bindings {
				if b.Name != origName {
					continue
				}
				alias := b.Alias
				if alias == "" {
					alias = b.Name
				}
				if p.aliasMap[m.Key] != nil {
					p.aliasMap[m.Key][alias] = next
				}
			}
		}
	}
}

// resolveName applies a four-rule precedence to a single identifier
// reference within moduleKey: an import alias first, then the module's own
// top-level rewrite, then the process-wide fallback for a renamed
// non-exported binding, and finally the name unchanged.
func (p *Plan) resolveName(moduleKey, name string) string {
	if u, ok := p.aliasMap[moduleKey][name]; ok {
		return u
	}
	if u, ok := p.localRewriteMap[moduleKey][name]; ok {
		return u
	}
	if u, ok := p.globalRename[name]; ok {
		return u
	}
	return name
}

// resolveDottedBase resolves only the base segment of a dotted path through
// the same precedence chain, leaving the remaining literal segments
// untouched: the target path is preserved verbatim, and the base
// identifier is handled the same as any other reference to the owning
// module's export.
func (p *Plan) resolveDottedBase(moduleKey string, path []string) []string {
	if len(path) == 0 {
		return path
	}
	out := append([]string{}, path...)
	out[0] = p.resolveName(moduleKey, out[0])
	return out
}

// applyRenamesToAST rewrites every reference in every module's AST using the
// finalized lookup tables, then updates each declaration site's own name to
// match.
//
// Scoping contract: the three rewrite maps only ever apply to a module's
// own top-level declared names. A name re-declared by a nested
// local, a nested function's own name, a nested function's formal
// parameters, or a for-loop variable shadows any top-level binding of the
// same spelling for the rest of that lexical scope; references under that
// shadow are left untouched rather than resolved through the maps. shadow
// tracks the set of such locally-rebound names in scope at each point in the
// recursion and is cloned (never mutated in place) whenever a nested block
// is entered, so a declaration inside one branch can never leak into a
// sibling branch.
func (p *Plan) applyRenamesToAST() {
	for _, it := range p.Items {
		p.rewriteTopStmt(it.ModuleKey, it.Stmt)
	}
}

// rewriteTopStmt handles a single Item's own declaration statement: its
// declared name (or names) is resolved through the maps same as always,
// since this is precisely the binding the allocator assigned a bundle-wide
// unique name to. Everything reachable underneath it is nested and goes
// through rewriteStmt with a fresh shadow set instead.
func (p *Plan) rewriteTopStmt(moduleKey string, stmt *ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		s.Name = p.resolveName(moduleKey, s.Name)
		p.rewriteNestedFn(moduleKey, &s.Fn, nil)
	case *ast.SMethodDecl:
		s.Path = p.resolveDottedBase(moduleKey, s.Path)
		p.rewriteNestedFn(moduleKey, &s.Fn, nil)
	case *ast.SLocal:
		for i := range s.Inits {
			p.rewriteExpr(moduleKey, &s.Inits[i], nil)
		}
		for i, n := range s.Names {
			s.Names[i] = p.resolveName(moduleKey, n)
		}
	default:
		p.rewriteStmt(moduleKey, stmt, map[string]bool{})
	}
}

func cloneShadow(shadow map[string]bool) map[string]bool {
	out := make(map[string]bool, len(shadow))
	for k := range shadow {
		out[k] = true
	}
	return out
}

// rewriteBlock rewrites a nested statement sequence under its own clone of
// shadow, so names bound inside (locals, loop variables, nested function
// names) never escape to whatever called it.
func (p *Plan) rewriteBlock(moduleKey string, stmts []ast.Stmt, shadow map[string]bool) {
	local := cloneShadow(shadow)
	for i := range stmts {
		p.rewriteStmt(moduleKey, &stmts[i], local)
	}
}

// rewriteStmt handles a statement reached through nesting (never an Item's
// own top-level declaration). Any name this statement binds - a nested
// local, a nested function's declared name, a for-loop variable - is added
// to shadow instead of resolved through the rename maps, per the scoping
// contract above.
func (p *Plan) rewriteStmt(moduleKey string, stmt *ast.Stmt, shadow map[string]bool) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		shadow[s.Name] = true
		p.rewriteNestedFn(moduleKey, &s.Fn, shadow)
	case *ast.SMethodDecl:
		if !shadow[s.Path[0]] {
			s.Path = p.resolveDottedBase(moduleKey, s.Path)
		}
		p.rewriteNestedFn(moduleKey, &s.Fn, shadow)
	case *ast.SLocal:
		for i := range s.Inits {
			p.rewriteExpr(moduleKey, &s.Inits[i], shadow)
		}
		for _, n := range s.Names {
			shadow[n] = true
		}
	case *ast.SAssign:
		for i := range s.Targets {
			p.rewriteExpr(moduleKey, &s.Targets[i], shadow)
		}
		for i := range s.Values {
			p.rewriteExpr(moduleKey, &s.Values[i], shadow)
		}
	case *ast.SCall:
		p.rewriteExpr(moduleKey, &s.Call, shadow)
	case *ast.SReturn:
		for i := range s.Values {
			p.rewriteExpr(moduleKey, &s.Values[i], shadow)
		}
	case *ast.SDo:
		p.rewriteBlock(moduleKey, s.Body, shadow)
	case *ast.SWhile:
		p.rewriteExpr(moduleKey, &s.Cond, shadow)
		p.rewriteBlock(moduleKey, s.Body, shadow)
	case *ast.SRepeat:
		// the until-condition can see locals declared in the loop body, so
		// it shares the body's cloned shadow rather than the caller's.
		local := cloneShadow(shadow)
		for i := range s.Body {
			p.rewriteStmt(moduleKey, &s.Body[i], local)
		}
		p.rewriteExpr(moduleKey, &s.Cond, local)
	case *ast.SIf:
		for i := range s.Clauses {
			if s.Clauses[i].Cond.Data != nil {
				p.rewriteExpr(moduleKey, &s.Clauses[i].Cond, shadow)
			}
			p.rewriteBlock(moduleKey, s.Clauses[i].Body, shadow)
		}
	case *ast.SNumericFor:
		p.rewriteExpr(moduleKey, &s.Start, shadow)
		p.rewriteExpr(moduleKey, &s.Stop, shadow)
		if s.Step.Data != nil {
			p.rewriteExpr(moduleKey, &s.Step, shadow)
		}
		loopShadow := cloneShadow(shadow)
		loopShadow[s.Var] = true
		p.rewriteBlock(moduleKey, s.Body, loopShadow)
	case *ast.SGenericFor:
		for i := range s.Exprs {
			p.rewriteExpr(moduleKey, &s.Exprs[i], shadow)
		}
		loopShadow := cloneShadow(shadow)
		for _, n := range s.Vars {
			loopShadow[n] = true
		}
		p.rewriteBlock(moduleKey, s.Body, loopShadow)
	}
}

// rewriteNestedFn rewrites a function literal's body under its own clone of
// shadow with the function's formal parameters added: per the scoping
// contract, parameters are never renamed and references to them inside the
// body must never resolve through the rename maps.
func (p *Plan) rewriteNestedFn(moduleKey string, fn *ast.Fn, shadow map[string]bool) {
	inner := cloneShadow(shadow)
	for _, a := range fn.Args {
		inner[a.Name] = true
	}
	p.rewriteBlock(moduleKey, fn.Body, inner)
}

func (p *Plan) rewriteExpr(moduleKey string, e *ast.Expr, shadow map[string]bool) {
	switch d := e.Data.(type) {
	case *ast.EIdentifier:
		if !shadow[d.Name] {
			d.Name = p.resolveName(moduleKey, d.Name)
		}
	case *ast.EParen:
		p.rewriteExpr(moduleKey, &d.Value, shadow)
	case *ast.EUnary:
		p.rewriteExpr(moduleKey, &d.Value, shadow)
	case *ast.EBinary:
		p.rewriteExpr(moduleKey, &d.Left, shadow)
		p.rewriteExpr(moduleKey, &d.Right, shadow)
	case *ast.EMember:
		p.rewriteExpr(moduleKey, &d.Target, shadow)
	case *ast.EIndex:
		p.rewriteExpr(moduleKey, &d.Target, shadow)
		p.rewriteExpr(moduleKey, &d.Key, shadow)
	case *ast.EMethodCall:
		p.rewriteExpr(moduleKey, &d.Target, shadow)
		for i := range d.Args {
			p.rewriteExpr(moduleKey, &d.Args[i], shadow)
		}
	case *ast.ECall:
		p.rewriteExpr(moduleKey, &d.Target, shadow)
		for i := range d.Args {
			p.rewriteExpr(moduleKey, &d.Args[i], shadow)
		}
	case *ast.ETable:
		for i := range d.Fields {
			if d.Fields[i].Key.Data != nil {
				p.rewriteExpr(moduleKey, &d.Fields[i].Key, shadow)
			}
			p.rewriteExpr(moduleKey, &d.Fields[i].Value, shadow)
		}
	case *ast.EFunction:
		p.rewriteNestedFn(moduleKey, &d.Fn, shadow)
	}
}
