package linker

import "luabundle/internal/graph"

// Order arranges every module's declarations into a single emission
// sequence: imported modules go first, each preceded by every other
// imported module its own imports directly depend on (a file-level
// topological order that tolerates cycles); the entry module's own
// statements are appended afterward, verbatim, in original source order.
func Order(plan *Plan, modules []*graph.Module) []*Item {
	o := &orderer{
		plan:        plan,
		byModule:    make(map[string][]*Item),
		declByKey:   make(map[string]*Item),
		emitted:     make(map[*Item]bool),
		moduleState: make(map[string]int),
	}

	var entryItems []*Item
	for _, it := range plan.Items {
		m := graph.ByKey(modules, it.ModuleKey)
		if m != nil && m.IsEntry {
			entryItems = append(entryItems, it)
			continue
		}
		o.byModule[it.ModuleKey] = append(o.byModule[it.ModuleKey], it)
	}

	o.indexDecls()
	o.fileDeps = buildFileDeps(modules)
	o.circular = detectCircular(modules, o.fileDeps)
	o.forwardDecls = buildForwardDecls(plan, modules, o.circular)

	for _, m := range modules {
		if m.IsEntry {
			continue
		}
		o.addModule(m, modules)
	}

	o.out = append(o.out, entryItems...)
	return o.out
}

const (
	stateUnvisited  = 0
	stateInProgress = 1
	stateDone       = 2
)

type orderer struct {
	plan      *Plan
	byModule  map[string][]*Item
	declByKey map[string]*Item

	fileDeps     map[string][]string
	circular     map[string]bool
	forwardDecls map[string]bool

	emitted     map[*Item]bool
	moduleState map[string]int
	out         []*Item
}

// indexDecls builds a lookup from finalized declared name to the item that
// declares it: function and local_binding items register under their
// finalized unique name(s), method and member_assignment items register
// under their finalized dotted path.
func (o *orderer) indexDecls() {
	for _, it := range o.plan.Items {
		switch it.Kind {
		case KindFunction:
			it.UniqueID = o.plan.resolveName(it.ModuleKey, it.DeclaredNames[0])
			o.declByKey[it.UniqueID] = it
		case KindLocalBinding:
			var ids []string
			for _, n := range it.DeclaredNames {
				id := o.plan.resolveName(it.ModuleKey, n)
				o.declByKey[id] = it
				ids = append(ids, id)
			}
			it.UniqueID = joinComma(ids)
		case KindMethod, KindMemberAssignment:
			resolved := o.plan.resolveDottedBase(it.ModuleKey, it.DeclaredPath)
			it.UniqueID = dottedPath(resolved)
			o.declByKey[it.UniqueID] = it
		}
	}
}

// buildFileDeps computes, for each imported (non-entry) module, the set of
// other imported modules whose exports it directly imports.
func buildFileDeps(modules []*graph.Module) map[string][]string {
	deps := make(map[string][]string)
	for _, m := range modules {
		if m.IsEntry {
			continue
		}
		seen := make(map[string]bool)
		for _, imp := range m.Imports {
			target := graph.ByKey(modules, imp.TargetKey)
			if target == nil || target.IsEntry || target.Key == m.Key || seen[target.Key] {
				continue
			}
			seen[target.Key] = true
			deps[m.Key] = append(deps[m.Key], target.Key)
		}
	}
	return deps
}

// detectCircular runs a DFS over fileDeps and marks every module that
// participates in an import cycle. Any module revisited while still on the
// current DFS path is itself circular, and every module on the path back to
// it is circular too.
func detectCircular(modules []*graph.Module, fileDeps map[string][]string) map[string]bool {
	circular := make(map[string]bool)
	state := make(map[string]int)
	var path []string

	var visit func(key string)
	visit = func(key string) {
		switch state[key] {
		case stateDone:
			return
		case stateInProgress:
			// Found a back-edge: everything on the path from this module's
			// first occurrence onward participates in the cycle.
			start := -1
			for i, k := range path {
				if k == key {
					start = i
					break
				}
			}
			if start >= 0 {
				for _, k := range path[start:] {
					circular[k] = true
				}
			}
			return
		}
		state[key] = stateInProgress
		path = append(path, key)
		for _, dep := range fileDeps[key] {
			visit(dep)
		}
		path = path[:len(path)-1]
		state[key] = stateDone
	}

	for _, m := range modules {
		if !m.IsEntry {
			visit(m.Key)
		}
	}
	return circular
}

// buildForwardDecls places every declared name belonging to a circular
// module into the forward-declaration set.
func buildForwardDecls(plan *Plan, modules []*graph.Module, circular map[string]bool) map[string]bool {
	forward := make(map[string]bool)
	for _, it := range plan.Items {
		if !circular[it.ModuleKey] {
			continue
		}
		switch it.Kind {
		case KindFunction:
			forward[plan.resolveName(it.ModuleKey, it.DeclaredNames[0])] = true
		case KindLocalBinding:
			for _, n := range it.DeclaredNames {
				forward[plan.resolveName(it.ModuleKey, n)] = true
			}
		case KindMethod, KindMemberAssignment:
			forward[dottedPath(plan.resolveDottedBase(it.ModuleKey, it.DeclaredPath))] = true
		}
	}
	return forward
}

// resolveDep converts a raw (pre-rename) dependency string — a plain name or
// a dotted path — into the same finalized namespace the declaration lookup
// keys live in, using the referencing module's own alias/local-rewrite/
// global-rename chain. This runs the full rename precedence the rewriter
// itself uses, since the lookup for a renamed same-module local is keyed by
// its post-rename name too (see DESIGN.md).
func (o *orderer) resolveDep(moduleKey, dep string) string {
	if i := indexByte(dep, '.'); i >= 0 {
		base := o.plan.resolveName(moduleKey, dep[:i])
		return base + dep[i:]
	}
	return o.plan.resolveName(moduleKey, dep)
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// addModule emits an imported module's items after first emitting every
// other imported module it directly depends on. A module already in
// progress signals a file-level cycle and is skipped — its declarations are
// reached through the forward-declaration set instead.
func (o *orderer) addModule(m *graph.Module, modules []*graph.Module) {
	switch o.moduleState[m.Key] {
	case stateDone, stateInProgress:
		return
	}
	o.moduleState[m.Key] = stateInProgress

	for _, depKey := range o.fileDeps[m.Key] {
		if dep := graph.ByKey(modules, depKey); dep != nil {
			o.addModule(dep, modules)
		}
	}

	o.moduleState[m.Key] = stateDone

	for _, it := range o.byModule[m.Key] {
		o.addItem(it)
	}
}

// addItem emits an item's same-module dependencies (and any cross-module
// dependency reached only through a file-level cycle) before the item
// itself, otherwise preserving the item's own source position.
func (o *orderer) addItem(it *Item) {
	if o.emitted[it] {
		return
	}
	o.emitted[it] = true // also guards same-module dependency cycles

	for dep := range it.Deps {
		resolved := o.resolveDep(it.ModuleKey, dep)
		target, ok := o.declByKey[resolved]
		if !ok || o.emitted[target] || target == it {
			continue
		}
		if target.ModuleKey == it.ModuleKey {
			o.addItem(target)
		} else if o.forwardDecls[resolved] {
			o.addItem(target)
		}
		// Otherwise cross-module ordering is already handled at file
		// granularity by addModule's file_deps recursion.
	}

	o.out = append(o.out, it)
}
