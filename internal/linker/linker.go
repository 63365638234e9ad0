// Package linker implements the name allocator and rename planner, the AST
// rewriter, and the emission orderer. Link is the single entry point the
// bundler calls once the module graph (internal/graph) has been fully
// discovered.
package linker

import "luabundle/internal/graph"

// Link renames every cross-module reference to a bundle-wide unique
// identifier and returns the final item sequence ready for printing: every
// imported module's declarations first, in declaration-before-use order,
// then the entry module's own statements verbatim in source order.
func Link(modules []*graph.Module) ([]*Item, error) {
	plan, err := Build(modules)
	if err != nil {
		return nil, err
	}
	return Order(plan, modules), nil
}
