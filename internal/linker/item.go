package linker

import (
	"strings"

	"luabundle/internal/ast"
	"luabundle/internal/extract"
	"luabundle/internal/graph"
)

type ItemKind uint8

const (
	KindStatement ItemKind = iota
	KindFunction
	KindMethod
	KindLocalBinding
	KindMemberAssignment
)

// Item is the unit the emission orderer works with.
type Item struct {
	ModuleKey     string
	FileSeq       int
	StmtSeqInFile int
	Stmt          *ast.Stmt
	Kind          ItemKind

	// DeclaredNames holds the original (pre-rename) top-level names this
	// item declares: one name for "function", all bound names for
	// "local_binding", none for "statement".
	DeclaredNames []string
	// DeclaredPath holds the original dotted path for "method" and
	// "member_assignment" items.
	DeclaredPath []string

	Deps map[string]bool

	UniqueID string
}

func classify(stmt *ast.Stmt) (ItemKind, []string, []string) {
	switch s := stmt.Data.(type) {
	case *ast.SFunctionDecl:
		return KindFunction, []string{s.Name}, nil
	case *ast.SMethodDecl:
		return KindMethod, nil, s.Path
	case *ast.SLocal:
		return KindLocalBinding, append([]string{}, s.Names...), nil
	case *ast.SAssign:
		if len(s.Targets) == 1 {
			if path, ok := memberAssignPath(s.Targets[0]); ok {
				return KindMemberAssignment, nil, path
			}
		}
		return KindStatement, nil, nil
	default:
		return KindStatement, nil, nil
	}
}

// memberAssignPath reports the dotted path of a single assignment target,
// provided it resolves to a chain of at least two segments: a
// "member_assignment" requires a dotted path target, while a bare
// identifier target is a plain "statement" reassignment instead.
func memberAssignPath(e ast.Expr) ([]string, bool) {
	path, ok := chainPath(e)
	if !ok || len(path) < 2 {
		return nil, false
	}
	return path, true
}

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

// buildItems walks every module's top-level statements in stmt_seq_in_file
// order, classifying each as an Item.
func buildItems(modules []*graph.Module) []*Item {
	var items []*Item
	for _, m := range modules {
		for i := range m.AstBody {
			stmt := &m.AstBody[i]
			kind, names, path := classify(stmt)
			items = append(items, &Item{
				ModuleKey:     m.Key,
				FileSeq:       m.FileSeq,
				StmtSeqInFile: i + 1,
				Stmt:          stmt,
				Kind:          kind,
				DeclaredNames: names,
				DeclaredPath:  path,
				Deps:          extract.Deps(*stmt),
			})
		}
	}
	return items
}

func dottedPath(path []string) string {
	return strings.Join(path, ".")
}

func joinComma(names []string) string {
	return strings.Join(names, ",")
}
