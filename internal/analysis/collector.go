package analysis

import (
	"github.com/spetr/unusedmember/pkg/types"
)

// collect removes from set every candidate referenced, shadowed or
// resolved anywhere under its search root. Removal only ever shrinks the
// set, so the visiting order does not change the result.
func (a *unitAnalysis) collect(set *candidateSet) {
	root := a.unit.Scope(set.root)
	if root == nil {
		return
	}

	if owner := a.unit.Decl(root.Owner); owner != nil {
		a.walkCode(set, owner.Code)
	}
	if root.Kind == types.ScopeFile {
		a.walkCode(set, a.unit.Code)
	}

	visited := make([]bool, len(a.unit.Scopes))
	a.walkScope(set, set.root, visited)
}

func (a *unitAnalysis) walkScope(set *candidateSet, id types.ScopeID, visited []bool) {
	s := a.unit.Scope(id)
	if s == nil || visited[id] || set.empty() {
		return
	}
	visited[id] = true

	for _, did := range s.Decls {
		if d := a.unit.Decl(did); d != nil {
			a.walkDecl(set, d, visited)
		}
	}
	// Declaration-owned scopes are reached through their owner.
	for _, child := range s.Children {
		if c := a.unit.Scope(child); c != nil && c.Owner == types.NoDecl {
			a.walkScope(set, child, visited)
		}
	}
}

func (a *unitAnalysis) walkDecl(set *candidateSet, d *types.Declaration, visited []bool) {
	if d.Kind == types.DeclProperty && d.IsLocal() {
		set.shadow(d)
	}
	a.walkCode(set, d.Code)
	if d.Body != types.NoScope {
		a.walkScope(set, d.Body, visited)
	}
}

func (a *unitAnalysis) walkCode(set *candidateSet, code []*types.Node) {
	for _, n := range code {
		types.Walk(n, func(x *types.Node) bool {
			if set.empty() {
				return false
			}
			a.matcher.match(set, x)
			return true
		})
	}
}
