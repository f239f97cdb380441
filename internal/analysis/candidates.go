package analysis

import (
	"regexp"
	"sort"

	"github.com/spetr/unusedmember/pkg/types"
)

// unitAnalysis holds the state of one Analyze call.
type unitAnalysis struct {
	unit       *types.Unit
	ruleID     string
	allowed    *regexp.Regexp
	suppressor *suppressor
	matcher    matcher
}

// candidateSet holds the not-yet-used candidates that share a search root:
// the nearest function, type or file scope enclosing their declaration.
type candidateSet struct {
	root   types.ScopeID
	byName map[string][]types.DeclID
	order  []types.DeclID

	// overloads lists, for overload-ambiguous names only, every function
	// sharing the name in the scopes holding the candidates.
	overloads map[string][]types.Overload
}

func newCandidateSet(root types.ScopeID) *candidateSet {
	return &candidateSet{
		root:   root,
		byName: make(map[string][]types.DeclID),
	}
}

func (c *candidateSet) add(d *types.Declaration) {
	c.byName[d.Name] = append(c.byName[d.Name], d.ID)
	c.order = append(c.order, d.ID)
}

func (c *candidateSet) empty() bool {
	return len(c.byName) == 0
}

// removeName marks every candidate named name as used.
func (c *candidateSet) removeName(name string) {
	delete(c.byName, name)
}

// removeDecl marks the single candidate id as used.
func (c *candidateSet) removeDecl(name string, id types.DeclID) {
	c.keep(name, func(other types.DeclID) bool { return other != id })
}

// shadow removes the candidates hidden by a local property declaration,
// keeping the property itself.
func (c *candidateSet) shadow(d *types.Declaration) {
	c.keep(d.Name, func(other types.DeclID) bool { return other == d.ID })
}

func (c *candidateSet) keep(name string, pred func(types.DeclID) bool) {
	ids, ok := c.byName[name]
	if !ok {
		return
	}
	kept := ids[:0]
	for _, id := range ids {
		if pred(id) {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(c.byName, name)
		return
	}
	c.byName[name] = kept
}

// remaining returns the unused candidates in declaration order.
func (c *candidateSet) remaining() []types.DeclID {
	alive := make(map[types.DeclID]bool)
	for _, ids := range c.byName {
		for _, id := range ids {
			alive[id] = true
		}
	}
	var out []types.DeclID
	for _, id := range c.order {
		if alive[id] {
			out = append(out, id)
		}
	}
	return out
}

// buildCandidates selects every candidate of the unit and groups them by
// search root. Interfaces and expect types are skipped with all their content.
func (a *unitAnalysis) buildCandidates() []*candidateSet {
	var sets []*candidateSet
	byRoot := make(map[types.ScopeID]*candidateSet)
	visited := make([]bool, len(a.unit.Scopes))

	var visit func(id types.ScopeID)
	visit = func(id types.ScopeID) {
		s := a.unit.Scope(id)
		if s == nil || visited[id] {
			return
		}
		visited[id] = true
		if skipsSubtree(a.unit.Decl(s.Owner)) {
			return
		}

		for _, did := range s.Decls {
			d := a.unit.Decl(did)
			if d == nil || !a.isCandidate(d) {
				continue
			}
			root := a.searchRoot(d.Scope)
			set, ok := byRoot[root]
			if !ok {
				set = newCandidateSet(root)
				byRoot[root] = set
				sets = append(sets, set)
			}
			set.add(d)
		}
		for _, child := range s.Children {
			visit(child)
		}
	}
	visit(types.FileScope)

	for _, set := range sets {
		a.findOverloads(set)
	}
	return sets
}

// searchRoot returns the nearest non-block scope at or above id. Private
// companion members are visible to the enclosing class, so a companion
// body defers to the type scope holding the companion.
func (a *unitAnalysis) searchRoot(id types.ScopeID) types.ScopeID {
	root := types.FileScope
	a.unit.Ancestors(id, func(s *types.Scope) bool {
		if s.Kind == types.ScopeBlock {
			return true
		}
		root = s.ID
		return false
	})

	if s := a.unit.Scope(root); s != nil && s.Kind == types.ScopeType {
		owner := a.unit.Decl(s.Owner)
		if owner != nil && owner.TypeKind == types.TypeCompanion {
			if outer := a.unit.Scope(owner.Scope); outer != nil && outer.Kind == types.ScopeType {
				return outer.ID
			}
		}
	}
	return root
}

func (a *unitAnalysis) isCandidate(d *types.Declaration) bool {
	switch d.Kind {
	case types.DeclFunction:
		if !privateOrLocal(d) || d.Modifiers.Has(types.ModConstructor) {
			return false
		}
	case types.DeclProperty:
		if !privateOrLocal(d) || a.allowed.MatchString(d.Name) {
			return false
		}
	case types.DeclParameter:
		if !a.parameterCandidate(d) || a.allowed.MatchString(d.Name) {
			return false
		}
	default:
		return false
	}

	if Exempt(a.unit, d) {
		return false
	}
	return !a.suppressor.suppressed(d)
}

// parameterCandidate covers parameters of analyzed functions and primary
// constructor parameters. Constructor parameters declared with val or var
// are properties and count only when private. Lambda and catch parameters
// have no owner and are never candidates.
func (a *unitAnalysis) parameterCandidate(p *types.Declaration) bool {
	owner := a.unit.Owner(p.Scope)
	if owner == nil {
		return false
	}
	switch owner.Kind {
	case types.DeclFunction:
		return analyzedFunction(a.unit, owner)
	case types.DeclClass:
		if Exempt(a.unit, owner) {
			return false
		}
		return !p.Member || p.Visibility == types.Private
	default:
		return false
	}
}

func privateOrLocal(d *types.Declaration) bool {
	return d.Visibility == types.Private || d.Visibility == types.Local
}

// findOverloads records the names that several functions share in a scope
// holding a function candidate of that name.
func (a *unitAnalysis) findOverloads(set *candidateSet) {
	for name, ids := range set.byName {
		scopes := make(map[types.ScopeID]bool)
		for _, id := range ids {
			if d := a.unit.Decl(id); d.Kind == types.DeclFunction {
				scopes[d.Scope] = true
			}
		}

		var overloads []types.Overload
		for sid := range scopes {
			var fns []*types.Declaration
			for _, did := range a.unit.Scope(sid).Decls {
				if d := a.unit.Decl(did); d != nil && d.Kind == types.DeclFunction && d.Name == name {
					fns = append(fns, d)
				}
			}
			if len(fns) < 2 {
				continue
			}
			for _, f := range fns {
				overloads = append(overloads, overloadOf(a.unit, f))
			}
		}

		if len(overloads) > 0 {
			sort.Slice(overloads, func(i, j int) bool { return overloads[i].ID < overloads[j].ID })
			if set.overloads == nil {
				set.overloads = make(map[string][]types.Overload)
			}
			set.overloads[name] = overloads
		}
	}
}

func overloadOf(unit *types.Unit, f *types.Declaration) types.Overload {
	o := types.Overload{ID: f.ID, Name: f.Name, Receiver: f.Receiver}
	for i, p := range unit.Params(f) {
		o.ParamTypes = append(o.ParamTypes, p.Type)
		if p.Modifiers.Has(types.ModVararg) {
			o.Vararg = true
			continue
		}
		if len(p.Code) == 0 {
			o.Required = i + 1
		}
	}
	return o
}
