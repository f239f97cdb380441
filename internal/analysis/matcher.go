package analysis

import (
	"log/slog"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// matcher turns one code node into candidate removals.
type matcher interface {
	match(set *candidateSet, n *types.Node)
}

// syntacticMatcher treats a reference as a usage of every candidate with
// the same name.
type syntacticMatcher struct{}

func (syntacticMatcher) match(set *candidateSet, n *types.Node) {
	if n.IsReference() {
		set.removeName(n.Text)
	}
}

// semanticMatcher asks a resolver which overload a call binds to and
// removes only that one. Everything else is matched by name.
type semanticMatcher struct {
	path     string
	resolver provider.Resolver
}

func (m semanticMatcher) match(set *candidateSet, n *types.Node) {
	if !n.IsReference() {
		return
	}

	overloads, ambiguous := set.overloads[n.Text]
	if !ambiguous || (n.Kind != types.NodeCall && n.Kind != types.NodeCallableRef) {
		set.removeName(n.Text)
		return
	}

	site := types.CallSite{
		Path:     m.path,
		Callee:   n.Text,
		Span:     n.Span,
		Receiver: n.Receiver,
		ArgTypes: n.ArgTypes,
		Callable: n.Kind == types.NodeCallableRef,
	}

	id, ok := m.resolver.Resolve(site, overloads)
	if !ok {
		slog.Debug("overload unresolved, matching by name",
			"resolver", m.resolver.Name(),
			"file", m.path,
			"name", n.Text,
			"line", n.Span.StartLine,
		)
		set.removeName(n.Text)
		return
	}
	if !containsOverload(overloads, id) {
		slog.Debug("resolver chose an unknown declaration, matching by name",
			"resolver", m.resolver.Name(),
			"file", m.path,
			"name", n.Text,
			"line", n.Span.StartLine,
			"decl_id", id,
		)
		set.removeName(n.Text)
		return
	}
	set.removeDecl(n.Text, id)
}

func containsOverload(overloads []types.Overload, id types.DeclID) bool {
	for _, o := range overloads {
		if o.ID == id {
			return true
		}
	}
	return false
}
