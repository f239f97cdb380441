package analysis

import (
	"testing"

	"github.com/spetr/unusedmember/pkg/types"
)

// fixture builds declaration trees for tests. Every declaration gets the
// next source line so findings come out in declaration order.
type fixture struct {
	b    *types.Builder
	line int
}

func newFixture() *fixture {
	return &fixture{b: types.NewBuilder("Test.kt")}
}

func (f *fixture) declare(scope types.ScopeID, d types.Declaration) types.DeclID {
	f.line++
	d.Span = types.Span{StartLine: f.line, StartCol: 1, EndLine: f.line, EndCol: 1 + len(d.Name)}
	return f.b.Declare(scope, d)
}

// fn declares a function with a body and opens its scope.
func (f *fixture) fn(scope types.ScopeID, name string, vis types.Visibility, mods types.Modifier) (types.DeclID, types.ScopeID) {
	id := f.declare(scope, types.Declaration{
		Kind:       types.DeclFunction,
		Name:       name,
		Visibility: vis,
		Modifiers:  mods,
		HasBody:    true,
	})
	return id, f.b.Open(id, types.ScopeFunction)
}

func (f *fixture) ext(scope types.ScopeID, receiver, name string) (types.DeclID, types.ScopeID) {
	id, body := f.fn(scope, name, types.Private, 0)
	f.b.Decl(id).Receiver = receiver
	return id, body
}

func (f *fixture) param(scope types.ScopeID, name, typ string) types.DeclID {
	return f.declare(scope, types.Declaration{Kind: types.DeclParameter, Name: name, Type: typ})
}

func (f *fixture) ctorProperty(scope types.ScopeID, name string, vis types.Visibility) types.DeclID {
	return f.declare(scope, types.Declaration{
		Kind:       types.DeclParameter,
		Name:       name,
		Visibility: vis,
		Type:       "Any",
		Member:     true,
	})
}

func (f *fixture) prop(scope types.ScopeID, name string, vis types.Visibility) types.DeclID {
	return f.declare(scope, types.Declaration{Kind: types.DeclProperty, Name: name, Visibility: vis})
}

func (f *fixture) class(scope types.ScopeID, name string, kind types.TypeKind, mods types.Modifier) (types.DeclID, types.ScopeID) {
	id := f.declare(scope, types.Declaration{
		Kind:      types.DeclClass,
		Name:      name,
		TypeKind:  kind,
		Modifiers: mods,
	})
	return id, f.b.Open(id, types.ScopeType)
}

func (f *fixture) code(id types.DeclID, nodes ...*types.Node) {
	f.b.AddCode(id, nodes...)
}

func (f *fixture) suppress(id types.DeclID, literals ...string) {
	d := f.b.Decl(id)
	d.Annotations = append(d.Annotations, types.Annotation{Name: "Suppress", Args: literals})
}

func (f *fixture) unit() *types.Unit {
	return f.b.Unit()
}

func messages(findings []types.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Message)
	}
	return out
}

func analyze(t *testing.T, unit *types.Unit, opts ...Option) []types.Finding {
	t.Helper()
	findings, err := New(DefaultConfig(), opts...).Analyze(unit)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return findings
}
