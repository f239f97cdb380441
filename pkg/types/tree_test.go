package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildNested(t *testing.T) (*Builder, DeclID, DeclID, DeclID) {
	t.Helper()

	b := NewBuilder("nested.kt")
	class := b.Declare(FileScope, Declaration{Kind: DeclClass, Name: "Outer"})
	classBody := b.Open(class, ScopeType)
	fn := b.Declare(classBody, Declaration{Kind: DeclFunction, Name: "run", Visibility: Private, HasBody: true})
	fnBody := b.Open(fn, ScopeFunction)
	param := b.Declare(fnBody, Declaration{Kind: DeclParameter, Name: "x", Type: "Int"})
	return b, class, fn, param
}

func TestBuilder_Declare(t *testing.T) {
	b, class, fn, param := buildNested(t)
	u := b.Unit()

	if got := len(u.Scopes); got != 3 {
		t.Fatalf("len(Scopes) = %d, want 3", got)
	}
	if diff := cmp.Diff([]DeclID{param}, u.Decl(fn).Params); diff != "" {
		t.Errorf("function params mismatch (-want +got):\n%s", diff)
	}
	if got := u.Decl(class).Body; got == NoScope {
		t.Error("class body not opened")
	}
	if got := u.Decl(param).Body; got != NoScope {
		t.Errorf("parameter Body = %d, want NoScope", got)
	}
	if diff := cmp.Diff([]ScopeID{1}, u.Scope(FileScope).Children); diff != "" {
		t.Errorf("file scope children mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_OpenTwice(t *testing.T) {
	b, _, fn, _ := buildNested(t)

	first := b.Unit().Decl(fn).Body
	if got := b.Open(fn, ScopeFunction); got != first {
		t.Errorf("Open() = %d, want existing scope %d", got, first)
	}
}

func TestBuilder_InvalidLinks(t *testing.T) {
	b := NewBuilder("bad.kt")

	if got := b.Declare(ScopeID(7), Declaration{Name: "x"}); got != NoDecl {
		t.Errorf("Declare() into missing scope = %d, want NoDecl", got)
	}
	if got := b.Open(DeclID(3), ScopeFunction); got != NoScope {
		t.Errorf("Open() of missing decl = %d, want NoScope", got)
	}
	if got := b.Block(ScopeID(-5)); got != NoScope {
		t.Errorf("Block() under missing scope = %d, want NoScope", got)
	}
}

func TestUnit_Parent(t *testing.T) {
	b, class, fn, param := buildNested(t)
	u := b.Unit()

	if got := u.Parent(u.Decl(class)); got != nil {
		t.Errorf("Parent(class) = %s, want nil", got.Name)
	}
	if got := u.Parent(u.Decl(fn)); got == nil || got.ID != class {
		t.Errorf("Parent(fn) = %v, want Outer", got)
	}
	if got := u.Parent(u.Decl(param)); got == nil || got.ID != fn {
		t.Errorf("Parent(param) = %v, want run", got)
	}

	block := b.Block(u.Decl(fn).Body)
	local := b.Declare(block, Declaration{Kind: DeclProperty, Name: "y", Visibility: Local})
	if got := u.Parent(u.Decl(local)); got == nil || got.ID != fn {
		t.Errorf("Parent(local in block) = %v, want run", got)
	}
}

func TestUnit_AncestorsStopsOnCycle(t *testing.T) {
	b, _, fn, _ := buildNested(t)
	u := b.Unit()

	body := u.Decl(fn).Body
	u.Scopes[FileScope].Parent = body // corrupt the tree

	var visited []ScopeID
	u.Ancestors(body, func(s *Scope) bool {
		visited = append(visited, s.ID)
		return true
	})
	if len(visited) > len(u.Scopes) {
		t.Errorf("Ancestors visited %d scopes, want at most %d", len(visited), len(u.Scopes))
	}
}

func TestUnit_AncestorsStopsEarly(t *testing.T) {
	b, _, fn, _ := buildNested(t)
	u := b.Unit()

	var visited []ScopeID
	u.Ancestors(u.Decl(fn).Body, func(s *Scope) bool {
		visited = append(visited, s.ID)
		return s.Kind != ScopeType
	})
	if diff := cmp.Diff([]ScopeID{2, 1}, visited); diff != "" {
		t.Errorf("Ancestors mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclKind_Text(t *testing.T) {
	data, err := json.Marshal(Finding{Kind: DeclParameter})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var f Finding
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if f.Kind != DeclParameter {
		t.Errorf("Kind = %v, want parameter", f.Kind)
	}

	var k DeclKind
	if err := k.UnmarshalText([]byte("typealias")); err == nil {
		t.Error("UnmarshalText(typealias) succeeded, want error")
	}
}

func TestModifier_Names(t *testing.T) {
	m := ModOverride | ModAbstract | ModVararg
	if diff := cmp.Diff([]string{"abstract", "override", "vararg"}, m.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	mod, ok := ParseModifier("operator")
	if !ok || mod != ModOperator {
		t.Errorf("ParseModifier(operator) = %v, %v", mod, ok)
	}
	if _, ok := ParseModifier("inline"); ok {
		t.Error("ParseModifier(inline) succeeded, want false")
	}
}

func TestNode_Walk(t *testing.T) {
	tree := Expr(Call("f", Name("a"), Member(Name("b"), "c")), CallableRef("g"))

	var texts []string
	Walk(tree, func(n *Node) bool {
		if n.IsReference() {
			texts = append(texts, n.Text)
		}
		return n.Kind != NodeMember
	})
	if diff := cmp.Diff([]string{"f", "a", "c", "g"}, texts); diff != "" {
		t.Errorf("Walk mismatch (-want +got):\n%s", diff)
	}
}
