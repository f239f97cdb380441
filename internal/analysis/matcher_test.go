package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// byFirstArg binds a call to the overload whose first parameter type equals
// the first argument type, or by receiver for calls without arguments.
var byFirstArg = provider.ResolverFunc(func(site types.CallSite, overloads []types.Overload) (types.DeclID, bool) {
	for _, o := range overloads {
		switch {
		case len(site.ArgTypes) == 0 && site.Receiver != "" && o.Receiver == site.Receiver:
			return o.ID, true
		case len(site.ArgTypes) > 0 && len(o.ParamTypes) > 0 && o.ParamTypes[0] == site.ArgTypes[0]:
			return o.ID, true
		}
	}
	return types.NoDecl, false
})

// overloadFixture declares two private f overloads, each using its
// parameter, and a public caller of f(Int).
func overloadFixture() (fx *fixture, intF, stringF types.DeclID) {
	fx = newFixture()
	for _, typ := range []string{"Int", "String"} {
		id, body := fx.fn(file, "f", types.Private, 0)
		fx.param(body, "x", typ)
		fx.code(id, types.Name("x"))
		if typ == "Int" {
			intF = id
		} else {
			stringF = id
		}
	}

	caller, _ := fx.fn(file, "caller", types.Public, 0)
	call := types.Call("f", types.Expr())
	call.ArgTypes[0] = "Int"
	fx.code(caller, call)
	return fx, intF, stringF
}

func TestAnalyze_OverloadResolved(t *testing.T) {
	fx, _, stringF := overloadFixture()

	findings := analyze(t, fx.unit(), WithResolver(byFirstArg))
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %v", messages(findings))
	}
	if findings[0].DeclID != stringF {
		t.Errorf("expected finding for f(String) (decl %d), got decl %d", stringF, findings[0].DeclID)
	}
}

func TestAnalyze_OverloadWithoutResolver(t *testing.T) {
	fx, _, _ := overloadFixture()

	if got := analyze(t, fx.unit()); len(got) != 0 {
		t.Errorf("name matching must remove every overload, got %v", messages(got))
	}
}

func TestAnalyze_OverloadUnresolvedFallsBack(t *testing.T) {
	fx, _, _ := overloadFixture()

	calls := 0
	undecided := provider.ResolverFunc(func(types.CallSite, []types.Overload) (types.DeclID, bool) {
		calls++
		return types.NoDecl, false
	})

	if got := analyze(t, fx.unit(), WithResolver(undecided)); len(got) != 0 {
		t.Errorf("unresolved calls must fall back to name matching, got %v", messages(got))
	}
	if calls != 1 {
		t.Errorf("expected 1 resolver call, got %d", calls)
	}
}

func TestAnalyze_OverloadUnknownAnswerFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		answer func(intF types.DeclID) types.DeclID
	}{
		{"id outside the unit", func(types.DeclID) types.DeclID { return 9999 }},
		{"no decl", func(types.DeclID) types.DeclID { return types.NoDecl }},
		// The parameter of f(Int) is declared right after it.
		{"declaration that is not an overload", func(intF types.DeclID) types.DeclID { return intF + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, intF, _ := overloadFixture()
			wrong := provider.ResolverFunc(func(types.CallSite, []types.Overload) (types.DeclID, bool) {
				return tt.answer(intF), true
			})

			if got := analyze(t, fx.unit(), WithResolver(wrong)); len(got) != 0 {
				t.Errorf("unknown resolver answers must fall back to name matching, got %v", messages(got))
			}
		})
	}
}

func TestAnalyze_OverloadSiteAndCandidates(t *testing.T) {
	fx := newFixture()
	private, body := fx.fn(file, "f", types.Private, 0)
	fx.param(body, "x", "Int")
	fx.code(private, types.Name("x"))
	public, body := fx.fn(file, "f", types.Public, 0)
	p := fx.param(body, "s", "String")
	fx.code(public, types.Name("s"))
	fx.b.Decl(p).Code = []*types.Node{types.Expr()}

	caller, _ := fx.fn(file, "caller", types.Public, 0)
	call := types.Call("f", types.Expr())
	call.ArgTypes[0] = "String"
	call.Span = types.Span{StartLine: 40, StartCol: 5}
	fx.code(caller, call)

	var gotSite types.CallSite
	var gotOverloads []types.Overload
	recording := provider.ResolverFunc(func(site types.CallSite, overloads []types.Overload) (types.DeclID, bool) {
		gotSite, gotOverloads = site, overloads
		return byFirstArg(site, overloads)
	})

	findings := analyze(t, fx.unit(), WithResolver(recording))

	wantSite := types.CallSite{
		Path:     "Test.kt",
		Callee:   "f",
		Span:     types.Span{StartLine: 40, StartCol: 5},
		ArgTypes: []string{"String"},
	}
	if diff := cmp.Diff(wantSite, gotSite); diff != "" {
		t.Errorf("call site mismatch (-want +got):\n%s", diff)
	}

	wantOverloads := []types.Overload{
		{ID: private, Name: "f", ParamTypes: []string{"Int"}, Required: 1},
		{ID: public, Name: "f", ParamTypes: []string{"String"}, Required: 0},
	}
	if diff := cmp.Diff(wantOverloads, gotOverloads); diff != "" {
		t.Errorf("overloads mismatch (-want +got):\n%s", diff)
	}

	want := []string{"Private function `f` is unused."}
	if diff := cmp.Diff(want, messages(findings)); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_ExtensionReceivers(t *testing.T) {
	fx := newFixture()
	intExt, _ := fx.ext(file, "Int", "describe")
	fx.ext(file, "String", "describe")

	caller, _ := fx.fn(file, "caller", types.Public, 0)
	call := types.Call("describe")
	call.Receiver = "Int"
	fx.code(caller, types.Expr(types.Name("n"), call))

	findings := analyze(t, fx.unit(), WithResolver(byFirstArg))
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %v", messages(findings))
	}
	if findings[0].DeclID == intExt {
		t.Error("the Int extension is called and must not be reported")
	}
}

func TestAnalyze_ResolverOnlyForAmbiguousNames(t *testing.T) {
	fx := newFixture()
	fx.fn(file, "single", types.Private, 0)
	caller, _ := fx.fn(file, "caller", types.Public, 0)
	fx.code(caller, types.Call("single"), types.Name("single"))

	resolver := provider.ResolverFunc(func(types.CallSite, []types.Overload) (types.DeclID, bool) {
		t.Error("resolver must not be called for unambiguous names")
		return types.NoDecl, false
	})

	if got := analyze(t, fx.unit(), WithResolver(resolver)); len(got) != 0 {
		t.Errorf("expected no findings, got %v", messages(got))
	}
}

func TestAnalyze_AmbiguousBareNameMatchesAll(t *testing.T) {
	fx, _, _ := overloadFixture()
	// Replace the resolvable call with a plain member access.
	fx.unit().Decls[len(fx.unit().Decls)-1].Code = []*types.Node{types.Member(types.Name("obj"), "f")}

	resolver := provider.ResolverFunc(func(types.CallSite, []types.Overload) (types.DeclID, bool) {
		t.Error("resolver must only see calls and callable references")
		return types.NoDecl, false
	})

	if got := analyze(t, fx.unit(), WithResolver(resolver)); len(got) != 0 {
		t.Errorf("expected no findings, got %v", messages(got))
	}
}
