package treesitter

import (
	"context"
	"errors"
	"testing"

	"github.com/spetr/unusedmember/internal/analysis"
	"github.com/spetr/unusedmember/pkg/types"
)

func parse(t *testing.T, src string) *types.Unit {
	t.Helper()
	unit, err := New().Parse(context.Background(), &types.SourceFile{
		Path:     "Test.kt",
		Content:  []byte(src),
		Language: "kotlin",
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return unit
}

func findDecl(unit *types.Unit, name string, kind types.DeclKind) *types.Declaration {
	for i := range unit.Decls {
		if d := &unit.Decls[i]; d.Name == name && d.Kind == kind {
			return d
		}
	}
	return nil
}

func TestFrontend_Declarations(t *testing.T) {
	unit := parse(t, `
class Service(private val repo: Repo, seed: Int) {
    private val cache = 1
    private fun load(id: Long): Int {
        val local = id + 1
        return local
    }
    override fun toString(): String = "Service"
}
`)

	tests := []struct {
		name   string
		kind   types.DeclKind
		check  func(d *types.Declaration) bool
		reason string
	}{
		{"Service", types.DeclClass, func(d *types.Declaration) bool { return d.TypeKind == types.TypeClass }, "class"},
		{"repo", types.DeclParameter, func(d *types.Declaration) bool { return d.Member && d.Visibility == types.Private && d.Type == "Repo" }, "private constructor property"},
		{"seed", types.DeclParameter, func(d *types.Declaration) bool { return !d.Member && d.Type == "Int" }, "plain constructor parameter"},
		{"cache", types.DeclProperty, func(d *types.Declaration) bool { return d.Visibility == types.Private && d.Type == "Int" }, "private property with inferred type"},
		{"load", types.DeclFunction, func(d *types.Declaration) bool { return d.Visibility == types.Private && d.HasBody }, "private function"},
		{"id", types.DeclParameter, func(d *types.Declaration) bool { return d.Type == "Long" }, "function parameter"},
		{"local", types.DeclProperty, func(d *types.Declaration) bool { return d.IsLocal() }, "local property"},
		{"toString", types.DeclFunction, func(d *types.Declaration) bool { return d.Modifiers.Has(types.ModOverride) }, "override"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := findDecl(unit, tt.name, tt.kind)
			if d == nil {
				t.Fatalf("declaration %s (%s) not found", tt.name, tt.kind)
			}
			if !tt.check(d) {
				t.Errorf("%s: unexpected declaration %+v", tt.reason, *d)
			}
		})
	}

	service := findDecl(unit, "Service", types.DeclClass)
	if got := len(unit.Params(service)); got != 2 {
		t.Errorf("expected 2 constructor parameters, got %d", got)
	}
}

func TestFrontend_ModifiersAndAnnotations(t *testing.T) {
	unit := parse(t, `
@file:Suppress("UnusedPrivateMember")

interface Api {
    fun call()
}

abstract class Base {
    @Suppress("unused", "UNUSED_PARAMETER")
    protected abstract fun draw(canvas: Int)
    open fun render() {}
}

expect class Platform

object Registry {
    private operator fun get(key: String): Int = 0
}
`)

	if len(unit.Annotations) != 1 || unit.Annotations[0].Name != "Suppress" {
		t.Fatalf("expected file annotation Suppress, got %+v", unit.Annotations)
	}
	if got := unit.Annotations[0].Args; len(got) != 1 || got[0] != "UnusedPrivateMember" {
		t.Errorf("unexpected file annotation args %v", got)
	}

	if d := findDecl(unit, "Api", types.DeclClass); d == nil || d.TypeKind != types.TypeInterface {
		t.Errorf("expected Api to be an interface, got %+v", d)
	}
	if d := findDecl(unit, "call", types.DeclFunction); d == nil || d.HasBody {
		t.Errorf("expected bodiless call, got %+v", d)
	}

	draw := findDecl(unit, "draw", types.DeclFunction)
	if draw == nil {
		t.Fatal("draw not found")
	}
	if !draw.Modifiers.Has(types.ModAbstract) || draw.Visibility != types.Protected {
		t.Errorf("unexpected draw modifiers %v visibility %s", draw.Modifiers.Names(), draw.Visibility)
	}
	if len(draw.Annotations) != 1 || len(draw.Annotations[0].Args) != 2 {
		t.Errorf("unexpected draw annotations %+v", draw.Annotations)
	}

	if d := findDecl(unit, "render", types.DeclFunction); d == nil || !d.Modifiers.Has(types.ModOpen) {
		t.Errorf("expected open render, got %+v", d)
	}
	if d := findDecl(unit, "Platform", types.DeclClass); d == nil || !d.Modifiers.Has(types.ModExpect) {
		t.Errorf("expected expect Platform, got %+v", d)
	}
	if d := findDecl(unit, "Registry", types.DeclClass); d == nil || d.TypeKind != types.TypeObject {
		t.Errorf("expected object Registry, got %+v", d)
	}
	if d := findDecl(unit, "get", types.DeclFunction); d == nil || !d.Modifiers.Has(types.ModOperator) {
		t.Errorf("expected operator get, got %+v", d)
	}
}

func TestFrontend_UnsupportedLanguage(t *testing.T) {
	_, err := New().Parse(context.Background(), &types.SourceFile{Path: "x.go", Language: "go"})
	if !errors.Is(err, types.ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestFrontend_SupportsLanguage(t *testing.T) {
	f := New()
	for _, lang := range f.SupportedLanguages() {
		if !f.SupportsLanguage(lang) {
			t.Errorf("SupportsLanguage(%q) = false", lang)
		}
	}
	if f.SupportsLanguage("java") {
		t.Error("java must not be supported")
	}
}

func TestFrontend_Analysis(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "unused private function",
			src: `
class A {
    private fun unused() {}
}
`,
			want: []string{"Private function `unused` is unused."},
		},
		{
			name: "called private function with unused parameter",
			src: `
class A {
    private fun usedMethod(unusedParameter: Int): Int {
        return 5
    }

    fun caller() = usedMethod(1)
}
`,
			want: []string{"Function parameter `unusedParameter` is unused."},
		},
		{
			name: "private constructor property",
			src:  `class Test(private val unused: Any)`,
			want: []string{"Private property `unused` is unused."},
		},
		{
			name: "public constructor property",
			src:  `class Test(val unused: Any)`,
		},
		{
			name: "dead chain",
			src: `
class A {
    private fun unusedFunction() {
        someOtherUnusedFunction()
    }

    private fun someOtherUnusedFunction() {
        println("hello")
    }
}
`,
			want: []string{"Private function `unusedFunction` is unused."},
		},
		{
			name: "file suppression",
			src: `@file:Suppress("UnusedPrivateMember")

class A {
    private fun first() {}
}

class B {
    private fun second() {}
}
`,
		},
		{
			name: "function suppression by alias",
			src: `
class A {
    @Suppress("unused")
    private fun hidden(p: Int) {}
}
`,
		},
		{
			name: "override and entry point",
			src: `
fun main(args: Array<String>) {}

class A : Runnable {
    override fun run() {}
    open fun hook(value: Int) {}
}
`,
		},
		{
			name: "lambda parameters and string templates",
			src: `
class A {
    private val name = "x"

    fun run(items: List<Int>) {
        items.forEach { item -> println("$name") }
    }
}
`,
		},
		{
			name: "unused local property and allowed names",
			src: `
fun run(expected: Int, ignored: Int) {
    val answer = 42
}
`,
			want: []string{"Local property `answer` is unused."},
		},
		{
			name: "property used through member access",
			src: `
class Counter {
    private var count = 0

    fun increment() {
        this.count += 1
    }
}
`,
		},
		{
			name: "callable reference",
			src: `
class A {
    private fun check(x: Int) = x > 0

    fun filter(items: List<Int>) = items.filter(::check)
}
`,
		},
		{
			name: "private companion members used by the enclosing class",
			src: `
class A {
    fun f(): Int = LIMIT

    companion object {
        private const val LIMIT = 3
        private fun helper() = 1
    }

    fun g() = helper()
}
`,
		},
		{
			name: "unused private companion member",
			src: `
class A {
    companion object {
        private const val LIMIT = 3
    }
}
`,
			want: []string{"Private property `LIMIT` is unused."},
		},
	}

	rule := analysis.New(analysis.DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := rule.Analyze(parse(t, tt.src))
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}

			var got []string
			for _, f := range findings {
				got = append(got, f.Message)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("finding %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}
