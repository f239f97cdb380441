package analysis

import (
	"strings"

	"github.com/spetr/unusedmember/pkg/types"
)

// exemptModifiers mark declarations whose usage may live outside the unit.
const exemptModifiers = types.ModAbstract |
	types.ModOpen |
	types.ModOverride |
	types.ModOperator |
	types.ModExternal |
	types.ModExpect |
	types.ModActual |
	types.ModEntryPoint

// Exempt reports whether d is structurally excluded from unused detection.
// It depends only on d's modifiers and shape, never on usages.
func Exempt(unit *types.Unit, d *types.Declaration) bool {
	if d == nil {
		return true
	}
	return d.Modifiers.Has(exemptModifiers) || IsEntryPoint(unit, d)
}

// IsEntryPoint reports whether d has the shape of a program entry point: a
// function named main taking a single array of strings (or a vararg of
// strings), declared at top level or in an object or companion object.
func IsEntryPoint(unit *types.Unit, d *types.Declaration) bool {
	if d.Kind != types.DeclFunction || d.Name != "main" || d.Receiver != "" {
		return false
	}

	params := unit.Params(d)
	if len(params) != 1 || !isStringArray(params[0]) {
		return false
	}

	parent := unit.Parent(d)
	if parent == nil {
		return true
	}
	return parent.Kind == types.DeclClass &&
		(parent.TypeKind == types.TypeObject || parent.TypeKind == types.TypeCompanion)
}

func isStringArray(p *types.Declaration) bool {
	t := normalizeType(p.Type)
	if p.Modifiers.Has(types.ModVararg) {
		return t == "String"
	}
	return t == "Array<String>" || t == "Array<outString>"
}

// normalizeType drops whitespace and the kotlin package qualifier.
func normalizeType(t string) string {
	t = strings.Join(strings.Fields(t), "")
	return strings.ReplaceAll(t, "kotlin.", "")
}

// analyzedFunction reports whether the parameters of f are candidates.
func analyzedFunction(unit *types.Unit, f *types.Declaration) bool {
	return f.Kind == types.DeclFunction && f.HasBody && !Exempt(unit, f)
}

// skipsSubtree reports whether declarations nested in d are never analyzed.
func skipsSubtree(d *types.Declaration) bool {
	if d == nil || d.Kind != types.DeclClass {
		return false
	}
	return d.TypeKind == types.TypeInterface || d.Modifiers.Has(types.ModExpect)
}
