package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/spetr/unusedmember/pkg/types"
)

// typeOf infers the static type of an expression when the source makes it
// evident: literals, constructor calls, casts and typed declarations.
// It returns an empty string otherwise.
func (u *unitBuilder) typeOf(n *sitter.Node, scope types.ScopeID) string {
	switch n.Type() {
	case "integer_literal", "hex_literal", "bin_literal":
		return "Int"
	case "long_literal":
		return "Long"
	case "unsigned_literal":
		if strings.HasSuffix(strings.ToUpper(u.text(n)), "L") {
			return "ULong"
		}
		return "UInt"
	case "real_literal":
		if strings.HasSuffix(strings.ToUpper(u.text(n)), "F") {
			return "Float"
		}
		return "Double"
	case "boolean_literal":
		return "Boolean"
	case "character_literal":
		return "Char"
	case "string_literal", "line_string_literal", "multi_line_string_literal":
		return "String"
	case "parenthesized_expression":
		if inner := n.NamedChild(0); inner != nil {
			return u.typeOf(inner, scope)
		}
	case "prefix_expression":
		if count := int(n.NamedChildCount()); count > 0 {
			operand := n.NamedChild(count - 1)
			switch u.operatorToken(n) {
			case "-", "+":
				return u.typeOf(operand, scope)
			case "!":
				return "Boolean"
			}
		}
	case "as_expression":
		return typeText(n, u.content)
	case "simple_identifier":
		return u.lookupType(u.text(n), scope)
	case "call_expression":
		// Constructor calls by convention start with an upper-case letter.
		if callee := n.NamedChild(0); callee != nil && callee.Type() == "simple_identifier" {
			name := u.text(callee)
			if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
				return name
			}
		}
	}
	return ""
}

// lookupType returns the declared type of the nearest parameter or
// property visible from scope.
func (u *unitBuilder) lookupType(name string, scope types.ScopeID) string {
	unit := u.b.Unit()
	found := ""
	unit.Ancestors(scope, func(s *types.Scope) bool {
		for i := len(s.Decls) - 1; i >= 0; i-- {
			d := unit.Decl(s.Decls[i])
			if d == nil || d.Name != name {
				continue
			}
			if d.Kind == types.DeclParameter || d.Kind == types.DeclProperty {
				found = d.Type
				return false
			}
		}
		return true
	})
	return found
}
