package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/spetr/unusedmember/pkg/types"
)

// typeNodes are the node types a declared type can take.
var typeNodes = map[string]bool{
	"user_type":          true,
	"nullable_type":      true,
	"function_type":      true,
	"parenthesized_type": true,
	"non_nullable_type":  true,
	"dynamic":            true,
}

// findChildByType finds a child node of the given type and returns its content.
func findChildByType(node *sitter.Node, childType string, content []byte) string {
	if child := findChildNodeByType(node, childType); child != nil {
		return child.Content(content)
	}
	return ""
}

// findChildNodeByType finds a child node of the given type.
func findChildNodeByType(node *sitter.Node, childType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == childType {
			return child
		}
	}
	return nil
}

// hasChild reports whether node has a direct child of the given type,
// keywords included.
func hasChild(node *sitter.Node, childType string) bool {
	return findChildNodeByType(node, childType) != nil
}

// childAfter returns the first named child following a token of the given type.
func childAfter(node *sitter.Node, token string) *sitter.Node {
	seen := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if seen && child.IsNamed() && !isComment(child) {
			return child
		}
		if child.Type() == token {
			seen = true
		}
	}
	return nil
}

// typeText returns the normalized text of the first type child of node.
func typeText(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if typeNodes[child.Type()] {
			return normalize(child.Content(content))
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isComment(node *sitter.Node) bool {
	switch node.Type() {
	case "comment", "line_comment", "multiline_comment", "shebang_line":
		return true
	}
	return false
}

func span(node *sitter.Node) types.Span {
	start, end := node.StartPoint(), node.EndPoint()
	return types.Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

// unquote strips string literal delimiters.
func unquote(s string) string {
	for _, q := range []string{`"""`, `"`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// compact drops nil nodes.
func compact(nodes ...*types.Node) []*types.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
