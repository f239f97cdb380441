package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/spetr/unusedmember/pkg/types"
)

// binaryOperators maps operator tokens to the functions they desugar to.
var binaryOperators = map[string][]string{
	"+":   {"plus"},
	"-":   {"minus"},
	"*":   {"times"},
	"/":   {"div"},
	"%":   {"rem"},
	"..":  {"rangeTo"},
	"..<": {"rangeUntil"},
	"<":   {"compareTo"},
	">":   {"compareTo"},
	"<=":  {"compareTo"},
	">=":  {"compareTo"},
	"==":  {"equals"},
	"!=":  {"equals"},
	"in":  {"contains"},
	"!in": {"contains"},
	"+=":  {"plusAssign", "plus"},
	"-=":  {"minusAssign", "minus"},
	"*=":  {"timesAssign", "times"},
	"/=":  {"divAssign", "div"},
	"%=":  {"remAssign", "rem"},
}

var prefixOperators = map[string]string{
	"-":  "unaryMinus",
	"+":  "unaryPlus",
	"!":  "not",
	"++": "inc",
	"--": "dec",
}

var postfixOperators = map[string]string{
	"++": "inc",
	"--": "dec",
}

// body converts the statements of a block-like node.
func (u *unitBuilder) body(n *sitter.Node, scope types.ScopeID) []*types.Node {
	var out []*types.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "statements":
			out = append(out, u.statements(child, scope)...)
		case "block", "function_body", "control_structure_body":
			out = append(out, u.body(child, scope)...)
		default:
			if node := u.statement(child, scope); node != nil {
				out = append(out, node)
			}
		}
	}
	return out
}

func (u *unitBuilder) statements(n *sitter.Node, scope types.ScopeID) []*types.Node {
	var out []*types.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if node := u.statement(n.NamedChild(i), scope); node != nil {
			out = append(out, node)
		}
	}
	return out
}

// statement converts a statement. Local declarations are declared in scope
// and yield no node.
func (u *unitBuilder) statement(n *sitter.Node, scope types.ScopeID) *types.Node {
	if isComment(n) || u.declaration(n, scope, true) {
		return nil
	}
	return u.expr(n, scope)
}

// expr converts an expression into a code tree. Unknown node types are
// scanned for references through their children.
func (u *unitBuilder) expr(n *sitter.Node, scope types.ScopeID) *types.Node {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "simple_identifier", "interpolated_identifier":
		return &types.Node{Kind: types.NodeName, Text: u.text(n), Span: span(n)}
	case "call_expression":
		return u.call(n, scope)
	case "navigation_expression":
		return u.navigation(n, scope)
	case "navigation_suffix":
		if name := findChildNodeByType(n, "simple_identifier"); name != nil {
			return &types.Node{Kind: types.NodeMember, Text: u.text(name), Span: span(name)}
		}
		return u.children(n, scope)
	case "callable_reference":
		return u.callableReference(n)
	case "lambda_literal":
		return u.lambda(n, scope)
	case "anonymous_function":
		return u.anonymousFunction(n, scope)
	case "object_literal":
		u.object(n, scope, true, types.TypeObject)
		return nil
	case "additive_expression", "multiplicative_expression", "comparison_expression",
		"equality_expression", "range_expression", "check_expression", "range_test":
		return u.binary(n, scope)
	case "prefix_expression":
		return u.unary(n, scope, prefixOperators)
	case "postfix_expression":
		return u.unary(n, scope, postfixOperators)
	case "indexing_expression":
		return types.Operator("get", u.operands(n, scope)...)
	case "assignment":
		return u.assignment(n, scope)
	case "for_statement":
		return u.forStatement(n, scope)
	case "catch_block":
		return u.catchBlock(n, scope)
	case "when_subject":
		return u.whenSubject(n, scope)
	case "value_argument":
		return u.valueArgument(n, scope)
	case "statements":
		return types.Expr(u.statements(n, scope)...)
	case "control_structure_body", "block", "function_body":
		return types.Expr(u.body(n, scope)...)
	case "annotated_lambda", "annotated_expression":
		return u.children(n, scope)

	// Nodes that never reference declarations.
	case "annotation", "label", "type_arguments", "type_parameters", "type_constraints",
		"user_type", "nullable_type", "function_type", "parenthesized_type", "non_nullable_type",
		"variable_declaration", "multi_variable_declaration", "lambda_parameters", "parameter",
		"integer_literal", "long_literal", "hex_literal", "bin_literal", "unsigned_literal",
		"real_literal", "boolean_literal", "character_literal", "string_content",
		"this_expression", "super_expression", "type_identifier", "modifiers", "use_site_target",
		"comment", "line_comment", "multiline_comment", "import_list", "package_header":
		return nil
	}

	if u.declaration(n, scope, true) {
		return nil
	}
	return u.children(n, scope)
}

// children converts the named children of n into a container node.
func (u *unitBuilder) children(n *sitter.Node, scope types.ScopeID) *types.Node {
	var out []*types.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if node := u.expr(n.NamedChild(i), scope); node != nil {
			out = append(out, node)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return types.Expr(out...)
}

func (u *unitBuilder) operands(n *sitter.Node, scope types.ScopeID) []*types.Node {
	var out []*types.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if node := u.expr(n.NamedChild(i), scope); node != nil {
			out = append(out, node)
		}
	}
	return out
}

// operatorToken returns the first anonymous child of n.
func (u *unitBuilder) operatorToken(n *sitter.Node) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); !child.IsNamed() {
			return strings.TrimSpace(u.text(child))
		}
	}
	return ""
}

func (u *unitBuilder) binary(n *sitter.Node, scope types.ScopeID) *types.Node {
	operands := u.operands(n, scope)
	names := binaryOperators[u.operatorToken(n)]
	if len(names) == 0 {
		if len(operands) == 0 {
			return nil
		}
		return types.Expr(operands...)
	}
	op := types.Operator(names[0], operands...)
	op.Span = span(n)
	return op
}

func (u *unitBuilder) unary(n *sitter.Node, scope types.ScopeID, table map[string]string) *types.Node {
	operands := u.operands(n, scope)
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			continue
		}
		if name, ok := table[strings.TrimSpace(u.text(child))]; ok {
			op := types.Operator(name, operands...)
			op.Span = span(n)
			return op
		}
	}
	if len(operands) == 0 {
		return nil
	}
	return types.Expr(operands...)
}

// assignment handles plain and compound assignments, including indexed
// targets which desugar to set.
func (u *unitBuilder) assignment(n *sitter.Node, scope types.ScopeID) *types.Node {
	operands := u.operands(n, scope)
	var out []*types.Node

	if names := binaryOperators[u.operatorToken(n)]; len(names) > 0 {
		out = append(out, types.Operator(names[0], operands...))
		for _, name := range names[1:] {
			out = append(out, types.Operator(name))
		}
	} else {
		out = append(out, operands...)
	}

	if target := findChildNodeByType(n, "directly_assignable_expression"); target != nil && hasChild(target, "indexing_suffix") {
		out = append(out, types.Operator("set"))
	}
	return types.Expr(out...)
}

// call converts a call expression. Calls of named functions, with or
// without an explicit receiver, carry argument type hints.
func (u *unitBuilder) call(n *sitter.Node, scope types.ScopeID) *types.Node {
	callee := n.NamedChild(0)
	if callee == nil {
		return nil
	}
	args, argTypes := u.callSuffix(findChildNodeByType(n, "call_suffix"), scope)

	switch callee.Type() {
	case "simple_identifier":
		return &types.Node{
			Kind:     types.NodeCall,
			Text:     u.text(callee),
			Span:     span(callee),
			Children: args,
			ArgTypes: argTypes,
		}
	case "navigation_expression":
		receiver := callee.NamedChild(0)
		suffix := findChildNodeByType(callee, "navigation_suffix")
		if receiver != nil && suffix != nil {
			if name := findChildNodeByType(suffix, "simple_identifier"); name != nil {
				return &types.Node{
					Kind:     types.NodeCall,
					Text:     u.text(name),
					Span:     span(name),
					Children: append(compact(u.expr(receiver, scope)), args...),
					Receiver: u.typeOf(receiver, scope),
					ArgTypes: argTypes,
				}
			}
		}
	}

	// Calling a value goes through invoke.
	children := compact(u.expr(callee, scope), types.Operator("invoke"))
	return types.Expr(append(children, args...)...)
}

// callSuffix returns the arguments of a call and their types. A trailing
// lambda counts as an argument.
func (u *unitBuilder) callSuffix(n *sitter.Node, scope types.ScopeID) ([]*types.Node, []string) {
	args := []*types.Node{}
	argTypes := []string{}
	if n == nil {
		return args, argTypes
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "value_arguments":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				arg := child.NamedChild(j)
				if arg.Type() != "value_argument" {
					continue
				}
				node := u.valueArgument(arg, scope)
				if node == nil {
					node = types.Expr()
				}
				args = append(args, node)
				argTypes = append(argTypes, u.argumentType(arg, scope))
			}
		case "annotated_lambda", "lambda_literal":
			node := u.expr(child, scope)
			if node == nil {
				node = types.Expr()
			}
			args = append(args, node)
			argTypes = append(argTypes, "")
		}
	}
	return args, argTypes
}

// valueArgument converts an argument, skipping the name of a named argument.
func (u *unitBuilder) valueArgument(n *sitter.Node, scope types.ScopeID) *types.Node {
	value := argumentValue(n)
	if value == nil {
		return nil
	}
	return u.expr(value, scope)
}

func argumentValue(n *sitter.Node) *sitter.Node {
	if hasChild(n, "=") {
		return childAfter(n, "=")
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if child := n.NamedChild(i); child.Type() != "annotation" && !isComment(child) {
			return child
		}
	}
	return nil
}

func (u *unitBuilder) argumentType(n *sitter.Node, scope types.ScopeID) string {
	if hasChild(n, "*") {
		return ""
	}
	value := argumentValue(n)
	if value == nil {
		return ""
	}
	return u.typeOf(value, scope)
}

func (u *unitBuilder) navigation(n *sitter.Node, scope types.ScopeID) *types.Node {
	receiver := n.NamedChild(0)
	suffix := findChildNodeByType(n, "navigation_suffix")
	if receiver == nil || suffix == nil {
		return u.children(n, scope)
	}

	name := findChildNodeByType(suffix, "simple_identifier")
	if name == nil {
		return u.children(n, scope)
	}
	node := types.Member(u.expr(receiver, scope), u.text(name))
	node.Span = span(name)
	node.Receiver = u.typeOf(receiver, scope)
	return node
}

func (u *unitBuilder) callableReference(n *sitter.Node) *types.Node {
	name := findChildNodeByType(n, "simple_identifier")
	if name == nil {
		return nil
	}
	node := types.CallableRef(u.text(name))
	node.Span = span(name)
	node.Receiver = typeText(n, u.content)
	return node
}

// lambda opens a block scope for the lambda parameters and body locals.
func (u *unitBuilder) lambda(n *sitter.Node, scope types.ScopeID) *types.Node {
	block := u.b.Block(scope)
	var out []*types.Node

	if params := findChildNodeByType(n, "lambda_parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			out = append(out, u.bindLoopVariable(params.NamedChild(i), block)...)
		}
	}
	out = append(out, u.body(n, block)...)
	return types.Expr(out...)
}

// bindLoopVariable declares a lambda or loop variable. Destructuring
// entries produce their componentN calls.
func (u *unitBuilder) bindLoopVariable(n *sitter.Node, block types.ScopeID) []*types.Node {
	switch n.Type() {
	case "variable_declaration":
		u.declareParameter(n, block)
	case "multi_variable_declaration":
		var out []*types.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			vd := n.NamedChild(i)
			if vd.Type() != "variable_declaration" {
				continue
			}
			out = append(out, types.Destructure(componentName(len(out)+1)))
			u.declareParameter(vd, block)
		}
		return out
	}
	return nil
}

func (u *unitBuilder) declareParameter(vd *sitter.Node, block types.ScopeID) {
	if name := findChildNodeByType(vd, "simple_identifier"); name != nil {
		u.b.Declare(block, types.Declaration{
			Kind: types.DeclParameter,
			Name: u.text(name),
			Type: typeText(vd, u.content),
			Span: span(name),
		})
	}
}

func (u *unitBuilder) forStatement(n *sitter.Node, scope types.ScopeID) *types.Node {
	block := u.b.Block(scope)
	out := []*types.Node{types.Operator("iterator"), types.Operator("hasNext"), types.Operator("next")}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "variable_declaration", "multi_variable_declaration":
			out = append(out, u.bindLoopVariable(child, block)...)
		case "control_structure_body", "block":
			out = append(out, u.body(child, block)...)
		case "annotation":
		default:
			if node := u.expr(child, scope); node != nil {
				out = append(out, node)
			}
		}
	}
	return types.Expr(out...)
}

func (u *unitBuilder) catchBlock(n *sitter.Node, scope types.ScopeID) *types.Node {
	block := u.b.Block(scope)
	var out []*types.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "simple_identifier":
			u.b.Declare(block, types.Declaration{
				Kind: types.DeclParameter,
				Name: u.text(child),
				Type: typeText(n, u.content),
				Span: span(child),
			})
		case "statements":
			out = append(out, u.statements(child, block)...)
		case "block":
			out = append(out, u.body(child, block)...)
		}
	}
	return types.Expr(out...)
}

// anonymousFunction treats fun(x: T) { ... } like a lambda: its parameters
// are never reported.
func (u *unitBuilder) anonymousFunction(n *sitter.Node, scope types.ScopeID) *types.Node {
	block := u.b.Block(scope)
	var out []*types.Node
	if params := findChildNodeByType(n, "function_value_parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			switch param.Type() {
			case "parameter":
				u.declareParameter(param, block)
			case "parameter_modifiers":
			default:
				if node := u.expr(param, scope); node != nil {
					out = append(out, node)
				}
			}
		}
	}
	if body := findChildNodeByType(n, "function_body"); body != nil {
		out = append(out, u.body(body, block)...)
	}
	return types.Expr(out...)
}

// whenSubject handles when (val x = expr), which declares a local property.
func (u *unitBuilder) whenSubject(n *sitter.Node, scope types.ScopeID) *types.Node {
	vd := findChildNodeByType(n, "variable_declaration")
	init := childAfter(n, "=")
	if vd == nil || init == nil {
		return u.children(n, scope)
	}

	name := findChildNodeByType(vd, "simple_identifier")
	if name == nil {
		return u.expr(init, scope)
	}
	id := u.b.Declare(scope, types.Declaration{
		Kind:       types.DeclProperty,
		Name:       u.text(name),
		Visibility: types.Local,
		Type:       typeText(vd, u.content),
		Span:       span(name),
	})
	u.addCode(id, u.expr(init, scope))
	return nil
}
