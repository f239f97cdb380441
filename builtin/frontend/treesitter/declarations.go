package treesitter

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/spetr/unusedmember/pkg/types"
)

// unitBuilder converts one syntax tree into a declaration tree.
type unitBuilder struct {
	b       *types.Builder
	content []byte
}

func newUnitBuilder(file *types.SourceFile) *unitBuilder {
	return &unitBuilder{
		b:       types.NewBuilder(file.Path),
		content: file.Content,
	}
}

func (u *unitBuilder) text(n *sitter.Node) string {
	return n.Content(u.content)
}

// addCode attaches the non-nil nodes to a declaration.
func (u *unitBuilder) addCode(id types.DeclID, nodes ...*types.Node) {
	if nodes = compact(nodes...); len(nodes) > 0 {
		u.b.AddCode(id, nodes...)
	}
}

// sourceFile walks the top level of a file. Statements of scripts become
// unit code.
func (u *unitBuilder) sourceFile(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "file_annotation":
			anns, refs := u.annotations(child, types.FileScope)
			u.b.FileAnnotations(anns...)
			u.b.AddUnitCode(compact(refs...)...)
		case "package_header", "import_list", "import_header":
		default:
			if isComment(child) || u.declaration(child, types.FileScope, false) {
				continue
			}
			if n := u.statement(child, types.FileScope); n != nil {
				u.b.AddUnitCode(n)
			}
		}
	}
}

// declaration handles declaration nodes and reports whether n was one.
// Declarations inside executable code are local.
func (u *unitBuilder) declaration(n *sitter.Node, scope types.ScopeID, local bool) bool {
	switch n.Type() {
	case "class_declaration":
		u.class(n, scope, local)
	case "object_declaration":
		u.object(n, scope, local, types.TypeObject)
	case "companion_object":
		u.object(n, scope, local, types.TypeCompanion)
	case "function_declaration":
		u.function(n, scope, local)
	case "property_declaration":
		u.property(n, scope, local)
	case "type_alias":
	default:
		return false
	}
	return true
}

// declMods collects the modifiers node of a declaration.
type declMods struct {
	visibility  types.Visibility
	modifiers   types.Modifier
	keywords    map[string]bool
	annotations []types.Annotation
	refs        []*types.Node // References in annotation arguments
}

func (m declMods) vis(local bool) types.Visibility {
	if local {
		return types.Local
	}
	return m.visibility
}

// modifiers reads the modifiers (or parameter_modifiers) child of n.
func (u *unitBuilder) modifiers(n *sitter.Node, scope types.ScopeID) declMods {
	m := declMods{keywords: make(map[string]bool)}
	for _, typ := range []string{"modifiers", "parameter_modifiers"} {
		if mods := findChildNodeByType(n, typ); mods != nil {
			u.readModifiers(mods, scope, &m)
		}
	}
	return m
}

func (u *unitBuilder) readModifiers(mods *sitter.Node, scope types.ScopeID, m *declMods) {
	for i := 0; i < int(mods.NamedChildCount()); i++ {
		child := mods.NamedChild(i)
		if child.Type() == "annotation" {
			anns, refs := u.annotations(child, scope)
			m.annotations = append(m.annotations, anns...)
			m.refs = append(m.refs, refs...)
			continue
		}

		keyword := strings.TrimSpace(u.text(child))
		m.keywords[keyword] = true
		switch keyword {
		case "public":
			m.visibility = types.Public
		case "internal":
			m.visibility = types.Internal
		case "protected":
			m.visibility = types.Protected
		case "private":
			m.visibility = types.Private
		default:
			if mod, ok := types.ParseModifier(keyword); ok {
				m.modifiers |= mod
			}
		}
	}
}

// annotations reads an annotation or file_annotation node. Non-literal
// arguments are returned as references.
func (u *unitBuilder) annotations(n *sitter.Node, scope types.ScopeID) ([]types.Annotation, []*types.Node) {
	var anns []types.Annotation
	var refs []*types.Node

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "constructor_invocation":
			ann := types.Annotation{Name: normalize(findChildByType(child, "user_type", u.content))}
			if args := findChildNodeByType(child, "value_arguments"); args != nil {
				ann.Args = u.stringLiterals(args)
				if ref := u.expr(args, scope); ref != nil {
					refs = append(refs, ref)
				}
			}
			anns = append(anns, ann)
		case "user_type":
			anns = append(anns, types.Annotation{Name: normalize(u.text(child))})
		case "unescaped_annotation", "annotation":
			nested, nestedRefs := u.annotations(child, scope)
			anns = append(anns, nested...)
			refs = append(refs, nestedRefs...)
		}
	}
	return anns, refs
}

// stringLiterals returns the unquoted string literals below n.
func (u *unitBuilder) stringLiterals(n *sitter.Node) []string {
	var out []string
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "string_literal" {
			out = append(out, unquote(u.text(node)))
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(n)
	return out
}

// nameNode returns the identifier naming a declaration.
func nameNode(n *sitter.Node) *sitter.Node {
	if id := findChildNodeByType(n, "type_identifier"); id != nil {
		return id
	}
	return findChildNodeByType(n, "simple_identifier")
}

func (u *unitBuilder) class(n *sitter.Node, scope types.ScopeID, local bool) {
	m := u.modifiers(n, scope)

	kind := types.TypeClass
	switch {
	case hasChild(n, "interface"):
		kind = types.TypeInterface
	case m.keywords["enum"]:
		kind = types.TypeEnum
	case m.keywords["annotation"]:
		kind = types.TypeAnnotation
	}

	d := types.Declaration{
		Kind:        types.DeclClass,
		Visibility:  m.vis(local),
		Modifiers:   m.modifiers,
		Annotations: m.annotations,
		TypeKind:    kind,
		Span:        span(n),
	}
	if name := nameNode(n); name != nil {
		d.Name = u.text(name)
		d.Span = span(name)
	}

	id := u.b.Declare(scope, d)
	u.addCode(id, m.refs...)
	u.typeContent(n, id, u.b.Open(id, types.ScopeType))
}

func (u *unitBuilder) object(n *sitter.Node, scope types.ScopeID, local bool, kind types.TypeKind) types.DeclID {
	m := u.modifiers(n, scope)

	d := types.Declaration{
		Kind:        types.DeclClass,
		Visibility:  m.vis(local),
		Modifiers:   m.modifiers,
		Annotations: m.annotations,
		TypeKind:    kind,
		Span:        span(n),
	}
	if name := nameNode(n); name != nil {
		d.Name = u.text(name)
		d.Span = span(name)
	} else if kind == types.TypeCompanion {
		d.Name = "Companion"
	}

	id := u.b.Declare(scope, d)
	u.addCode(id, m.refs...)
	u.typeContent(n, id, u.b.Open(id, types.ScopeType))
	return id
}

// typeContent reads the constructor, supertypes and body of a type.
func (u *unitBuilder) typeContent(n *sitter.Node, owner types.DeclID, body types.ScopeID) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "primary_constructor", "class_parameters":
			u.classParameters(child, body)
		case "delegation_specifier", "delegation_specifiers", "annotated_delegation_specifier":
			if ref := u.expr(child, body); ref != nil {
				u.addCode(owner, ref)
			}
		case "class_body", "enum_class_body":
			u.members(child, owner, body)
		}
	}
}

func (u *unitBuilder) classParameters(n *sitter.Node, scope types.ScopeID) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "class_parameter":
			u.classParameter(child, scope)
		case "class_parameters":
			u.classParameters(child, scope)
		}
	}
}

func (u *unitBuilder) classParameter(n *sitter.Node, scope types.ScopeID) {
	name := findChildNodeByType(n, "simple_identifier")
	if name == nil {
		return
	}
	m := u.modifiers(n, scope)

	member := hasChild(n, "val") || hasChild(n, "var")
	if kind := findChildNodeByType(n, "binding_pattern_kind"); kind != nil {
		member = true
	}

	id := u.b.Declare(scope, types.Declaration{
		Kind:        types.DeclParameter,
		Name:        u.text(name),
		Visibility:  m.visibility,
		Modifiers:   m.modifiers,
		Annotations: m.annotations,
		Type:        typeText(n, u.content),
		Member:      member,
		Span:        span(name),
	})
	u.addCode(id, m.refs...)
	if def := childAfter(n, "="); def != nil {
		u.addCode(id, u.expr(def, scope))
	}
}

// members reads a class body.
func (u *unitBuilder) members(n *sitter.Node, owner types.DeclID, scope types.ScopeID) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "anonymous_initializer":
			u.addCode(owner, u.body(child, u.b.Block(scope))...)
		case "secondary_constructor":
			u.secondaryConstructor(child, scope)
		case "enum_entry":
			u.enumEntry(child, owner, scope)
		case "class_member_declarations", "enum_entries":
			u.members(child, owner, scope)
		default:
			if isComment(child) || u.declaration(child, scope, false) {
				continue
			}
			if ref := u.expr(child, scope); ref != nil {
				u.addCode(owner, ref)
			}
		}
	}
}

func (u *unitBuilder) enumEntry(n *sitter.Node, owner types.DeclID, scope types.ScopeID) {
	if args := findChildNodeByType(n, "value_arguments"); args != nil {
		if ref := u.expr(args, scope); ref != nil {
			u.addCode(owner, ref)
		}
	}

	body := findChildNodeByType(n, "class_body")
	if body == nil {
		return
	}
	m := u.modifiers(n, scope)
	d := types.Declaration{
		Kind:        types.DeclClass,
		TypeKind:    types.TypeObject,
		Annotations: m.annotations,
		Span:        span(n),
	}
	if name := findChildNodeByType(n, "simple_identifier"); name != nil {
		d.Name = u.text(name)
		d.Span = span(name)
	}
	id := u.b.Declare(scope, d)
	u.members(body, id, u.b.Open(id, types.ScopeType))
}

func (u *unitBuilder) function(n *sitter.Node, scope types.ScopeID, local bool) types.DeclID {
	m := u.modifiers(n, scope)

	var name *sitter.Node
	var receiver string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "simple_identifier" {
			name = child
			break
		}
		if typeNodes[child.Type()] {
			receiver = normalize(u.text(child))
		}
	}

	body := findChildNodeByType(n, "function_body")
	d := types.Declaration{
		Kind:        types.DeclFunction,
		Visibility:  m.vis(local),
		Modifiers:   m.modifiers,
		Annotations: m.annotations,
		Receiver:    receiver,
		HasBody:     body != nil,
		Span:        span(n),
	}
	if name != nil {
		d.Name = u.text(name)
		d.Span = span(name)
	}

	id := u.b.Declare(scope, d)
	u.addCode(id, m.refs...)
	fs := u.b.Open(id, types.ScopeFunction)
	if params := findChildNodeByType(n, "function_value_parameters"); params != nil {
		u.parameters(params, fs)
	}
	if body != nil {
		u.addCode(id, u.body(body, fs)...)
	}
	return id
}

func (u *unitBuilder) secondaryConstructor(n *sitter.Node, scope types.ScopeID) {
	m := u.modifiers(n, scope)
	id := u.b.Declare(scope, types.Declaration{
		Kind:        types.DeclFunction,
		Name:        "constructor",
		Visibility:  m.visibility,
		Modifiers:   m.modifiers | types.ModConstructor,
		Annotations: m.annotations,
		HasBody:     true,
		Span:        span(n),
	})
	u.addCode(id, m.refs...)

	fs := u.b.Open(id, types.ScopeFunction)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "function_value_parameters":
			u.parameters(child, fs)
		case "constructor_delegation_call":
			if ref := u.expr(child, fs); ref != nil {
				u.addCode(id, ref)
			}
		case "statements", "block":
			u.addCode(id, u.body(child, fs)...)
		}
	}
}

// parameters reads function_value_parameters. Modifiers precede their
// parameter and default values follow it.
func (u *unitBuilder) parameters(n *sitter.Node, scope types.ScopeID) {
	var pending *sitter.Node
	last := types.NoDecl
	afterEq := false

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "parameter_modifiers":
			pending = child
		case "parameter":
			last = u.parameter(child, pending, scope)
			pending = nil
			afterEq = false
		case "=":
			afterEq = true
		default:
			if afterEq && last != types.NoDecl && child.IsNamed() && !isComment(child) {
				u.addCode(last, u.expr(child, scope))
				afterEq = false
			}
		}
	}
}

func (u *unitBuilder) parameter(n, mods *sitter.Node, scope types.ScopeID) types.DeclID {
	name := findChildNodeByType(n, "simple_identifier")
	if name == nil {
		return types.NoDecl
	}

	m := u.modifiers(n, scope)
	if mods != nil {
		u.readModifiers(mods, scope, &m)
	}

	id := u.b.Declare(scope, types.Declaration{
		Kind:        types.DeclParameter,
		Name:        u.text(name),
		Modifiers:   m.modifiers,
		Annotations: m.annotations,
		Type:        typeText(n, u.content),
		Span:        span(name),
	})
	u.addCode(id, m.refs...)
	return id
}

func (u *unitBuilder) property(n *sitter.Node, scope types.ScopeID, local bool) {
	m := u.modifiers(n, scope)

	var receiver string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "variable_declaration" || child.Type() == "multi_variable_declaration" {
			break
		}
		if typeNodes[child.Type()] {
			receiver = normalize(u.text(child))
		}
	}
	init := childAfter(n, "=")

	if multi := findChildNodeByType(n, "multi_variable_declaration"); multi != nil {
		u.destructuring(multi, init, scope, m, local)
		return
	}

	vd := findChildNodeByType(n, "variable_declaration")
	if vd == nil {
		return
	}
	name := findChildNodeByType(vd, "simple_identifier")
	if name == nil {
		return
	}

	d := types.Declaration{
		Kind:        types.DeclProperty,
		Name:        u.text(name),
		Visibility:  m.vis(local),
		Modifiers:   m.modifiers,
		Annotations: m.annotations,
		Receiver:    receiver,
		Type:        typeText(vd, u.content),
		Span:        span(name),
	}
	if d.Type == "" && init != nil {
		d.Type = u.typeOf(init, scope)
	}

	id := u.b.Declare(scope, d)
	u.addCode(id, m.refs...)
	if init != nil {
		u.addCode(id, u.expr(init, scope))
	}

	if delegate := findChildNodeByType(n, "property_delegate"); delegate != nil {
		hooks := []*types.Node{types.Delegate("getValue"), types.Delegate("provideDelegate")}
		if hasChild(n, "var") {
			hooks = append(hooks, types.Delegate("setValue"))
		}
		u.addCode(id, hooks...)
		if target := childAfter(delegate, "by"); target != nil {
			u.addCode(id, u.expr(target, scope))
		}
	}

	for _, accessor := range []string{"getter", "setter"} {
		acc := findChildNodeByType(n, accessor)
		if acc == nil {
			continue
		}
		fs := u.b.Open(id, types.ScopeFunction)
		if param := findChildNodeByType(acc, "parameter_with_optional_type"); param != nil {
			if pn := findChildNodeByType(param, "simple_identifier"); pn != nil {
				u.b.Declare(fs, types.Declaration{Kind: types.DeclParameter, Name: u.text(pn), Span: span(pn)})
			}
		} else if pn := findChildNodeByType(acc, "simple_identifier"); pn != nil && accessor == "setter" {
			u.b.Declare(fs, types.Declaration{Kind: types.DeclParameter, Name: u.text(pn), Span: span(pn)})
		}
		if body := findChildNodeByType(acc, "function_body"); body != nil {
			u.addCode(id, u.body(body, fs)...)
		}
	}
}

// destructuring declares the entries of val (a, b) = init. The initializer
// and the implicit componentN calls are attached to the first entry.
func (u *unitBuilder) destructuring(multi, init *sitter.Node, scope types.ScopeID, m declMods, local bool) {
	first := types.NoDecl
	var components []*types.Node

	for i := 0; i < int(multi.NamedChildCount()); i++ {
		vd := multi.NamedChild(i)
		if vd.Type() != "variable_declaration" {
			continue
		}
		components = append(components, types.Destructure(componentName(len(components)+1)))

		name := findChildNodeByType(vd, "simple_identifier")
		if name == nil {
			continue
		}
		id := u.b.Declare(scope, types.Declaration{
			Kind:        types.DeclProperty,
			Name:        u.text(name),
			Visibility:  m.vis(local),
			Modifiers:   m.modifiers,
			Annotations: m.annotations,
			Type:        typeText(vd, u.content),
			Span:        span(name),
		})
		if first == types.NoDecl {
			first = id
		}
	}

	if first == types.NoDecl {
		return
	}
	u.addCode(first, m.refs...)
	u.addCode(first, components...)
	if init != nil {
		u.addCode(first, u.expr(init, scope))
	}
}

func componentName(i int) string {
	return "component" + strconv.Itoa(i)
}
