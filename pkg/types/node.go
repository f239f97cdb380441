package types

// NodeKind classifies nodes of the executable code tree.
type NodeKind uint8

const (
	// NodeExpr is a plain container without a reference of its own.
	NodeExpr NodeKind = iota
	// NodeName is a bare identifier reference.
	NodeName
	// NodeMember is a qualified member access; Text is the member name.
	NodeMember
	// NodeCall is a call site; Text is the callee name.
	NodeCall
	// NodeCallableRef is a double-colon callable reference.
	NodeCallableRef
	// NodeDestructure is an implicit componentN call of a destructuring declaration.
	NodeDestructure
	// NodeOperator is an implicit operator function call.
	NodeOperator
	// NodeDelegate is an implicit delegated-property hook.
	NodeDelegate
)

func (k NodeKind) String() string {
	switch k {
	case NodeExpr:
		return "expr"
	case NodeName:
		return "name"
	case NodeMember:
		return "member"
	case NodeCall:
		return "call"
	case NodeCallableRef:
		return "callable-ref"
	case NodeDestructure:
		return "destructure"
	case NodeOperator:
		return "operator"
	case NodeDelegate:
		return "delegate"
	default:
		return "unknown"
	}
}

// Node is a node of an executable code tree.
type Node struct {
	Kind     NodeKind
	Text     string // Literal reference text
	Span     Span
	Children []*Node

	// Call site hints, filled by the frontend when known.
	Receiver string   // Static type of the explicit receiver
	ArgTypes []string // One entry per call argument, empty string when unknown
}

// IsReference reports whether the node refers to a name. Any node carrying
// text counts, whatever its kind.
func (n *Node) IsReference() bool {
	return n.Text != ""
}

// Walk calls fn for n and every descendant in depth-first order.
// Returning false from fn skips the children of that node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Expr builds a container node.
func Expr(children ...*Node) *Node {
	return &Node{Kind: NodeExpr, Children: children}
}

// Name builds an identifier reference.
func Name(text string) *Node {
	return &Node{Kind: NodeName, Text: text}
}

// Member builds a qualified access receiver.name.
func Member(receiver *Node, name string) *Node {
	n := &Node{Kind: NodeMember, Text: name}
	if receiver != nil {
		n.Children = []*Node{receiver}
	}
	return n
}

// Call builds a call site of callee with the given arguments. Children of
// a call are its receiver, if any, followed by its arguments.
func Call(callee string, args ...*Node) *Node {
	return &Node{Kind: NodeCall, Text: callee, Children: args, ArgTypes: make([]string, len(args))}
}

// CallableRef builds a ::name reference.
func CallableRef(name string) *Node {
	return &Node{Kind: NodeCallableRef, Text: name}
}

// Destructure builds the implicit componentN call of a destructuring entry.
func Destructure(component string) *Node {
	return &Node{Kind: NodeDestructure, Text: component}
}

// Delegate builds an implicit delegated-property hook reference.
func Delegate(hook string) *Node {
	return &Node{Kind: NodeDelegate, Text: hook}
}

// Operator builds an implicit operator call over the operands.
func Operator(name string, operands ...*Node) *Node {
	return &Node{Kind: NodeOperator, Text: name, Children: operands}
}
