package types

// Location points at a declaration in a source file.
type Location struct {
	Path string `json:"path"`
	Span
}

// Finding reports one unused declaration.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	DeclID   DeclID   `json:"decl_id"`
	Name     string   `json:"name"`
	Kind     DeclKind `json:"kind"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// CallSite describes a reference whose target is overload-ambiguous.
type CallSite struct {
	Path     string   // File of the call site
	Callee   string   // Referenced name
	Span     Span     // Location of the reference
	Receiver string   // Static receiver type, empty when implicit or unknown
	ArgTypes []string // Argument types, empty entries when unknown
	Callable bool     // True for ::name references, which carry no arguments
}

// Overload describes one declaration sharing the referenced name.
type Overload struct {
	ID         DeclID
	Name       string
	Receiver   string
	ParamTypes []string
	Required   int  // Parameters without default values
	Vararg     bool // Last parameter is vararg
}
