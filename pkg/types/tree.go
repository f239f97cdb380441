// Package types contains the declaration tree model shared by the frontend,
// the analysis engine and the reporting layers.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SourceFile represents a source code file to be analyzed.
type SourceFile struct {
	Path     string // Absolute path to the file
	Content  []byte // File content
	Language string // Detected language (kotlin)
	Hash     string // SHA256 hash for the findings cache
}

// ComputeHash calculates SHA256 hash of the file content.
func (f *SourceFile) ComputeHash() string {
	h := sha256.Sum256(f.Content)
	return hex.EncodeToString(h[:])
}

// ScopeID indexes Unit.Scopes.
type ScopeID int32

// DeclID indexes Unit.Decls.
type DeclID int32

// Sentinel indices.
const (
	NoScope ScopeID = -1
	NoDecl  DeclID  = -1

	// FileScope is always the first scope of a unit.
	FileScope ScopeID = 0
)

// ScopeKind represents the kind of lexical scope.
type ScopeKind uint8

const (
	ScopeFile ScopeKind = iota
	ScopeType
	ScopeFunction
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopeType:
		return "type"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// DeclKind represents the kind of declaration.
type DeclKind uint8

const (
	DeclFunction DeclKind = iota
	DeclProperty
	DeclParameter
	DeclClass
)

func (k DeclKind) String() string {
	switch k {
	case DeclFunction:
		return "function"
	case DeclProperty:
		return "property"
	case DeclParameter:
		return "parameter"
	case DeclClass:
		return "class"
	default:
		return "invalid"
	}
}

// MarshalText encodes the kind by name, so reports read "parameter"
// instead of 2.
func (k DeclKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *DeclKind) UnmarshalText(text []byte) error {
	for c := DeclFunction; c <= DeclClass; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown declaration kind %q", text)
}

// Visibility is the declared visibility of a declaration.
type Visibility uint8

const (
	Public Visibility = iota
	Internal
	Protected
	Private
	// Local marks declarations inside function bodies, lambdas and blocks.
	Local
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Protected:
		return "protected"
	case Private:
		return "private"
	case Local:
		return "local"
	default:
		return "invalid"
	}
}

// Modifier is a flat set of declaration modifiers.
type Modifier uint16

const (
	ModAbstract Modifier = 1 << iota
	ModOpen
	ModOverride
	ModOperator
	ModExternal
	ModExpect
	ModActual
	ModEntryPoint
	ModConstructor
	ModVararg
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModAbstract, "abstract"},
	{ModOpen, "open"},
	{ModOverride, "override"},
	{ModOperator, "operator"},
	{ModExternal, "external"},
	{ModExpect, "expect"},
	{ModActual, "actual"},
	{ModEntryPoint, "entry-point"},
	{ModConstructor, "constructor"},
	{ModVararg, "vararg"},
}

// Has reports whether any of the given modifiers is set.
func (m Modifier) Has(mods Modifier) bool {
	return m&mods != 0
}

// Names returns the modifier keywords in a stable order.
func (m Modifier) Names() []string {
	var names []string
	for _, mn := range modifierNames {
		if m&mn.mod != 0 {
			names = append(names, mn.name)
		}
	}
	return names
}

// ParseModifier maps a source keyword to its modifier bit.
func ParseModifier(keyword string) (Modifier, bool) {
	for _, mn := range modifierNames {
		if mn.name == keyword {
			return mn.mod, true
		}
	}
	return 0, false
}

// TypeKind distinguishes class-like declarations.
type TypeKind uint8

const (
	TypeClass TypeKind = iota
	TypeInterface
	TypeObject
	TypeCompanion
	TypeEnum
	TypeAnnotation
)

// Span is a source range. Lines and columns are 1-based.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Annotation is an annotation attached to a declaration or a file.
type Annotation struct {
	Name string   // Annotation name as written, e.g. Suppress or kotlin.Suppress
	Args []string // String literal arguments, unquoted
}

// Declaration is a named declaration in the tree.
type Declaration struct {
	ID          DeclID
	Kind        DeclKind
	Name        string
	Visibility  Visibility
	Modifiers   Modifier
	Scope       ScopeID // Scope the declaration lives in
	Body        ScopeID // Scope opened by the declaration, NoScope if none
	Span        Span
	Annotations []Annotation

	Type     string   // Declared type text for parameters and properties
	Receiver string   // Receiver type text for extension functions
	TypeKind TypeKind // For DeclClass
	HasBody  bool     // For DeclFunction: false for abstract/external/expect functions
	Member   bool     // For primary-constructor parameters declared with val/var
	Params   []DeclID // For DeclFunction and DeclClass (primary constructor)

	// Code holds the executable trees owned by the declaration:
	// function bodies, initializers, delegates, accessors, default values,
	// init blocks and supertype delegation arguments.
	Code []*Node
}

// IsLocal reports whether the declaration lives inside executable code.
func (d *Declaration) IsLocal() bool {
	return d.Visibility == Local
}

// Scope is a lexical scope. Parent and Owner are back-references by index.
type Scope struct {
	ID       ScopeID
	Kind     ScopeKind
	Parent   ScopeID
	Owner    DeclID // Declaration that opened this scope, NoDecl for file and plain blocks
	Decls    []DeclID
	Children []ScopeID
}

// Unit is one compilation unit: an arena of scopes and declarations.
type Unit struct {
	Path        string
	Scopes      []Scope
	Decls       []Declaration
	Annotations []Annotation // File-level annotations
	Code        []*Node      // Top-level statements (scripts)
}

// Scope returns the scope with the given id, or nil if the link is dangling.
func (u *Unit) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(u.Scopes) {
		return nil
	}
	return &u.Scopes[id]
}

// Decl returns the declaration with the given id, or nil if the link is dangling.
func (u *Unit) Decl(id DeclID) *Declaration {
	if id < 0 || int(id) >= len(u.Decls) {
		return nil
	}
	return &u.Decls[id]
}

// Owner returns the declaration that opened the given scope, if any.
func (u *Unit) Owner(id ScopeID) *Declaration {
	s := u.Scope(id)
	if s == nil {
		return nil
	}
	return u.Decl(s.Owner)
}

// Parent returns the declaration enclosing d: the owner of the nearest
// declaration-owned scope above it. Nil for top-level declarations.
func (u *Unit) Parent(d *Declaration) *Declaration {
	for s, steps := u.Scope(d.Scope), 0; s != nil && steps < len(u.Scopes); s, steps = u.Scope(s.Parent), steps+1 {
		if owner := u.Decl(s.Owner); owner != nil && owner.ID != d.ID {
			return owner
		}
	}
	return nil
}

// Ancestors calls fn for the scope id and each of its ancestors, innermost
// first, until fn returns false. Parent cycles end the walk.
func (u *Unit) Ancestors(id ScopeID, fn func(*Scope) bool) {
	for s, steps := u.Scope(id), 0; s != nil && steps < len(u.Scopes); s, steps = u.Scope(s.Parent), steps+1 {
		if !fn(s) {
			return
		}
	}
}

// Params returns the parameter declarations of a function or class.
func (u *Unit) Params(d *Declaration) []*Declaration {
	params := make([]*Declaration, 0, len(d.Params))
	for _, id := range d.Params {
		if p := u.Decl(id); p != nil {
			params = append(params, p)
		}
	}
	return params
}
