package types

// Builder assembles a Unit.
type Builder struct {
	unit *Unit
}

// NewBuilder creates a builder whose unit already holds the file scope.
func NewBuilder(path string) *Builder {
	return &Builder{
		unit: &Unit{
			Path: path,
			Scopes: []Scope{{
				ID:     FileScope,
				Kind:   ScopeFile,
				Parent: NoScope,
				Owner:  NoDecl,
			}},
		},
	}
}

// FileAnnotations attaches file-level annotations.
func (b *Builder) FileAnnotations(anns ...Annotation) {
	b.unit.Annotations = append(b.unit.Annotations, anns...)
}

// Declare adds d to scope and returns its id. Parameters declared in a
// scope owned by a function or class are appended to the owner's Params.
func (b *Builder) Declare(scope ScopeID, d Declaration) DeclID {
	s := b.unit.Scope(scope)
	if s == nil {
		return NoDecl
	}

	d.ID = DeclID(len(b.unit.Decls))
	d.Scope = scope
	d.Body = NoScope
	b.unit.Decls = append(b.unit.Decls, d)
	s.Decls = append(s.Decls, d.ID)

	if d.Kind == DeclParameter {
		if owner := b.unit.Decl(s.Owner); owner != nil {
			owner.Params = append(owner.Params, d.ID)
		}
	}
	return d.ID
}

// Open creates the scope owned by declaration id, nested in the scope the
// declaration lives in. Opening twice returns the existing scope.
func (b *Builder) Open(id DeclID, kind ScopeKind) ScopeID {
	d := b.unit.Decl(id)
	if d == nil {
		return NoScope
	}
	if d.Body != NoScope {
		return d.Body
	}
	sid := b.newScope(d.Scope, kind, id)
	b.unit.Decls[id].Body = sid
	return sid
}

// Block creates an ownerless block scope under parent.
func (b *Builder) Block(parent ScopeID) ScopeID {
	if b.unit.Scope(parent) == nil {
		return NoScope
	}
	return b.newScope(parent, ScopeBlock, NoDecl)
}

func (b *Builder) newScope(parent ScopeID, kind ScopeKind, owner DeclID) ScopeID {
	sid := ScopeID(len(b.unit.Scopes))
	b.unit.Scopes = append(b.unit.Scopes, Scope{
		ID:     sid,
		Kind:   kind,
		Parent: parent,
		Owner:  owner,
	})
	p := &b.unit.Scopes[parent]
	p.Children = append(p.Children, sid)
	return sid
}

// AddCode appends executable trees to a declaration.
func (b *Builder) AddCode(id DeclID, nodes ...*Node) {
	if d := b.unit.Decl(id); d != nil {
		d.Code = append(d.Code, nodes...)
	}
}

// AddUnitCode appends top-level statements.
func (b *Builder) AddUnitCode(nodes ...*Node) {
	b.unit.Code = append(b.unit.Code, nodes...)
}

// Decl gives access to a declaration while the unit is being built.
func (b *Builder) Decl(id DeclID) *Declaration {
	return b.unit.Decl(id)
}

// Unit returns the unit. It may be inspected while it is still being built.
func (b *Builder) Unit() *Unit {
	return b.unit
}
