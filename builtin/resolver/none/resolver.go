// Package none implements a Resolver that never decides, leaving every
// ambiguous call to name matching.
package none

import (
	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// Resolver is a resolver that resolves nothing.
type Resolver struct{}

// New creates a new no-op resolver.
func New() *Resolver {
	return &Resolver{}
}

// Name returns the resolver name.
func (r *Resolver) Name() string {
	return "none"
}

// Resolve always reports that the call could not be bound.
func (r *Resolver) Resolve(types.CallSite, []types.Overload) (types.DeclID, bool) {
	return types.NoDecl, false
}

// Ensure Resolver implements the Resolver interface
var _ provider.Resolver = (*Resolver)(nil)
