package provider

import (
	"github.com/spetr/unusedmember/pkg/types"
)

// Resolver binds an overload-ambiguous reference to the declaration it targets.
type Resolver interface {
	// Name returns the resolver name (e.g., "signature").
	Name() string

	// Resolve returns the overload the call site binds to. ok is false
	// when the resolver cannot decide; callers then fall back to name matching.
	Resolve(site types.CallSite, overloads []types.Overload) (id types.DeclID, ok bool)
}

// ResolverConfig contains configuration for resolvers.
type ResolverConfig struct {
	Provider   string // "signature", "none", "plugin"
	PluginPath string // Executable for the plugin resolver, absolute or relative to PluginsDir
	PluginsDir string // Directory searched for plugin executables
	LogLevel   string // Log level of the plugin host
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(site types.CallSite, overloads []types.Overload) (types.DeclID, bool)

// Name returns "func".
func (f ResolverFunc) Name() string {
	return "func"
}

// Resolve calls f.
func (f ResolverFunc) Resolve(site types.CallSite, overloads []types.Overload) (types.DeclID, bool) {
	return f(site, overloads)
}
