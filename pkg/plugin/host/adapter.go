package host

import (
	"log/slog"

	"github.com/spetr/unusedmember/pkg/plugin/shared"
	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// ResolverAdapter adapts a plugin ResolverProvider to provider.Resolver.
// Transport errors are logged and reported as undecided calls.
type ResolverAdapter struct {
	plugin shared.ResolverProvider
	close  func() error
}

// NewResolverAdapter creates a resolver adapter. onClose runs when the
// adapter is closed, typically unloading the plugin; it may be nil.
func NewResolverAdapter(p shared.ResolverProvider, onClose func() error) *ResolverAdapter {
	return &ResolverAdapter{plugin: p, close: onClose}
}

// Name returns the provider name.
func (a *ResolverAdapter) Name() string {
	return a.plugin.Name()
}

// Resolve forwards the call site to the plugin.
func (a *ResolverAdapter) Resolve(site types.CallSite, overloads []types.Overload) (types.DeclID, bool) {
	id, ok, err := a.plugin.Resolve(site, overloads)
	if err != nil {
		slog.Warn("resolver plugin failed",
			"callee", site.Callee,
			"file", site.Path,
			"error", err,
		)
		return types.NoDecl, false
	}
	return id, ok
}

// Close closes the plugin.
func (a *ResolverAdapter) Close() error {
	if a.close != nil {
		return a.close()
	}
	return a.plugin.Close()
}

var _ provider.Resolver = (*ResolverAdapter)(nil)
