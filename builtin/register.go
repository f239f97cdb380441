// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	"fmt"

	"github.com/spetr/unusedmember/builtin/cache/sqlite"
	"github.com/spetr/unusedmember/builtin/frontend/treesitter"
	"github.com/spetr/unusedmember/builtin/resolver/none"
	"github.com/spetr/unusedmember/builtin/resolver/signature"
	"github.com/spetr/unusedmember/pkg/plugin/host"
	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

func init() {
	// Register frontends
	provider.RegisterFrontend("treesitter", func(cfg provider.FrontendConfig) (provider.Frontend, error) {
		return treesitter.New(), nil
	})

	// Register resolvers
	provider.RegisterResolver("signature", func(cfg provider.ResolverConfig) (provider.Resolver, error) {
		return signature.New(), nil
	})

	provider.RegisterResolver("none", func(cfg provider.ResolverConfig) (provider.Resolver, error) {
		return none.New(), nil
	})

	provider.RegisterResolver("plugin", func(cfg provider.ResolverConfig) (provider.Resolver, error) {
		if cfg.PluginPath == "" {
			return nil, fmt.Errorf("%w: resolver.plugin is required for the plugin resolver", types.ErrInvalidConfig)
		}
		manager := host.NewManager(cfg.PluginsDir, cfg.LogLevel)
		loaded, err := manager.LoadResolver(cfg.PluginPath)
		if err != nil {
			return nil, err
		}
		return host.NewResolverAdapter(loaded.Resolver, func() error {
			return manager.UnloadPlugin(loaded.Name)
		}), nil
	})

	// Register findings caches
	provider.RegisterCache("sqlite", func() (provider.FindingCache, error) {
		return sqlite.New(), nil
	})
}
