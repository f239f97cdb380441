package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spetr/unusedmember/internal/analysis"
	"github.com/spetr/unusedmember/internal/config"
	"github.com/spetr/unusedmember/internal/scan"
	"github.com/spetr/unusedmember/pkg/provider"
)

// providers holds the components a run is built from.
type providers struct {
	frontend provider.Frontend
	resolver provider.Resolver
	cache    provider.FindingCache // nil when caching is disabled
	closed   bool
}

// createProviders creates all providers based on config.
func createProviders(cfg *config.Config, root string) (*providers, error) {
	frontend, err := provider.DefaultRegistry.CreateFrontend(cfg.Frontend.Name, provider.FrontendConfig{Name: cfg.Frontend.Name})
	if err != nil {
		return nil, err
	}

	p := &providers{frontend: frontend}

	if cfg.Resolver.Provider != "none" {
		p.resolver, err = provider.DefaultRegistry.CreateResolver(cfg.Resolver.Provider, cfg.ResolverConfig(root))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create resolver: %w", err)
		}
	}

	if cfg.Cache.Enabled {
		cache, err := provider.DefaultRegistry.CreateCache(cfg.Cache.Provider)
		if err != nil {
			p.Close()
			return nil, err
		}
		if err := cache.Init(config.CacheDBPath(root)); err != nil {
			// The cache only saves time; run without it.
			slog.Warn("findings cache unavailable", "error", err)
			cache.Close()
		} else {
			p.cache = cache
		}
	}

	return p, nil
}

// Close releases every provider. It is safe to call more than once.
func (p *providers) Close() {
	if p.closed {
		return
	}
	p.closed = true

	if p.cache != nil {
		if err := p.cache.Close(); err != nil {
			slog.Warn("failed to close cache", "error", err)
		}
	}
	if c, ok := p.resolver.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close resolver", "error", err)
		}
	}
	if err := p.frontend.Close(); err != nil {
		slog.Warn("failed to close frontend", "error", err)
	}
}

func newRunner(cfg *config.Config, root string, p *providers) (*scan.Runner, error) {
	return scan.New(scan.Options{
		ProjectDir: root,
		Config:     cfg,
		Frontend:   p.frontend,
		Resolver:   p.resolver,
		Cache:      p.cache,
	})
}

func newRule(cfg *config.Config) *analysis.Rule {
	return analysis.New(cfg.RuleConfig())
}

// openCache opens the configured findings cache or exits.
func openCache(cfg *config.Config) provider.FindingCache {
	cache, err := provider.DefaultRegistry.CreateCache(cfg.Cache.Provider)
	if err != nil {
		slog.Error("failed to create cache", "error", err)
		os.Exit(1)
	}
	if err := cache.Init(config.CacheDBPath(projectRoot())); err != nil {
		slog.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	return cache
}
