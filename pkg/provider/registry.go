package provider

import (
	"fmt"
	"sort"
	"sync"
)

// FrontendFactory creates a Frontend from configuration.
type FrontendFactory func(config FrontendConfig) (Frontend, error)

// ResolverFactory creates a Resolver from configuration.
type ResolverFactory func(config ResolverConfig) (Resolver, error)

// CacheFactory creates a FindingCache.
type CacheFactory func() (FindingCache, error)

// Registry holds factories for all provider types.
type Registry struct {
	mu sync.RWMutex

	frontendFactories map[string]FrontendFactory
	resolverFactories map[string]ResolverFactory
	cacheFactories    map[string]CacheFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		frontendFactories: make(map[string]FrontendFactory),
		resolverFactories: make(map[string]ResolverFactory),
		cacheFactories:    make(map[string]CacheFactory),
	}
}

// RegisterFrontend registers a frontend factory.
func (r *Registry) RegisterFrontend(name string, factory FrontendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frontendFactories[name] = factory
}

// RegisterResolver registers a resolver factory.
func (r *Registry) RegisterResolver(name string, factory ResolverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolverFactories[name] = factory
}

// RegisterCache registers a findings cache factory.
func (r *Registry) RegisterCache(name string, factory CacheFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheFactories[name] = factory
}

// CreateFrontend creates a frontend by name.
func (r *Registry) CreateFrontend(name string, config FrontendConfig) (Frontend, error) {
	r.mu.RLock()
	factory, ok := r.frontendFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown frontend: %s (available: %v)", name, r.ListFrontends())
	}
	return factory(config)
}

// CreateResolver creates a resolver by name.
func (r *Registry) CreateResolver(name string, config ResolverConfig) (Resolver, error) {
	r.mu.RLock()
	factory, ok := r.resolverFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown resolver: %s (available: %v)", name, r.ListResolvers())
	}
	return factory(config)
}

// CreateCache creates a findings cache by name.
func (r *Registry) CreateCache(name string) (FindingCache, error) {
	r.mu.RLock()
	factory, ok := r.cacheFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown cache: %s (available: %v)", name, r.ListCaches())
	}
	return factory()
}

// ListFrontends returns all registered frontend names.
func (r *Registry) ListFrontends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.frontendFactories)
}

// ListResolvers returns all registered resolver names.
func (r *Registry) ListResolvers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.resolverFactories)
}

// ListCaches returns all registered cache names.
func (r *Registry) ListCaches() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.cacheFactories)
}

// HasFrontend checks if a frontend is registered.
func (r *Registry) HasFrontend(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.frontendFactories[name]
	return ok
}

// HasResolver checks if a resolver is registered.
func (r *Registry) HasResolver(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolverFactories[name]
	return ok
}

// HasCache checks if a findings cache is registered.
func (r *Registry) HasCache(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cacheFactories[name]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global default registry.
var DefaultRegistry = NewRegistry()

// Register functions for the default registry.

// RegisterFrontend registers a frontend in the default registry.
func RegisterFrontend(name string, factory FrontendFactory) {
	DefaultRegistry.RegisterFrontend(name, factory)
}

// RegisterResolver registers a resolver in the default registry.
func RegisterResolver(name string, factory ResolverFactory) {
	DefaultRegistry.RegisterResolver(name, factory)
}

// RegisterCache registers a findings cache in the default registry.
func RegisterCache(name string, factory CacheFactory) {
	DefaultRegistry.RegisterCache(name, factory)
}
