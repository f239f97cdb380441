// Package host loads external resolver plugins.
package host

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/spetr/unusedmember/pkg/plugin/shared"
	"github.com/spetr/unusedmember/pkg/types"
)

// Manager manages external plugins.
type Manager struct {
	pluginsDir string
	plugins    map[string]*LoadedPlugin
	mu         sync.RWMutex
	logger     hclog.Logger
}

// LoadedPlugin represents a loaded plugin.
type LoadedPlugin struct {
	Name     string
	Type     shared.PluginType
	Path     string
	Client   *plugin.Client
	Resolver shared.ResolverProvider
}

// NewManager creates a plugin manager. Relative plugin paths are looked up
// in pluginsDir. level is an hclog level name; unknown names mean warn.
func NewManager(pluginsDir, level string) *Manager {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Warn
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "plugins",
		Level:  lvl,
		Output: os.Stderr,
	})

	return &Manager{
		pluginsDir: pluginsDir,
		plugins:    make(map[string]*LoadedPlugin),
		logger:     logger,
	}
}

// DiscoverPlugins lists the executables in the plugins directory.
func (m *Manager) DiscoverPlugins() ([]string, error) {
	if _, err := os.Stat(m.pluginsDir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var plugins []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode()&0111 != 0 {
			plugins = append(plugins, entry.Name())
		}
	}
	return plugins, nil
}

// path resolves a plugin name or path to an executable.
func (m *Manager) path(name string) string {
	if filepath.IsAbs(name) || m.pluginsDir == "" {
		return name
	}
	return filepath.Join(m.pluginsDir, name)
}

// LoadResolver starts a resolver plugin. Loading the same plugin twice
// returns the running instance.
func (m *Manager) LoadResolver(name string) (*LoadedPlugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, exists := m.plugins[name]; exists {
		return p, nil
	}

	pluginPath := m.path(name)
	if _, err := os.Stat(pluginPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: plugin %s", types.ErrNotFound, pluginPath)
	}

	slog.Info("loading plugin", "name", name, "type", shared.PluginTypeResolver, "path", pluginPath)

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: shared.Handshake,
		Plugins:         shared.PluginMap,
		Cmd:             exec.Command(pluginPath),
		Logger:          m.logger,
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("%w: failed to connect to plugin: %v", types.ErrProviderNotAvailable, err)
	}

	raw, err := rpcClient.Dispense(string(shared.PluginTypeResolver))
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("%w: failed to dispense plugin: %v", types.ErrProviderNotAvailable, err)
	}

	resolver, ok := raw.(shared.ResolverProvider)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin does not implement ResolverProvider")
	}

	loaded := &LoadedPlugin{
		Name:     name,
		Type:     shared.PluginTypeResolver,
		Path:     pluginPath,
		Client:   client,
		Resolver: resolver,
	}
	m.plugins[name] = loaded
	slog.Info("plugin loaded", "name", name, "resolver", resolver.Name())

	return loaded, nil
}

// GetResolverPlugin returns a loaded resolver plugin.
func (m *Manager) GetResolverPlugin(name string) (shared.ResolverProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.plugins[name]
	if !exists {
		return nil, fmt.Errorf("%w: plugin not loaded: %s", types.ErrNotFound, name)
	}
	return p.Resolver, nil
}

// UnloadPlugin closes a plugin and kills its process.
func (m *Manager) UnloadPlugin(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.plugins[name]
	if !exists {
		return nil
	}
	err := p.Resolver.Close()
	p.Client.Kill()

	delete(m.plugins, name)
	slog.Info("plugin unloaded", "name", name)
	return err
}

// UnloadAll unloads all plugins.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, p := range m.plugins {
		if err := p.Resolver.Close(); err != nil {
			slog.Debug("plugin close failed", "name", name, "error", err)
		}
		p.Client.Kill()
		slog.Debug("plugin unloaded", "name", name)
	}
	m.plugins = make(map[string]*LoadedPlugin)
}

// ListLoaded returns the names of loaded plugins.
func (m *Manager) ListLoaded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
