// Package shared defines the contract between the host and external
// resolver plugins.
package shared

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/spetr/unusedmember/pkg/types"
)

// Handshake is shared by plugin and host. Plugins built against a different
// protocol version refuse to start.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "UNUSEDMEMBER_PLUGIN",
	MagicCookieValue: "unusedmember-v1",
}

// PluginType identifies the type of plugin.
type PluginType string

const (
	PluginTypeResolver PluginType = "resolver"
)

// PluginMap is the map of plugins we can dispense.
var PluginMap = map[string]plugin.Plugin{
	string(PluginTypeResolver): &ResolverPlugin{},
}

// ResolverProvider is the interface resolver plugins implement.
// It mirrors provider.Resolver with an error channel for transport failures.
type ResolverProvider interface {
	Name() string
	Resolve(site types.CallSite, overloads []types.Overload) (types.DeclID, bool, error)
	Close() error
}

// ResolverPlugin is the plugin.Plugin implementation for resolvers.
type ResolverPlugin struct {
	Impl ResolverProvider
}

func (p *ResolverPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &ResolverRPCServer{Impl: p.Impl}, nil
}

func (p *ResolverPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ResolverRPCClient{client: c}, nil
}
