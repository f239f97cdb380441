package shared

import (
	"io"
	"net/rpc"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// ResolverRPCClient is the RPC client for resolver plugins.
type ResolverRPCClient struct {
	client *rpc.Client
}

// Name returns the provider name.
func (c *ResolverRPCClient) Name() string {
	var resp string
	err := c.client.Call("Plugin.Name", new(interface{}), &resp)
	if err != nil {
		return ""
	}
	return resp
}

// ResolveArgs are the arguments for the Resolve RPC call.
type ResolveArgs struct {
	Site      types.CallSite
	Overloads []types.Overload
}

// ResolveReply is the reply for the Resolve RPC call.
type ResolveReply struct {
	ID    types.DeclID
	OK    bool
	Error string
}

// Resolve asks the plugin which overload the call site binds to.
func (c *ResolverRPCClient) Resolve(site types.CallSite, overloads []types.Overload) (types.DeclID, bool, error) {
	var resp ResolveReply
	err := c.client.Call("Plugin.Resolve", &ResolveArgs{Site: site, Overloads: overloads}, &resp)
	if err != nil {
		return types.NoDecl, false, err
	}
	if resp.Error != "" {
		return types.NoDecl, false, &PluginError{Message: resp.Error}
	}
	if !resp.OK {
		return types.NoDecl, false, nil
	}
	return resp.ID, true, nil
}

// Close closes the provider.
func (c *ResolverRPCClient) Close() error {
	var resp string
	err := c.client.Call("Plugin.Close", new(interface{}), &resp)
	if err != nil {
		return err
	}
	if resp != "" {
		return &PluginError{Message: resp}
	}
	return nil
}

// ResolverRPCServer is the RPC server for resolver plugins.
type ResolverRPCServer struct {
	Impl ResolverProvider
}

// Name returns the provider name.
func (s *ResolverRPCServer) Name(args interface{}, resp *string) error {
	*resp = s.Impl.Name()
	return nil
}

// Resolve resolves the call site.
func (s *ResolverRPCServer) Resolve(args *ResolveArgs, resp *ResolveReply) error {
	id, ok, err := s.Impl.Resolve(args.Site, args.Overloads)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.ID = id
	resp.OK = ok
	return nil
}

// Close closes the provider.
func (s *ResolverRPCServer) Close(args interface{}, resp *string) error {
	err := s.Impl.Close()
	if err != nil {
		*resp = err.Error()
	}
	return nil
}

// PluginError is an error reported by the plugin side.
type PluginError struct {
	Message string
}

func (e *PluginError) Error() string {
	return e.Message
}

// WrapResolver exposes an in-process resolver as a ResolverProvider so a
// plugin binary can serve it.
func WrapResolver(r provider.Resolver) ResolverProvider {
	return wrappedResolver{r}
}

type wrappedResolver struct {
	provider.Resolver
}

func (w wrappedResolver) Resolve(site types.CallSite, overloads []types.Overload) (types.DeclID, bool, error) {
	id, ok := w.Resolver.Resolve(site, overloads)
	return id, ok, nil
}

func (w wrappedResolver) Close() error {
	if c, ok := w.Resolver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
