// Package mcp exposes the unused member analysis as MCP tools.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetr/unusedmember/internal/config"
	"github.com/spetr/unusedmember/internal/scan"
	"github.com/spetr/unusedmember/pkg/provider"
)

// Version is reported to MCP clients.
var Version = "0.1.0"

// Server implements the MCP server.
type Server struct {
	mcpServer  *server.MCPServer
	projectDir string
	root       string
	realRoot   string // root with symlinks resolved
	config     *config.Config
	runner     *scan.Runner
	cache      provider.FindingCache
}

// Config contains server configuration.
type Config struct {
	ProjectDir string
	Config     *config.Config
	Runner     *scan.Runner
	Cache      provider.FindingCache // Optional
}

// New creates a new MCP server.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("mcp server requires a runner")
	}

	root := cfg.ProjectDir
	if cfg.Config.MCP.Root != "" {
		root = cfg.Config.MCP.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(cfg.ProjectDir, root)
		}
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	s := &Server{
		projectDir: cfg.ProjectDir,
		root:       root,
		realRoot:   realRoot,
		config:     cfg.Config,
		runner:     cfg.Runner,
		cache:      cfg.Cache,
	}

	mcpServer := server.NewMCPServer(
		"unusedmember",
		Version,
		server.WithLogging(),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s, nil
}

// registerTools registers all MCP tools.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("find_unused_members",
		mcp.WithDescription("Find unused private functions, properties and parameters in Kotlin sources"),
		mcp.WithString("path", mcp.Description("File or directory relative to the project root (default: whole project)")),
		mcp.WithString("format", mcp.Description("Output format: json (default) or text")),
		mcp.WithNumber("limit", mcp.Description("Maximum findings returned (default: all)")),
	), s.handleFindUnusedMembers)

	mcpServer.AddTool(mcp.NewTool("get_rule_config",
		mcp.WithDescription("Show the active rule configuration"),
	), s.handleGetRuleConfig)

	mcpServer.AddTool(mcp.NewTool("clear_findings_cache",
		mcp.WithDescription("Drop all cached findings so the next run re-analyzes every file"),
	), s.handleClearFindingsCache)
}

// resolvePath maps a tool argument to an absolute path below the server root.
// Symlinks are followed, so a link inside the root cannot reach outside it.
// Paths that do not exist are checked lexically and left to the runner.
func (s *Server) resolvePath(arg string) (string, error) {
	if arg == "" {
		return s.root, nil
	}
	path := arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	if !within(s.root, path) {
		return "", fmt.Errorf("path %s is outside the project", arg)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("failed to resolve path %s: %w", arg, err)
	}
	if !within(s.realRoot, resolved) {
		return "", fmt.Errorf("path %s is outside the project", arg)
	}
	return path, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Server) handleFindUnusedMembers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.resolvePath(req.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format := req.GetString("format", "json")
	if format != "json" && format != "text" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format: %s (valid: json, text)", format)), nil
	}

	report, err := s.runner.Run(ctx, []string{path})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	total := len(report.Findings)
	if limit := req.GetInt("limit", 0); limit > 0 && limit < total {
		report.Findings = report.Findings[:limit]
	}

	var buf bytes.Buffer
	if format == "text" {
		if err := scan.WriteText(&buf, report.Findings, s.projectDir); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if total > len(report.Findings) {
			fmt.Fprintf(&buf, "... %d more\n", total-len(report.Findings))
		}
		if total == 0 {
			buf.WriteString("No unused members found.\n")
		}
		return mcp.NewToolResultText(buf.String()), nil
	}

	result := map[string]any{
		"files":    report.Files,
		"cached":   report.Cached,
		"total":    total,
		"findings": report.Findings,
	}
	if len(report.Errors) > 0 {
		result["errors"] = report.Errors
	}

	jsonResult, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonResult)), nil
}

func (s *Server) handleGetRuleConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rule := s.config.RuleConfig()

	result := map[string]any{
		"rule_id":       rule.ID,
		"active":        rule.Active,
		"allowed_names": rule.AllowedNames,
		"aliases":       rule.Aliases,
		"rule_set":      rule.RuleSet,
		"resolver":      s.config.Resolver.Provider,
		"cache":         s.cache != nil,
		"config_hash":   s.config.Hash(),
	}
	if err := s.runner.Rule().Compile(); err != nil && rule.Active {
		result["error"] = err.Error()
	}

	jsonResult, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonResult)), nil
}

func (s *Server) handleClearFindingsCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cache == nil {
		return mcp.NewToolResultError("findings cache is disabled"), nil
	}

	stats, err := s.cache.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}
	if err := s.cache.Clear(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear cache: %v", err)), nil
	}

	result := map[string]any{
		"success":       true,
		"files_removed": stats.Files,
	}
	jsonResult, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonResult)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
