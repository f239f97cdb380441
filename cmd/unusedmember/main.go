// unusedmember finds unused private functions, properties and parameters in Kotlin code.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/spetr/unusedmember/builtin"
	"github.com/spetr/unusedmember/internal/config"
	"github.com/spetr/unusedmember/internal/mcp"
	"github.com/spetr/unusedmember/internal/scan"
	"github.com/spetr/unusedmember/pkg/plugin/host"
)

var (
	version    = "0.1.0"
	cfgFile    string
	projectDir string
	logLevel   string
	logFormat  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "unusedmember",
	Short: "Find unused private members in Kotlin code",
	Long: `unusedmember reports private functions, private and local properties,
and function or constructor parameters that are never referenced.

Findings can be suppressed with @Suppress("UnusedPrivateMember") on the
declaration, any enclosing declaration, or the file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("unusedmember %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Analyze files or directories",
	Long:  `Analyze Kotlin files. Directories are searched recursively. If no path is provided, analyzes the project directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		noCache, _ := cmd.Flags().GetBool("no-cache")
		workers, _ := cmd.Flags().GetInt("workers")
		fail, _ := cmd.Flags().GetBool("fail")

		runCheck(args, format, noCache, workers, fail)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-analyze files as they change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		debounceMs, _ := cmd.Flags().GetInt("debounce")

		runWatch(path, debounceMs)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server",
	Run: func(cmd *cobra.Command, args []string) {
		stdio, _ := cmd.Flags().GetBool("stdio")
		runServe(stdio)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		root := projectRoot()

		if _, err := os.Stat(config.ConfigPath(root)); err == nil && !force {
			fmt.Fprintf(os.Stderr, "config already exists: %s (use --force to overwrite)\n", config.ConfigPath(root))
			os.Exit(1)
		}
		if err := config.Save(root, config.DefaultConfig()); err != nil {
			slog.Error("failed to save config", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", config.ConfigPath(root))
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := loadConfigQuiet()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		errs := config.Validate(cfg)
		// Validation skips the rule patterns; compiling them here reports bad regexes early.
		if cfg.Rule.Active {
			if err := newRule(cfg).Compile(); err != nil {
				errs = append(errs, err)
			}
		}

		if len(errs) > 0 {
			for _, err := range errs {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage resolver plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins in the plugins directory",
	Run: func(cmd *cobra.Command, args []string) {
		root := projectRoot()
		cfg := loadConfig()
		dir := config.PluginsDir(root, cfg)

		manager := host.NewManager(dir, cfg.Logging.Level)
		plugins, err := manager.DiscoverPlugins()
		if err != nil {
			slog.Error("failed to discover plugins", "error", err)
			os.Exit(1)
		}
		if len(plugins) == 0 {
			fmt.Printf("No plugins found in %s\n", dir)
			return
		}
		for _, p := range plugins {
			fmt.Println(p)
		}
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the findings cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show findings cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		cache := openCache(loadConfig())
		defer cache.Close()

		stats, err := cache.Stats()
		if err != nil {
			slog.Error("failed to get stats", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Files:         %d\n", stats.Files)
		fmt.Printf("Findings:      %d\n", stats.Findings)
		fmt.Printf("Database size: %s\n", formatBytes(stats.DBSizeBytes))
		if !stats.LastAnalyzed.IsZero() {
			fmt.Printf("Last analyzed: %s\n", stats.LastAnalyzed.Format("2006-01-02 15:04:05"))
		}
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached findings",
	Run: func(cmd *cobra.Command, args []string) {
		cache := openCache(loadConfig())
		defer cache.Close()

		if err := cache.Clear(); err != nil {
			slog.Error("failed to clear cache", "error", err)
			os.Exit(1)
		}
		fmt.Println("Cache cleared")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: .unusedmember/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	checkCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	checkCmd.Flags().Bool("no-cache", false, "ignore and do not update the findings cache")
	checkCmd.Flags().IntP("workers", "w", 0, "parallel workers (default: config or number of CPUs)")
	checkCmd.Flags().Bool("fail", false, "exit with status 1 when findings are reported")

	watchCmd.Flags().Int("debounce", 500, "debounce time in milliseconds")

	serveCmd.Flags().Bool("stdio", true, "use stdio transport (for MCP)")

	configInitCmd.Flags().Bool("force", false, "overwrite an existing config")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	pluginsCmd.AddCommand(pluginsListCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(cacheCmd)
}

// setupLogging configures the default logger. Flags win over the config
// file; the config is read quietly here since logging is not set up yet.
func setupLogging() {
	level, format := logLevel, logFormat
	if level == "" || format == "" {
		if cfg, _, err := loadConfigQuiet(); err == nil {
			if level == "" {
				level = cfg.Logging.Level
			}
			if format == "" {
				format = cfg.Logging.Format
			}
		}
	}

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func runCheck(paths []string, format string, noCache bool, workers int, fail bool) {
	root := projectRoot()
	cfg := loadConfig()
	if workers > 0 {
		cfg.Limits.Workers = workers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if format != "text" && format != "json" {
		fmt.Fprintf(os.Stderr, "unknown format: %s (valid: text, json)\n", format)
		os.Exit(1)
	}

	p, err := createProviders(cfg, root)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	runner, err := newRunner(cfg, root, p)
	if err != nil {
		slog.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, paths)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		p.Close()
		os.Exit(1)
	}

	if format == "json" {
		err = scan.WriteJSON(os.Stdout, report)
	} else {
		err = scan.WriteText(os.Stdout, report.Findings, root)
	}
	if err != nil {
		slog.Error("failed to write report", "error", err)
	}

	if fail && len(report.Findings) > 0 {
		p.Close()
		os.Exit(1)
	}
}

func runWatch(path string, debounceMs int) {
	root := projectRoot()
	if path == "" {
		path = root
	}
	absPath, _ := filepath.Abs(path)
	slog.Info("watching for changes", "path", absPath, "debounce_ms", debounceMs)

	cfg := loadConfig()
	p, err := createProviders(cfg, root)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	runner, err := newRunner(cfg, root, p)
	if err != nil {
		slog.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial pass so the watch starts from a complete picture
	report, err := runner.Run(ctx, []string{absPath})
	if err != nil {
		slog.Error("analysis failed", "error", err)
		return
	}
	_ = scan.WriteText(os.Stdout, report.Findings, root)

	watcher, err := scan.NewWatcher(scan.WatcherConfig{
		Runner:       runner,
		Dir:          absPath,
		DebounceTime: time.Duration(debounceMs) * time.Millisecond,
		OnChange: func(c scan.Change) {
			switch {
			case c.Removed:
				rel, _ := filepath.Rel(root, c.Path)
				fmt.Printf("%s: removed\n", rel)
			case c.Err != nil:
				fmt.Fprintf(os.Stderr, "%s: %v\n", c.Path, c.Err)
			default:
				_ = scan.WriteText(os.Stdout, c.Findings, root)
			}
		},
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		return
	}

	if err := watcher.Watch(ctx); err != nil {
		slog.Error("watcher failed", "error", err)
	}
}

func runServe(stdio bool) {
	if !stdio {
		fmt.Fprintln(os.Stderr, "only the stdio transport is supported")
		os.Exit(1)
	}

	root := projectRoot()
	slog.Info("starting MCP server", "stdio", stdio, "project", root)

	cfg := loadConfig()
	p, err := createProviders(cfg, root)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	runner, err := newRunner(cfg, root, p)
	if err != nil {
		slog.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	srv, err := mcp.New(mcp.Config{
		ProjectDir: root,
		Config:     cfg,
		Runner:     runner,
		Cache:      p.cache,
	})
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	if err := srv.ServeStdio(); err != nil {
		slog.Error("server error", "error", err)
	}
}

func projectRoot() string {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return projectDir
	}
	return abs
}

func loadConfigQuiet() (*config.Config, []string, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(projectRoot())
}

func loadConfig() *config.Config {
	cfg, warnings, err := loadConfigQuiet()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Debug(w)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, err := range errs {
			slog.Error("invalid config", "error", err)
		}
		os.Exit(1)
	}
	return cfg
}

// formatBytes formats bytes to human readable string.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
