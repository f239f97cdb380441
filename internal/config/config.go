// Package config handles configuration loading and validation.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spetr/unusedmember/internal/analysis"
	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// Config represents the complete configuration.
type Config struct {
	Rule     RuleConfig     `mapstructure:"rule" yaml:"rule"`
	Frontend FrontendConfig `mapstructure:"frontend" yaml:"frontend"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Index    IndexConfig    `mapstructure:"index" yaml:"index"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	MCP      MCPConfig      `mapstructure:"mcp" yaml:"mcp"`
}

// RuleConfig contains the unused member rule settings.
type RuleConfig struct {
	Active       bool     `mapstructure:"active" yaml:"active"`
	AllowedNames string   `mapstructure:"allowed_names" yaml:"allowed_names"` // regex, anchored on both ends
	Aliases      []string `mapstructure:"aliases" yaml:"aliases"`             // extra suppression identifiers
	RuleSet      string   `mapstructure:"rule_set" yaml:"rule_set"`           // optional suppression prefix
}

// FrontendConfig contains parser configuration.
type FrontendConfig struct {
	Name string `mapstructure:"name" yaml:"name"` // treesitter
}

// ResolverConfig contains overload resolver configuration.
type ResolverConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`       // signature, none, plugin
	Plugin     string `mapstructure:"plugin" yaml:"plugin"`           // plugin executable
	PluginsDir string `mapstructure:"plugins_dir" yaml:"plugins_dir"` // defaults to .unusedmember/plugins
}

// IndexConfig contains file discovery configuration.
type IndexConfig struct {
	Include      []string `mapstructure:"include" yaml:"include"`             // glob patterns to include
	Exclude      []string `mapstructure:"exclude" yaml:"exclude"`             // glob patterns to exclude
	UseGitIgnore bool     `mapstructure:"use_gitignore" yaml:"use_gitignore"` // respect .gitignore
}

// LimitsConfig contains resource limits.
type LimitsConfig struct {
	MaxFileSize string        `mapstructure:"max_file_size" yaml:"max_file_size"` // e.g., "1MB"
	MaxFiles    int           `mapstructure:"max_files" yaml:"max_files"`         // max files per run
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`             // whole-run timeout
	Workers     int           `mapstructure:"workers" yaml:"workers"`             // parallel workers
}

// CacheConfig contains findings cache configuration.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Provider string `mapstructure:"provider" yaml:"provider"` // sqlite
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// MCPConfig contains MCP server configuration.
type MCPConfig struct {
	// Root limits find_unused_members to paths below it. Empty means the
	// project directory.
	Root string `mapstructure:"root" yaml:"root"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	rule := analysis.DefaultConfig()
	return &Config{
		Rule: RuleConfig{
			Active:       rule.Active,
			AllowedNames: rule.AllowedNames,
			Aliases:      rule.Aliases,
			RuleSet:      rule.RuleSet,
		},
		Frontend: FrontendConfig{
			Name: "treesitter",
		},
		Resolver: ResolverConfig{
			Provider: "signature",
		},
		Index: IndexConfig{
			Include: []string{"**/*.kt", "**/*.kts"},
			Exclude: []string{
				"**/.git/**", "**/build/**", "**/out/**", "**/.gradle/**",
				"**/node_modules/**", "**/generated/**",
			},
			UseGitIgnore: true,
		},
		Limits: LimitsConfig{
			MaxFileSize: "1MB",
			MaxFiles:    50000,
			Timeout:     10 * time.Minute,
			Workers:     0, // 0 = use runtime.NumCPU()
		},
		Cache: CacheConfig{
			Enabled:  true,
			Provider: "sqlite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to .unusedmember directory.
func ConfigDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".unusedmember")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "config.yaml")
}

// CacheDBPath returns the path to the findings cache database.
func CacheDBPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "findings.db")
}

// PluginsDir returns the directory searched for plugin executables.
func PluginsDir(projectRoot string, cfg *Config) string {
	if cfg.Resolver.PluginsDir != "" {
		if filepath.IsAbs(cfg.Resolver.PluginsDir) {
			return cfg.Resolver.PluginsDir
		}
		return filepath.Join(projectRoot, cfg.Resolver.PluginsDir)
	}
	return filepath.Join(ConfigDir(projectRoot), "plugins")
}

// Load loads configuration from file, falling back to defaults.
// Environment variables prefixed with UNUSEDMEMBER_ override file values,
// e.g. UNUSEDMEMBER_RULE_ACTIVE=false.
func Load(projectRoot string) (*Config, []string, error) {
	return LoadFile(ConfigPath(projectRoot))
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(configPath string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	v := viper.New()
	v.SetEnvPrefix("UNUSEDMEMBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
	} else {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.Frontend.Name == "" {
		cfg.Frontend.Name = "treesitter"
	}
	if cfg.Resolver.Provider == "" {
		cfg.Resolver.Provider = "signature"
		warnings = append(warnings, "Using default resolver: signature")
	}
	if cfg.Cache.Provider == "" {
		cfg.Cache.Provider = "sqlite"
	}
	if cfg.Limits.MaxFiles == 0 {
		cfg.Limits.MaxFiles = 50000
	}
	if cfg.Limits.MaxFileSize == "" {
		cfg.Limits.MaxFileSize = "1MB"
	}
	if len(cfg.Index.Include) == 0 {
		cfg.Index.Include = DefaultConfig().Index.Include
	}

	return cfg, warnings, nil
}

// bindEnv registers the keys environment variables may override. Viper only
// consults the environment for keys it knows about.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"rule.active", "rule.allowed_names", "rule.rule_set",
		"resolver.provider", "resolver.plugin", "resolver.plugins_dir",
		"limits.workers", "limits.max_files", "limits.max_file_size",
		"cache.enabled", "logging.level", "logging.format",
	} {
		_ = v.BindEnv(key)
	}
}

// Save saves configuration to file.
func Save(projectRoot string, cfg *Config) error {
	configDir := ConfigDir(projectRoot)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(projectRoot))
	v.SetConfigType("yaml")

	v.Set("rule", cfg.Rule)
	v.Set("frontend", cfg.Frontend)
	v.Set("resolver", cfg.Resolver)
	v.Set("index", cfg.Index)
	v.Set("limits", cfg.Limits)
	v.Set("cache", cfg.Cache)
	v.Set("logging", cfg.Logging)
	v.Set("mcp", cfg.MCP)

	return v.WriteConfig()
}

// Validate validates the configuration. The allowed_names pattern is not
// compiled here; the rule reports it when it first runs.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Frontend.Name != "treesitter" {
		errs = append(errs, fmt.Errorf("%w: unknown frontend: %s (valid: treesitter)", types.ErrInvalidConfig, cfg.Frontend.Name))
	}

	validResolvers := map[string]bool{
		"signature": true, "none": true, "plugin": true,
	}
	if !validResolvers[cfg.Resolver.Provider] {
		errs = append(errs, fmt.Errorf("%w: invalid resolver provider: %s (valid: signature, none, plugin)", types.ErrInvalidConfig, cfg.Resolver.Provider))
	}
	if cfg.Resolver.Provider == "plugin" && cfg.Resolver.Plugin == "" {
		errs = append(errs, fmt.Errorf("%w: resolver.plugin is required when resolver.provider is plugin", types.ErrInvalidConfig))
	}

	if cfg.Cache.Enabled && cfg.Cache.Provider != "sqlite" {
		errs = append(errs, fmt.Errorf("%w: invalid cache provider: %s", types.ErrInvalidConfig, cfg.Cache.Provider))
	}

	if cfg.Limits.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: limits.workers must not be negative", types.ErrInvalidConfig))
	}
	if cfg.Limits.MaxFileSize != "" && ParseSize(cfg.Limits.MaxFileSize) <= 0 {
		errs = append(errs, fmt.Errorf("%w: invalid max_file_size: %s", types.ErrInvalidConfig, cfg.Limits.MaxFileSize))
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "": true,
	}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("%w: invalid log level: %s", types.ErrInvalidConfig, cfg.Logging.Level))
	}
	validFormats := map[string]bool{
		"text": true, "json": true, "": true,
	}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("%w: invalid log format: %s", types.ErrInvalidConfig, cfg.Logging.Format))
	}

	return errs
}

// RuleConfig converts the rule section into the analysis configuration.
func (c *Config) RuleConfig() analysis.Config {
	return analysis.Config{
		ID:           analysis.DefaultRuleID,
		RuleSet:      c.Rule.RuleSet,
		Active:       c.Rule.Active,
		AllowedNames: c.Rule.AllowedNames,
		Aliases:      append([]string(nil), c.Rule.Aliases...),
	}
}

// ResolverConfig converts the resolver section into a provider configuration.
func (c *Config) ResolverConfig(projectRoot string) provider.ResolverConfig {
	return provider.ResolverConfig{
		Provider:   c.Resolver.Provider,
		PluginPath: c.Resolver.Plugin,
		PluginsDir: PluginsDir(projectRoot, c),
		LogLevel:   c.Logging.Level,
	}
}

// Hash returns a hash of the configuration that affects findings.
// Used for detecting when cached findings are stale.
func (c *Config) Hash() string {
	data := fmt.Sprintf("%t:%s:%s:%s:%s:%s:%s",
		c.Rule.Active,
		c.Rule.AllowedNames,
		strings.Join(c.Rule.Aliases, ","),
		c.Rule.RuleSet,
		c.Frontend.Name,
		c.Resolver.Provider,
		c.Resolver.Plugin,
	)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Copy creates a deep copy of the config.
// Used for runtime modifications without affecting the original.
func (c *Config) Copy() *Config {
	copy := *c

	copy.Rule.Aliases = append([]string(nil), c.Rule.Aliases...)
	copy.Index.Include = append([]string(nil), c.Index.Include...)
	copy.Index.Exclude = append([]string(nil), c.Index.Exclude...)

	return &copy
}

// ParseSize parses a size string like "1MB" to bytes.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	var value int64
	_, _ = fmt.Sscanf(s, "%d", &value)

	return value * multiplier
}
