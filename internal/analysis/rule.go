// Package analysis implements the unused private member analysis: candidate
// selection, suppression, usage collection and finding emission.
package analysis

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// Default rule settings.
const (
	DefaultRuleID       = "UnusedPrivateMember"
	DefaultRuleSet      = "style"
	DefaultAllowedNames = "(_|ignored|expected)"
)

// DefaultAliases are the historical names the rule answers to in suppressions.
var DefaultAliases = []string{"UNUSED_PARAMETER", "UNUSED_VARIABLE", "unused"}

// Config contains rule configuration.
type Config struct {
	ID           string   // Rule identifier reported in findings
	RuleSet      string   // Rule set used as an optional suppression prefix
	Active       bool     // Inactive rules never run nor compile their patterns
	AllowedNames string   // Names matching this pattern are never candidates
	Aliases      []string // Additional suppression identifiers
}

// DefaultConfig returns the default rule configuration.
func DefaultConfig() Config {
	return Config{
		ID:           DefaultRuleID,
		RuleSet:      DefaultRuleSet,
		Active:       true,
		AllowedNames: DefaultAllowedNames,
		Aliases:      append([]string(nil), DefaultAliases...),
	}
}

// Rule detects unused private functions, properties and parameters.
// A Rule is safe for concurrent use by multiple goroutines.
type Rule struct {
	config   Config
	resolver provider.Resolver

	allowed  lazyPattern
	suppress lazyPattern
}

// Option configures a Rule.
type Option func(*Rule)

// WithResolver enables overload disambiguation through r.
func WithResolver(r provider.Resolver) Option {
	return func(rule *Rule) {
		rule.resolver = r
	}
}

// New creates a rule. Patterns are compiled on first use.
func New(cfg Config, opts ...Option) *Rule {
	if cfg.ID == "" {
		cfg.ID = DefaultRuleID
	}

	r := &Rule{config: cfg}
	r.allowed.source = func() string {
		return "^(?:" + cfg.AllowedNames + ")$"
	}
	r.suppress.source = func() string {
		return suppressionPattern(cfg.ID, cfg.RuleSet, cfg.Aliases)
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the rule identifier.
func (r *Rule) ID() string {
	return r.config.ID
}

// Active reports whether the rule is enabled.
func (r *Rule) Active() bool {
	return r.config.Active
}

// Compile forces pattern compilation and reports configuration errors.
func (r *Rule) Compile() error {
	if _, err := r.allowed.get(); err != nil {
		return fmt.Errorf("%w: allowed_names %q: %v", types.ErrInvalidConfig, r.config.AllowedNames, err)
	}
	if _, err := r.suppress.get(); err != nil {
		return fmt.Errorf("%w: aliases %v: %v", types.ErrInvalidConfig, r.config.Aliases, err)
	}
	return nil
}

// Analyze reports the unused declarations of one compilation unit.
// Inactive rules return no findings without touching their configuration.
func (r *Rule) Analyze(unit *types.Unit) ([]types.Finding, error) {
	if !r.config.Active || unit == nil {
		return nil, nil
	}
	if err := r.Compile(); err != nil {
		return nil, err
	}

	allowed, _ := r.allowed.get()
	suppress, _ := r.suppress.get()

	a := &unitAnalysis{
		unit:    unit,
		ruleID:  r.config.ID,
		allowed: allowed,
		suppressor: &suppressor{
			unit:    unit,
			pattern: suppress,
			owners:  make(map[types.DeclID]bool),
		},
		matcher: syntacticMatcher{},
	}
	if r.resolver != nil {
		a.matcher = semanticMatcher{path: unit.Path, resolver: r.resolver}
	}

	sets := a.buildCandidates()
	for _, set := range sets {
		a.collect(set)
	}
	findings := a.emit(sets)

	slog.Debug("unit analyzed",
		"file", unit.Path,
		"search_scopes", len(sets),
		"findings", len(findings),
	)
	return findings, nil
}

// lazyPattern compiles a regular expression once, on first use.
type lazyPattern struct {
	source func() string

	once sync.Once
	re   *regexp.Regexp
	err  error
}

func (p *lazyPattern) get() (*regexp.Regexp, error) {
	p.once.Do(func() {
		p.re, p.err = regexp.Compile(p.source())
	})
	return p.re, p.err
}

// suppressionPattern matches the literals that suppress a rule: the rule id
// or an alias, optionally prefixed with "detekt" and the rule set, or "all".
func suppressionPattern(id, ruleSet string, aliases []string) string {
	names := []string{regexp.QuoteMeta(id)}
	for _, alias := range aliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			names = append(names, regexp.QuoteMeta(alias))
		}
	}

	prefix := `(?:detekt[:.])?`
	if ruleSet != "" {
		prefix += `(?:` + regexp.QuoteMeta(ruleSet) + `[:.])?`
	}
	return `^(?:all|` + prefix + `(?:` + strings.Join(names, "|") + `))$`
}
