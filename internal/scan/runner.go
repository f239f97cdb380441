// Package scan discovers Kotlin sources and analyzes them in parallel.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spetr/unusedmember/internal/analysis"
	"github.com/spetr/unusedmember/internal/config"
	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// Runner analyzes files with one rule, frontend and optional cache.
type Runner struct {
	config     *config.Config
	projectDir string
	configHash string
	maxSize    int64

	frontend provider.Frontend
	resolver provider.Resolver
	cache    provider.FindingCache
	rule     *analysis.Rule
}

// Options contains runner configuration.
type Options struct {
	ProjectDir string
	Config     *config.Config
	Frontend   provider.Frontend
	Resolver   provider.Resolver     // Optional; nil means syntactic matching only
	Cache      provider.FindingCache // Optional; nil disables caching
}

// Report is the outcome of one run.
type Report struct {
	Files    int             `json:"files"`
	Cached   int             `json:"cached"`
	Findings []types.Finding `json:"findings"`
	Errors   []FileError     `json:"errors,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// FileError records a file that could not be analyzed.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// New creates a runner.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config is required", types.ErrInvalidConfig)
	}
	if opts.Frontend == nil {
		return nil, fmt.Errorf("%w: frontend is required", types.ErrProviderNotAvailable)
	}

	var ruleOpts []analysis.Option
	if opts.Resolver != nil {
		ruleOpts = append(ruleOpts, analysis.WithResolver(opts.Resolver))
	}

	return &Runner{
		config:     opts.Config,
		projectDir: opts.ProjectDir,
		configHash: opts.Config.Hash(),
		maxSize:    config.ParseSize(opts.Config.Limits.MaxFileSize),
		frontend:   opts.Frontend,
		resolver:   opts.Resolver,
		cache:      opts.Cache,
		rule:       analysis.New(opts.Config.RuleConfig(), ruleOpts...),
	}, nil
}

// Rule returns the rule the runner applies.
func (r *Runner) Rule() *analysis.Rule {
	return r.rule
}

// Run analyzes the given files and directories. Directories are searched
// for Kotlin sources; an empty list means the project directory.
// An inactive rule yields an empty report without reading any file.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	startTime := time.Now()
	report := &Report{Findings: []types.Finding{}}

	if !r.rule.Active() {
		slog.Info("rule inactive, nothing to do", "rule", r.rule.ID())
		return report, nil
	}
	if err := r.rule.Compile(); err != nil {
		return nil, err
	}

	if r.config.Limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Limits.Timeout)
		defer cancel()
	}

	if len(paths) == 0 {
		paths = []string{r.projectDir}
	}
	files, err := r.discover(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to scan files: %w", err)
	}
	slog.Info("scanned files", "total", len(files))

	workers := r.config.Limits.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type result struct {
		findings []types.Finding
		cached   bool
		err      error
	}
	results := make([]result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			findings, cached, err := r.AnalyzeFile(gctx, path)
			if errors.Is(err, types.ErrInvalidConfig) {
				return err
			}
			results[i] = result{findings: findings, cached: cached, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	for i, res := range results {
		if res.err != nil {
			slog.Warn("analysis failed", "file", files[i], "error", res.err)
			report.Errors = append(report.Errors, FileError{Path: files[i], Err: res.err.Error()})
			continue
		}
		report.Files++
		if res.cached {
			report.Cached++
		}
		report.Findings = append(report.Findings, res.findings...)
	}
	analysis.SortFindings(report.Findings)
	report.Duration = time.Since(startTime)

	slog.Info("analysis complete",
		"files", report.Files,
		"cached", report.Cached,
		"findings", len(report.Findings),
		"errors", len(report.Errors),
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// AnalyzeFile analyzes one file, consulting the cache first. cached reports
// whether the findings came from the cache.
func (r *Runner) AnalyzeFile(ctx context.Context, path string) (findings []types.Finding, cached bool, err error) {
	file, err := r.readFile(path)
	if err != nil {
		return nil, false, err
	}

	if r.cache != nil {
		findings, ok, err := r.cache.Get(file.Path, file.Hash, r.configHash)
		if err != nil {
			slog.Warn("failed to read cached findings", "file", file.Path, "error", err)
		} else if ok {
			return findings, true, nil
		}
	}

	unit, err := r.frontend.Parse(ctx, file)
	if err != nil {
		return nil, false, err
	}
	findings, err = r.rule.Analyze(unit)
	if err != nil {
		return nil, false, err
	}
	if findings == nil {
		findings = []types.Finding{}
	}

	if r.cache != nil {
		if err := r.cache.Put(file.Path, file.Hash, r.configHash, findings); err != nil {
			slog.Warn("failed to cache findings", "file", file.Path, "error", err)
		}
	}
	return findings, false, nil
}

// Forget drops a file from the cache.
func (r *Runner) Forget(path string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(path)
}

// Close releases the resolver when it holds resources, such as a plugin process.
func (r *Runner) Close() error {
	if c, ok := r.resolver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// discover expands paths into the Kotlin files to analyze.
func (r *Runner) discover(ctx context.Context, paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) bool {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			return true
		}
		seen[abs] = true
		files = append(files, abs)
		return len(files) < r.config.Limits.MaxFiles || r.config.Limits.MaxFiles <= 0
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !add(path) {
				break
			}
			continue
		}

		found, err := r.scanDir(ctx, path)
		if err != nil {
			return nil, err
		}
		full := false
		for _, f := range found {
			if !add(f) {
				full = true
				break
			}
		}
		if full {
			slog.Warn("max files limit reached", "limit", r.config.Limits.MaxFiles)
			break
		}
	}
	return files, nil
}

// scanDir lists the included files below dir, honoring .gitignore when
// configured and git is available.
func (r *Runner) scanDir(ctx context.Context, dir string) ([]string, error) {
	if r.config.Index.UseGitIgnore {
		files, err := r.scanWithGit(ctx, dir)
		if err == nil && len(files) > 0 {
			return files, nil
		}
		slog.Debug("git scan failed, falling back to filesystem", "dir", dir, "error", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, _ := filepath.Rel(dir, path)
		relPath = filepath.ToSlash(relPath)
		if d.IsDir() {
			if relPath != "." && r.excluded(relPath+"/") {
				slog.Debug("excluding directory", "path", relPath)
				return filepath.SkipDir
			}
			return nil
		}
		if r.included(relPath) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// scanWithGit uses git ls-files to list tracked and untracked, non-ignored files.
func (r *Runner) scanWithGit(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !r.included(line) {
			continue
		}
		files = append(files, filepath.Join(dir, filepath.FromSlash(line)))
	}
	return files, nil
}

func (r *Runner) included(relPath string) bool {
	return matchAny(r.config.Index.Include, relPath) && !r.excluded(relPath)
}

func (r *Runner) excluded(relPath string) bool {
	return matchAny(r.config.Index.Exclude, relPath)
}

// readFile reads a file and creates a SourceFile.
func (r *Runner) readFile(path string) (*types.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if r.maxSize > 0 && info.Size() > r.maxSize {
		return nil, fmt.Errorf("file too large: %d > %d", info.Size(), r.maxSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file := &types.SourceFile{
		Path:     path,
		Content:  content,
		Language: DetectLanguage(path),
	}
	file.Hash = file.ComputeHash()
	return file, nil
}

// DetectLanguage maps a file extension to a frontend language name.
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kt":
		return "kotlin"
	case ".kts":
		return "kts"
	default:
		return "unknown"
	}
}
