package scan

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spetr/unusedmember/pkg/types"
)

// Change is the outcome of re-analyzing one changed file. Removed files
// carry no findings.
type Change struct {
	Path     string
	Removed  bool
	Findings []types.Finding
	Err      error
}

// Watcher watches for file changes and re-analyzes them.
type Watcher struct {
	runner   *Runner
	dir      string
	watcher  *fsnotify.Watcher
	onChange func(Change)

	// Debouncing
	pendingMu    sync.Mutex
	pendingFiles map[string]time.Time
	debounceTime time.Duration
}

// WatcherConfig contains watcher configuration.
type WatcherConfig struct {
	Runner       *Runner
	Dir          string        // Root to watch; defaults to the runner's project directory
	OnChange     func(Change)  // Called once per re-analyzed file
	DebounceTime time.Duration // Default: 500ms
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Runner == nil {
		return nil, errors.New("watcher requires a runner")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceTime := cfg.DebounceTime
	if debounceTime == 0 {
		debounceTime = 500 * time.Millisecond
	}
	dir := cfg.Dir
	if dir == "" {
		dir = cfg.Runner.projectDir
	}
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func(Change) {}
	}

	return &Watcher{
		runner:       cfg.Runner,
		dir:          dir,
		watcher:      watcher,
		onChange:     onChange,
		pendingFiles: make(map[string]time.Time),
		debounceTime: debounceTime,
	}, nil
}

// Watch starts watching for file changes.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addWatchDirs(w.dir); err != nil {
		return err
	}

	slog.Info("watching for file changes", "dir", w.dir)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// addWatchDirs recursively adds directories to watch.
func (w *Watcher) addWatchDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(w.dir, path)
		relPath = filepath.ToSlash(relPath)
		if relPath != "." {
			if w.runner.excluded(relPath + "/") {
				return filepath.SkipDir
			}
			// Hidden directories hold tool state, never sources
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
		}

		if err := w.watcher.Add(path); err != nil {
			slog.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// handleEvent processes a file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addWatchDirs(path); err != nil {
				slog.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	relPath, err := filepath.Rel(w.dir, path)
	if err != nil {
		return
	}
	if !w.runner.included(filepath.ToSlash(relPath)) {
		return
	}

	w.pendingMu.Lock()
	w.pendingFiles[path] = time.Now()
	w.pendingMu.Unlock()

	slog.Debug("file changed", "path", relPath, "op", event.Op.String())
}

// processDebounced processes pending files after debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPendingFiles(ctx)
		}
	}
}

// processPendingFiles analyzes files that have been stable for the debounce period.
func (w *Watcher) processPendingFiles(ctx context.Context) {
	w.pendingMu.Lock()
	now := time.Now()
	var toProcess []string
	for path, changedAt := range w.pendingFiles {
		if now.Sub(changedAt) >= w.debounceTime {
			toProcess = append(toProcess, path)
			delete(w.pendingFiles, path)
		}
	}
	w.pendingMu.Unlock()

	if len(toProcess) == 0 {
		return
	}
	w.reanalyze(ctx, toProcess)
}

// reanalyze re-analyzes the specified files.
func (w *Watcher) reanalyze(ctx context.Context, paths []string) {
	slog.Info("re-analyzing changed files", "count", len(paths))

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			if err := w.runner.Forget(path); err != nil {
				slog.Warn("failed to delete cached findings", "file", path, "error", err)
			}
			slog.Info("removed deleted file", "file", path)
			w.onChange(Change{Path: path, Removed: true})
			continue
		}
		if err != nil {
			slog.Warn("failed to stat file", "file", path, "error", err)
			continue
		}
		if info.IsDir() {
			continue
		}

		findings, _, err := w.runner.AnalyzeFile(ctx, path)
		if err != nil {
			slog.Warn("failed to analyze file", "file", path, "error", err)
		}
		w.onChange(Change{Path: path, Findings: findings, Err: err})
	}
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
