package provider

import (
	"time"

	"github.com/spetr/unusedmember/pkg/types"
)

// FindingCache stores findings per file, keyed by content and config hash.
type FindingCache interface {
	// Name returns the cache name (e.g., "sqlite").
	Name() string

	// Init opens the cache at the given path.
	Init(path string) error

	// Get returns cached findings. ok is false on a miss or when either hash changed.
	Get(filePath, fileHash, configHash string) (findings []types.Finding, ok bool, err error)

	// Put stores findings for a file, replacing older entries.
	Put(filePath, fileHash, configHash string, findings []types.Finding) error

	// Delete removes a file from the cache.
	Delete(filePath string) error

	// Clear removes all entries.
	Clear() error

	// Stats returns cache statistics.
	Stats() (*CacheStats, error)

	// Close releases any resources.
	Close() error
}

// CacheStats contains statistics about the findings cache.
type CacheStats struct {
	Files        int
	Findings     int
	LastAnalyzed time.Time
	DBSizeBytes  int64
}

// CacheConfig contains configuration for findings caches.
type CacheConfig struct {
	Provider string // "sqlite"
	Path     string // Path to database file
}
