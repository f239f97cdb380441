// Package sqlite implements the findings cache on SQLite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// SchemaVersion is incremented when schema changes invalidate cached rows.
const SchemaVersion = 1

// Cache implements provider.FindingCache.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // Serializes writers; SQLite allows one at a time
}

// New creates an unopened cache.
func New() *Cache {
	return &Cache{}
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return "sqlite"
}

// Init opens the database at path, creating it when needed. The special
// path ":memory:" opens a private in-memory database.
func (c *Cache) Init(path string) error {
	c.path = path

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		// WAL mode for concurrent reads, busy_timeout to wait for locks instead of failing immediately
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %v", types.ErrCacheFailed, err)
	}
	if path == ":memory:" {
		// Every connection would get its own empty database otherwise.
		db.SetMaxOpenConns(1)
	}
	c.db = db

	if err := c.createSchema(); err != nil {
		return fmt.Errorf("%w: failed to create schema: %v", types.ErrCacheFailed, err)
	}
	return nil
}

func (c *Cache) createSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var version int
	row := c.db.QueryRow("SELECT CAST(value AS INTEGER) FROM metadata WHERE key = 'schema_version'")
	switch err := row.Scan(&version); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case version != SchemaVersion:
		if _, err := c.db.Exec("DROP TABLE IF EXISTS findings"); err != nil {
			return err
		}
		if _, err := c.db.Exec("DROP TABLE IF EXISTS file_cache"); err != nil {
			return err
		}
	}

	_, err = c.db.Exec(`
		CREATE TABLE IF NOT EXISTS file_cache (
			file_path TEXT PRIMARY KEY,
			file_hash TEXT NOT NULL,
			config_hash TEXT NOT NULL,
			analyzed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(`
		CREATE TABLE IF NOT EXISTS findings (
			file_path TEXT NOT NULL,
			decl_id INTEGER NOT NULL,
			rule_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind INTEGER NOT NULL,
			message TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			start_col INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			end_col INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(`CREATE INDEX IF NOT EXISTS idx_findings_file_path ON findings(file_path)`)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`, SchemaVersion)
	return err
}

// Get returns the cached findings of a file when both hashes still match.
// Both reads share one transaction so a concurrent Put is seen entirely or
// not at all.
func (c *Cache) Get(filePath, fileHash, configHash string) ([]types.Finding, bool, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	defer tx.Rollback()

	var storedFile, storedConfig string
	row := tx.QueryRow("SELECT file_hash, config_hash FROM file_cache WHERE file_path = ?", filePath)
	if err := row.Scan(&storedFile, &storedConfig); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	if storedFile != fileHash || storedConfig != configHash {
		return nil, false, nil
	}

	findings, err := readFindings(tx, filePath)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	return findings, true, nil
}

func readFindings(tx *sql.Tx, filePath string) ([]types.Finding, error) {
	rows, err := tx.Query(`
		SELECT decl_id, rule_id, name, kind, message, start_line, start_col, end_line, end_col
		FROM findings WHERE file_path = ?
		ORDER BY start_line, start_col, decl_id
	`, filePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	findings := []types.Finding{}
	for rows.Next() {
		f := types.Finding{Location: types.Location{Path: filePath}}
		var kind int
		if err := rows.Scan(&f.DeclID, &f.RuleID, &f.Name, &kind, &f.Message,
			&f.Location.StartLine, &f.Location.StartCol, &f.Location.EndLine, &f.Location.EndCol); err != nil {
			return nil, err
		}
		f.Kind = types.DeclKind(kind)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// Put replaces the cached findings of a file.
func (c *Cache) Put(filePath, fileHash, configHash string, findings []types.Finding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM findings WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO findings (file_path, decl_id, rule_id, name, kind, message, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	defer stmt.Close()

	for _, f := range findings {
		_, err := stmt.Exec(filePath, f.DeclID, f.RuleID, f.Name, int(f.Kind), f.Message,
			f.Location.StartLine, f.Location.StartCol, f.Location.EndLine, f.Location.EndCol)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
		}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO file_cache (file_path, file_hash, config_hash, analyzed_at)
		VALUES (?, ?, ?, ?)
	`, filePath, fileHash, configHash, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	return nil
}

// Delete removes a file from the cache.
func (c *Cache) Delete(filePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM findings WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	if _, err := c.db.Exec("DELETE FROM file_cache WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	return nil
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM findings"); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	if _, err := c.db.Exec("DELETE FROM file_cache"); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheFailed, err)
	}
	return nil
}

// Stats returns cache statistics.
func (c *Cache) Stats() (*provider.CacheStats, error) {
	stats := &provider.CacheStats{}

	row := c.db.QueryRow("SELECT COUNT(*) FROM file_cache")
	if err := row.Scan(&stats.Files); err != nil {
		return nil, err
	}

	row = c.db.QueryRow("SELECT COUNT(*) FROM findings")
	if err := row.Scan(&stats.Findings); err != nil {
		return nil, err
	}

	var last sql.NullInt64
	row = c.db.QueryRow("SELECT MAX(analyzed_at) FROM file_cache")
	if err := row.Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		stats.LastAnalyzed = time.Unix(last.Int64, 0)
	}

	if info, err := os.Stat(c.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}
	return stats, nil
}

// Close releases resources and closes connections.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ provider.FindingCache = (*Cache)(nil)
