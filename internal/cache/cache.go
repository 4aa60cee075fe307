// Package cache is the persistent per-file, per-rule validation result
// store. Entries are keyed by (file path, rule id) and guarded by the file's
// content fingerprint: a stored entry whose fingerprint no longer matches is
// logically absent. Storage is a single SQLite file with a versioned schema;
// anything unreadable degrades to an empty cache with a warning, never a
// fatal error.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/archlint/internal/rules"
)

// schemaVersion is bumped whenever the persisted shape changes; an old cache
// is detected and discarded rather than misread.
const schemaVersion = "1"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
  key    TEXT PRIMARY KEY,
  value  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
  path         TEXT NOT NULL,
  rule_id      TEXT NOT NULL,
  fingerprint  TEXT NOT NULL,
  passed       INTEGER NOT NULL,
  violations   TEXT NOT NULL,
  checked_at   TIMESTAMP,
  PRIMARY KEY (path, rule_id)
);
`

type key struct {
	path   string
	ruleID string
}

type entry struct {
	fingerprint string
	result      rules.Result
}

// Cache supports concurrent reads and buffered concurrent writes. Puts
// accumulate in memory and persist in one transaction at Flush, so partial
// progress survives an aborted run without per-entry synchronization cost.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.RWMutex
	entries  map[key]entry
	pending  map[key]entry
	warnings []string
}

// Open loads the cache at path. An empty path yields a memory-only cache.
// Open never fails hard: a corrupt or schema-incompatible file is deleted
// and recreated, and if even that fails the cache runs memory-only. Every
// degradation is recorded as a warning for the report metadata.
func Open(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		logger:  logger,
		entries: make(map[key]entry),
		pending: make(map[key]entry),
	}
	if path == "" {
		return c
	}

	db, err := open(path)
	if err != nil {
		c.degrade(path, fmt.Sprintf("cache unreadable (%v), revalidating from scratch", err))
		db, err = open(path)
		if err != nil {
			c.warn(fmt.Sprintf("cache disabled: %v", err))
			return c
		}
	}
	c.db = db

	if err := c.load(); err != nil {
		c.db.Close()
		c.db = nil
		c.degrade(path, fmt.Sprintf("cache corrupt (%v), revalidating from scratch", err))
		if db, err := open(path); err == nil {
			c.db = db
			c.entries = make(map[key]entry)
		} else {
			c.warn(fmt.Sprintf("cache disabled: %v", err))
		}
	}
	return c
}

func open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return db, nil
}

// load verifies the schema version and reads every entry into memory.
func (c *Cache) load() error {
	var stored string
	err := c.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		if _, err := c.db.Exec(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case stored != schemaVersion:
		return fmt.Errorf("schema version %s (want %s)", stored, schemaVersion)
	}

	rows, err := c.db.Query(`SELECT path, rule_id, fingerprint, passed, violations FROM results`)
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k key
		var e entry
		var passed int
		var violationsJSON string
		if err := rows.Scan(&k.path, &k.ruleID, &e.fingerprint, &passed, &violationsJSON); err != nil {
			return fmt.Errorf("scan result: %w", err)
		}
		e.result.Passed = passed != 0
		if err := json.Unmarshal([]byte(violationsJSON), &e.result.Violations); err != nil {
			return fmt.Errorf("decode violations for %s/%s: %w", k.path, k.ruleID, err)
		}
		c.entries[k] = e
	}
	return rows.Err()
}

// degrade deletes the persisted file and records a warning.
func (c *Cache) degrade(path, warning string) {
	_ = os.Remove(path)
	c.warn(warning)
}

func (c *Cache) warn(msg string) {
	c.logger.Warn(msg)
	c.warnings = append(c.warnings, msg)
}

// Get returns a stored result only while the stored fingerprint equals the
// file's current one; any mismatch is a logical miss, not an error.
func (c *Cache) Get(path, ruleID, fingerprint string) (rules.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key{path: path, ruleID: ruleID}]
	if !ok || e.fingerprint != fingerprint {
		return rules.Result{}, false
	}
	return e.result, true
}

// Put buffers a fresh result for persistence at Flush. The in-memory view
// updates immediately so later Gets in the same run hit.
func (c *Cache) Put(path, ruleID, fingerprint string, res rules.Result) {
	k := key{path: path, ruleID: ruleID}
	e := entry{fingerprint: fingerprint, result: res}
	c.mu.Lock()
	c.entries[k] = e
	c.pending[k] = e
	c.mu.Unlock()
}

// Flush persists all buffered entries in one transaction. Safe to call after
// an aborted run: whatever was computed before the abort is still valid.
func (c *Cache) Flush() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[key]entry)
	c.mu.Unlock()

	if c.db == nil || len(pending) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache flush: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO results (path, rule_id, fingerprint, passed, violations, checked_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare cache flush: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for k, e := range pending {
		violationsJSON, err := json.Marshal(e.result.Violations)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode violations for %s/%s: %w", k.path, k.ruleID, err)
		}
		passed := 0
		if e.result.Passed {
			passed = 1
		}
		if _, err := stmt.Exec(k.path, k.ruleID, e.fingerprint, passed, string(violationsJSON), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("write cache entry %s/%s: %w", k.path, k.ruleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache flush: %w", err)
	}
	return nil
}

// Close flushes and releases the database.
func (c *Cache) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Len returns the number of loaded entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Warnings returns degradation warnings collected at open time.
func (c *Cache) Warnings() []string {
	return c.warnings
}
