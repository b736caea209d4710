// ABOUTME: Persistent cache of HMI display capabilities keyed by interface name
// ABOUTME: Stores raw JSON in the dbms storage layer and memoizes converted documents

package capabilities

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/sdl-storage/internal/dbms"
)

var (
	// ErrNotFound is returned when no capabilities are stored for an interface
	ErrNotFound = errors.New("not found")

	// ErrInvalidDocument is returned when a document is not a well-formed
	// display capability
	ErrInvalidDocument = errors.New("invalid capability document")
)

const createCapabilitiesTable = `CREATE TABLE IF NOT EXISTS capabilities (
	interface TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Cache persists display capability documents and keeps recently used ones
// decoded in memory.
type Cache struct {
	db     *dbms.Database
	memo   *memo
	logger *slog.Logger

	mu sync.Mutex // serializes store access
}

// NewCache creates a Cache on an open database. Decoded documents are kept
// for ttl, at most size of them.
func NewCache(db *dbms.Database, ttl time.Duration, size int) (*Cache, error) {
	q := dbms.NewQuery(db)
	defer q.Finalize()

	if err := q.ExecDirect(createCapabilitiesTable); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{
		db:     db,
		memo:   newMemo(ttl, size),
		logger: slog.Default().With("component", "capabilities"),
	}, nil
}

// Put validates raw as a display capability and stores it under iface,
// replacing any earlier document.
func (c *Cache) Put(iface string, raw []byte) error {
	doc, err := decode(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q := dbms.NewQuery(c.db)
	defer q.Finalize()

	if err := q.Prepare(`INSERT OR REPLACE INTO capabilities (interface, document, updated_at)
		VALUES (?, ?, ?)`); err != nil {
		return fmt.Errorf("storing capabilities for %s: %w", iface, err)
	}
	for i, arg := range []any{iface, string(raw), time.Now().Unix()} {
		if err := q.Bind(i, arg); err != nil {
			return fmt.Errorf("storing capabilities for %s: %w", iface, err)
		}
	}
	if err := q.Exec(); err != nil {
		return fmt.Errorf("storing capabilities for %s: %w", iface, err)
	}

	c.memo.put(iface, doc)
	c.logger.Debug("capabilities stored", "interface", iface, "bytes", len(raw))
	return nil
}

// Get returns the converted document stored for iface. The document is
// shared with the cache and must not be modified.
// Returns ErrNotFound if nothing is stored.
func (c *Cache) Get(iface string) (Document, error) {
	if doc, ok := c.memo.get(iface); ok {
		return doc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q := dbms.NewQuery(c.db)
	defer q.Finalize()

	if err := q.Prepare(`SELECT document FROM capabilities WHERE interface = ?`); err != nil {
		return nil, fmt.Errorf("loading capabilities for %s: %w", iface, err)
	}
	if err := q.BindString(0, iface); err != nil {
		return nil, fmt.Errorf("loading capabilities for %s: %w", iface, err)
	}
	if !q.Next() {
		if err := q.Err(); err != nil {
			return nil, fmt.Errorf("loading capabilities for %s: %w", iface, err)
		}
		return nil, ErrNotFound
	}

	doc, err := decode([]byte(q.Text(0)))
	if err != nil {
		c.logger.Warn("stored capabilities no longer convert", "interface", iface, "error", err)
		return nil, err
	}

	c.memo.put(iface, doc)
	return doc, nil
}

// Delete removes the document stored for iface.
func (c *Cache) Delete(iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memo.forget(iface)

	q := dbms.NewQuery(c.db)
	defer q.Finalize()

	if err := q.Prepare(`DELETE FROM capabilities WHERE interface = ?`); err != nil {
		return fmt.Errorf("deleting capabilities for %s: %w", iface, err)
	}
	if err := q.BindString(0, iface); err != nil {
		return fmt.Errorf("deleting capabilities for %s: %w", iface, err)
	}
	if err := q.Exec(); err != nil {
		return fmt.Errorf("deleting capabilities for %s: %w", iface, err)
	}
	return nil
}

// Interfaces returns the names with a stored document, sorted.
func (c *Cache) Interfaces() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := dbms.NewQuery(c.db)
	defer q.Finalize()

	if err := q.Prepare(`SELECT interface FROM capabilities ORDER BY interface`); err != nil {
		return nil, fmt.Errorf("listing capabilities: %w", err)
	}

	var names []string
	for q.Next() {
		names = append(names, q.Text(0))
	}
	if err := q.Err(); err != nil {
		return nil, fmt.Errorf("listing capabilities: %w", err)
	}
	return names, nil
}

// Close stops the memo's background cleanup. The database stays open.
func (c *Cache) Close() {
	c.memo.stop()
}

func decode(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc == nil || !ConvertDisplayCapability(doc) {
		return nil, ErrInvalidDocument
	}
	return doc, nil
}
