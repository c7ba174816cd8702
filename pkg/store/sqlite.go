// Package store provides a SQLite-backed cache of fetched game details, so
// repeat runs against the same collection avoid re-hitting the API. Cache
// failures degrade to misses; they never fail a run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meeplelab/boardgraph/pkg/bgg"
)

// ItemCache caches Items keyed by game id with a fetch timestamp.
type ItemCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewItemCache opens (or creates) the cache database at path. Entries older
// than ttl read as misses; ttl <= 0 means entries never expire.
func NewItemCache(path string, ttl time.Duration) (*ItemCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache db: %w", err)
	}

	// WAL keeps concurrent batch writers from blocking readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	c := &ItemCache{db: db, ttl: ttl}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache schema migration: %w", err)
	}
	return c, nil
}

func (c *ItemCache) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		fetched_at DATETIME NOT NULL,
		payload JSON NOT NULL
	);
	`
	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}

// Get returns the cached item for id, or a miss if absent, expired, or
// unreadable.
func (c *ItemCache) Get(ctx context.Context, id string) (*bgg.Item, bool) {
	var (
		payload   []byte
		fetchedAt time.Time
	)
	row := c.db.QueryRowContext(ctx, "SELECT payload, fetched_at FROM items WHERE id = ?", id)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("store: cache read for %s failed: %v", id, err)
		}
		return nil, false
	}

	if c.ttl > 0 && time.Since(fetchedAt) > c.ttl {
		return nil, false
	}

	var item bgg.Item
	if err := json.Unmarshal(payload, &item); err != nil {
		log.Printf("store: cache payload for %s unreadable: %v", id, err)
		return nil, false
	}
	return &item, true
}

// Put stores an item, replacing any previous entry for the same id.
func (c *ItemCache) Put(ctx context.Context, item *bgg.Item) {
	payload, err := json.Marshal(item)
	if err != nil {
		log.Printf("store: cache encode for %s failed: %v", item.ID, err)
		return
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO items (id, fetched_at, payload) VALUES (?, ?, ?)",
		item.ID, time.Now().UTC(), payload)
	if err != nil {
		log.Printf("store: cache write for %s failed: %v", item.ID, err)
	}
}

// Close closes the underlying database.
func (c *ItemCache) Close() error {
	return c.db.Close()
}
