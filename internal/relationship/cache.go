package relationship

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Kind names one of the four cached relationship-service lookup shapes.
type Kind string

const (
	KindRecording       Kind = "recordings"
	KindArtist          Kind = "artists"
	KindRelease         Kind = "releases"
	KindArtistRelations Kind = "artist_relations"
)

const (
	recordingTTL       = 30 * 24 * time.Hour
	artistTTL          = 7 * 24 * time.Hour
	releaseTTL         = 30 * 24 * time.Hour
	artistRelationsTTL = 7 * 24 * time.Hour
)

// Cache is the per-user relationship_cache.db: four tables, one per Kind,
// each shaped (key TEXT PRIMARY KEY, data TEXT JSON, fetched_at INTEGER).
type Cache struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenCache creates or opens the relationship cache database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create relationship cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open relationship cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=30000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	for _, kind := range []Kind{KindRecording, KindArtist, KindRelease, KindArtistRelations} {
		schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`, string(kind))
		if _, err := c.db.Exec(schema); err != nil {
			return fmt.Errorf("migrate relationship cache table %s: %w", kind, err)
		}
	}
	return nil
}

// Get returns the cached payload for key under kind if present and within
// ttl of now.
func (c *Cache) Get(kind Kind, key string, ttl time.Duration) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query := fmt.Sprintf(`SELECT data, fetched_at FROM %s WHERE key = ?`, string(kind))
	var data string
	var fetchedAt int64
	err := c.db.QueryRow(query, key).Scan(&data, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read relationship cache: %w", err)
	}

	if time.Since(time.Unix(fetchedAt, 0)) > ttl {
		return "", false, nil
	}
	return data, true, nil
}

// Put stores a payload for key under kind, stamped with the current time.
func (c *Cache) Put(kind Kind, key, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, data, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at
	`, string(kind))
	_, err := c.db.Exec(query, key, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write relationship cache: %w", err)
	}
	return nil
}

// Sweep removes rows older than their kind's TTL across all four tables.
func (c *Cache) Sweep() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ttls := map[Kind]time.Duration{
		KindRecording:       recordingTTL,
		KindArtist:          artistTTL,
		KindRelease:         releaseTTL,
		KindArtistRelations: artistRelationsTTL,
	}
	for kind, ttl := range ttls {
		cutoff := time.Now().Add(-ttl).Unix()
		query := fmt.Sprintf(`DELETE FROM %s WHERE fetched_at < ?`, string(kind))
		if _, err := c.db.Exec(query, cutoff); err != nil {
			return fmt.Errorf("sweep relationship cache table %s: %w", kind, err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
