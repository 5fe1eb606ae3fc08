package vector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SourceTag identifies which contribution produced a persisted vector.
type SourceTag string

const (
	SourceRelationship SourceTag = "musicbrainz"
	SourceSimilarity   SourceTag = "qobuz"
)

// Store is the per-user persistence layer for the artist index allocator
// and per-source vectors, backed by a dedicated SQLite file following the
// same SetMaxOpenConns(1)/WAL idiom as the rest of the per-user stores.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	debug bool
}

// Open creates or opens the vector store database at path.
func Open(path string, debug bool) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create vector store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vector store database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, debug: debug}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS artist_index (
		external_id TEXT UNIQUE NOT NULL,
		idx INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		last_built_at INTEGER
	);
	CREATE TABLE IF NOT EXISTS artist_vectors (
		external_id TEXT NOT NULL,
		source_tag TEXT NOT NULL,
		indices TEXT NOT NULL,
		values_ TEXT NOT NULL,
		PRIMARY KEY (external_id, source_tag)
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate vector store: %w", err)
	}
	return nil
}

func (s *Store) debugLog(op string, err error, d time.Duration) {
	if !s.debug || err == nil {
		return
	}
	log.Printf("[VECTOR_STORE] %s failed in %v: %v", op, d, err)
}

// GetOrCreateIndex returns the dense index id for externalID, allocating a
// new one (via AUTOINCREMENT) on first reference.
func (s *Store) GetOrCreateIndex(externalID, name string) (uint32, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx uint32
	err := s.db.QueryRow(`SELECT idx FROM artist_index WHERE external_id = ?`, externalID).Scan(&idx)
	if err == nil {
		s.debugLog("GetOrCreateIndex", nil, time.Since(start))
		return idx, nil
	}
	if err != sql.ErrNoRows {
		s.debugLog("GetOrCreateIndex", err, time.Since(start))
		return 0, fmt.Errorf("lookup artist index: %w", err)
	}

	res, err := s.db.Exec(`INSERT INTO artist_index (external_id, name, last_built_at) VALUES (?, ?, 0)`, externalID, name)
	if err != nil {
		s.debugLog("GetOrCreateIndex", err, time.Since(start))
		return 0, fmt.Errorf("insert artist index: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted artist index id: %w", err)
	}
	return uint32(id), nil
}

// ResolveIndex looks up the dense id for externalID without allocating one.
func (s *Store) ResolveIndex(externalID string) (uint32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idx uint32
	err := s.db.QueryRow(`SELECT idx FROM artist_index WHERE external_id = ?`, externalID).Scan(&idx)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve artist index: %w", err)
	}
	return idx, true, nil
}

// SetVector persists a single-source contribution vector for an artist.
func (s *Store) SetVector(externalID string, vec *Sparse, source SourceTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	indicesJSON, err := json.Marshal(vec.Indices)
	if err != nil {
		return fmt.Errorf("marshal vector indices: %w", err)
	}
	valuesJSON, err := json.Marshal(vec.Values)
	if err != nil {
		return fmt.Errorf("marshal vector values: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO artist_vectors (external_id, source_tag, indices, values_)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(external_id, source_tag) DO UPDATE SET indices = excluded.indices, values_ = excluded.values_
	`, externalID, string(source), string(indicesJSON), string(valuesJSON))
	if err != nil {
		return fmt.Errorf("persist artist vector: %w", err)
	}
	return nil
}

// GetVector loads a single-source contribution vector, or an empty vector
// if none has been persisted yet.
func (s *Store) GetVector(externalID string, source SourceTag) (*Sparse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var indicesJSON, valuesJSON string
	err := s.db.QueryRow(`SELECT indices, values_ FROM artist_vectors WHERE external_id = ? AND source_tag = ?`,
		externalID, string(source)).Scan(&indicesJSON, &valuesJSON)
	if err == sql.ErrNoRows {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load artist vector: %w", err)
	}

	var indices []uint32
	var values []float32
	if err := json.Unmarshal([]byte(indicesJSON), &indices); err != nil {
		return nil, fmt.Errorf("unmarshal vector indices: %w", err)
	}
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return nil, fmt.Errorf("unmarshal vector values: %w", err)
	}
	return FromParts(indices, values), nil
}

// CompositeVector sums every persisted source contribution for an artist.
func (s *Store) CompositeVector(externalID string) (*Sparse, error) {
	rel, err := s.GetVector(externalID, SourceRelationship)
	if err != nil {
		return nil, err
	}
	sim, err := s.GetVector(externalID, SourceSimilarity)
	if err != nil {
		return nil, err
	}
	return rel.Add(sim), nil
}

// MarkBuilt stamps the last-built-at timestamp for an artist to now.
func (s *Store) MarkBuilt(externalID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE artist_index SET last_built_at = ? WHERE external_id = ?`, at.Unix(), externalID)
	if err != nil {
		return fmt.Errorf("mark artist vector built: %w", err)
	}
	return nil
}

// HasFreshVector reports whether externalID has a last-built-at timestamp
// within maxAge of now.
func (s *Store) HasFreshVector(externalID string, maxAge time.Duration, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastBuilt int64
	err := s.db.QueryRow(`SELECT last_built_at FROM artist_index WHERE external_id = ?`, externalID).Scan(&lastBuilt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check vector freshness: %w", err)
	}
	if lastBuilt == 0 {
		return false, nil
	}
	age := now.Sub(time.Unix(lastBuilt, 0))
	return age <= maxAge, nil
}

// IndexedArtist is one entry from the artist index allocator, returned by
// ResolveExternalID when mapping a vector dimension back to its artist.
type IndexedArtist struct {
	ExternalID string
	Name       string
}

// ResolveExternalID maps a dense vector dimension back to the artist it
// represents, the inverse of GetOrCreateIndex. Used to turn a nonzero
// dimension in a composite vector back into an artist identity.
func (s *Store) ResolveExternalID(idx uint32) (IndexedArtist, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a IndexedArtist
	var name sql.NullString
	err := s.db.QueryRow(`SELECT external_id, name FROM artist_index WHERE idx = ?`, idx).Scan(&a.ExternalID, &name)
	if err == sql.ErrNoRows {
		return IndexedArtist{}, false, nil
	}
	if err != nil {
		return IndexedArtist{}, false, fmt.Errorf("resolve external id: %w", err)
	}
	a.Name = name.String
	return a, true, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
