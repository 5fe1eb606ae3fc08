package queue

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SessionStore persists a Context to a per-user session.db so playback can
// resume across restarts: the current queue ordering, position, volume,
// and shuffle/repeat mode.
type SessionStore struct {
	db    *sql.DB
	mu    sync.RWMutex
	debug bool
}

// OpenSessionStore creates or opens the session database at path.
func OpenSessionStore(path string, debug bool) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create session store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=30000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	s := &SessionStore{db: db, debug: debug}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS player_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current_index INTEGER,
		position_secs INTEGER NOT NULL DEFAULT 0,
		volume REAL NOT NULL DEFAULT 0.75,
		shuffle_enabled INTEGER NOT NULL DEFAULT 0,
		repeat_mode TEXT NOT NULL DEFAULT 'off',
		was_playing INTEGER NOT NULL DEFAULT 0,
		saved_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS queue_tracks (
		position INTEGER PRIMARY KEY,
		track_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		duration_secs INTEGER NOT NULL,
		artwork_url TEXT,
		hires INTEGER NOT NULL DEFAULT 0,
		bit_depth INTEGER,
		sample_rate REAL,
		is_local INTEGER NOT NULL DEFAULT 0,
		album_id TEXT,
		artist_id INTEGER
	);
	INSERT OR IGNORE INTO player_state (id, position_secs, volume, shuffle_enabled, repeat_mode, was_playing, saved_at)
	VALUES (1, 0, 0.75, 0, 'off', 0, 0);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate session store: %w", err)
	}
	return nil
}

func (s *SessionStore) debugLog(op string, err error, d time.Duration) {
	if !s.debug || err == nil {
		return
	}
	log.Printf("[SESSION_STORE] %s failed in %v: %v", op, d, err)
}

// Save persists the full queue context in a single transaction.
func (s *SessionStore) Save(c *Context) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	defer func() { s.debugLog("Save", err, time.Since(start)) }()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin session save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM queue_tracks`); err != nil {
		return fmt.Errorf("clear queue tracks: %w", err)
	}

	for pos, t := range c.Tracks {
		_, err = tx.Exec(`
			INSERT INTO queue_tracks
				(position, track_id, title, artist, album, duration_secs, artwork_url,
				 hires, bit_depth, sample_rate, is_local, album_id, artist_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, pos, t.ID, t.Title, t.Artist, t.Album, t.DurationSecs, nullIfEmpty(t.ArtworkURL),
			boolInt(t.HiRes), t.BitDepth, t.SampleRate, boolInt(t.IsLocal), nullIfEmpty(t.AlbumID), t.ArtistID)
		if err != nil {
			return fmt.Errorf("insert queue track at position %d: %w", pos, err)
		}
	}

	var currentIndex any
	if c.CurrentIndex >= 0 {
		currentIndex = c.CurrentIndex
	}

	_, err = tx.Exec(`
		UPDATE player_state SET
			current_index = ?, position_secs = ?, volume = ?,
			shuffle_enabled = ?, repeat_mode = ?, was_playing = ?, saved_at = ?
		WHERE id = 1
	`, currentIndex, c.PositionSecs, c.Volume, boolInt(c.ShuffleEnabled), string(c.RepeatMode), boolInt(c.WasPlaying), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("update player state: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session save transaction: %w", err)
	}
	return nil
}

// Load reconstructs a Context from the persisted session, or an empty one
// if nothing has been saved yet.
func (s *SessionStore) Load() (*Context, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	defer func() { s.debugLog("Load", err, time.Since(start)) }()

	c := New()

	var currentIndex sql.NullInt64
	var positionSecs uint64
	var volume float64
	var shuffle, wasPlaying int
	var repeatMode string
	err = s.db.QueryRow(`
		SELECT current_index, position_secs, volume, shuffle_enabled, repeat_mode, was_playing
		FROM player_state WHERE id = 1
	`).Scan(&currentIndex, &positionSecs, &volume, &shuffle, &repeatMode, &wasPlaying)
	if err != nil {
		return nil, fmt.Errorf("load player state: %w", err)
	}

	if currentIndex.Valid {
		c.CurrentIndex = int(currentIndex.Int64)
	} else {
		c.CurrentIndex = -1
	}
	c.PositionSecs = positionSecs
	c.Volume = float32(volume)
	c.ShuffleEnabled = shuffle != 0
	c.RepeatMode = RepeatMode(repeatMode)
	c.WasPlaying = wasPlaying != 0

	rows, err := s.db.Query(`
		SELECT track_id, title, artist, album, duration_secs, artwork_url,
		       hires, bit_depth, sample_rate, is_local, album_id, artist_id
		FROM queue_tracks ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query queue tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		var artworkURL, albumID sql.NullString
		var bitDepth, artistID sql.NullInt64
		var sampleRate sql.NullFloat64
		var hires, isLocal int

		if err = rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.DurationSecs, &artworkURL,
			&hires, &bitDepth, &sampleRate, &isLocal, &albumID, &artistID); err != nil {
			return nil, fmt.Errorf("scan queue track: %w", err)
		}

		t.ArtworkURL = artworkURL.String
		t.HiRes = hires != 0
		t.IsLocal = isLocal != 0
		t.AlbumID = albumID.String
		t.Streamable = true
		if bitDepth.Valid {
			v := uint32(bitDepth.Int64)
			t.BitDepth = &v
		}
		if sampleRate.Valid {
			v := sampleRate.Float64
			t.SampleRate = &v
		}
		if artistID.Valid {
			v := uint64(artistID.Int64)
			t.ArtistID = &v
		}
		tracks = append(tracks, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue tracks: %w", err)
	}

	c.Tracks = tracks
	if c.ShuffleEnabled {
		c.reshuffle()
	}
	return c, nil
}

// SavePosition is a cheap single-row update for just the playback position,
// used on a periodic tick during playback instead of a full Save.
func (s *SessionStore) SavePosition(positionSecs uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE player_state SET position_secs = ?, saved_at = ? WHERE id = 1`,
		positionSecs, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// Clear wipes the persisted queue and resets playback state, as on sign-out.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM queue_tracks`); err != nil {
		return fmt.Errorf("clear queue tracks: %w", err)
	}
	_, err := s.db.Exec(`UPDATE player_state SET current_index = NULL, position_secs = 0, was_playing = 0 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("reset player state: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
