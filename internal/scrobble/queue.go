// Package scrobble implements a durable offline listen queue and a
// ListenBrainz-compatible submission client: now-playing notifications
// and scrobbles, queued to SQLite when offline and drained once
// connectivity and a valid token are available.
package scrobble

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	maxQueueAge  = 30 * 24 * time.Hour
	defaultLimit = 500
)

// QueuedListen is one pending or already-sent listen row.
type QueuedListen struct {
	ID            int64
	ListenedAt    int64
	ArtistName    string
	TrackName     string
	ReleaseName   string
	RecordingMBID string
	ReleaseMBID   string
	ArtistMBIDs   []string
	ISRC          string
	DurationMs    uint64
	CreatedAt     int64
	Attempts      int
	Sent          bool
}

// Queue is the SQLite-backed offline listen queue: bounded to maxSize
// unsent rows and maxQueueAge, oldest rows dropped first.
type Queue struct {
	db      *sql.DB
	mu      sync.Mutex
	maxSize int64
}

// OpenQueue creates or opens the scrobble queue database at path.
func OpenQueue(path string, maxSize int64) (*Queue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create scrobble queue directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scrobble queue database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL", "PRAGMA busy_timeout=30000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	if maxSize <= 0 {
		maxSize = defaultLimit
	}
	q := &Queue{db: db, maxSize: maxSize}
	if err := q.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS credentials (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT,
		user_name TEXT,
		updated_at INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO credentials (id, updated_at) VALUES (1, 0);

	CREATE TABLE IF NOT EXISTS listen_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listened_at INTEGER NOT NULL,
		artist_name TEXT NOT NULL,
		track_name TEXT NOT NULL,
		release_name TEXT,
		recording_mbid TEXT,
		release_mbid TEXT,
		artist_mbids TEXT,
		isrc TEXT,
		duration_ms INTEGER,
		created_at INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		sent INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_listen_queue_sent ON listen_queue(sent);
	CREATE INDEX IF NOT EXISTS idx_listen_queue_created ON listen_queue(created_at);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		enabled INTEGER NOT NULL DEFAULT 1
	);
	INSERT OR IGNORE INTO settings (id, enabled) VALUES (1, 1);
	`
	if _, err := q.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate scrobble queue: %w", err)
	}
	return nil
}

// Credentials loads the persisted ListenBrainz token and username.
func (q *Queue) Credentials() (token, userName string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var t, u sql.NullString
	err = q.db.QueryRow(`SELECT token, user_name FROM credentials WHERE id = 1`).Scan(&t, &u)
	if err != nil {
		return "", "", fmt.Errorf("load scrobble credentials: %w", err)
	}
	return t.String, u.String, nil
}

// SetCredentials persists the validated token and username, or clears
// both when called with empty strings.
func (q *Queue) SetCredentials(token, userName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(`UPDATE credentials SET token = ?, user_name = ?, updated_at = ? WHERE id = 1`,
		nullIfEmpty(token), nullIfEmpty(userName), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save scrobble credentials: %w", err)
	}
	return nil
}

// IsEnabled reports the persisted enabled/disabled toggle.
func (q *Queue) IsEnabled() (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var enabled int
	err := q.db.QueryRow(`SELECT enabled FROM settings WHERE id = 1`).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("load scrobble enabled flag: %w", err)
	}
	return enabled != 0, nil
}

// SetEnabled persists the enabled/disabled toggle.
func (q *Queue) SetEnabled(enabled bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(`UPDATE settings SET enabled = ? WHERE id = 1`, boolInt(enabled))
	if err != nil {
		return fmt.Errorf("save scrobble enabled flag: %w", err)
	}
	return nil
}

// Enqueue records a listen for later submission, enforcing the size and
// age caps first so a burst of offline listens cannot grow unbounded.
func (q *Queue) Enqueue(l QueuedListen) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.enforceLimitsLocked(); err != nil {
		return 0, err
	}

	var mbidsJSON any
	if len(l.ArtistMBIDs) > 0 {
		raw, err := json.Marshal(l.ArtistMBIDs)
		if err != nil {
			return 0, fmt.Errorf("marshal artist mbids: %w", err)
		}
		mbidsJSON = string(raw)
	}

	res, err := q.db.Exec(`
		INSERT INTO listen_queue
			(listened_at, artist_name, track_name, release_name, recording_mbid, release_mbid, artist_mbids, isrc, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ListenedAt, l.ArtistName, l.TrackName, nullIfEmpty(l.ReleaseName), nullIfEmpty(l.RecordingMBID),
		nullIfEmpty(l.ReleaseMBID), mbidsJSON, nullIfEmpty(l.ISRC), nullableUint(l.DurationMs), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("enqueue listen: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queue) enforceLimitsLocked() error {
	cutoff := time.Now().Add(-maxQueueAge).Unix()
	if _, err := q.db.Exec(`DELETE FROM listen_queue WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup old queue entries: %w", err)
	}

	var count int64
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM listen_queue WHERE sent = 0`).Scan(&count); err != nil {
		return fmt.Errorf("count queued listens: %w", err)
	}

	if count >= q.maxSize {
		toRemove := count - q.maxSize + 1
		_, err := q.db.Exec(`
			DELETE FROM listen_queue WHERE id IN (
				SELECT id FROM listen_queue WHERE sent = 0 ORDER BY listened_at ASC LIMIT ?
			)
		`, toRemove)
		if err != nil {
			return fmt.Errorf("trim queue: %w", err)
		}
	}
	return nil
}

// Page returns up to limit unsent listens, oldest first.
func (q *Queue) Page(limit int) ([]QueuedListen, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.Query(`
		SELECT id, listened_at, artist_name, track_name, release_name, recording_mbid, release_mbid,
		       artist_mbids, isrc, duration_ms, created_at, attempts, sent
		FROM listen_queue WHERE sent = 0 ORDER BY listened_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query queued listens: %w", err)
	}
	defer rows.Close()

	var result []QueuedListen
	for rows.Next() {
		var l QueuedListen
		var releaseName, recordingMBID, releaseMBID, mbidsJSON, isrc sql.NullString
		var durationMs sql.NullInt64
		var sent int
		if err := rows.Scan(&l.ID, &l.ListenedAt, &l.ArtistName, &l.TrackName, &releaseName,
			&recordingMBID, &releaseMBID, &mbidsJSON, &isrc, &durationMs, &l.CreatedAt, &l.Attempts, &sent); err != nil {
			return nil, fmt.Errorf("scan queued listen: %w", err)
		}
		l.ReleaseName = releaseName.String
		l.RecordingMBID = recordingMBID.String
		l.ReleaseMBID = releaseMBID.String
		l.ISRC = isrc.String
		l.Sent = sent != 0
		if durationMs.Valid {
			l.DurationMs = uint64(durationMs.Int64)
		}
		if mbidsJSON.Valid {
			_ = json.Unmarshal([]byte(mbidsJSON.String), &l.ArtistMBIDs)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// MarkSent marks the given listen ids as successfully submitted.
func (q *Queue) MarkSent(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	placeholders := make([]any, len(ids))
	query := `UPDATE listen_queue SET sent = 1 WHERE id IN (`
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		placeholders[i] = id
	}
	query += ")"

	if _, err := q.db.Exec(query, placeholders...); err != nil {
		return fmt.Errorf("mark listens sent: %w", err)
	}
	return nil
}

// IncrementAttempts records a failed submission attempt for a listen.
func (q *Queue) IncrementAttempts(id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(`UPDATE listen_queue SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment listen attempts: %w", err)
	}
	return nil
}

// PendingCount returns the number of unsent listens.
func (q *Queue) PendingCount() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var count int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM listen_queue WHERE sent = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending listens: %w", err)
	}
	return count, nil
}

// CleanupSent deletes already-sent listens older than olderThan.
func (q *Queue) CleanupSent(olderThan time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := q.db.Exec(`DELETE FROM listen_queue WHERE sent = 1 AND created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup sent listens: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database handle.
func (q *Queue) Close() error {
	return q.db.Close()
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

func nullableUint(v uint64) any {
	if v == 0 {
		return nil
	}
	return v
}
