package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the disk cache entry's lifecycle state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusReady       Status = "ready"
	StatusFailed      Status = "failed"
)

// TrackInfo is the disk cache's index row for one track.
type TrackInfo struct {
	TrackID         uint64
	Title           string
	Artist          string
	Album           string
	AlbumID         string
	DurationSecs    uint64
	FileSizeBytes   uint64
	Quality         string
	BitDepth        *uint32
	SampleRate      *float64
	FilePath        string
	Status          Status
	ProgressPercent uint8
	ErrorMessage    string
	CreatedAt       time.Time
	LastAccessedAt  time.Time
}

// DiskStats summarizes L2 occupancy.
type DiskStats struct {
	TotalTracks        int
	ReadyTracks        int
	DownloadingTracks  int
	FailedTracks       int
	TotalSizeBytes     uint64
	LimitBytes         uint64
	CachePath          string
}

// Disk is the L2 content-addressed file cache: one file per track under
// baseDir, indexed by a SQLite table tracking status, size, and LRU
// access time for byte-budget eviction.
type Disk struct {
	db      *sql.DB
	mu      sync.Mutex
	baseDir string
	limit   uint64
}

// OpenDisk creates or opens the disk cache rooted at baseDir, with an
// index database at baseDir/index.db.
func OpenDisk(baseDir string, limitBytes uint64) (*Disk, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create disk cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(baseDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open disk cache index: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=30000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	d := &Disk{db: db, baseDir: baseDir, limit: limitBytes}
	if err := d.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Disk) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS cached_tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id INTEGER UNIQUE NOT NULL,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		album_id TEXT,
		duration_secs INTEGER NOT NULL,
		file_path TEXT NOT NULL,
		file_size_bytes INTEGER NOT NULL DEFAULT 0,
		quality TEXT,
		bit_depth INTEGER,
		sample_rate REAL,
		status TEXT NOT NULL DEFAULT 'queued',
		progress_percent INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at INTEGER NOT NULL,
		last_accessed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cached_tracks_status ON cached_tracks(status);
	CREATE INDEX IF NOT EXISTS idx_cached_tracks_last_accessed ON cached_tracks(last_accessed_at);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate disk cache index: %w", err)
	}
	return nil
}

var invalidFilenameChars = regexp.MustCompile(`[/\\:*?"<>|]`)
var dashRun = regexp.MustCompile(`-{2,}`)

// SanitizeFilename strips characters unsafe for a filesystem path,
// collapses runs of dashes, and falls back to "track" if nothing is left.
func SanitizeFilename(name string) string {
	s := invalidFilenameChars.ReplaceAllString(name, "-")
	var b strings.Builder
	for _, r := range s {
		if r > 127 && !isAlnum(r) {
			b.WriteRune('-')
		} else {
			b.WriteRune(r)
		}
	}
	s = dashRun.ReplaceAllString(b.String(), "-")
	s = strings.Trim(s, "- \t")

	if len(s) > 200 {
		s = s[:200]
		s = strings.Trim(s, "- \t")
	}
	if s == "" {
		return "track"
	}
	return s
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// FilePath returns baseDir/tracks/<sanitized-title>-<trackID>.<format>.
// The track id in the name keeps different tracks apart; existing files
// are not checked and no "(N)" suffix is added.
func (d *Disk) FilePath(trackID uint64, title, format string) string {
	tracksDir := filepath.Join(d.baseDir, "tracks")
	stem := fmt.Sprintf("%s-%d", SanitizeFilename(title), trackID)
	return filepath.Join(tracksDir, stem+"."+format)
}

// Insert writes data to L2, creating a queued->ready index row directly
// (used for spillover from L1, where the data is already held in memory).
func (d *Disk) Insert(trackID uint64, data []byte) {
	path := d.FilePath(trackID, fmt.Sprintf("track-%d", trackID), "cache")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now().Unix()
	_, _ = d.db.Exec(`
		INSERT INTO cached_tracks (track_id, title, artist, album, album_id, duration_secs, file_path, file_size_bytes, status, progress_percent, created_at, last_accessed_at)
		VALUES (?, '', '', '', '', 0, ?, ?, 'ready', 100, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET file_path = excluded.file_path, file_size_bytes = excluded.file_size_bytes,
			status = 'ready', progress_percent = 100, last_accessed_at = excluded.last_accessed_at
	`, trackID, path, len(data), now, now)
}

// InsertTrack registers a new (not-yet-downloaded) track in the index at
// filePath.
func (d *Disk) InsertTrack(info TrackInfo, filePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Unix()
	_, err := d.db.Exec(`
		INSERT INTO cached_tracks
			(track_id, title, artist, album, album_id, duration_secs, file_path, quality, bit_depth, sample_rate, status, progress_percent, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'queued', 0, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET title = excluded.title, artist = excluded.artist, album = excluded.album,
			album_id = excluded.album_id, duration_secs = excluded.duration_secs, file_path = excluded.file_path,
			quality = excluded.quality, bit_depth = excluded.bit_depth, sample_rate = excluded.sample_rate,
			status = 'queued', progress_percent = 0, last_accessed_at = excluded.last_accessed_at
	`, info.TrackID, info.Title, info.Artist, info.Album, info.AlbumID, info.DurationSecs, filePath,
		info.Quality, info.BitDepth, info.SampleRate, now, now)
	if err != nil {
		return fmt.Errorf("insert disk cache track: %w", err)
	}
	return nil
}

// UpdateStatus transitions a track's status, recording an error message
// on failure.
func (d *Disk) UpdateStatus(trackID uint64, status Status, errMsg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}
	_, err := d.db.Exec(`UPDATE cached_tracks SET status = ?, error_message = ? WHERE track_id = ?`, string(status), errVal, trackID)
	if err != nil {
		return fmt.Errorf("update disk cache status: %w", err)
	}
	return nil
}

// UpdateProgress records download progress for an in-flight track.
func (d *Disk) UpdateProgress(trackID uint64, percent uint8, sizeBytes uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`UPDATE cached_tracks SET progress_percent = ?, file_size_bytes = ? WHERE track_id = ?`,
		percent, sizeBytes, trackID)
	if err != nil {
		return fmt.Errorf("update disk cache progress: %w", err)
	}
	return nil
}

// MarkComplete marks a track ready with its final size.
func (d *Disk) MarkComplete(trackID uint64, fileSize uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		UPDATE cached_tracks SET status = 'ready', progress_percent = 100, file_size_bytes = ?, last_accessed_at = ?
		WHERE track_id = ?
	`, fileSize, time.Now().Unix(), trackID)
	if err != nil {
		return fmt.Errorf("mark disk cache track complete: %w", err)
	}
	return nil
}

// Touch refreshes a track's last-accessed timestamp for LRU purposes.
func (d *Disk) Touch(trackID uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`UPDATE cached_tracks SET last_accessed_at = ? WHERE track_id = ?`, time.Now().Unix(), trackID)
	if err != nil {
		return fmt.Errorf("touch disk cache track: %w", err)
	}
	return nil
}

// IsCached reports whether trackID has a ready entry.
func (d *Disk) IsCached(trackID uint64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM cached_tracks WHERE track_id = ? AND status = 'ready'`, trackID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check disk cache: %w", err)
	}
	return count > 0, nil
}

// GetFilePath returns the ready file path for trackID, or false if absent.
func (d *Disk) GetFilePath(trackID uint64) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var path string
	err := d.db.QueryRow(`SELECT file_path FROM cached_tracks WHERE track_id = ? AND status = 'ready'`, trackID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get disk cache file path: %w", err)
	}
	return path, true, nil
}

// DeleteTrack removes a track's index row and returns its file path so
// the caller can remove the underlying file.
func (d *Disk) DeleteTrack(trackID uint64) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var path string
	_ = d.db.QueryRow(`SELECT file_path FROM cached_tracks WHERE track_id = ?`, trackID).Scan(&path)

	if _, err := d.db.Exec(`DELETE FROM cached_tracks WHERE track_id = ?`, trackID); err != nil {
		return "", fmt.Errorf("delete disk cache track: %w", err)
	}
	return path, nil
}

// Stats summarizes L2 occupancy for diagnostics.
func (d *Disk) Stats() (DiskStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := DiskStats{CachePath: d.baseDir, LimitBytes: d.limit}
	row := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'ready'),
			COUNT(*) FILTER (WHERE status IN ('downloading', 'queued')),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(file_size_bytes) FILTER (WHERE status = 'ready'), 0)
		FROM cached_tracks
	`)
	if err := row.Scan(&stats.TotalTracks, &stats.ReadyTracks, &stats.DownloadingTracks, &stats.FailedTracks, &stats.TotalSizeBytes); err != nil {
		return DiskStats{}, fmt.Errorf("compute disk cache stats: %w", err)
	}
	return stats, nil
}

// TracksForEviction returns ready tracks in ascending last-accessed order
// until at least bytesToFree bytes would be reclaimed.
func (d *Disk) TracksForEviction(bytesToFree uint64) ([]TrackInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.db.Query(`
		SELECT track_id, file_path, file_size_bytes FROM cached_tracks
		WHERE status = 'ready' ORDER BY last_accessed_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query disk cache eviction candidates: %w", err)
	}
	defer rows.Close()

	var result []TrackInfo
	var freed uint64
	for rows.Next() && freed < bytesToFree {
		var info TrackInfo
		if err := rows.Scan(&info.TrackID, &info.FilePath, &info.FileSizeBytes); err != nil {
			return nil, fmt.Errorf("scan disk cache eviction candidate: %w", err)
		}
		result = append(result, info)
		freed += info.FileSizeBytes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disk cache eviction candidates: %w", err)
	}
	return result, nil
}

// Evict deletes the given tracks' index rows and files, reclaiming space.
func (d *Disk) Evict(tracks []TrackInfo) {
	for _, t := range tracks {
		if _, err := d.DeleteTrack(t.TrackID); err != nil {
			continue
		}
		_ = os.Remove(t.FilePath)
	}
}

// EnsureBudget evicts LRU tracks until total usage is back under the
// configured byte limit.
func (d *Disk) EnsureBudget() error {
	if d.limit == 0 {
		return nil
	}
	stats, err := d.Stats()
	if err != nil {
		return err
	}
	if stats.TotalSizeBytes <= d.limit {
		return nil
	}
	toFree := stats.TotalSizeBytes - d.limit
	candidates, err := d.TracksForEviction(toFree)
	if err != nil {
		return err
	}
	d.Evict(candidates)
	return nil
}

// Clear removes every indexed track and its file, and deletes the index
// rows.
func (d *Disk) Clear() {
	d.mu.Lock()
	rows, err := d.db.Query(`SELECT file_path FROM cached_tracks`)
	var paths []string
	if err == nil {
		for rows.Next() {
			var p string
			if rows.Scan(&p) == nil {
				paths = append(paths, p)
			}
		}
		rows.Close()
	}
	_, _ = d.db.Exec(`DELETE FROM cached_tracks`)
	d.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// Close closes the underlying database handle.
func (d *Disk) Close() error {
	return d.db.Close()
}
