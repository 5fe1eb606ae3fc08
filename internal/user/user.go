// Package user manages per-user data isolation: resolving a signed-in
// user's data/cache subdirectories, and migrating a pre-multi-user flat
// layout into the first user's subdirectory on first run after upgrade.
package user

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Alexander-D-Karpov/amp/internal/platform"
)

const migratedMarker = ".migrated"

// flatDataFiles are database files that lived directly in the global data
// directory before per-user isolation existed.
var flatDataFiles = []string{
	"music.db",
	"session.db",
	"favorites_cache.db",
	"playback_preferences.db",
	"download_settings.db",
	"audio_settings.db",
	"remote_control_settings.db",
}

// flatSubdirFiles are database files that lived in a global subdirectory.
var flatSubdirFiles = []struct{ subdir, file string }{
	{"cache", "artist_vectors.db"},
	{"cache", "relationship_cache.db"},
	{"cache", "scrobble_cache.db"},
}

// flatCacheDirs are cache subdirectories that lived directly under the
// global cache directory.
var flatCacheDirs = []string{"audio", "artwork", "tmp"}

// Paths resolves every per-user directory and database path a signed-in
// user's components need.
type Paths struct {
	DataDir  string
	CacheDir string
}

// ForUser returns the Paths for userID, creating both directories if
// absent.
func ForUser(userID uint64) (Paths, error) {
	globalData, err := platform.GetDataDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve global data directory: %w", err)
	}
	globalCache, err := platform.GetCacheDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve global cache directory: %w", err)
	}

	p := Paths{
		DataDir:  filepath.Join(globalData, "users", fmt.Sprint(userID)),
		CacheDir: filepath.Join(globalCache, "users", fmt.Sprint(userID)),
	}
	if err := os.MkdirAll(p.DataDir, 0755); err != nil {
		return Paths{}, fmt.Errorf("create user data directory: %w", err)
	}
	if err := os.MkdirAll(p.CacheDir, 0755); err != nil {
		return Paths{}, fmt.Errorf("create user cache directory: %w", err)
	}
	return p, nil
}

// DB returns path joined under the user's data directory, for a database
// file such as "session.db".
func (p Paths) DB(name string) string {
	return filepath.Join(p.DataDir, name)
}

// CacheSubdir returns path joined under the user's cache directory, for a
// subdirectory such as "audio" or "artwork".
func (p Paths) CacheSubdir(name string) string {
	return filepath.Join(p.CacheDir, name)
}

// IsMigrated reports whether the flat-to-user migration has already run.
func IsMigrated() bool {
	globalData, err := platform.GetDataDir()
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(globalData, migratedMarker))
	return err == nil
}

// MigrateFlatToUser moves pre-multi-user flat-layout files into userID's
// subdirectory. The first user to sign in after an upgrade inherits all
// existing data; later users get a clean slate. Safe to call
// unconditionally: it is a no-op once the marker file exists.
func MigrateFlatToUser(userID uint64) error {
	globalData, err := platform.GetDataDir()
	if err != nil {
		return fmt.Errorf("resolve global data directory: %w", err)
	}
	globalCache, err := platform.GetCacheDir()
	if err != nil {
		return fmt.Errorf("resolve global cache directory: %w", err)
	}

	if IsMigrated() {
		return nil
	}

	log.Printf("[USER] starting flat-to-user migration for user %d", userID)

	paths, err := ForUser(userID)
	if err != nil {
		return fmt.Errorf("prepare user directories: %w", err)
	}

	for _, name := range flatDataFiles {
		moveDBWithJournals(globalData, paths.DataDir, name)
	}

	for _, entry := range flatSubdirFiles {
		srcDir := filepath.Join(globalData, entry.subdir)
		if _, err := os.Stat(filepath.Join(srcDir, entry.file)); err != nil {
			continue
		}
		dstDir := filepath.Join(paths.DataDir, entry.subdir)
		if err := os.MkdirAll(dstDir, 0755); err != nil {
			log.Printf("[USER] create %s failed: %v", dstDir, err)
			continue
		}
		moveDBWithJournals(srcDir, dstDir, entry.file)
	}

	for _, dirName := range flatCacheDirs {
		moveDirectory(filepath.Join(globalCache, dirName), filepath.Join(paths.CacheDir, dirName))
	}

	marker := filepath.Join(globalData, migratedMarker)
	content := fmt.Sprintf("migrated_to_user=%d\n", userID)
	if err := os.WriteFile(marker, []byte(content), 0644); err != nil {
		return fmt.Errorf("write migration marker: %w", err)
	}

	log.Printf("[USER] migration completed for user %d", userID)
	return nil
}

// moveDBWithJournals moves a SQLite database file together with its WAL
// and SHM companion files, falling back to copy+remove across devices.
func moveDBWithJournals(srcDir, dstDir, dbName string) {
	for _, ext := range []string{"", "-wal", "-shm"} {
		filename := dbName + ext
		src := filepath.Join(srcDir, filename)
		dst := filepath.Join(dstDir, filename)

		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			log.Printf("[USER] rename %s failed, copying: %v", filename, err)
			if copyErr := copyAndRemove(src, dst); copyErr != nil {
				log.Printf("[USER] migrate %s failed: %v", filename, copyErr)
			}
		}
	}
}

func moveDirectory(src, dst string) {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return
	}
	if _, err := os.Stat(dst); err == nil {
		log.Printf("[USER] destination %s already exists, skipping", dst)
		return
	}

	if err := os.Rename(src, dst); err != nil {
		log.Printf("[USER] rename dir %s failed, copying: %v", src, err)
		if copyErr := copyDirRecursive(src, dst); copyErr != nil {
			log.Printf("[USER] migrate dir %s failed: %v", src, copyErr)
			return
		}
		_ = os.RemoveAll(src)
	}
}

func copyAndRemove(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

func copyDirRecursive(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDirRecursive(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}
