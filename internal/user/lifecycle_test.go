package user

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setXDGDirs points GetDataDir/GetCacheDir at fresh temp directories for
// the duration of the test, so migration never touches a real home dir.
func setXDGDirs(t *testing.T) (dataDir, cacheDir string) {
	t.Helper()
	dataDir = filepath.Join(t.TempDir(), "data")
	cacheDir = filepath.Join(t.TempDir(), "cache")
	t.Setenv("XDG_DATA_HOME", dataDir)
	t.Setenv("XDG_CACHE_HOME", cacheDir)
	return filepath.Join(dataDir, "amp"), filepath.Join(cacheDir, "amp")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSignInMigratesFlatLayoutOnFirstRun(t *testing.T) {
	globalData, globalCache := setXDGDirs(t)

	writeFile(t, filepath.Join(globalData, "music.db"), "music")
	writeFile(t, filepath.Join(globalData, "music.db-wal"), "wal")
	writeFile(t, filepath.Join(globalData, "cache", "relationship_cache.db"), "relcache")
	writeFile(t, filepath.Join(globalCache, "artwork", "cover.jpg"), "jpg")

	require.False(t, IsMigrated())

	session, err := SignIn(7)
	require.NoError(t, err)
	require.Equal(t, uint64(7), session.UserID)

	require.True(t, IsMigrated())

	userData := session.Paths.DataDir
	require.FileExists(t, filepath.Join(userData, "music.db"))
	require.FileExists(t, filepath.Join(userData, "music.db-wal"))
	require.FileExists(t, filepath.Join(userData, "cache", "relationship_cache.db"))
	require.FileExists(t, filepath.Join(session.Paths.CacheDir, "artwork", "cover.jpg"))

	require.NoFileExists(t, filepath.Join(globalData, "music.db"))
	require.NoFileExists(t, filepath.Join(globalCache, "artwork", "cover.jpg"))

	marker, err := os.ReadFile(filepath.Join(globalData, migratedMarker))
	require.NoError(t, err)
	require.Contains(t, string(marker), "migrated_to_user=7")
}

func TestSignInSecondUserGetsCleanSlateAfterMigration(t *testing.T) {
	globalData, _ := setXDGDirs(t)
	writeFile(t, filepath.Join(globalData, "music.db"), "music")

	first, err := SignIn(1)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(first.Paths.DataDir, "music.db"))

	second, err := SignIn(2)
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(second.Paths.DataDir, "music.db"))
}

func TestSignInIsNoOpOnceMigrated(t *testing.T) {
	globalData, _ := setXDGDirs(t)
	writeFile(t, filepath.Join(globalData, "music.db"), "music")

	_, err := SignIn(1)
	require.NoError(t, err)
	require.True(t, IsMigrated())

	// A second call, even for the same user, must not error or re-migrate
	// anything - MigrateFlatToUser's guard is IsMigrated(), and nothing
	// is left in the flat layout to move a second time.
	session, err := SignIn(1)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(session.Paths.DataDir, "music.db"))
}
