package scrobble

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, maxSize int64) *Queue {
	t.Helper()
	q, err := OpenQueue(filepath.Join(t.TempDir(), "scrobble.db"), maxSize)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueDropsOldestWhenOverCap(t *testing.T) {
	q := newTestQueue(t, 3)

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(QueuedListen{
			ListenedAt: int64(1000 + i),
			ArtistName: "Band",
			TrackName:  "Track",
		})
		require.NoError(t, err)
	}

	count, err := q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 3, count)

	listens, err := q.Page(10)
	require.NoError(t, err)
	require.Len(t, listens, 3)
	// the two oldest (1000, 1001) were dropped to make room.
	require.Equal(t, int64(1002), listens[0].ListenedAt)
	require.Equal(t, int64(1004), listens[2].ListenedAt)
}

func TestEnqueuePurgesRowsOlderThanMaxAge(t *testing.T) {
	q := newTestQueue(t, defaultLimit)

	_, err := q.Enqueue(QueuedListen{ListenedAt: 1, ArtistName: "Old", TrackName: "Stale"})
	require.NoError(t, err)

	stale := time.Now().Add(-maxQueueAge - time.Hour).Unix()
	_, err = q.db.Exec(`UPDATE listen_queue SET created_at = ? WHERE artist_name = 'Old'`, stale)
	require.NoError(t, err)

	_, err = q.Enqueue(QueuedListen{ListenedAt: 2, ArtistName: "Fresh", TrackName: "New"})
	require.NoError(t, err)

	listens, err := q.Page(10)
	require.NoError(t, err)
	require.Len(t, listens, 1)
	require.Equal(t, "Fresh", listens[0].ArtistName)
}

func TestMarkSentIsIdempotent(t *testing.T) {
	q := newTestQueue(t, defaultLimit)

	id, err := q.Enqueue(QueuedListen{ListenedAt: 1, ArtistName: "Band", TrackName: "Track"})
	require.NoError(t, err)

	require.NoError(t, q.MarkSent([]int64{id}))
	require.NoError(t, q.MarkSent([]int64{id}))

	count, err := q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestCredentialsRoundTrip(t *testing.T) {
	q := newTestQueue(t, defaultLimit)

	require.NoError(t, q.SetCredentials("token123", "listener"))
	token, userName, err := q.Credentials()
	require.NoError(t, err)
	require.Equal(t, "token123", token)
	require.Equal(t, "listener", userName)
}
