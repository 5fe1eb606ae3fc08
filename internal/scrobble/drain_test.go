package scrobble

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Enabled: true, BaseURL: srv.URL, Timeout: 2e9})
}

func TestDrainOnceSkipsWhenDisabled(t *testing.T) {
	q := newTestQueue(t, defaultLimit)
	require.NoError(t, q.SetEnabled(false))
	require.NoError(t, q.SetCredentials("token", "user"))
	_, err := q.Enqueue(QueuedListen{ListenedAt: 1, ArtistName: "Band", TrackName: "Track"})
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("submission endpoint should not be called while disabled")
	})
	drainer := NewDrainer(q, client, 0)

	require.NoError(t, drainer.DrainOnce(context.Background()))
	pending, err := q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 1, pending)
}

func TestDrainOnceSkipsWhenNoCredentials(t *testing.T) {
	q := newTestQueue(t, defaultLimit)
	_, err := q.Enqueue(QueuedListen{ListenedAt: 1, ArtistName: "Band", TrackName: "Track"})
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("submission endpoint should not be called without a token")
	})
	drainer := NewDrainer(q, client, 0)

	require.NoError(t, drainer.DrainOnce(context.Background()))
	pending, err := q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 1, pending)
}

func TestDrainOnceMarksSuccessfulSubmissionsSent(t *testing.T) {
	q := newTestQueue(t, defaultLimit)
	require.NoError(t, q.SetCredentials("token", "user"))
	_, err := q.Enqueue(QueuedListen{ListenedAt: 1, ArtistName: "Band", TrackName: "Track"})
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	drainer := NewDrainer(q, client, 0)

	require.NoError(t, drainer.DrainOnce(context.Background()))
	pending, err := q.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 0, pending)
}

func TestDrainOnceIncrementsAttemptsOnFailure(t *testing.T) {
	q := newTestQueue(t, defaultLimit)
	require.NoError(t, q.SetCredentials("token", "user"))
	_, err := q.Enqueue(QueuedListen{ListenedAt: 1, ArtistName: "Band", TrackName: "Track"})
	require.NoError(t, err)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	drainer := NewDrainer(q, client, 0)
	drainer.maxRetry = 1

	require.NoError(t, drainer.DrainOnce(context.Background()))
	listens, err := q.Page(10)
	require.NoError(t, err)
	require.Len(t, listens, 1)
	require.Equal(t, 1, listens[0].Attempts)
}
