package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeController struct {
	playCalled     bool
	pauseCalled    bool
	nextCalled     bool
	prevCalled     bool
	seekedTo       float64
	volumeSetTo    float64
	nowPlaying     NowPlaying
	queueSnapshot  QueueSnapshot
	suggestions    SuggestionsResponse
	errToReturn    error
}

func (f *fakeController) Play() error  { f.playCalled = true; return f.errToReturn }
func (f *fakeController) Pause() error { f.pauseCalled = true; return f.errToReturn }
func (f *fakeController) Next() error  { f.nextCalled = true; return f.errToReturn }
func (f *fakeController) Previous() error {
	f.prevCalled = true
	return f.errToReturn
}
func (f *fakeController) Seek(positionSecs float64) error {
	f.seekedTo = positionSecs
	return f.errToReturn
}
func (f *fakeController) SetVolume(level float64) error {
	f.volumeSetTo = level
	return f.errToReturn
}
func (f *fakeController) NowPlaying() NowPlaying { return f.nowPlaying }
func (f *fakeController) Queue() QueueSnapshot   { return f.queueSnapshot }
func (f *fakeController) Suggestions(ctx context.Context) (SuggestionsResponse, error) {
	return f.suggestions, f.errToReturn
}

func newTestServer(t *testing.T, secret string) (*Server, *fakeController) {
	t.Helper()
	hash, err := HashSecret(secret)
	require.NoError(t, err)

	fc := &fakeController{
		nowPlaying:    NowPlaying{Title: "Song", Artist: "Band"},
		queueSnapshot: QueueSnapshot{CurrentIndex: 0},
	}
	return NewServer(0, hash, fc, false), fc
}

func pair(t *testing.T, s *Server, secret string) string {
	t.Helper()
	body, _ := json.Marshal(pairRequest{Secret: secret})
	req := httptest.NewRequest(http.MethodPost, "/pair", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pairResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestPairRejectsWrongSecret(t *testing.T) {
	s, _ := newTestServer(t, "correct-horse")

	body, _ := json.Marshal(pairRequest{Secret: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/pair", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPairAcceptsCorrectSecretAndIssuesToken(t *testing.T) {
	s, _ := newTestServer(t, "correct-horse")
	token := pair(t, s, "correct-horse")
	require.NotEmpty(t, token)
}

func TestNowPlayingRequiresSession(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/now-playing", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNowPlayingReturnsControllerSnapshot(t *testing.T) {
	s, fc := newTestServer(t, "secret")
	token := pair(t, s, "secret")

	req := httptest.NewRequest(http.MethodGet, "/now-playing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got NowPlaying
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, fc.nowPlaying.Title, got.Title)
}

func TestControlActionsDispatchToController(t *testing.T) {
	s, fc := newTestServer(t, "secret")
	token := pair(t, s, "secret")

	req := httptest.NewRequest(http.MethodPost, "/control/next", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, fc.nextCalled)
}

func TestControlSeekPassesPosition(t *testing.T) {
	s, fc := newTestServer(t, "secret")
	token := pair(t, s, "secret")

	body, _ := json.Marshal(controlRequest{PositionSecs: 42.5})
	req := httptest.NewRequest(http.MethodPost, "/control/seek", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 42.5, fc.seekedTo)
}

func TestControlUnknownActionReturnsNotFound(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	token := pair(t, s, "secret")

	req := httptest.NewRequest(http.MethodPost, "/control/teleport", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestionsRequiresSession(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSuggestionsReturnsControllerResult(t *testing.T) {
	s, fc := newTestServer(t, "secret")
	token := pair(t, s, "secret")
	fc.suggestions = SuggestionsResponse{
		SourceArtistsCount: 1,
		Tracks:             []SuggestedTrack{{Slug: "song-one", Title: "Song One", SimilarArtistName: "Similar Artist"}},
	}

	req := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got SuggestionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, 1, got.SourceArtistsCount)
	require.Len(t, got.Tracks, 1)
	require.Equal(t, "Song One", got.Tracks[0].Title)
}

func TestSuggestionsPropagatesControllerError(t *testing.T) {
	s, fc := newTestServer(t, "secret")
	token := pair(t, s, "secret")
	fc.errToReturn = fmt.Errorf("suggestion engine unavailable")

	req := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/queue", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
