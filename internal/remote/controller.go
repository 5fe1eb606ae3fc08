// Package remote implements the optional embedded HTTP server that lets
// a paired client on the local network read now-playing/queue state and
// issue playback commands, via a small github.com/go-chi/chi/v5 router.
package remote

import (
	"context"
	"time"
)

// NowPlaying is a point-in-time snapshot of the active track and
// transport state, returned by GET /now-playing.
type NowPlaying struct {
	TrackID      uint64  `json:"track_id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	PositionSecs float64 `json:"position_secs"`
	DurationSecs float64 `json:"duration_secs"`
	Playing      bool    `json:"playing"`
	Volume       float64 `json:"volume"`
}

// QueueTrack is one entry in the queue snapshot returned by GET /queue.
type QueueTrack struct {
	ID           uint64 `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	DurationSecs uint64 `json:"duration_secs"`
}

// QueueSnapshot is the ordered queue plus which entry is playing.
type QueueSnapshot struct {
	Tracks       []QueueTrack `json:"tracks"`
	CurrentIndex int          `json:"current_index"`
}

// SuggestedTrack is one track the suggestion engine contributed, tagged
// with the similar artist responsible for it, returned by GET /suggestions.
type SuggestedTrack struct {
	Slug               string  `json:"slug"`
	Title              string  `json:"title"`
	SimilarArtistName  string  `json:"similar_artist_name"`
	SimilarArtistScore float32 `json:"similar_artist_score"`
}

// SuggestionsResponse is the generated suggestion set returned by
// GET /suggestions.
type SuggestionsResponse struct {
	Tracks             []SuggestedTrack `json:"tracks"`
	SourceArtistsCount int               `json:"source_artists_count"`
}

// Controller is the hook the core exposes to the embedded server: the
// minimum surface a remote client needs to read and drive playback,
// independent of how the core itself is wired (audio.Player, queue.Context).
type Controller interface {
	Play() error
	Pause() error
	Next() error
	Previous() error
	Seek(positionSecs float64) error
	SetVolume(level float64) error
	NowPlaying() NowPlaying
	Queue() QueueSnapshot

	// Suggestions generates track suggestions seeded from the current
	// queue's artists, via the local artist-similarity vector model. A
	// Controller without suggestion support may return an empty response
	// and a non-nil error instead of panicking.
	Suggestions(ctx context.Context) (SuggestionsResponse, error)
}

// sessionTTL is how long a pairing session token remains valid before the
// client must re-present its pairing secret.
const sessionTTL = 12 * time.Hour
