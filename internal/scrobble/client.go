package scrobble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Alexander-D-Karpov/amp/internal/apierr"
)

// ListenType distinguishes a transient now-playing notice from a
// durable scrobble submission.
type ListenType string

const (
	ListenTypePlayingNow ListenType = "playing_now"
	ListenTypeSingle     ListenType = "single"
)

// AdditionalInfo self-identifies this client to the submission API, per
// ListenBrainz convention, alongside optional MusicBrainz identifiers for
// stronger server-side matching.
type AdditionalInfo struct {
	MediaPlayer            string   `json:"media_player,omitempty"`
	MediaPlayerVersion      string   `json:"media_player_version,omitempty"`
	SubmissionClient        string   `json:"submission_client,omitempty"`
	SubmissionClientVersion string   `json:"submission_client_version,omitempty"`
	RecordingMBID           string   `json:"recording_mbid,omitempty"`
	ReleaseMBID             string   `json:"release_mbid,omitempty"`
	ArtistMBIDs             []string `json:"artist_mbids,omitempty"`
	ISRC                    string   `json:"isrc,omitempty"`
	DurationMs              uint64   `json:"duration_ms,omitempty"`
}

type trackMetadata struct {
	ArtistName     string          `json:"artist_name"`
	TrackName      string          `json:"track_name"`
	ReleaseName    string          `json:"release_name,omitempty"`
	AdditionalInfo *AdditionalInfo `json:"additional_info,omitempty"`
}

type listen struct {
	ListenedAt    *int64        `json:"listened_at,omitempty"`
	TrackMetadata trackMetadata `json:"track_metadata"`
}

type submitListensPayload struct {
	ListenType ListenType `json:"listen_type"`
	Payload    []listen   `json:"payload"`
}

const clientName = "amp"

// ClientVersion is stamped into every submission's additional_info.
var ClientVersion = "1.0.0"

// Config configures the submission client.
type Config struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns the client's default configuration.
func DefaultConfig() Config {
	return Config{Enabled: false, BaseURL: "https://api.listenbrainz.org/1", Timeout: 10 * time.Second}
}

// Client submits now-playing notices and scrobbles to a ListenBrainz-
// compatible API using a per-user token.
type Client struct {
	http *retryablehttp.Client
	cfg  Config
}

// New constructs a Client.
func New(cfg Config) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.Logger = nil
	httpClient.HTTPClient.Timeout = cfg.Timeout

	return &Client{http: httpClient, cfg: cfg}
}

type tokenValidationResponse struct {
	Valid    bool   `json:"valid"`
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

// ValidateToken checks a user token against the submission API and
// returns the associated username.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/validate-token", nil)
	if err != nil {
		return "", fmt.Errorf("%w: build validate-token request: %v", apierr.ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apierr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token validation status %d: %s", apierr.ErrValidation, resp.StatusCode, body)
	}

	var out tokenValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode validation response: %v", apierr.ErrDecode, err)
	}
	if !out.Valid {
		return "", fmt.Errorf("%w: %s", apierr.ErrValidation, out.Message)
	}
	return out.UserName, nil
}

// SubmitPlayingNow sends a transient now-playing notice. Returns nil
// without making a request when the client is disabled, matching the
// silent-skip behavior callers depend on for an optional integration.
func (c *Client) SubmitPlayingNow(ctx context.Context, token, artist, track, release string, info AdditionalInfo) error {
	if !c.cfg.Enabled {
		return nil
	}
	c.stampIdentity(&info)
	payload := submitListensPayload{
		ListenType: ListenTypePlayingNow,
		Payload: []listen{{
			TrackMetadata: trackMetadata{ArtistName: artist, TrackName: track, ReleaseName: release, AdditionalInfo: &info},
		}},
	}
	return c.submit(ctx, token, payload)
}

// SubmitListen sends a durable scrobble at the given listened-at
// timestamp (unix seconds). Like SubmitPlayingNow, it returns nil
// without making a request when the client is disabled.
func (c *Client) SubmitListen(ctx context.Context, token, artist, track, release string, listenedAt int64, info AdditionalInfo) error {
	if !c.cfg.Enabled {
		return nil
	}
	c.stampIdentity(&info)
	ts := listenedAt
	payload := submitListensPayload{
		ListenType: ListenTypeSingle,
		Payload: []listen{{
			ListenedAt:    &ts,
			TrackMetadata: trackMetadata{ArtistName: artist, TrackName: track, ReleaseName: release, AdditionalInfo: &info},
		}},
	}
	return c.submit(ctx, token, payload)
}

func (c *Client) stampIdentity(info *AdditionalInfo) {
	info.MediaPlayer = clientName
	info.MediaPlayerVersion = ClientVersion
	info.SubmissionClient = clientName
	info.SubmissionClientVersion = ClientVersion
}

func (c *Client) submit(ctx context.Context, token string, payload submitListensPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal submission: %v", apierr.ErrValidation, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/submit-listens", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build submission request: %v", apierr.ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: submission status %d: %s", apierr.ErrNetwork, resp.StatusCode, respBody)
	}
	return nil
}
