// Package relationship implements the external relationship-service client:
// artist relations, ISRC/barcode/name lookup, a minimum-interval rate
// limiter, and a per-user TTL cache, grounded on the teacher's
// retryablehttp-based api.Client and modeled on the MusicBrainz wire shape.
package relationship

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/Alexander-D-Karpov/amp/internal/apierr"
)

const (
	proxyBaseURL  = "https://relationship-proxy.example.invalid/musicbrainz"
	directBaseURL = "https://musicbrainz.org/ws/2"

	// minInterval is the minimum spacing between any two outbound
	// requests, slightly over the service's documented 1 request/sec
	// limit for safety.
	minInterval = 1100 * time.Millisecond
)

// Confidence is the discrete label derived from a numeric match score.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceExact
)

// ConfidenceFromScore maps a 0-100 match score to a Confidence label.
func ConfidenceFromScore(score int) Confidence {
	switch {
	case score >= 100:
		return ConfidenceExact
	case score >= 95:
		return ConfidenceHigh
	case score >= 80:
		return ConfidenceMedium
	case score >= 60:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// RelatedArtist is one artist related to another via the relationship
// service's artist-relations inclusion.
type RelatedArtist struct {
	ExternalID string
	Name       string
}

// Relations holds an artist's parsed member/group/collaborator graph.
type Relations struct {
	Members       []RelatedArtist
	PastMembers   []RelatedArtist
	Groups        []RelatedArtist
	Collaborators []RelatedArtist
}

// Config configures the relationship-service client.
type Config struct {
	Enabled  bool
	UseProxy bool
	Timeout  time.Duration
}

// DefaultConfig returns the client's default configuration.
func DefaultConfig() Config {
	return Config{Enabled: true, UseProxy: true, Timeout: 10 * time.Second}
}

// Client is the relationship-service HTTP client: a single shared rate
// limiter enforcing minInterval between requests, backed by
// retryablehttp the same way the teacher's streaming-service client is.
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	cfg     Config
	cache   *Cache
}

// New constructs a Client. cache may be nil to disable persistent caching.
func New(cfg Config, cache *Cache) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.Logger = nil
	httpClient.HTTPClient.Timeout = cfg.Timeout

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		cfg:     cfg,
		cache:   cache,
	}
}

func (c *Client) baseURL() string {
	if c.cfg.UseProxy {
		return proxyBaseURL
	}
	return directBaseURL
}

var reservedChars = regexp.MustCompile(`['".,]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeName lowercases, trims, strips reserved punctuation, and
// collapses internal whitespace, for use as a cache key.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = reservedChars.ReplaceAllString(n, "")
	n = whitespaceRun.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	if !c.cfg.Enabled {
		return fmt.Errorf("%w: relationship service disabled", apierr.ErrValidation)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter wait: %v", apierr.ErrNetwork, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", apierr.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", "amp/1.0 (+relationship-client)")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: relationship service status %d", apierr.ErrNetwork, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apierr.ErrNetwork, err)
	}
	return nil
}

type recordingSearchResponse struct {
	Recordings []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Score int    `json:"score"`
	} `json:"recordings"`
}

// SearchRecordingByISRC looks up a recording by ISRC, consulting the cache
// first when attached.
func (c *Client) SearchRecordingByISRC(ctx context.Context, isrc string) (string, Confidence, error) {
	key := "isrc:" + isrc
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(KindRecording, key, recordingTTL); err == nil && ok {
			var resp recordingSearchResponse
			if jsonErr := json.Unmarshal([]byte(cached), &resp); jsonErr == nil && len(resp.Recordings) > 0 {
				return resp.Recordings[0].ID, ConfidenceFromScore(resp.Recordings[0].Score), nil
			}
		}
	}

	path := fmt.Sprintf("/recording?query=isrc:%s&fmt=json&limit=5", url.QueryEscape(isrc))
	var resp recordingSearchResponse
	if err := c.do(ctx, path, &resp); err != nil {
		return "", ConfidenceNone, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = c.cache.Put(KindRecording, key, string(raw))
		}
	}

	if len(resp.Recordings) == 0 {
		return "", ConfidenceNone, nil
	}
	best := resp.Recordings[0]
	return best.ID, ConfidenceFromScore(best.Score), nil
}

type artistSearchResponse struct {
	Artists []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Score int    `json:"score"`
	} `json:"artists"`
}

// SearchArtistByName resolves an artist name to an external id and
// confidence, consulting the cache first when attached.
func (c *Client) SearchArtistByName(ctx context.Context, name string) (string, Confidence, error) {
	key := NormalizeName(name)
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(KindArtist, key, artistTTL); err == nil && ok {
			var resp artistSearchResponse
			if jsonErr := json.Unmarshal([]byte(cached), &resp); jsonErr == nil && len(resp.Artists) > 0 {
				return resp.Artists[0].ID, ConfidenceFromScore(resp.Artists[0].Score), nil
			}
		}
	}

	path := fmt.Sprintf("/artist?query=artist:%%22%s%%22&fmt=json&limit=5", url.QueryEscape(name))
	var resp artistSearchResponse
	if err := c.do(ctx, path, &resp); err != nil {
		return "", ConfidenceNone, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = c.cache.Put(KindArtist, key, string(raw))
		}
	}

	if len(resp.Artists) == 0 {
		return "", ConfidenceNone, nil
	}
	best := resp.Artists[0]
	return best.ID, ConfidenceFromScore(best.Score), nil
}

type releaseSearchResponse struct {
	Releases []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Score int    `json:"score"`
	} `json:"releases"`
}

// SearchReleaseByBarcode looks up a release by UPC/EAN barcode.
func (c *Client) SearchReleaseByBarcode(ctx context.Context, barcode string) (string, Confidence, error) {
	key := "barcode:" + barcode
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(KindRelease, key, releaseTTL); err == nil && ok {
			var resp releaseSearchResponse
			if jsonErr := json.Unmarshal([]byte(cached), &resp); jsonErr == nil && len(resp.Releases) > 0 {
				return resp.Releases[0].ID, ConfidenceFromScore(resp.Releases[0].Score), nil
			}
		}
	}

	path := fmt.Sprintf("/release?query=barcode:%s&fmt=json&limit=5", url.QueryEscape(barcode))
	var resp releaseSearchResponse
	if err := c.do(ctx, path, &resp); err != nil {
		return "", ConfidenceNone, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = c.cache.Put(KindRelease, key, string(raw))
		}
	}

	if len(resp.Releases) == 0 {
		return "", ConfidenceNone, nil
	}
	best := resp.Releases[0]
	return best.ID, ConfidenceFromScore(best.Score), nil
}

type relationEntry struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Ended     bool   `json:"ended"`
	Artist    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

type artistRelationsResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Relations []relationEntry `json:"relations"`
}

// GetArtistRelations fetches and parses an artist's relationship graph,
// splitting related artists into members/past-members/groups/collaborators
// by relation type and direction exactly as the grounding source's
// extract_relationships does.
func (c *Client) GetArtistRelations(ctx context.Context, externalID string) (Relations, error) {
	key := "relations:" + externalID
	var raw string
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(KindArtistRelations, key, artistRelationsTTL); err == nil && ok {
			raw = cached
		}
	}

	var resp artistRelationsResponse
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			raw = ""
		}
	}
	if raw == "" {
		path := fmt.Sprintf("/artist/%s?inc=artist-rels&fmt=json", url.PathEscape(externalID))
		if err := c.do(ctx, path, &resp); err != nil {
			return Relations{}, err
		}
		if c.cache != nil {
			if marshalled, err := json.Marshal(resp); err == nil {
				_ = c.cache.Put(KindArtistRelations, key, string(marshalled))
			}
		}
	}

	return parseRelations(resp), nil
}

func parseRelations(resp artistRelationsResponse) Relations {
	var rel Relations
	for _, r := range resp.Relations {
		related := RelatedArtist{ExternalID: r.Artist.ID, Name: r.Artist.Name}
		switch r.Type {
		case "member of band":
			if r.Direction == "backward" {
				if r.Ended {
					rel.PastMembers = append(rel.PastMembers, related)
				} else {
					rel.Members = append(rel.Members, related)
				}
			} else {
				rel.Groups = append(rel.Groups, related)
			}
		case "collaboration":
			rel.Collaborators = append(rel.Collaborators, related)
		}
	}
	return rel
}
