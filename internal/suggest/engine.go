// Package suggest builds playlist/queue track suggestions from the
// artist-similarity vector model: resolve a playlist's source artists
// into the relationship-service graph, compose their vectors into a
// single query, score the indexed candidate pool against it, and sample
// tracks from the highest-scoring similar artists.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander-D-Karpov/amp/internal/relationship"
	"github.com/Alexander-D-Karpov/amp/internal/vector"
	"github.com/Alexander-D-Karpov/amp/pkg/types"
)

// ArtistResolver resolves a catalog artist name to the relationship
// service's external id, the way internal/relationship's Client does.
type ArtistResolver interface {
	SearchArtistByName(ctx context.Context, name string) (string, relationship.Confidence, error)
}

// Catalog is the local streaming catalog lookups this package needs,
// implemented by internal/api.Client.
type Catalog interface {
	GetAuthor(ctx context.Context, slug string) (*types.Author, error)
	GetAuthors(ctx context.Context, page int, search string) (*types.AuthorListResponse, error)
}

// Config tunes suggestion generation.
type Config struct {
	MaxArtists      int           // similar artists to pull tracks from
	TracksPerArtist int           // track sample size per similar artist
	MaxPoolSize     int           // candidate artists scored before truncation
	MinConfidence   relationship.Confidence
	MaxVectorAge    time.Duration
}

// DefaultConfig mirrors the grounding source's observed defaults.
func DefaultConfig() Config {
	return Config{
		MaxArtists:      10,
		TracksPerArtist: 3,
		MaxPoolSize:     500,
		MinConfidence:   relationship.ConfidenceMedium,
		MaxVectorAge:    30 * 24 * time.Hour,
	}
}

// SourceArtist is one playlist artist to seed suggestions from.
type SourceArtist struct {
	Name string
	Slug string // catalog slug, used directly as the vector streamID
}

// SimilarArtistResult is one similar artist that contributed tracks,
// exposed for an optional "because you're playing X" UI reason.
type SimilarArtistResult struct {
	Name  string
	Score float32
}

// Result is the generated suggestion set.
type Result struct {
	Tracks              []*types.Song
	SourceArtistsCount  int
	SimilarArtistsCount int
	SimilarArtists      []SimilarArtistResult
}

// Engine generates suggestions from the shared vector store and builder.
type Engine struct {
	store    *vector.Store
	builder  *vector.Builder
	resolver ArtistResolver
	catalog  Catalog
	cfg      Config
}

// New constructs an Engine.
func New(store *vector.Store, builder *vector.Builder, resolver ArtistResolver, catalog Catalog, cfg Config) *Engine {
	return &Engine{store: store, builder: builder, resolver: resolver, catalog: catalog, cfg: cfg}
}

// Generate resolves sourceArtists to the relationship graph, composes
// their vectors, scores the candidate pool, and samples tracks from the
// top MaxArtists similar artists, skipping any track id in exclude.
func (e *Engine) Generate(ctx context.Context, sourceArtists []SourceArtist, exclude map[uint64]bool) (Result, error) {
	resolved, err := e.resolveSourceArtists(ctx, sourceArtists)
	if err != nil {
		return Result{}, err
	}
	if len(resolved) == 0 {
		return Result{SourceArtistsCount: len(sourceArtists)}, nil
	}

	query, err := e.composeQueryVector(ctx, resolved)
	if err != nil {
		return Result{}, err
	}
	if query.IsEmpty() {
		return Result{SourceArtistsCount: len(sourceArtists)}, nil
	}

	sourceIDs := make([]string, len(resolved))
	for i, r := range resolved {
		sourceIDs[i] = r.externalID
	}

	top, err := e.scoreCandidatePool(query, sourceIDs)
	if err != nil {
		return Result{}, err
	}

	tracks, similar := e.sampleTracks(ctx, top, exclude)

	return Result{
		Tracks:              tracks,
		SourceArtistsCount:  len(sourceArtists),
		SimilarArtistsCount: len(top),
		SimilarArtists:      similar,
	}, nil
}

// resolvedSource pairs a resolved relationship external id with the
// source artist's own catalog slug, so composeQueryVector can still pull
// the streaming-service similar-artists contribution for it.
type resolvedSource struct {
	externalID string
	slug       string
}

// resolveSourceArtists maps each playlist artist name to a relationship
// external id, filtering out anything below Config.MinConfidence.
func (e *Engine) resolveSourceArtists(ctx context.Context, artists []SourceArtist) ([]resolvedSource, error) {
	resolved := make([]resolvedSource, 0, len(artists))
	for _, a := range artists {
		externalID, confidence, err := e.resolver.SearchArtistByName(ctx, a.Name)
		if err != nil || confidence < e.cfg.MinConfidence || externalID == "" {
			continue
		}
		resolved = append(resolved, resolvedSource{externalID: externalID, slug: a.Slug})
	}
	return resolved, nil
}

// composeQueryVector ensures each source artist has a fresh vector and
// sums them into a single query.
func (e *Engine) composeQueryVector(ctx context.Context, sources []resolvedSource) (*vector.Sparse, error) {
	query := vector.New()
	for _, src := range sources {
		vec, err := e.builder.EnsureVector(ctx, src.externalID, src.slug, e.cfg.MaxVectorAge)
		if err != nil {
			continue
		}
		query = query.Add(vec)
	}
	return query, nil
}

// scoreCandidatePool ranks candidates by the weight the composed query
// vector already assigns to each artist's own dimension: a source
// artist's composite vector sets nonzero weight at every member/group/
// collaborator/similar-artist dimension it has, so those dimensions are
// exactly the candidate pool, pre-scored by relationship strength. A
// self-similarity candidate (TopKSimilar against a one-hot vector of its
// own dimension) reuses the same cosine machinery the vector package
// already provides for composite-vector comparisons elsewhere.
func (e *Engine) scoreCandidatePool(query *vector.Sparse, sourceIDs []string) ([]vector.Scored[candidateArtist], error) {
	excludeIdx := make(map[uint32]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		if idx, ok, err := e.store.ResolveIndex(id); err == nil && ok {
			excludeIdx[idx] = true
		}
	}

	candidates := make([]vector.Candidate[candidateArtist], 0, query.Len())
	for i, idx := range query.Indices {
		if excludeIdx[idx] || query.Values[i] <= 0 {
			continue
		}
		artist, ok, err := e.store.ResolveExternalID(idx)
		if err != nil || !ok {
			continue
		}
		one := vector.New()
		one.Set(idx, 1)
		candidates = append(candidates, vector.Candidate[candidateArtist]{
			ID:     candidateArtist{ExternalID: artist.ExternalID, Name: artist.Name},
			Vector: one,
		})
	}
	if len(candidates) > e.cfg.MaxPoolSize {
		candidates = candidates[:e.cfg.MaxPoolSize]
	}

	return vector.TopKSimilar(query, candidates, e.cfg.MaxArtists), nil
}

type candidateArtist struct {
	ExternalID string
	Name       string
}

// resolveCatalogAuthor maps a scored candidate back to a catalog author:
// a synthetic "qobuz:<slug>" external id names the catalog slug directly,
// otherwise the candidate's display name is looked up by catalog search.
func (e *Engine) resolveCatalogAuthor(ctx context.Context, c candidateArtist) (*types.Author, error) {
	const syntheticPrefix = "qobuz:"
	if strings.HasPrefix(c.ExternalID, syntheticPrefix) {
		return e.catalog.GetAuthor(ctx, strings.TrimPrefix(c.ExternalID, syntheticPrefix))
	}

	resp, err := e.catalog.GetAuthors(ctx, 1, c.Name)
	if err != nil {
		return nil, err
	}
	for _, author := range resp.Results {
		if strings.EqualFold(author.Name, c.Name) {
			return author, nil
		}
	}
	if len(resp.Results) > 0 {
		return resp.Results[0], nil
	}
	return nil, fmt.Errorf("no catalog match for artist %q", c.Name)
}
