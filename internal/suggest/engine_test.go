package suggest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alexander-D-Karpov/amp/internal/queue"
	"github.com/Alexander-D-Karpov/amp/internal/relationship"
	"github.com/Alexander-D-Karpov/amp/internal/vector"
	"github.com/Alexander-D-Karpov/amp/pkg/types"
)

type fakeResolver struct {
	idByName map[string]string
	conf     relationship.Confidence
}

func (f *fakeResolver) SearchArtistByName(ctx context.Context, name string) (string, relationship.Confidence, error) {
	id, ok := f.idByName[name]
	if !ok {
		return "", relationship.ConfidenceNone, nil
	}
	return id, f.conf, nil
}

type fakeRelations struct {
	relationsByID map[string]relationship.Relations
}

func (f *fakeRelations) GetArtistRelations(ctx context.Context, externalID string) (relationship.Relations, error) {
	return f.relationsByID[externalID], nil
}

type fakeSimilars struct {
	byStreamID map[string][]vector.SimilarArtist
}

func (f *fakeSimilars) TopSimilarArtists(ctx context.Context, streamID string, limit int) ([]vector.SimilarArtist, error) {
	return f.byStreamID[streamID], nil
}

type fakeCatalog struct {
	bySlug map[string]*types.Author
	byName map[string][]*types.Author
}

func (f *fakeCatalog) GetAuthor(ctx context.Context, slug string) (*types.Author, error) {
	return f.bySlug[slug], nil
}

func (f *fakeCatalog) GetAuthors(ctx context.Context, page int, search string) (*types.AuthorListResponse, error) {
	return &types.AuthorListResponse{Results: f.byName[search]}, nil
}

func newTestStore(t *testing.T) *vector.Store {
	t.Helper()
	store, err := vector.Open(filepath.Join(t.TempDir(), "vectors.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGenerateReturnsEmptyWhenNoArtistsResolve(t *testing.T) {
	store := newTestStore(t)
	builder := vector.NewBuilder(store, &fakeRelations{}, nil, vector.DefaultWeights())
	resolver := &fakeResolver{idByName: map[string]string{}}
	catalog := &fakeCatalog{}

	engine := New(store, builder, resolver, catalog, DefaultConfig())
	result, err := engine.Generate(context.Background(), []SourceArtist{{Name: "Unknown Band"}}, nil)

	require.NoError(t, err)
	require.Empty(t, result.Tracks)
	require.Equal(t, 1, result.SourceArtistsCount)
}

func TestGenerateSamplesTracksFromSimilarArtist(t *testing.T) {
	store := newTestStore(t)

	sourceRelations := relationship.Relations{
		Members: []relationship.RelatedArtist{{ExternalID: "mbid-similar", Name: "Similar Artist"}},
	}
	relations := &fakeRelations{relationsByID: map[string]relationship.Relations{
		"mbid-source": sourceRelations,
	}}
	builder := vector.NewBuilder(store, relations, nil, vector.DefaultWeights())
	resolver := &fakeResolver{
		idByName: map[string]string{"Source Artist": "mbid-source"},
		conf:     relationship.ConfidenceHigh,
	}

	similarAuthor := &types.Author{
		Slug: "similar-artist",
		Name: "Similar Artist",
		Songs: []*types.Song{
			{Slug: "song-one", Name: "Song One"},
			{Slug: "song-two", Name: "Song Two"},
		},
	}
	catalog := &fakeCatalog{
		byName: map[string][]*types.Author{"Similar Artist": {similarAuthor}},
	}

	engine := New(store, builder, resolver, catalog, DefaultConfig())
	result, err := engine.Generate(context.Background(), []SourceArtist{{Name: "Source Artist"}}, nil)

	require.NoError(t, err)
	require.NotEmpty(t, result.Tracks)
	require.Equal(t, 1, result.SimilarArtistsCount)
	require.Len(t, result.SimilarArtists, 1)
	require.Equal(t, "Similar Artist", result.SimilarArtists[0].Name)
}

func TestGenerateUsesSourceSlugAsSimilarityStreamID(t *testing.T) {
	store := newTestStore(t)

	relations := &fakeRelations{}
	similars := &fakeSimilars{byStreamID: map[string][]vector.SimilarArtist{
		"source-artist": {{StreamID: "similar-artist", Name: "Similar Artist"}},
	}}
	builder := vector.NewBuilder(store, relations, similars, vector.DefaultWeights())
	resolver := &fakeResolver{
		idByName: map[string]string{"Source Artist": "mbid-source"},
		conf:     relationship.ConfidenceHigh,
	}

	similarAuthor := &types.Author{
		Slug: "similar-artist",
		Name: "Similar Artist",
		Songs: []*types.Song{
			{Slug: "song-one", Name: "Song One"},
		},
	}
	catalog := &fakeCatalog{
		bySlug: map[string]*types.Author{"similar-artist": similarAuthor},
	}

	engine := New(store, builder, resolver, catalog, DefaultConfig())
	result, err := engine.Generate(context.Background(), []SourceArtist{{Name: "Source Artist", Slug: "source-artist"}}, nil)

	require.NoError(t, err)
	require.NotEmpty(t, result.Tracks)
	require.Len(t, result.SimilarArtists, 1)
	require.Equal(t, "Similar Artist", result.SimilarArtists[0].Name)
}

func TestGenerateRespectsExcludeSet(t *testing.T) {
	store := newTestStore(t)

	relations := &fakeRelations{relationsByID: map[string]relationship.Relations{
		"mbid-source": {
			Members: []relationship.RelatedArtist{{ExternalID: "mbid-similar", Name: "Similar Artist"}},
		},
	}}
	builder := vector.NewBuilder(store, relations, nil, vector.DefaultWeights())
	resolver := &fakeResolver{
		idByName: map[string]string{"Source Artist": "mbid-source"},
		conf:     relationship.ConfidenceHigh,
	}

	song := &types.Song{Slug: "song-one", Name: "Song One"}
	similarAuthor := &types.Author{Slug: "similar-artist", Name: "Similar Artist", Songs: []*types.Song{song}}
	catalog := &fakeCatalog{byName: map[string][]*types.Author{"Similar Artist": {similarAuthor}}}

	engine := New(store, builder, resolver, catalog, DefaultConfig())
	exclude := map[uint64]bool{queue.TrackIDFromSlug(song.Slug): true}

	result, err := engine.Generate(context.Background(), []SourceArtist{{Name: "Source Artist"}}, exclude)

	require.NoError(t, err)
	require.Empty(t, result.Tracks)
}
