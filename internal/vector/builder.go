package vector

import (
	"context"
	"time"

	"github.com/Alexander-D-Karpov/amp/internal/relationship"
)

// SimilarArtist is one streaming-service similar-artist result: an
// external id when the streaming service's own identifier can be resolved
// to the relationship service's artist graph, or empty when it cannot.
type SimilarArtist struct {
	ExternalID string // relationship-service id, if known
	StreamID   string // streaming-service's own id, always present
	Name       string
}

// SimilarityLookup is the streaming-service collaborator this builder
// needs: up to `limit` similar artists for a streaming-service streamID.
type SimilarityLookup interface {
	TopSimilarArtists(ctx context.Context, streamID string, limit int) ([]SimilarArtist, error)
}

// RelationsLookup is the relationship-service collaborator this builder
// needs.
type RelationsLookup interface {
	GetArtistRelations(ctx context.Context, externalID string) (relationship.Relations, error)
}

// Weights configures the per-relationship-kind contribution weights.
type Weights struct {
	MemberOfBand    float32
	PastMemberScale float32 // multiplies MemberOfBand for past members
	Group           float32
	Collaboration   float32
	SimilarArtist   float32
}

// DefaultWeights mirrors the grounding source's observed defaults: groups
// and collaborators weighted below direct membership, past members scaled
// down from current members rather than merged with them.
func DefaultWeights() Weights {
	return Weights{
		MemberOfBand:    1.0,
		PastMemberScale: 0.8,
		Group:           0.6,
		Collaboration:   0.4,
		SimilarArtist:   0.3,
	}
}

// Builder materializes per-artist sparse vectors from the relationship
// service and the streaming service's similar-artists endpoint, persisting
// both contributions separately and the summed composite.
type Builder struct {
	store     *Store
	relations RelationsLookup
	similars  SimilarityLookup
	weights   Weights

	// MaxSimilarArtists bounds how many streaming-service similars are
	// folded into the vector per build.
	MaxSimilarArtists int
}

// NewBuilder constructs a Builder. similars may be nil to skip the
// streaming-service contribution entirely (used when that integration is
// disabled).
func NewBuilder(store *Store, relations RelationsLookup, similars SimilarityLookup, weights Weights) *Builder {
	return &Builder{
		store:             store,
		relations:         relations,
		similars:          similars,
		weights:           weights,
		MaxSimilarArtists: 20,
	}
}

// EnsureVector returns the composite vector for externalID, rebuilding it
// only if no fresh build exists within maxAge.
func (b *Builder) EnsureVector(ctx context.Context, externalID, streamID string, maxAge time.Duration) (*Sparse, error) {
	fresh, err := b.store.HasFreshVector(externalID, maxAge, time.Now())
	if err != nil {
		return nil, err
	}
	if fresh {
		return b.store.CompositeVector(externalID)
	}
	return b.BuildVector(ctx, externalID, streamID)
}

// BuildVector unconditionally rebuilds and persists the composite vector
// for externalID.
func (b *Builder) BuildVector(ctx context.Context, externalID, streamID string) (*Sparse, error) {
	relVec, err := b.buildRelationshipVector(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if err := b.store.SetVector(externalID, relVec, SourceRelationship); err != nil {
		return nil, err
	}

	simVec := New()
	if b.similars != nil {
		simVec, err = b.buildSimilarityVector(ctx, streamID)
		if err != nil {
			return nil, err
		}
	}
	if err := b.store.SetVector(externalID, simVec, SourceSimilarity); err != nil {
		return nil, err
	}

	if err := b.store.MarkBuilt(externalID, time.Now()); err != nil {
		return nil, err
	}

	return relVec.Add(simVec), nil
}

func (b *Builder) buildRelationshipVector(ctx context.Context, externalID string) (*Sparse, error) {
	vec := New()
	if b.relations == nil {
		return vec, nil
	}

	rel, err := b.relations.GetArtistRelations(ctx, externalID)
	if err != nil {
		return nil, err
	}

	assign := func(related relationship.RelatedArtist, weight float32) error {
		idx, err := b.store.GetOrCreateIndex(related.ExternalID, related.Name)
		if err != nil {
			return err
		}
		// A later, higher-priority relation kind for the same artist
		// should not be clobbered by an earlier, lower-priority one;
		// keep the larger magnitude.
		if existing := vec.Get(idx); abs32(existing) < abs32(weight) {
			vec.Set(idx, weight)
		}
		return nil
	}

	// Resolved per the design decision in SPEC_FULL.md §11: past members
	// are scaled down from current members, never merged with them.
	for _, m := range rel.Members {
		if err := assign(m, b.weights.MemberOfBand); err != nil {
			return nil, err
		}
	}
	for _, m := range rel.PastMembers {
		if err := assign(m, b.weights.MemberOfBand*b.weights.PastMemberScale); err != nil {
			return nil, err
		}
	}
	for _, g := range rel.Groups {
		if err := assign(g, b.weights.Group); err != nil {
			return nil, err
		}
	}
	for _, c := range rel.Collaborators {
		if err := assign(c, b.weights.Collaboration); err != nil {
			return nil, err
		}
	}

	return vec, nil
}

func (b *Builder) buildSimilarityVector(ctx context.Context, streamID string) (*Sparse, error) {
	vec := New()
	if streamID == "" {
		return vec, nil
	}

	similars, err := b.similars.TopSimilarArtists(ctx, streamID, b.MaxSimilarArtists)
	if err != nil {
		return nil, err
	}

	for _, s := range similars {
		key := s.ExternalID
		if key == "" {
			// Resolved per the design decision in SPEC_FULL.md §11: the
			// synthetic "qobuz:" key is adopted as-is, collision risk
			// included, rather than inventing an eager-resolve policy.
			key = "qobuz:" + s.StreamID
		}
		idx, err := b.store.GetOrCreateIndex(key, s.Name)
		if err != nil {
			return nil, err
		}
		vec.Set(idx, b.weights.SimilarArtist)
	}

	return vec, nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
