package suggest

import (
	"context"
	"log"

	"github.com/Alexander-D-Karpov/amp/internal/queue"
	"github.com/Alexander-D-Karpov/amp/internal/vector"
	"github.com/Alexander-D-Karpov/amp/pkg/types"
)

// sampleTracks resolves each scored candidate to a catalog author and
// takes up to Config.TracksPerArtist of its songs, skipping any track
// whose id is already in exclude (e.g. already queued or playing).
func (e *Engine) sampleTracks(ctx context.Context, scored []vector.Scored[candidateArtist], exclude map[uint64]bool) ([]*types.Song, []SimilarArtistResult) {
	var tracks []*types.Song
	similar := make([]SimilarArtistResult, 0, len(scored))

	for _, s := range scored {
		author, err := e.resolveCatalogAuthor(ctx, s.ID)
		if err != nil || author == nil {
			continue
		}

		picked := 0
		for _, song := range author.Songs {
			if song == nil || picked >= e.cfg.TracksPerArtist {
				break
			}
			if exclude[queue.TrackIDFromSlug(song.Slug)] {
				continue
			}
			tracks = append(tracks, song)
			picked++
		}

		if picked > 0 {
			similar = append(similar, SimilarArtistResult{Name: author.Name, Score: s.Score})
		} else {
			log.Printf("[SUGGEST] similar artist %q contributed no unplayed tracks", author.Name)
		}
	}

	return tracks, similar
}
