package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/Alexander-D-Karpov/amp/internal/queue"
	"github.com/Alexander-D-Karpov/amp/internal/remote"
	"github.com/Alexander-D-Karpov/amp/internal/suggest"
	"github.com/Alexander-D-Karpov/amp/pkg/types"
)

// controller adapts App to remote.Controller atop queue.Context, the
// lightweight session-state type the Fyne front end leaves unused in
// favor of its own AppState - here it is the queue of record, since
// nothing else in this process needs a richer representation.
type controller struct {
	app *App
}

func (c *controller) currentSong() (*types.Song, bool) {
	c.app.mu.Lock()
	defer c.app.mu.Unlock()
	track, ok := c.app.q.Current()
	if !ok {
		return nil, false
	}
	s, ok := c.app.songByID[track.ID]
	if !ok {
		return nil, false
	}
	return s, true
}

func (c *controller) Play() error {
	if c.app.player.IsPlaying() {
		return nil
	}
	if c.app.player.GetCurrentSong() != nil {
		return c.app.player.Resume()
	}
	return c.playCurrent()
}

func (c *controller) Pause() error {
	return c.app.player.Pause()
}

func (c *controller) Next() error {
	c.app.mu.Lock()
	c.app.q.Advance()
	c.app.mu.Unlock()
	return c.playCurrent()
}

func (c *controller) Previous() error {
	if c.app.player.GetPosition().Seconds() > 3 {
		return c.app.player.Seek(0)
	}
	c.app.mu.Lock()
	c.app.q.SeekTo(c.app.q.CurrentIndex - 1)
	c.app.mu.Unlock()
	return c.playCurrent()
}

func (c *controller) playCurrent() error {
	s, ok := c.currentSong()
	if !ok {
		return nil
	}
	return c.app.player.Play(c.app.ctx, s)
}

func (c *controller) Seek(positionSecs float64) error {
	return c.app.player.Seek(time.Duration(positionSecs * float64(time.Second)))
}

func (c *controller) SetVolume(level float64) error {
	c.app.mu.Lock()
	c.app.q.Volume = float32(level)
	c.app.mu.Unlock()
	return c.app.player.SetVolume(level)
}

func (c *controller) NowPlaying() remote.NowPlaying {
	cfgVolume := float64(c.app.q.Volume)
	song := c.app.player.GetCurrentSong()
	if song == nil {
		return remote.NowPlaying{Volume: cfgVolume}
	}

	np := remote.NowPlaying{
		TrackID:      queue.TrackIDFromSlug(song.Slug),
		Title:        song.Name,
		Artist:       getArtistNames(song.Authors),
		PositionSecs: c.app.player.GetPosition().Seconds(),
		DurationSecs: c.app.player.GetDuration().Seconds(),
		Playing:      c.app.player.IsPlaying(),
		Volume:       cfgVolume,
	}
	if song.Album != nil {
		np.Album = song.Album.Name
	}
	return np
}

func (c *controller) Queue() remote.QueueSnapshot {
	c.app.mu.Lock()
	defer c.app.mu.Unlock()

	tracks := make([]remote.QueueTrack, len(c.app.q.Tracks))
	for i, t := range c.app.q.Tracks {
		tracks[i] = remote.QueueTrack{
			ID:           t.ID,
			Title:        t.Title,
			Artist:       t.Artist,
			Album:        t.Album,
			DurationSecs: t.DurationSecs,
		}
	}
	return remote.QueueSnapshot{Tracks: tracks, CurrentIndex: c.app.q.CurrentIndex}
}

// Suggestions seeds the suggestion engine from the queue's distinct
// artists, the same way the Fyne front end's appController.Suggestions
// does, just reading queue.Context instead of AppState.currentQueue.
func (c *controller) Suggestions(ctx context.Context) (remote.SuggestionsResponse, error) {
	if c.app.suggestEngine == nil {
		return remote.SuggestionsResponse{}, fmt.Errorf("suggestion engine not available")
	}

	c.app.mu.Lock()
	seen := make(map[string]bool)
	var sources []suggest.SourceArtist
	exclude := make(map[uint64]bool, len(c.app.q.Tracks))
	for _, t := range c.app.q.Tracks {
		exclude[t.ID] = true
		s, ok := c.app.songByID[t.ID]
		if !ok {
			continue
		}
		for _, author := range s.Authors {
			if author == nil || seen[author.Slug] {
				continue
			}
			seen[author.Slug] = true
			sources = append(sources, suggest.SourceArtist{Name: author.Name, Slug: author.Slug})
		}
	}
	c.app.mu.Unlock()

	result, err := c.app.suggestEngine.Generate(ctx, sources, exclude)
	if err != nil {
		return remote.SuggestionsResponse{}, fmt.Errorf("generate suggestions: %w", err)
	}

	scoreByArtist := make(map[string]float32, len(result.SimilarArtists))
	for _, similar := range result.SimilarArtists {
		scoreByArtist[similar.Name] = similar.Score
	}

	resp := remote.SuggestionsResponse{SourceArtistsCount: result.SourceArtistsCount}
	for _, track := range result.Tracks {
		t := remote.SuggestedTrack{Slug: track.Slug, Title: track.Name}
		for _, author := range track.Authors {
			if author == nil {
				continue
			}
			if score, ok := scoreByArtist[author.Name]; ok {
				t.SimilarArtistName = author.Name
				t.SimilarArtistScore = score
				break
			}
		}
		resp.Tracks = append(resp.Tracks, t)
	}
	return resp, nil
}
