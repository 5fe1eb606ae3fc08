package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Alexander-D-Karpov/amp/internal/queue"
	"github.com/Alexander-D-Karpov/amp/internal/remote"
	"github.com/Alexander-D-Karpov/amp/internal/suggest"
)

const remoteShutdownTimeout = 3 * time.Second

// appController adapts the running App to remote.Controller, so a paired
// phone or desktop companion can drive the same player and queue state
// the window's player bar drives, without the remote package needing to
// know about fyne or App's internal state layout.
type appController struct {
	app *App
}

func (c *appController) Play() error {
	if c.app.core.player.IsPlaying() {
		return nil
	}
	if c.app.core.player.GetCurrentSong() != nil {
		return c.app.core.player.Resume()
	}
	return c.playIndex(c.app.state.currentIndex)
}

func (c *appController) Pause() error {
	return c.app.core.player.Pause()
}

func (c *appController) Next() error {
	return c.playIndex(c.app.state.currentIndex + 1)
}

func (c *appController) Previous() error {
	if c.app.core.player.GetPosition().Seconds() > 3 {
		return c.app.core.player.Seek(0)
	}
	return c.playIndex(c.app.state.currentIndex - 1)
}

func (c *appController) Seek(positionSecs float64) error {
	return c.app.core.player.Seek(time.Duration(positionSecs * float64(time.Second)))
}

func (c *appController) SetVolume(level float64) error {
	return c.app.core.player.SetVolume(level)
}

func (c *appController) playIndex(index int) error {
	if index < 0 || index >= len(c.app.state.currentQueue) {
		return nil
	}
	song := c.app.state.currentQueue[index]
	c.app.state.currentIndex = index
	return c.app.core.player.Play(c.app.ctx, song)
}

func (c *appController) NowPlaying() remote.NowPlaying {
	song := c.app.core.player.GetCurrentSong()
	if song == nil {
		return remote.NowPlaying{Volume: c.app.cfg.Audio.DefaultVolume}
	}

	np := remote.NowPlaying{
		TrackID:      queue.TrackIDFromSlug(song.Slug),
		Title:        song.Name,
		Artist:       getArtistNames(song.Authors),
		PositionSecs: c.app.core.player.GetPosition().Seconds(),
		DurationSecs: c.app.core.player.GetDuration().Seconds(),
		Playing:      c.app.core.player.IsPlaying(),
		Volume:       c.app.cfg.Audio.DefaultVolume,
	}
	if song.Album != nil {
		np.Album = song.Album.Name
	}
	return np
}

func (c *appController) Queue() remote.QueueSnapshot {
	tracks := make([]remote.QueueTrack, len(c.app.state.currentQueue))
	for i, song := range c.app.state.currentQueue {
		tracks[i] = remote.QueueTrack{
			ID:           queue.TrackIDFromSlug(song.Slug),
			Title:        song.Name,
			Artist:       getArtistNames(song.Authors),
			DurationSecs: uint64(song.Length),
		}
		if song.Album != nil {
			tracks[i].Album = song.Album.Name
		}
	}
	return remote.QueueSnapshot{Tracks: tracks, CurrentIndex: c.app.state.currentIndex}
}

// Suggestions seeds the suggestion engine from the current queue's
// distinct artists, excluding tracks already queued, so a paired client
// can ask "more like this" for whatever is currently playing.
func (c *appController) Suggestions(ctx context.Context) (remote.SuggestionsResponse, error) {
	if c.app.core.suggestEngine == nil {
		return remote.SuggestionsResponse{}, fmt.Errorf("suggestion engine not available")
	}

	seen := make(map[string]bool)
	var sources []suggest.SourceArtist
	exclude := make(map[uint64]bool, len(c.app.state.currentQueue))
	for _, song := range c.app.state.currentQueue {
		exclude[queue.TrackIDFromSlug(song.Slug)] = true
		for _, author := range song.Authors {
			if author == nil || seen[author.Slug] {
				continue
			}
			seen[author.Slug] = true
			sources = append(sources, suggest.SourceArtist{Name: author.Name, Slug: author.Slug})
		}
	}

	result, err := c.app.core.suggestEngine.Generate(ctx, sources, exclude)
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

// setupRemoteControl starts the embedded remote-control server when
// enabled in configuration. A missing pairing secret hash leaves pairing
// permanently rejecting, matching remote.NewServer's documented behavior.
func (a *App) setupRemoteControl() {
	if !a.cfg.Remote.Enabled {
		return
	}
	a.remoteServer = remote.NewServer(a.cfg.Remote.Port, a.cfg.Remote.PairingSecretHash, &appController{app: a}, a.cfg.Debug)
	a.remoteServer.Start()
}

func (a *App) stopRemoteControl() {
	if a.remoteServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteShutdownTimeout)
	defer cancel()
	if err := a.remoteServer.Shutdown(ctx); err != nil {
		log.Printf("[APP] remote server shutdown: %v", err)
	}
}
