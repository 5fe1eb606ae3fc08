// Package headless wires the same per-user core (storage, player,
// suggestion stack, scrobble stack, remote control) that the desktop and
// mobile Fyne front ends use, for a server-style process that has no
// window at all: a LAN speaker, a CI box exercising playback, or a
// companion app's sole backend.
package headless

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Alexander-D-Karpov/amp/internal/api"
	"github.com/Alexander-D-Karpov/amp/internal/audio"
	"github.com/Alexander-D-Karpov/amp/internal/config"
	"github.com/Alexander-D-Karpov/amp/internal/download"
	"github.com/Alexander-D-Karpov/amp/internal/queue"
	"github.com/Alexander-D-Karpov/amp/internal/relationship"
	"github.com/Alexander-D-Karpov/amp/internal/remote"
	"github.com/Alexander-D-Karpov/amp/internal/scrobble"
	"github.com/Alexander-D-Karpov/amp/internal/search"
	"github.com/Alexander-D-Karpov/amp/internal/services"
	"github.com/Alexander-D-Karpov/amp/internal/storage"
	"github.com/Alexander-D-Karpov/amp/internal/suggest"
	"github.com/Alexander-D-Karpov/amp/internal/ui"
	"github.com/Alexander-D-Karpov/amp/internal/user"
	"github.com/Alexander-D-Karpov/amp/pkg/types"
)

const remoteShutdownTimeout = 3 * time.Second

// App is the headless equivalent of ui.App: the same signed-in-user core
// wiring, driving a queue.Context instead of a player bar and exposing
// control exclusively through the embedded remote-control server.
type App struct {
	ctx context.Context
	cfg *config.Config

	api             *api.Client
	storage         *storage.Database
	player          *audio.Player
	searchEngine    *search.Engine
	downloadManager *download.Manager
	syncManager     *storage.SyncManager
	musicService    *services.MusicService
	playSyncService *services.PlaySyncService

	session *user.Session

	relationshipCache *relationship.Cache
	suggestEngine     *suggest.Engine

	scrobbleQueue   *scrobble.Queue
	scrobbleClient  *scrobble.Client
	scrobbleDrainer *scrobble.Drainer

	remoteServer *remote.Server

	mu       sync.Mutex
	q        *queue.Context
	songByID map[uint64]*types.Song
}

// NewApp builds the headless core. It reuses the exact same per-user
// session, suggestion-stack, and scrobble-stack constructors the Fyne
// front ends call from ui.initCore, so a signed-in user's library and
// artist-similarity cache are shared across whichever front end runs.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	session, err := ui.ApplyUserSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("sign in user: %w", err)
	}

	apiClient := api.NewClient(cfg)
	if cfg.User.IsAnonymous && cfg.API.Token == "" {
		if _, err := apiClient.EnsureAnonymousToken(ctx); err != nil {
			log.Printf("[HEADLESS] anonymous token create failed: %v", err)
		}
	}

	storageDB, err := storage.NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	player, err := audio.NewPlayer(cfg, storageDB)
	if err != nil {
		return nil, fmt.Errorf("initialize audio player: %w", err)
	}
	searchEngine := search.NewEngine(cfg, storageDB)
	downloadManager := download.NewManager(cfg)
	syncManager := storage.NewSyncManager(apiClient, storageDB, cfg)
	musicService := services.NewMusicService(apiClient, storageDB, searchEngine)
	playSyncService := services.NewPlaySyncService(apiClient, storageDB, cfg, cfg.Debug)

	relationshipCache, _, _, _, suggestEngine, err := ui.InitSuggestionStack(cfg, session, apiClient)
	if err != nil {
		log.Printf("[HEADLESS] suggestion subsystem unavailable: %v", err)
	}

	scrobbleQueue, scrobbleClient, scrobbleDrainer, err := ui.InitScrobbleStack(cfg, session)
	if err != nil {
		log.Printf("[HEADLESS] scrobble subsystem unavailable: %v", err)
	}
	playSyncService.SetScrobbler(scrobbleQueue, scrobbleClient)

	app := &App{
		ctx:               ctx,
		cfg:               cfg,
		api:               apiClient,
		storage:           storageDB,
		player:            player,
		searchEngine:      searchEngine,
		downloadManager:   downloadManager,
		syncManager:       syncManager,
		musicService:      musicService,
		playSyncService:   playSyncService,
		session:           session,
		relationshipCache: relationshipCache,
		suggestEngine:     suggestEngine,
		scrobbleQueue:     scrobbleQueue,
		scrobbleClient:    scrobbleClient,
		scrobbleDrainer:   scrobbleDrainer,
		q:                 queue.New(),
		songByID:          make(map[uint64]*types.Song),
	}

	player.OnScrobble(func(song *types.Song) {
		go app.playSyncService.ScrobbleCompletedPlay(context.Background(), song, time.Now())
	})

	return app, nil
}

// LoadQueue replaces the playback queue with songs, indexed for lookups
// by the queue.Context's numeric track ids.
func (a *App) LoadQueue(songs []*types.Song) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tracks := make([]queue.Track, len(songs))
	a.songByID = make(map[uint64]*types.Song, len(songs))
	for i, song := range songs {
		id := queue.TrackIDFromSlug(song.Slug)
		tracks[i] = queue.Track{
			ID:           id,
			Title:        song.Name,
			Artist:       getArtistNames(song.Authors),
			DurationSecs: uint64(song.Length),
			IsLocal:      song.Downloaded,
			Streamable:   song.File != "",
		}
		if song.Album != nil {
			tracks[i].Album = song.Album.Name
			tracks[i].AlbumID = song.Album.Slug
		}
		a.songByID[id] = song
	}
	a.q.SetTracks(tracks)
}

// ensureInitialQueue seeds the queue from whatever is already cached
// locally, falling back to a first page from the API the same way the
// Fyne front end's loadInitialSongs does, so a freshly-installed headless
// instance has something to play without a separate seeding step.
func (a *App) ensureInitialQueue(ctx context.Context) {
	songs, err := a.storage.GetSongs(ctx, 20, 0)
	if err == nil && len(songs) > 0 {
		a.LoadQueue(songs)
		return
	}

	fetched, _, err := a.musicService.GetSongs(ctx, 1, "")
	if err != nil || len(fetched) == 0 {
		return
	}
	a.LoadQueue(fetched)
}

// Start seeds the queue (from local storage, or from the first API page
// when storage has no songs), then launches the background tasks the
// desktop front end also runs (play-history sync, scrobble drain) and,
// when enabled, the embedded remote-control server.
func (a *App) Start() {
	a.ensureInitialQueue(a.ctx)

	a.playSyncService.Start()

	if a.scrobbleDrainer != nil {
		go a.scrobbleDrainer.Run(a.ctx)
	}

	if a.cfg.Remote.Enabled {
		a.remoteServer = remote.NewServer(a.cfg.Remote.Port, a.cfg.Remote.PairingSecretHash, &controller{app: a}, a.cfg.Debug)
		a.remoteServer.Start()
		log.Printf("[HEADLESS] remote control listening on :%d", a.cfg.Remote.Port)
	}
}

// Close tears down the resources NewApp keeps a handle to, mirroring
// ui.App.Close. The artist-vector store that InitSuggestionStack opens is
// not kept by NewApp and is not closed here.
func (a *App) Close() {
	if a.remoteServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), remoteShutdownTimeout)
		defer cancel()
		if err := a.remoteServer.Shutdown(ctx); err != nil {
			log.Printf("[HEADLESS] remote server shutdown: %v", err)
		}
	}
	a.playSyncService.Stop()
	a.syncManager.Stop()
	if a.player != nil {
		a.player.Close()
	}
	if a.storage != nil {
		a.storage.Close()
	}
	if a.relationshipCache != nil {
		_ = a.relationshipCache.Close()
	}
	if a.scrobbleQueue != nil {
		_ = a.scrobbleQueue.Close()
	}
}

func getArtistNames(authors []*types.Author) string {
	if len(authors) == 0 {
		return "Unknown Artist"
	}
	names := ""
	for i, author := range authors {
		if author == nil {
			continue
		}
		if i > 0 {
			names += ", "
		}
		names += author.Name
	}
	return names
}
