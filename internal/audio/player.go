package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"github.com/Alexander-D-Karpov/amp/internal/cache"
	"github.com/Alexander-D-Karpov/amp/internal/config"
	"github.com/Alexander-D-Karpov/amp/internal/playback"
	"github.com/Alexander-D-Karpov/amp/internal/queue"
	"github.com/Alexander-D-Karpov/amp/internal/storage"
	"github.com/Alexander-D-Karpov/amp/internal/streamsource"
	"github.com/Alexander-D-Karpov/amp/pkg/types"
)

// Player drives a single active track through a playback.Engine,
// sourcing bytes from a local file, a cached file, or a
// streamsource-backed network fetch, and decoding via playback.DecodeMP3.
// Adapted from the teacher's speaker/beep-direct Player: the engine
// choice (host-sink vs direct-hardware) and the network source are now
// behind the playback/streamsource abstractions instead of being
// hard-wired to beep and a bespoke StreamReader.
type Player struct {
	mu sync.RWMutex

	cfg     *config.Config
	storage *storage.Database
	cache   *cache.TwoTier

	engine     playback.Engine
	sampleRate int
	channels   int

	currentSong      *types.Song
	currentSongSlug  string
	position         time.Duration
	duration         time.Duration
	expectedDuration time.Duration
	lastPosition     time.Duration
	baseOffset       time.Duration

	positionCallback func(time.Duration)
	finishedCallback func()
	scrobbleCallback func(*types.Song)

	progressTracker *ProgressTracker

	httpClient *http.Client
	debug      bool
	playing    bool
	paused     bool

	// Active network stream, non-nil only while streaming (not local).
	activeSource *streamsource.Source
	decoded      *playback.DecodedTrack

	playbackStartTime   time.Time
	minPlayTime         time.Duration
	completionThreshold float64

	loadingCanceled bool
	loadingContext  context.Context
	loadingCancel   context.CancelFunc
}

func NewPlayer(cfg *config.Config, storage *storage.Database) (*Player, error) {
	diskCache, err := cache.OpenDisk(filepath.Join(cfg.Storage.CacheDir, "tracks"), uint64(cfg.Storage.MaxCacheSize))
	if err != nil {
		return nil, fmt.Errorf("initialize disk cache: %w", err)
	}
	memCache := cache.NewMemoryWithDisk(64*1024*1024, diskCache)

	p := &Player{
		cfg:     cfg,
		storage: storage,
		cache:   cache.NewTwoTier(memCache, diskCache),
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				DisableCompression:    true,
			},
		},
		sampleRate:          cfg.Audio.SampleRate,
		channels:            2,
		debug:               cfg.Debug,
		minPlayTime:         5 * time.Second,
		completionThreshold: 0.95,
	}

	engine, err := newEngine(cfg, p.sampleRate, p.channels)
	if err != nil {
		return nil, fmt.Errorf("initialize playback engine: %w", err)
	}
	p.engine = engine
	p.progressTracker = NewProgressTracker(50 * time.Millisecond)

	if p.debug {
		log.Printf("[AUDIO] Player initialized - backend: %s, sample rate: %d", cfg.Audio.OutputBackend, p.sampleRate)
	}

	return p, nil
}

func newEngine(cfg *config.Config, sampleRate, channels int) (playback.Engine, error) {
	if cfg.Audio.OutputBackend == "direct" {
		return playback.NewDirectHardware(channels, sampleRate)
	}
	return playback.NewHostSink(sampleRate)
}

func (p *Player) Play(ctx context.Context, song *types.Song) error {
	if song == nil {
		return fmt.Errorf("song cannot be nil")
	}

	if p.debug {
		log.Printf("[AUDIO] Starting playback for: %s (length: %ds)", song.Name, song.Length)
	}

	p.mu.Lock()
	if p.loadingCancel != nil {
		p.loadingCancel()
		p.loadingCanceled = true
	}
	p.loadingContext, p.loadingCancel = context.WithCancel(ctx)
	loadingCtx := p.loadingContext

	p.stopInternal()
	p.currentSong = song
	p.currentSongSlug = song.Slug
	p.playing = false
	p.paused = false
	p.position = 0
	p.playbackStartTime = time.Now()
	p.loadingCanceled = false

	if song.Length > 0 {
		p.expectedDuration = time.Duration(song.Length) * time.Second
	} else {
		p.expectedDuration = 0
	}
	p.mu.Unlock()

	go p.loadAndPlay(loadingCtx, song)
	return nil
}

func (p *Player) loadAndPlay(ctx context.Context, song *types.Song) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	var (
		reader  io.ReadCloser
		src     *streamsource.Source
		isLocal bool
	)

	trackID := queue.TrackIDFromSlug(song.Slug)
	if p.cache != nil {
		if data, tier, err := p.cache.Get(trackID); err == nil && data != nil {
			if p.debug {
				log.Printf("[AUDIO] %s cache hit for: %s", tier, song.Name)
			}
			reader, isLocal = io.NopCloser(bytes.NewReader(data)), true
		}
	}

	if reader == nil && song.LocalPath != nil && *song.LocalPath != "" {
		if f, err := os.Open(*song.LocalPath); err == nil {
			reader, isLocal = f, true
		}
	}

	if reader == nil {
		filename := safeFilename(song.Name, song.Slug) + ".mp3"
		candidate := filepath.Join(p.cfg.Storage.CacheDir, "songs", filename)
		if _, statErr := os.Stat(candidate); statErr == nil {
			song.LocalPath = &candidate
			song.Downloaded = true
			if f, err := os.Open(candidate); err == nil {
				reader, isLocal = f, true
			}
		}
	}

	var decodeReader io.ReadCloser

	if isLocal {
		decodeReader = reader
	} else {
		if p.debug {
			log.Printf("[AUDIO] Streaming %s", song.File)
		}
		newSrc, w := streamsource.NewStreamingSource(0)
		src = newSrc
		go func() {
			streamsource.Fetch(ctx, streamsource.FetchOptions{HTTPClient: p.httpClient, URL: song.File, Debug: p.debug}, w)
			p.cacheStreamedTrack(song, trackID, newSrc, w)
		}()

		if !p.waitForStreamBuffer(ctx, src) {
			if p.debug {
				log.Printf("[AUDIO] Buffer wait failed or canceled for: %s", song.Name)
			}
			return
		}
		decodeReader = src
	}

	select {
	case <-ctx.Done():
		if reader != nil {
			_ = reader.Close()
		}
		return
	default:
	}

	p.mu.Lock()
	songChanged := p.currentSong == nil || p.currentSong.Slug != song.Slug || p.loadingCanceled
	p.mu.Unlock()
	if songChanged {
		if reader != nil {
			_ = reader.Close()
		}
		return
	}

	p.decodeAndPlay(ctx, song, decodeReader, src, isLocal)
}

// cacheStreamedTrack warms the L1/L2 cache from a completed network
// fetch, so a later Play of the same track hits cache.TwoTier.Get
// instead of re-streaming. Runs after streamsource.Fetch returns,
// independent of playback progress, so a track that finishes
// downloading while the listener skips ahead is still cached.
func (p *Player) cacheStreamedTrack(song *types.Song, trackID uint64, src *streamsource.Source, w *streamsource.Writer) {
	if p.cache == nil || !src.IsComplete() {
		return
	}
	data := w.Bytes()
	if len(data) == 0 {
		return
	}

	info := cache.TrackInfo{
		TrackID:      trackID,
		Title:        song.Name,
		Artist:       joinArtistNames(song.Authors),
		DurationSecs: uint64(song.Length),
		Quality:      "mp3",
	}
	if song.Album != nil {
		info.Album = song.Album.Name
		info.AlbumID = song.Album.Slug
	}

	if err := p.cache.StoreDownloaded(trackID, info, bytes.NewReader(data)); err != nil && p.debug {
		log.Printf("[AUDIO] cache store failed for '%s': %v", song.Name, err)
	}
}

func joinArtistNames(authors []*types.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a != nil {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// waitForStreamBuffer blocks until the streaming source has enough
// bytes to begin decoding: it samples the throughput of the first
// chunk's arrival, then applies the measured-throughput buffer table,
// falling back to the user's configured buffer-seconds setting if the
// stream ends or fails before any data arrives.
func (p *Player) waitForStreamBuffer(ctx context.Context, src *streamsource.Source) bool {
	start := time.Now()
	pollInterval := 5 * time.Millisecond
	timeout := time.After(30 * time.Second)

	for src.Downloaded() == 0 && !src.IsComplete() {
		select {
		case <-ctx.Done():
			return false
		case <-timeout:
			return true
		case <-time.After(pollInterval):
		}
	}

	elapsed := time.Since(start)
	threshold := streamsource.FallbackInitialBuffer(p.cfg.Audio.StreamBufferSeconds)
	if elapsed > 0 && src.Downloaded() > 0 {
		bytesPerSec := float64(src.Downloaded()) / elapsed.Seconds()
		threshold = streamsource.OptimalInitialBuffer(bytesPerSec)
	}

	if err := src.WaitForInitialBuffer(threshold); err != nil {
		// A failed fetch still leaves whatever was buffered; let the
		// decoder try, it will surface its own error if unusable.
		return true
	}
	return true
}

func (p *Player) decodeAndPlay(ctx context.Context, song *types.Song, decodeReader io.ReadCloser, src *streamsource.Source, isLocal bool) {
	decoded, err := playback.DecodeMP3(decodeReader, p.sampleRate)
	if err != nil {
		if p.debug {
			log.Printf("[AUDIO] Failed to decode MP3 for '%s': %v", song.Name, err)
		}
		_ = decodeReader.Close()
		return
	}

	p.mu.Lock()
	if p.currentSong == nil || p.currentSong.Slug != song.Slug || p.loadingCanceled {
		p.mu.Unlock()
		_ = decoded.Streamer.Close()
		return
	}

	var dur time.Duration
	switch {
	case p.expectedDuration > 0:
		dur = p.expectedDuration
	case song.Length > 0:
		dur = time.Duration(song.Length) * time.Second
	case isLocal:
		dur = decoded.Format.SampleRate.D(decoded.Streamer.Len())
	}
	p.duration = dur
	p.decoded = decoded
	p.activeSource = src
	p.baseOffset = 0

	pcmSrc := decoded.PCMSource()
	if err := p.engine.Append(pcmSrc); err != nil {
		p.mu.Unlock()
		if p.debug {
			log.Printf("[AUDIO] Engine append failed: %v", err)
		}
		_ = decoded.Streamer.Close()
		return
	}

	p.playing = true
	p.paused = false
	p.position = 0

	if fc, ok := pcmSrc.(playback.FrameCounter); ok {
		p.progressTracker.SetSource(fc, p.sampleRate, p.expectedDuration, 0)
	}
	if !p.progressTracker.IsRunning() {
		p.progressTracker.Start(p.updatePositionCallback)
	}
	p.mu.Unlock()

	if p.debug {
		log.Printf("[AUDIO] Started playback for '%s'", song.Name)
	}

	p.waitForCompletion(ctx, song)
}

// waitForCompletion polls the engine for Empty() since, unlike the
// teacher's single beep.Callback completion signal, both engine
// variants behind this abstraction only expose a poll-based Empty().
func (p *Player) waitForCompletion(ctx context.Context, song *types.Song) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.debug {
				log.Printf("[AUDIO] Playback cancelled for '%s'", song.Name)
			}
			return
		case <-ticker.C:
			p.mu.RLock()
			stillCurrent := p.currentSong != nil && p.currentSong.Slug == song.Slug
			empty := stillCurrent && p.engine.Empty()
			p.mu.RUnlock()
			if !stillCurrent {
				return
			}
			if empty {
				p.handleCompletion(song)
				return
			}
		}
	}
}

func (p *Player) handleCompletion(song *types.Song) {
	triggerFinished := p.shouldTriggerFinished()

	p.mu.Lock()
	p.playing = false
	p.paused = false
	cb := p.finishedCallback
	scrobbleCb := p.scrobbleCallback
	if p.decoded != nil {
		_ = p.decoded.Streamer.Close()
		p.decoded = nil
	}
	p.mu.Unlock()

	if p.debug {
		log.Printf("[AUDIO] Playback ended for '%s' (finished=%v)", song.Name, triggerFinished)
	}

	if triggerFinished && cb != nil {
		fyne.Do(cb)
	}
	if triggerFinished && scrobbleCb != nil {
		scrobbleCb(song)
	}
}

func (p *Player) updatePositionCallback(pos time.Duration) {
	p.mu.Lock()
	p.position = pos
	p.lastPosition = pos
	callback := p.positionCallback
	p.mu.Unlock()

	if callback != nil {
		fyne.Do(func() {
			callback(pos)
		})
	}
}

func (p *Player) shouldTriggerFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	currentPos := p.position
	expectedDur := p.expectedDuration
	actualDur := p.duration
	playTime := time.Since(p.playbackStartTime)

	if playTime < p.minPlayTime {
		return false
	}

	if expectedDur > 0 {
		return float64(currentPos)/float64(expectedDur) >= p.completionThreshold
	}
	if actualDur > 0 {
		return float64(currentPos)/float64(actualDur) >= p.completionThreshold
	}
	return false
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing && !p.paused {
		p.engine.Pause()
		p.paused = true
		if p.progressTracker != nil && p.progressTracker.IsRunning() {
			p.progressTracker.Stop()
		}
	}
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing && p.paused {
		p.engine.Play()
		p.paused = false
		if p.progressTracker != nil && !p.progressTracker.IsRunning() {
			p.progressTracker.Start(p.updatePositionCallback)
		}
	}
	return nil
}

func (p *Player) stopInternal() {
	if p.progressTracker != nil {
		p.progressTracker.Stop()
	}
	if p.playing || p.paused {
		p.engine.Stop()
	}
	if p.decoded != nil {
		_ = p.decoded.Streamer.Close()
		p.decoded = nil
	}
	p.activeSource = nil
	p.baseOffset = 0
	p.position = 0
	p.duration = 0
	p.expectedDuration = 0
	p.playing = false
	p.paused = false
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopInternal()
	p.currentSong = nil
	return nil
}

// Seek re-decodes from the requested position and re-appends into the
// engine: a native seek rewinds the existing decoder when its length
// is known (local files), otherwise it opens an independent segment
// cursor over the buffered network stream and decodes a fresh MP3
// frame boundary from there, mirroring the teacher's buffered
// re-decode fallback but going through the same Append path either way.
func (p *Player) Seek(position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentSong == nil || p.decoded == nil {
		return fmt.Errorf("no active stream")
	}

	target := position
	if p.expectedDuration > 0 && target > p.expectedDuration {
		target = p.expectedDuration
	}
	if target < 0 {
		target = 0
	}

	if p.decoded.Streamer.Len() > 0 {
		targetSample := p.decoded.Format.SampleRate.N(target)
		if l := p.decoded.Streamer.Len(); targetSample >= l {
			targetSample = l - 1
		}
		if targetSample < 0 {
			targetSample = 0
		}
		if err := p.decoded.Streamer.Seek(targetSample); err == nil {
			pcmSrc := p.decoded.PCMSource()
			if err := p.engine.Append(pcmSrc); err != nil {
				return err
			}
			p.position = target
			p.lastPosition = target
			p.baseOffset = 0
			if fc, ok := pcmSrc.(playback.FrameCounter); ok {
				p.progressTracker.SetSource(fc, p.sampleRate, p.expectedDuration, 0)
			}
			return nil
		}
	}

	if p.activeSource == nil {
		return fmt.Errorf("seek not supported")
	}

	totalBytes := p.activeSource.TotalSize()
	downloaded := p.activeSource.Downloaded()
	if totalBytes <= 0 {
		totalBytes = downloaded
	}
	if totalBytes <= 0 {
		return fmt.Errorf("buffer not available yet")
	}

	var ratio float64
	if p.expectedDuration > 0 {
		ratio = float64(target) / float64(p.expectedDuration)
	} else if p.duration > 0 {
		ratio = float64(target) / float64(p.duration)
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	wantOffset := int64(ratio * float64(totalBytes))
	if wantOffset > downloaded-1 {
		wantOffset = downloaded - 1
	}
	if wantOffset < 0 {
		wantOffset = 0
	}

	segment := p.activeSource.NewSegmentFrom(wantOffset)
	decoded, err := playback.DecodeMP3(segment, p.sampleRate)
	if err != nil {
		return fmt.Errorf("buffered decode failed at offset %d: %w", wantOffset, err)
	}

	pcmSrc := decoded.PCMSource()
	if err := p.engine.Append(pcmSrc); err != nil {
		return err
	}

	if p.decoded != nil {
		_ = p.decoded.Streamer.Close()
	}
	p.decoded = decoded
	p.position = target
	p.lastPosition = target
	p.baseOffset = target

	if fc, ok := pcmSrc.(playback.FrameCounter); ok {
		p.progressTracker.SetSource(fc, p.sampleRate, p.expectedDuration, p.baseOffset)
	}
	return nil
}

func (p *Player) CanSeek() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.decoded == nil {
		return false
	}
	if p.decoded.Streamer.Len() > 0 {
		return true
	}
	return p.activeSource != nil && p.activeSource.Downloaded() > 0
}

func (p *Player) GetSeekableRange() (time.Duration, time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.decoded == nil {
		return 0, 0
	}

	if p.decoded.Streamer.Len() > 0 {
		return 0, p.GetDuration()
	}

	if p.activeSource != nil {
		total := p.activeSource.TotalSize()
		if total <= 0 {
			total = p.activeSource.Downloaded()
		}
		dl := p.activeSource.Downloaded()
		if total > 0 && p.expectedDuration > 0 {
			progress := float64(dl) / float64(total)
			if progress > 1 {
				progress = 1
			}
			return 0, time.Duration(progress * float64(p.expectedDuration))
		}
	}

	return 0, 0
}

func (p *Player) HasSufficientBuffer(position time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.activeSource == nil {
		return true
	}

	total := p.activeSource.TotalSize()
	downloaded := p.activeSource.Downloaded()
	if total <= 0 {
		return downloaded > 0
	}
	progress := float64(downloaded) / float64(total)
	if progress >= 1.0 {
		return true
	}

	if p.expectedDuration <= 0 {
		return progress > 0.05
	}

	requiredProgress := float64(position) / float64(p.expectedDuration)
	return progress >= requiredProgress+0.05
}

func (p *Player) SetVolume(level float64) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.SetVolume(level)
}

func (p *Player) GetPosition() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

func (p *Player) GetDuration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.expectedDuration > 0 {
		return p.expectedDuration
	}
	return p.duration
}

func (p *Player) IsPlaying() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.playing && !p.paused
}

func (p *Player) OnPositionChanged(callback func(time.Duration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positionCallback = callback
}

func (p *Player) OnFinished(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishedCallback = callback
}

// OnScrobble registers a callback fired with the completed song whenever
// handleCompletion decides playback crossed the scrobble threshold
// (minPlayTime and completionThreshold), independent of finishedCallback
// so a caller can scrobble without also driving "what plays next" logic.
func (p *Player) OnScrobble(callback func(*types.Song)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrobbleCallback = callback
}

func (p *Player) GetDownloadProgress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.activeSource == nil {
		return 1.0
	}
	total := p.activeSource.TotalSize()
	if total <= 0 {
		return 0
	}
	progress := float64(p.activeSource.Downloaded()) / float64(total)
	if progress > 1 {
		progress = 1
	}
	return progress
}

func (p *Player) GetCurrentSong() *types.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentSong
}

func (p *Player) Close() error {
	if p.debug {
		log.Printf("[AUDIO] Closing player")
	}

	if p.loadingCancel != nil {
		p.loadingCancel()
	}

	p.progressTracker.Stop()
	_ = p.Stop()
	if p.cache != nil && p.cache.Disk != nil {
		_ = p.cache.Disk.Close()
	}
	return p.engine.Close()
}

func safeFilename(name, slug string) string {
	if slug != "" {
		return slug
	}
	safe := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
		"\"", "-", "<", "-", ">", "-", "|", "-",
	).Replace(name)
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}
