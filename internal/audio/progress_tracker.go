package audio

import (
	"sync"
	"time"

	"github.com/Alexander-D-Karpov/amp/internal/playback"
)

// ProgressTracker polls a frame-counting PCM source on an interval and
// reports an absolute track position, accounting for a baseOffset when
// the current source starts mid-track (a buffered-seek re-decode).
// Adapted from the teacher's beep.StreamSeeker-based tracker: the
// source it polls is now playback.FrameCounter, since the engine
// abstraction no longer exposes a beep streamer directly.
type ProgressTracker struct {
	ticker           *time.Ticker
	done             chan struct{}
	running          bool
	callback         func(time.Duration)
	source           playback.FrameCounter
	sampleRate       int
	expectedDuration time.Duration
	startTime        time.Time
	baseOffset       time.Duration
	mutex            sync.RWMutex
}

func NewProgressTracker(interval time.Duration) *ProgressTracker {
	return &ProgressTracker{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
}

func (pt *ProgressTracker) Start(callback func(time.Duration)) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	if pt.running {
		return
	}

	pt.callback = callback
	pt.running = true
	pt.startTime = time.Now()

	if pt.ticker != nil {
		pt.ticker.Stop()
	}
	pt.ticker = time.NewTicker(50 * time.Millisecond)

	go pt.run()
}

func (pt *ProgressTracker) Stop() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	if !pt.running {
		return
	}
	pt.running = false

	select {
	case <-pt.done:
	default:
		close(pt.done)
		pt.done = make(chan struct{})
	}

	if pt.ticker != nil {
		pt.ticker.Stop()
	}
}

func (pt *ProgressTracker) IsRunning() bool {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()
	return pt.running
}

// SetSource points the tracker at a new frame-counting PCM source.
// baseOffset is the absolute track position (from track start) where
// this source's frame zero corresponds to.
func (pt *ProgressTracker) SetSource(source playback.FrameCounter, sampleRate int, expectedDuration, baseOffset time.Duration) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.source = source
	pt.sampleRate = sampleRate
	pt.expectedDuration = expectedDuration
	pt.baseOffset = baseOffset
	pt.startTime = time.Now()
}

func (pt *ProgressTracker) run() {
	defer func() {
		pt.mutex.Lock()
		pt.running = false
		pt.mutex.Unlock()
	}()

	for {
		select {
		case <-pt.ticker.C:
			pt.updatePosition()
		case <-pt.done:
			return
		}
	}
}

func (pt *ProgressTracker) updatePosition() {
	pt.mutex.RLock()
	source := pt.source
	sampleRate := pt.sampleRate
	expectedDuration := pt.expectedDuration
	callback := pt.callback
	running := pt.running
	startTime := pt.startTime
	baseOffset := pt.baseOffset
	pt.mutex.RUnlock()

	if !running || callback == nil {
		return
	}

	if source != nil && sampleRate > 0 {
		elapsed := time.Duration(source.FramesRead()) * time.Second / time.Duration(sampleRate)
		pos := baseOffset + elapsed
		if expectedDuration > 0 && pos > expectedDuration {
			pos = expectedDuration
		}
		callback(pos)
		return
	}

	elapsed := time.Since(startTime)
	if expectedDuration > 0 && baseOffset+elapsed > expectedDuration {
		elapsed = expectedDuration - baseOffset
		if elapsed < 0 {
			elapsed = 0
		}
	}
	callback(baseOffset + elapsed)
}
