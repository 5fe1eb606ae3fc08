package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

var (
	speakerOnce       sync.Once
	speakerInitErr    error
	speakerSampleRate beep.SampleRate
)

// HostSink renders PCM through the system's audio server via
// beep/speaker, adapted from internal/audio/player.go's speaker/Ctrl/
// Volume pipeline.
type HostSink struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	done       chan struct{}
	playing    bool
}

// NewHostSink initializes the process-wide speaker exactly once at
// sampleRate (repeated calls at a different rate are ignored, matching
// the teacher's speakerOnce guard) and returns a sink bound to it.
func NewHostSink(sampleRate int) (*HostSink, error) {
	rate := beep.SampleRate(sampleRate)
	speakerOnce.Do(func() {
		buf := rate.N(200 * time.Millisecond)
		speakerInitErr = speaker.Init(rate, buf)
		speakerSampleRate = rate
	})
	if speakerInitErr != nil {
		return nil, fmt.Errorf("initialize speaker: %w", speakerInitErr)
	}
	return &HostSink{sampleRate: speakerSampleRate}, nil
}

// Append wraps src in a beep.Streamer and starts it through the
// speaker, replacing whatever was previously playing.
func (h *HostSink) Append(src Source) error {
	if src.SampleRate() != int(h.sampleRate) {
		return fmt.Errorf("host sink: source rate %d does not match speaker rate %d (resample before Append)",
			src.SampleRate(), int(h.sampleRate))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	speaker.Clear()

	streamer := &pcmStreamer{src: src, channels: src.Channels()}
	h.ctrl = &beep.Ctrl{Streamer: streamer, Paused: false}
	h.volume = &effects.Volume{Streamer: h.ctrl, Base: 2}

	done := make(chan struct{})
	h.done = done
	seq := beep.Seq(h.volume, beep.Callback(func() { close(done) }))
	speaker.Play(seq)
	h.playing = true
	return nil
}

func (h *HostSink) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctrl == nil {
		return
	}
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
}

func (h *HostSink) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctrl == nil {
		return
	}
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
}

func (h *HostSink) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	speaker.Clear()
	h.ctrl = nil
	h.volume = nil
	h.playing = false
}

// SetVolume maps v in [0, 1] onto effects.Volume's logarithmic gain,
// matching the teacher's mkVolume curve.
func (h *HostSink) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.volume == nil {
		return nil
	}

	speaker.Lock()
	if v == 0 {
		h.volume.Silent = true
	} else {
		h.volume.Silent = false
		h.volume.Volume = (v - 1) * 5
	}
	speaker.Unlock()
	return nil
}

func (h *HostSink) Empty() bool {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// PositionSecs and DurationSecs are undefined for the host sink: the
// audio server owns playback position, which the player tracks
// separately by polling the Source's FrameCounter.
func (h *HostSink) PositionSecs() float64 { return 0 }
func (h *HostSink) DurationSecs() float64 { return 0 }

func (h *HostSink) Close() error {
	h.Stop()
	return nil
}

// pcmStreamer adapts a Source (interleaved int16 LE bytes) back into
// beep's float64 [-1,1] stereo frame format.
type pcmStreamer struct {
	src      Source
	channels int
	buf      []byte
}

func (p *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	frame := frameSize(p.channels)
	need := len(samples) * frame
	if len(p.buf) < need {
		grow := make([]byte, need)
		copy(grow, p.buf)
		read, err := io.ReadFull(p.src, grow[len(p.buf):])
		p.buf = grow[:len(p.buf)+read]
		if read == 0 && err != nil {
			if len(p.buf) == 0 {
				return 0, false
			}
		}
	}

	frames := len(p.buf) / frame
	if frames > len(samples) {
		frames = len(samples)
	}
	for i := 0; i < frames; i++ {
		off := i * frame
		left := int16LE(p.buf[off:])
		right := left
		if p.channels == 2 {
			right = int16LE(p.buf[off+2:])
		}
		samples[i][0] = float64(left) / 32768
		samples[i][1] = float64(right) / 32768
	}
	p.buf = p.buf[frames*frame:]
	return frames, frames > 0
}

func (p *pcmStreamer) Err() error { return nil }

func int16LE(b []byte) int16 {
	return int16(uint16(b[0]) | uint16(b[1])<<8)
}
