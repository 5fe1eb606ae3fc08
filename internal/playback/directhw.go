package playback

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	directHWChunkFrames = 1024
	pauseSpinInterval   = 10 * time.Millisecond
)

// DirectHardware renders PCM straight to an opened PCM device via
// portaudio, bypassing the host audio server entirely. Grounded in the
// dedicated-write-goroutine design: a background goroutine pulls
// chunks from the active Source and writes them to the device, gated
// by two atomic flags rather than a mutex, since the gate is checked
// on every chunk and a full lock per chunk would serialize with
// Play/Pause/Stop far more often than necessary.
type DirectHardware struct {
	stream     *portaudio.Stream
	channels   int
	sampleRate int

	isPlaying  atomic.Bool
	shouldStop atomic.Bool
	position   atomic.Int64 // frames written
	duration   atomic.Int64 // frames, 0 if unknown

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewDirectHardware opens the default output device at channels/
// sampleRate. portaudio.Initialize must have been called once by the
// process before any DirectHardware is constructed.
func NewDirectHardware(channels, sampleRate int) (*DirectHardware, error) {
	d := &DirectHardware{channels: channels, sampleRate: sampleRate}

	buf := make([]int16, directHWChunkFrames*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), directHWChunkFrames, &buf)
	if err != nil {
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start portaudio stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

// Append starts a dedicated write goroutine draining src into the PCM
// device, per the write algorithm: gate on isPlaying/shouldStop, pull
// fixed chunks, write, recover once on error, update position.
func (d *DirectHardware) Append(src Source) error {
	if src.Channels() != d.channels || src.SampleRate() != d.sampleRate {
		return fmt.Errorf("direct hardware: source %dch/%dHz does not match device %dch/%dHz",
			src.Channels(), src.SampleRate(), d.channels, d.sampleRate)
	}

	d.mu.Lock()
	d.shouldStop.Store(true)
	d.isPlaying.Store(true) // unstick a paused writer so it observes shouldStop
	d.wg.Wait() // ensure any previous writer has fully exited before starting a new one
	d.shouldStop.Store(false)
	d.isPlaying.Store(true)
	d.position.Store(0)
	d.duration.Store(0)
	d.mu.Unlock()

	d.wg.Add(1)
	go d.writeLoop(src)
	return nil
}

func (d *DirectHardware) writeLoop(src Source) {
	defer d.wg.Done()

	buf := make([]int16, directHWChunkFrames*d.channels)
	raw := make([]byte, len(buf)*bytesPerSample)
	naturalEnd := false
	recovered := false

	for {
		if d.shouldStop.Load() {
			break
		}
		for !d.isPlaying.Load() && !d.shouldStop.Load() {
			time.Sleep(pauseSpinInterval)
		}
		if d.shouldStop.Load() {
			break
		}

		n, err := io.ReadFull(src, raw)
		frames := n / frameSize(d.channels)
		if frames == 0 {
			naturalEnd = true
			break
		}

		for i := 0; i < frames*d.channels; i++ {
			buf[i] = int16LE(raw[i*2:])
		}

		writeErr := d.stream.Write()
		if writeErr != nil {
			if !recovered {
				recovered = true
				_ = d.stream.Stop()
				if startErr := d.stream.Start(); startErr == nil {
					continue
				}
			}
			break
		}
		recovered = false
		d.position.Add(int64(frames))

		if err != nil && err != io.ErrUnexpectedEOF {
			naturalEnd = true
			break
		}
	}

	d.isPlaying.Store(false)
	if naturalEnd {
		_ = d.stream.Stop() // drain: Stop returns once the device has played its pending buffers
	} else {
		_ = d.stream.Abort() // explicit stop: discard pending buffers, no drain
	}
	_ = d.stream.Start()
}

func (d *DirectHardware) Play() {
	d.isPlaying.Store(true)
}

func (d *DirectHardware) Pause() {
	d.isPlaying.Store(false)
}

// Stop requests termination and blocks until the write goroutine exits.
func (d *DirectHardware) Stop() {
	d.shouldStop.Store(true)
	d.isPlaying.Store(true) // unstick a paused writer so it observes shouldStop
	d.wg.Wait()
}

// SetVolume is a no-op: this variant writes straight to the device
// with no software gain stage; volume is expected to be handled by
// downstream hardware or mixer controls.
func (d *DirectHardware) SetVolume(float64) error { return nil }

func (d *DirectHardware) Empty() bool {
	return !d.isPlaying.Load() && d.position.Load() >= d.duration.Load()
}

func (d *DirectHardware) PositionSecs() float64 {
	return float64(d.position.Load()) / float64(d.sampleRate)
}

func (d *DirectHardware) DurationSecs() float64 {
	return float64(d.duration.Load()) / float64(d.sampleRate)
}

// SetDurationFrames lets the caller record an expected length (e.g.
// from track metadata) so Empty/DurationSecs are meaningful before the
// source has been fully consumed.
func (d *DirectHardware) SetDurationFrames(frames int64) {
	d.duration.Store(frames)
}

func (d *DirectHardware) Close() error {
	d.Stop()
	if d.stream != nil {
		return d.stream.Close()
	}
	return nil
}
