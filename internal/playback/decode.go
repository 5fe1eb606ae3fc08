package playback

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
)

// DecodedTrack is an opened MP3 decode, resampled (if necessary) to a
// target output rate, and exposed both as a beep.Streamer (for the
// host-sink engine, which can drive beep directly) and as a PCM
// Source (for the direct-hardware engine, or anywhere a plain byte
// stream of samples is preferred).
type DecodedTrack struct {
	Streamer   beep.StreamSeekCloser
	Resampled  beep.Streamer
	Format     beep.Format
	OutputRate int
}

// DecodeMP3 opens an MP3 stream from r and resamples it to outputRate
// if its native sample rate differs, mirroring player.go's
// loadAndPlay decode-then-resample sequence.
func DecodeMP3(r io.ReadCloser, outputRate int) (*DecodedTrack, error) {
	streamer, format, err := mp3.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	var resampled beep.Streamer = streamer
	if int(format.SampleRate) != outputRate {
		resampled = beep.Resample(4, format.SampleRate, beep.SampleRate(outputRate), streamer)
	}

	return &DecodedTrack{
		Streamer:   streamer,
		Resampled:  resampled,
		Format:     format,
		OutputRate: outputRate,
	}, nil
}

// PCMSource adapts the resampled streamer into a Source: interleaved
// signed 16-bit samples read frame-by-frame, clamped to [-1, 1] before
// quantizing, matching the host-sink's effects.Volume gain range.
func (d *DecodedTrack) PCMSource() Source {
	return &pcmAdapter{streamer: d.Resampled, channels: d.Format.NumChannels, rate: d.OutputRate}
}

type pcmAdapter struct {
	streamer   beep.Streamer
	channels   int
	rate       int
	leftover   []byte
	eof        bool
	framesRead atomic.Int64
}

const pcmChunkFrames = 512

func (a *pcmAdapter) Channels() int   { return a.channels }
func (a *pcmAdapter) SampleRate() int { return a.rate }

// FramesRead returns how many PCM frames have been handed to the
// caller so far, letting a position tracker poll progress without
// depending on either engine's own (often undefined) position API.
func (a *pcmAdapter) FramesRead() int64 { return a.framesRead.Load() }

func (a *pcmAdapter) Read(p []byte) (int, error) {
	n := 0

	if len(a.leftover) > 0 {
		copied := copy(p, a.leftover)
		a.leftover = a.leftover[copied:]
		n += copied
		if n == len(p) {
			return n, nil
		}
	}

	for n < len(p) {
		if a.eof {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}

		samples := make([][2]float64, pcmChunkFrames)
		read, ok := a.streamer.Stream(samples)
		if read == 0 {
			a.eof = true
			if !ok {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			continue
		}
		if !ok {
			a.eof = true
		}
		a.framesRead.Add(int64(read))

		buf := make([]byte, 0, read*frameSize(a.channels))
		for i := 0; i < read; i++ {
			for ch := 0; ch < a.channels; ch++ {
				v := samples[i][0]
				if ch == 1 {
					v = samples[i][1]
				} else if a.channels == 1 {
					v = (samples[i][0] + samples[i][1]) / 2
				}
				buf = appendInt16LE(buf, floatToInt16(v))
			}
		}

		copied := copy(p[n:], buf)
		n += copied
		if copied < len(buf) {
			a.leftover = append(a.leftover, buf[copied:]...)
		}
	}

	return n, nil
}

func floatToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(math.Round(v * 32767))
}

func appendInt16LE(buf []byte, v int16) []byte {
	return append(buf, byte(v), byte(v>>8))
}
