// Package playback implements the two output strategies a decoded
// track can be rendered through: a host-audio-server sink built on
// github.com/gopxl/beep/speaker, and a direct-hardware sink built on
// github.com/gordonklaus/portaudio. Both sit behind the same Engine
// interface so the player doesn't need to know which one is active.
package playback

import "io"

// Source is a PCM iterator: interleaved signed 16-bit little-endian
// samples at a fixed channel count and sample rate. Both engine
// variants consume the same Source shape; resampling to the engine's
// configured output rate happens before a Source reaches Append.
type Source interface {
	io.Reader
	Channels() int
	SampleRate() int
}

// Engine is the common surface both output strategies implement.
type Engine interface {
	// Append begins playing src, replacing anything currently playing.
	Append(src Source) error
	Play()
	Pause()
	Stop()
	SetVolume(v float64) error
	// Empty reports whether playback has run out of samples to render.
	Empty() bool
	// PositionSecs and DurationSecs are defined only for the
	// direct-hardware variant; the host-sink variant returns 0 for
	// both, since the host audio server owns that clock.
	PositionSecs() float64
	DurationSecs() float64
	Close() error
}

// FrameCounter is implemented by Source producers that can report how
// many frames have been handed out, for position tracking independent
// of whichever Engine variant is actually rendering them.
type FrameCounter interface {
	FramesRead() int64
}

const bytesPerSample = 2 // signed 16-bit

// frameSize returns the byte size of one interleaved frame (all channels).
func frameSize(channels int) int {
	return channels * bytesPerSample
}
