package playback

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSource is a PCM Source backed by an in-memory byte slice, used to
// exercise pcmStreamer without touching a real decoder or speaker.
type fakeSource struct {
	data     []byte
	pos      int
	channels int
	rate     int
}

func (s *fakeSource) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func (s *fakeSource) Channels() int   { return s.channels }
func (s *fakeSource) SampleRate() int { return s.rate }

func TestPcmStreamerConvertsBytesToFrames(t *testing.T) {
	raw := []byte{}
	raw = appendInt16LE(raw, 32767)
	raw = appendInt16LE(raw, -32767)
	raw = appendInt16LE(raw, 0)
	raw = appendInt16LE(raw, 0)

	src := &fakeSource{data: raw, channels: 2, rate: 44100}
	streamer := &pcmStreamer{src: src, channels: 2}

	samples := make([][2]float64, 2)
	n, ok := streamer.Stream(samples)
	require.True(t, ok)
	require.Equal(t, 2, n)
	require.InDelta(t, 1.0, samples[0][0], 0.001)
	require.InDelta(t, -1.0, samples[0][1], 0.001)
	require.InDelta(t, 0.0, samples[1][0], 0.001)
}

func TestPcmStreamerMonoDuplicatesChannel(t *testing.T) {
	raw := appendInt16LE(nil, 16000)
	src := &fakeSource{data: raw, channels: 1, rate: 44100}
	streamer := &pcmStreamer{src: src, channels: 1}

	samples := make([][2]float64, 1)
	n, ok := streamer.Stream(samples)
	require.True(t, ok)
	require.Equal(t, 1, n)
	require.Equal(t, samples[0][0], samples[0][1])
}

func TestPcmStreamerReturnsFalseOnExhaustedSource(t *testing.T) {
	src := &fakeSource{data: nil, channels: 2, rate: 44100}
	streamer := &pcmStreamer{src: src, channels: 2}

	samples := make([][2]float64, 4)
	n, ok := streamer.Stream(samples)
	require.False(t, ok)
	require.Equal(t, 0, n)
}
