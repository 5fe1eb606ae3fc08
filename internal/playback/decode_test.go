package playback

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeStreamer feeds a fixed sequence of stereo frames, then reports EOF.
type fakeStreamer struct {
	frames [][2]float64
	pos    int
}

func (f *fakeStreamer) Stream(samples [][2]float64) (int, bool) {
	n := copy(samples, f.frames[f.pos:])
	f.pos += n
	return n, n > 0
}

func (f *fakeStreamer) Err() error { return nil }

func TestPcmAdapterConvertsFramesToInterleavedInt16(t *testing.T) {
	a := &pcmAdapter{
		streamer: &fakeStreamer{frames: [][2]float64{{1, -1}, {0, 0}}},
		channels: 2,
		rate:     44100,
	}

	buf := make([]byte, 8)
	n, err := a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 8, n)

	require.Equal(t, int16(32767), int16LE(buf[0:]))
	require.Equal(t, int16(-32767), int16LE(buf[2:]))
	require.Equal(t, int16(0), int16LE(buf[4:]))
	require.Equal(t, int16(0), int16LE(buf[6:]))
}

func TestPcmAdapterCountsFramesRead(t *testing.T) {
	a := &pcmAdapter{
		streamer: &fakeStreamer{frames: [][2]float64{{0, 0}, {0, 0}, {0, 0}}},
		channels: 2,
		rate:     44100,
	}

	buf := make([]byte, 64)
	_, err := a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, int64(3), a.FramesRead())
}

func TestPcmAdapterReturnsEOFWhenStreamerExhausted(t *testing.T) {
	a := &pcmAdapter{streamer: &fakeStreamer{frames: nil}, channels: 2, rate: 44100}

	_, err := a.Read(make([]byte, 4))
	require.ErrorIs(t, err, io.EOF)
}

func TestPcmAdapterDownmixesToMono(t *testing.T) {
	a := &pcmAdapter{
		streamer: &fakeStreamer{frames: [][2]float64{{1, -1}}},
		channels: 1,
		rate:     44100,
	}

	buf := make([]byte, 2)
	n, err := a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, int16(0), int16LE(buf))
}

func TestFloatToInt16Clamps(t *testing.T) {
	require.Equal(t, int16(32767), floatToInt16(2.0))
	require.Equal(t, int16(-32767), floatToInt16(-2.0))
	require.Equal(t, int16(0), floatToInt16(0))
}
