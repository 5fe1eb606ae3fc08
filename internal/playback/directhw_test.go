package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectHardwarePositionTracksFramesWritten(t *testing.T) {
	d := &DirectHardware{sampleRate: 44100}
	d.position.Store(44100)
	require.InDelta(t, 1.0, d.PositionSecs(), 0.001)
}

func TestDirectHardwareDurationFromSetDurationFrames(t *testing.T) {
	d := &DirectHardware{sampleRate: 44100}
	d.SetDurationFrames(88200)
	require.InDelta(t, 2.0, d.DurationSecs(), 0.001)
}

func TestDirectHardwareEmptyBeforePlaybackStarts(t *testing.T) {
	d := &DirectHardware{sampleRate: 44100}
	require.True(t, d.Empty())
}

func TestDirectHardwareNotEmptyWhilePlaying(t *testing.T) {
	d := &DirectHardware{sampleRate: 44100}
	d.isPlaying.Store(true)
	d.SetDurationFrames(44100)
	require.False(t, d.Empty())
}

func TestDirectHardwareEmptyOnceCaughtUpToDuration(t *testing.T) {
	d := &DirectHardware{sampleRate: 44100}
	d.SetDurationFrames(100)
	d.position.Store(100)
	require.True(t, d.Empty())
}
