package streamsource

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadBlocksUntilDataArrives(t *testing.T) {
	src, w := NewStreamingSource(0)

	done := make(chan struct{})
	var n int
	var err error
	buf := make([]byte, 8)
	go func() {
		n, err = src.Read(buf)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("read returned before any data was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	w.PushChunk([]byte("hello!!!"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read never unblocked after PushChunk")
	}

	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, "hello!!!", string(buf[:n]))
}

func TestReadReturnsEOFAfterComplete(t *testing.T) {
	src, w := NewStreamingSource(5)
	w.PushChunk([]byte("abcde"))
	w.Complete()

	buf := make([]byte, 5)
	n, err := src.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = src.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestSeekWithinBuffer(t *testing.T) {
	src, w := NewStreamingSource(0)
	w.PushChunk([]byte("0123456789"))
	w.Complete()

	pos, err := src.Seek(3, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(3), pos)

	buf := make([]byte, 4)
	n, err := src.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "3456", string(buf[:n]))
}

func TestSeekEndRejectedWhileIncomplete(t *testing.T) {
	src, _ := NewStreamingSource(0)
	_, err := src.Seek(0, io.SeekEnd)
	require.Error(t, err)
}

func TestSegmentIsIndependentCursor(t *testing.T) {
	src, w := NewStreamingSource(0)
	w.PushChunk([]byte("abcdefgh"))
	w.Complete()

	seg := src.NewSegmentFrom(2)
	buf := make([]byte, 3)
	n, err := seg.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "cde", string(buf[:n]))

	main := make([]byte, 2)
	n, err = src.Read(main)
	require.NoError(t, err)
	require.Equal(t, "ab", string(main[:n]))
}

func TestWaitForInitialBufferUnblocksOnThreshold(t *testing.T) {
	src, w := NewStreamingSource(0)

	done := make(chan error, 1)
	go func() { done <- src.WaitForInitialBuffer(10) }()

	w.PushChunk([]byte("12345"))
	select {
	case <-done:
		t.Fatal("WaitForInitialBuffer returned before threshold reached")
	case <-time.After(20 * time.Millisecond):
	}

	w.PushChunk([]byte("67890"))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForInitialBuffer never unblocked")
	}
}

func TestFailPropagatesToBlockedReader(t *testing.T) {
	src, w := NewStreamingSource(0)

	done := make(chan error, 1)
	go func() {
		_, err := src.Read(make([]byte, 4))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	w.Fail(io.ErrUnexpectedEOF)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Read never unblocked after Fail")
	}
}

func TestOptimalInitialBufferTiers(t *testing.T) {
	require.Equal(t, int64(256*1024), OptimalInitialBuffer(12*1024*1024))
	require.Equal(t, int64(384*1024), OptimalInitialBuffer(6*1024*1024))
	require.Equal(t, int64(512*1024), OptimalInitialBuffer(3*1024*1024))
	require.Equal(t, int64(1024*1024), OptimalInitialBuffer(1.5*1024*1024))
	require.Equal(t, int64(2*1024*1024), OptimalInitialBuffer(100*1024))
}

func TestFallbackInitialBufferClamps(t *testing.T) {
	require.Equal(t, FallbackInitialBuffer(0), FallbackInitialBuffer(1))
	require.Equal(t, FallbackInitialBuffer(20), FallbackInitialBuffer(10))
	require.GreaterOrEqual(t, FallbackInitialBuffer(1), int64(256*1024))
}
