package streamsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	userAgent = "AMP/1.0.0"
	chunkSize = 64 * 1024
)

// FetchOptions configures an HTTP-backed fetch into a Writer.
type FetchOptions struct {
	HTTPClient *http.Client
	URL        string
	Debug      bool
}

// Fetch performs a streaming GET and pushes every chunk into w as it
// arrives, closing over Complete/Fail on exit. It blocks until the
// response body is exhausted, ctx is canceled, or an error occurs, so
// callers run it in its own goroutine.
func Fetch(ctx context.Context, opts FetchOptions, w *Writer) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		w.Fail(fmt.Errorf("build stream request: %w", err))
		return
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "audio/mpeg, audio/mp4, audio/*")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Range", "bytes=0-")

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		w.Fail(fmt.Errorf("stream request failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		w.Fail(fmt.Errorf("stream request status %d: %s", resp.StatusCode, resp.Status))
		return
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, perr := strconv.ParseInt(cl, 10, 64); perr == nil {
			w.SetTotalSize(size)
		}
	}

	buf := make([]byte, chunkSize)
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			w.Fail(ctx.Err())
			return
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			w.PushChunk(chunk)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				w.Complete()
				if opts.Debug {
					log.Printf("[STREAMSOURCE] fetch complete: %s (%s)", opts.URL, time.Since(start))
				}
				return
			}
			w.Fail(fmt.Errorf("stream read: %w", readErr))
			return
		}
	}
}

// bufferTier maps a measured throughput floor (bytes/sec) to the
// initial buffer size chosen for that throughput.
type bufferTier struct {
	minBytesPerSec float64
	bufferSize     int64
}

var bufferTiers = []bufferTier{
	{10 * 1024 * 1024, 256 * 1024},
	{5 * 1024 * 1024, 384 * 1024},
	{2 * 1024 * 1024, 512 * 1024},
	{1 * 1024 * 1024, 1024 * 1024},
	{0, 2 * 1024 * 1024},
}

// OptimalInitialBuffer picks the initial-buffer-bytes gate from a
// measured download throughput, using a per-throughput table.
func OptimalInitialBuffer(bytesPerSecond float64) int64 {
	for _, tier := range bufferTiers {
		if bytesPerSecond >= tier.minBytesPerSec {
			return tier.bufferSize
		}
	}
	return bufferTiers[len(bufferTiers)-1].bufferSize
}

const fallbackBytesPerSecond = 1024 * 1024 // ~1 MB/s, used when throughput hasn't been measured yet
const minFallbackBuffer = 256 * 1024

// FallbackInitialBuffer converts a user-selectable buffer-seconds
// setting into a byte count, used when no throughput sample is
// available yet (e.g. before the first chunk of a new stream arrives).
func FallbackInitialBuffer(streamBufferSeconds int) int64 {
	if streamBufferSeconds < 1 {
		streamBufferSeconds = 1
	}
	if streamBufferSeconds > 10 {
		streamBufferSeconds = 10
	}
	size := int64(streamBufferSeconds) * fallbackBytesPerSecond
	if size < minFallbackBuffer {
		return minFallbackBuffer
	}
	return size
}
