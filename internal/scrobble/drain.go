package scrobble

import (
	"context"
	"log/slog"
	"time"
)

// Drainer periodically flushes the offline queue through a submission
// client, retrying failures and giving up on rows that have failed
// enough times to suggest a stale or revoked token rather than a
// transient network blip.
type Drainer struct {
	queue    *Queue
	client   *Client
	interval time.Duration
	pageSize int
	maxRetry int
}

// DefaultDrainInterval is how often a Drainer attempts to flush the
// queue when no interval is supplied.
const DefaultDrainInterval = 2 * time.Minute

const defaultMaxRetry = 10

// NewDrainer builds a Drainer over an already-open queue and client.
func NewDrainer(queue *Queue, client *Client, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	return &Drainer{queue: queue, client: client, interval: interval, pageSize: defaultLimit, maxRetry: defaultMaxRetry}
}

// Run blocks, draining the queue on a timer until ctx is canceled.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil {
				slog.Warn("scrobble drain failed", "error", err)
			}
		}
	}
}

// DrainOnce attempts to submit every pending listen once. Listens that
// fail past maxRetry are left in the queue unsent but no longer logged
// at warn level on every pass, since a human needs to re-auth rather
// than the drainer retrying forever.
func (d *Drainer) DrainOnce(ctx context.Context) error {
	enabled, err := d.queue.IsEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	token, _, err := d.queue.Credentials()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	listens, err := d.queue.Page(d.pageSize)
	if err != nil {
		return err
	}

	var sent []int64
	for _, l := range listens {
		if l.Attempts >= d.maxRetry {
			continue
		}

		info := AdditionalInfo{
			RecordingMBID: l.RecordingMBID,
			ReleaseMBID:   l.ReleaseMBID,
			ArtistMBIDs:   l.ArtistMBIDs,
			ISRC:          l.ISRC,
			DurationMs:    l.DurationMs,
		}
		err := d.client.SubmitListen(ctx, token, l.ArtistName, l.TrackName, l.ReleaseName, l.ListenedAt, info)
		if err != nil {
			slog.Debug("scrobble submission attempt failed", "track", l.TrackName, "attempts", l.Attempts+1, "error", err)
			if incErr := d.queue.IncrementAttempts(l.ID); incErr != nil {
				return incErr
			}
			continue
		}
		sent = append(sent, l.ID)
	}

	if len(sent) == 0 {
		return nil
	}
	return d.queue.MarkSent(sent)
}
