package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dhowden/tag"
)

// TwoTier wires L1 memory and L2 disk together behind a single Get/Store
// surface, matching the module doc's "memory -> disk -> network" lookup
// order.
type TwoTier struct {
	Memory *Memory
	Disk   *Disk
}

// NewTwoTier builds a TwoTier cache over an already-open L1/L2 pair.
func NewTwoTier(memory *Memory, disk *Disk) *TwoTier {
	return &TwoTier{Memory: memory, Disk: disk}
}

// Get checks L1, then L2, returning the track bytes and which tier served
// it ("memory", "disk", or "" on a full miss).
func (t *TwoTier) Get(trackID uint64) ([]byte, string, error) {
	if track, ok := t.Memory.Get(trackID); ok {
		return track.Data, "memory", nil
	}

	if t.Disk == nil {
		return nil, "", nil
	}
	path, ok, err := t.Disk.GetFilePath(trackID)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read disk cache file: %w", err)
	}
	_ = t.Disk.Touch(trackID)
	t.Memory.Insert(trackID, data)
	return data, "disk", nil
}

// StoreDownloaded writes a freshly downloaded file to L2 at its final
// path, reads back its ID3 tags as a readability check whose result is
// not used (the download pipeline already carries authoritative metadata),
// marks it ready, and warms L1 with the bytes.
func (t *TwoTier) StoreDownloaded(trackID uint64, info TrackInfo, r io.Reader) error {
	path := t.Disk.FilePath(trackID, info.Title, formatExtension(info.Quality))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create track directory: %w", err)
	}

	if err := t.Disk.InsertTrack(info, path); err != nil {
		return err
	}
	if err := t.Disk.UpdateStatus(trackID, StatusDownloading, ""); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		_ = t.Disk.UpdateStatus(trackID, StatusFailed, err.Error())
		return fmt.Errorf("create track file: %w", err)
	}
	written, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		_ = t.Disk.UpdateStatus(trackID, StatusFailed, err.Error())
		return fmt.Errorf("write track file: %w", err)
	}
	if closeErr != nil {
		_ = t.Disk.UpdateStatus(trackID, StatusFailed, closeErr.Error())
		return fmt.Errorf("close track file: %w", closeErr)
	}

	if tagFile, err := os.Open(path); err == nil {
		if _, tagErr := tag.ReadFrom(tagFile); tagErr != nil {
			// Unreadable or absent tags don't invalidate an otherwise
			// good download; the file is still usable for playback.
		}
		_ = tagFile.Close()
	}

	if err := t.Disk.MarkComplete(trackID, uint64(written)); err != nil {
		return err
	}
	if data, err := os.ReadFile(path); err == nil {
		t.Memory.Insert(trackID, data)
	}
	return t.Disk.EnsureBudget()
}

func formatExtension(quality string) string {
	switch quality {
	case "mp3":
		return "mp3"
	default:
		return "flac"
	}
}

