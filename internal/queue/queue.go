// Package queue coordinates the in-memory playback queue and its
// persisted session state: current position, ordering, volume, and
// shuffle/repeat mode, so playback can resume after a restart.
package queue

// RepeatMode is the queue's repeat behavior.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Track is one queued playback item, carrying enough metadata to render
// the queue UI and resume playback without a network round trip.
type Track struct {
	ID             uint64
	Title          string
	Artist         string
	Album          string
	DurationSecs   uint64
	ArtworkURL     string
	HiRes          bool
	BitDepth       *uint32
	SampleRate     *float64
	IsLocal        bool
	AlbumID        string
	ArtistID       *uint64
	Streamable     bool
}

// Context is the playback queue's live state: ordering, current index,
// and mode flags. It is not safe for concurrent use without external
// synchronization; callers (the playback engine and the remote-control
// server) serialize access through a single owner.
type Context struct {
	Tracks         []Track
	CurrentIndex   int // -1 when nothing is selected
	PositionSecs   uint64
	Volume         float32
	ShuffleEnabled bool
	RepeatMode     RepeatMode
	WasPlaying     bool

	order []int // shuffle permutation over Tracks, nil when shuffle is off
}

// New returns an empty queue at default volume with repeat off.
func New() *Context {
	return &Context{CurrentIndex: -1, Volume: 0.75, RepeatMode: RepeatOff}
}

// SetTracks replaces the queue contents and resets position to the start.
func (c *Context) SetTracks(tracks []Track) {
	c.Tracks = tracks
	c.CurrentIndex = -1
	c.PositionSecs = 0
	c.order = nil
	if c.ShuffleEnabled {
		c.reshuffle()
	}
}

// Current returns the track at the current index, or false if none is
// selected.
func (c *Context) Current() (Track, bool) {
	if c.CurrentIndex < 0 || c.CurrentIndex >= len(c.Tracks) {
		return Track{}, false
	}
	return c.Tracks[c.CurrentIndex], true
}

// SeekTo selects a specific queue index directly, clearing position.
func (c *Context) SeekTo(index int) bool {
	if index < 0 || index >= len(c.Tracks) {
		return false
	}
	c.CurrentIndex = index
	c.PositionSecs = 0
	return true
}

// Advance moves to the next track per the current repeat/shuffle mode,
// returning false when playback should stop (end of queue, repeat off).
func (c *Context) Advance() bool {
	if len(c.Tracks) == 0 {
		return false
	}

	if c.RepeatMode == RepeatOne {
		c.PositionSecs = 0
		return true
	}

	next := c.nextPosition()
	if next < 0 {
		if c.RepeatMode == RepeatAll {
			c.CurrentIndex = c.firstPosition()
			c.PositionSecs = 0
			return true
		}
		return false
	}

	c.CurrentIndex = next
	c.PositionSecs = 0
	return true
}

func (c *Context) nextPosition() int {
	if !c.ShuffleEnabled {
		if c.CurrentIndex+1 >= len(c.Tracks) {
			return -1
		}
		return c.CurrentIndex + 1
	}

	pos := c.orderIndexOf(c.CurrentIndex)
	if pos < 0 || pos+1 >= len(c.order) {
		return -1
	}
	return c.order[pos+1]
}

func (c *Context) firstPosition() int {
	if !c.ShuffleEnabled || len(c.order) == 0 {
		return 0
	}
	return c.order[0]
}

func (c *Context) orderIndexOf(trackIndex int) int {
	for i, idx := range c.order {
		if idx == trackIndex {
			return i
		}
	}
	return -1
}

// SetShuffle toggles shuffle mode, generating or discarding the
// permutation order as needed. The currently playing track (if any) stays
// at the head of a freshly generated order so toggling shuffle does not
// itself skip the track.
func (c *Context) SetShuffle(enabled bool, perm func(n int) []int) {
	c.ShuffleEnabled = enabled
	if !enabled {
		c.order = nil
		return
	}
	c.reshuffleWith(perm)
}

func (c *Context) reshuffle() {
	c.reshuffleWith(nil)
}

func (c *Context) reshuffleWith(perm func(n int) []int) {
	n := len(c.Tracks)
	if n == 0 {
		c.order = nil
		return
	}

	var indices []int
	if perm != nil {
		indices = perm(n)
	} else {
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i
		}
	}

	if c.CurrentIndex >= 0 {
		for i, idx := range indices {
			if idx == c.CurrentIndex {
				indices[0], indices[i] = indices[i], indices[0]
				break
			}
		}
	}
	c.order = indices
}

// Clear empties the queue entirely, as on sign-out.
func (c *Context) Clear() {
	c.Tracks = nil
	c.CurrentIndex = -1
	c.PositionSecs = 0
	c.WasPlaying = false
	c.order = nil
}
