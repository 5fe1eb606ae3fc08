package queue

import "hash/fnv"

// TrackIDFromSlug derives the numeric track id used by the queue and the
// remote-control snapshot from a catalog slug, so callers that only have a
// types.Song (keyed by slug) can populate Track.ID consistently with the
// rest of the numeric-id subsystem (internal/cache, internal/vector).
func TrackIDFromSlug(slug string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(slug))
	return h.Sum64()
}
