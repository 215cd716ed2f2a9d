package audio

import (
	"math/rand"
	"sync"
)

// TrackQueue is a thread-safe FIFO of pending tracks. The currently playing
// track is never stored here; it lives in the session's current slot.
type TrackQueue struct {
	mu    sync.Mutex
	items []QueuedTrack
}

func NewTrackQueue() *TrackQueue {
	return &TrackQueue{}
}

// Enqueue appends a track and returns its 1-based position in the queue.
func (q *TrackQueue) Enqueue(qt QueuedTrack) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, qt)
	return len(q.items)
}

// EnqueueAll appends up to limit tracks from qts, regardless of how many are
// already queued. Tracks beyond the limit are silently dropped and reported
// via truncated, never as an error.
func (q *TrackQueue) EnqueueAll(qts []QueuedTrack, limit int) (accepted int, truncated bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	accepted = len(qts)
	if limit > 0 && accepted > limit {
		accepted = limit
	}
	q.items = append(q.items, qts[:accepted]...)
	return accepted, accepted < len(qts)
}

// DequeueHead removes and returns the head of the queue.
func (q *TrackQueue) DequeueHead() (QueuedTrack, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return QueuedTrack{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Shuffle randomly permutes the queue. With keepHead set, the head slot is
// left in place and only the remainder is permuted.
func (q *TrackQueue) Shuffle(keepHead bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	if keepHead && len(items) > 0 {
		items = items[1:]
	}
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Purge discards all queued tracks.
func (q *TrackQueue) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Snapshot returns a copy of the queue contents in order. Mutating the
// returned slice does not affect the queue.
func (q *TrackQueue) Snapshot() []QueuedTrack {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueuedTrack, len(q.items))
	copy(out, q.items)
	return out
}

func (q *TrackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
