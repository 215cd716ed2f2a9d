package audio

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrack(title string) Track {
	return Track{URL: "https://example.com/" + title, Title: title, Author: "tester"}
}

func testQueued(title string) QueuedTrack {
	return NewQueuedTrack(testTrack(title), Requester{})
}

func TestTrackQueueFIFO(t *testing.T) {
	q := NewTrackQueue()

	assert.Equal(t, 1, q.Enqueue(testQueued("a")))
	assert.Equal(t, 2, q.Enqueue(testQueued("b")))
	assert.Equal(t, 3, q.Enqueue(testQueued("c")))
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		head, ok := q.DequeueHead()
		require.True(t, ok)
		assert.Equal(t, want, head.Track.Title)
	}

	_, ok := q.DequeueHead()
	assert.False(t, ok)
}

func TestTrackQueueEnqueueAllLimit(t *testing.T) {
	tests := []struct {
		name     string
		preload  int
		offered  int
		limit    int
		accepted int
	}{
		{"under limit", 0, 5, 10, 5},
		{"exactly at limit", 0, 10, 10, 10},
		{"over limit", 0, 15, 10, 10},
		{"preloaded queue does not count", 7, 5, 10, 5},
		{"preloaded past limit still accepts", 10, 5, 10, 5},
		{"preloaded over limit offer", 7, 15, 10, 10},
		{"no limit", 0, 50, 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewTrackQueue()
			for i := 0; i < tt.preload; i++ {
				q.Enqueue(testQueued(fmt.Sprintf("pre-%d", i)))
			}

			offered := make([]QueuedTrack, tt.offered)
			for i := range offered {
				offered[i] = testQueued(fmt.Sprintf("new-%d", i))
			}

			accepted, truncated := q.EnqueueAll(offered, tt.limit)
			assert.Equal(t, tt.accepted, accepted)
			assert.Equal(t, tt.accepted < tt.offered, truncated)
			assert.Equal(t, tt.preload+tt.accepted, q.Len())
		})
	}
}

func TestTrackQueueEnqueueAllKeepsOrder(t *testing.T) {
	q := NewTrackQueue()
	_, _ = q.EnqueueAll([]QueuedTrack{testQueued("a"), testQueued("b"), testQueued("c")}, 2)

	snap := q.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Track.Title)
	assert.Equal(t, "b", snap[1].Track.Title)
}

func TestTrackQueueShuffle(t *testing.T) {
	titles := func(items []QueuedTrack) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Track.Title
		}
		return out
	}

	t.Run("keep head", func(t *testing.T) {
		q := NewTrackQueue()
		for i := 0; i < 20; i++ {
			q.Enqueue(testQueued(fmt.Sprintf("t-%d", i)))
		}
		before := titles(q.Snapshot())

		q.Shuffle(true)

		after := titles(q.Snapshot())
		assert.Equal(t, "t-0", after[0])
		assert.ElementsMatch(t, before, after)
	})

	t.Run("full permutation", func(t *testing.T) {
		q := NewTrackQueue()
		for i := 0; i < 20; i++ {
			q.Enqueue(testQueued(fmt.Sprintf("t-%d", i)))
		}
		before := titles(q.Snapshot())

		q.Shuffle(false)

		assert.ElementsMatch(t, before, titles(q.Snapshot()))
	})
}

func TestTrackQueueSnapshotIsCopy(t *testing.T) {
	q := NewTrackQueue()
	q.Enqueue(testQueued("a"))

	snap := q.Snapshot()
	snap[0].Track.Title = "mutated"

	fresh := q.Snapshot()
	assert.Equal(t, "a", fresh[0].Track.Title)
}

func TestTrackQueuePurge(t *testing.T) {
	q := NewTrackQueue()
	q.Enqueue(testQueued("a"))
	q.Enqueue(testQueued("b"))

	q.Purge()

	assert.Equal(t, 0, q.Len())
	_, ok := q.DequeueHead()
	assert.False(t, ok)
}

func TestTrackQueueConcurrentEnqueue(t *testing.T) {
	q := NewTrackQueue()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				q.Enqueue(testQueued(fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, q.Len())
}

func TestTrackQueueConcurrentDequeueHandsOffOnce(t *testing.T) {
	q := NewTrackQueue()

	const total = 400
	for i := 0; i < total; i++ {
		q.Enqueue(testQueued(fmt.Sprintf("t-%d", i)))
	}

	const workers = 8
	drained := make([][]string, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				head, ok := q.DequeueHead()
				if !ok {
					return
				}
				drained[w] = append(drained[w], head.Track.Title)
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[string]int, total)
	for _, titles := range drained {
		for _, title := range titles {
			seen[title]++
		}
	}
	require.Len(t, seen, total, "every queued track must be handed out")
	for title, n := range seen {
		assert.Equal(t, 1, n, "track %s handed to more than one caller", title)
	}
	assert.Equal(t, 0, q.Len())
}
