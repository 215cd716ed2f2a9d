package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct {
	kind  string
	req   Requester
	track Track
	query string
	extra int
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *fakeNotifier) record(c notification) {
	n.mu.Lock()
	n.calls = append(n.calls, c)
	n.mu.Unlock()
}

func (n *fakeNotifier) NotifyQueued(req Requester, t Track, position int) {
	n.record(notification{kind: "queued", req: req, track: t, extra: position})
}

func (n *fakeNotifier) NotifyPlaylistQueued(req Requester, name string, queued, total int, truncated bool) {
	n.record(notification{kind: "playlist", req: req, query: name, extra: queued})
}

func (n *fakeNotifier) NotifyNowPlaying(req Requester, t Track) {
	n.record(notification{kind: "now_playing", req: req, track: t})
}

func (n *fakeNotifier) NotifyNoMatches(req Requester, query string) {
	n.record(notification{kind: "no_matches", req: req, query: query})
}

func (n *fakeNotifier) NotifyLoadFailed(req Requester, query string, reason string) {
	n.record(notification{kind: "load_failed", req: req, query: query})
}

func (n *fakeNotifier) NotifyError(req Requester, context string, err error) {
	n.record(notification{kind: "error", req: req, query: context})
}

func (n *fakeNotifier) snapshot() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.calls))
	copy(out, n.calls)
	return out
}

func newTestBridge() (*EventBridge, *Session, *fakeEngine, *fakeNotifier) {
	engine := &fakeEngine{}
	s := NewSession(1234, engine, newFakeTransport(), SessionOptions{PlaylistLimit: 10})
	notifier := &fakeNotifier{}
	b := NewEventBridge(s, notifier)
	return b, s, engine, notifier
}

func TestBridgeResolvedTrack(t *testing.T) {
	b, s, engine, notifier := newTestBridge()
	req := Requester{GuildID: 1, ChannelID: 2, UserID: 3}

	b.HandleResolve("some song", ResolveResult{Kind: ResolvedTrack, Track: testTrack("hit")}, req)

	assert.Equal(t, []string{"hit"}, engine.startedTitles())
	assert.Equal(t, StatePlaying, s.State())

	calls := notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "queued", calls[0].kind)
	assert.Equal(t, req, calls[0].req)
	assert.Equal(t, 1, calls[0].extra)
}

func TestBridgeResolvedPlaylist(t *testing.T) {
	b, s, _, notifier := newTestBridge()

	res := ResolveResult{
		Kind: ResolvedPlaylist,
		Playlist: Playlist{
			Name:   "mix",
			Tracks: []Track{testTrack("a"), testTrack("b"), testTrack("c")},
		},
	}
	b.HandleResolve("playlist url", res, Requester{})

	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, 2, s.QueueLen())

	calls := notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "playlist", calls[0].kind)
	assert.Equal(t, "mix", calls[0].query)
	assert.Equal(t, 3, calls[0].extra)
}

func TestBridgeNoMatches(t *testing.T) {
	b, s, engine, notifier := newTestBridge()

	b.HandleResolve("gibberish", ResolveResult{Kind: ResolvedNoMatches}, Requester{})

	assert.Empty(t, engine.startedTitles())
	assert.Equal(t, StateIdle, s.State())

	calls := notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "no_matches", calls[0].kind)
	assert.Equal(t, "gibberish", calls[0].query)
}

func TestBridgeLoadFailed(t *testing.T) {
	b, _, _, notifier := newTestBridge()

	b.HandleResolve("bad url", ResolveResult{Kind: ResolveFailed, Reason: "video unavailable"}, Requester{})

	calls := notifier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "load_failed", calls[0].kind)
	assert.Equal(t, "bad url", calls[0].query)
}

func TestBridgeStartedEventNotifiesRequester(t *testing.T) {
	b, _, engine, notifier := newTestBridge()
	req := Requester{GuildID: 1, ChannelID: 42, UserID: 7}

	b.HandleResolve("q", ResolveResult{Kind: ResolvedTrack, Track: testTrack("song")}, req)
	engine.emit(Event{Kind: EventStarted, Track: testTrack("song")})

	calls := notifier.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "now_playing", calls[1].kind)
	assert.Equal(t, req, calls[1].req, "now playing goes back to whoever requested the track")
	assert.Equal(t, "song", calls[1].track.Title)
}

func TestBridgeEndedEventAdvancesSession(t *testing.T) {
	b, s, engine, _ := newTestBridge()
	b.HandleResolve("q1", ResolveResult{Kind: ResolvedTrack, Track: testTrack("a")}, Requester{})
	b.HandleResolve("q2", ResolveResult{Kind: ResolvedTrack, Track: testTrack("b")}, Requester{})

	engine.emit(Event{Kind: EventEnded, Track: testTrack("a"), Reason: EndFinished})

	assert.Equal(t, []string{"a", "b"}, engine.startedTitles())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.Track.Title)
}
