package audio

// EventBridge adapts the engine's asynchronous playback events and the
// resolver's outcomes into session transitions and user-facing
// notifications. One bridge is wired per session, at creation time.
type EventBridge struct {
	session  *Session
	notifier Notifier
}

// NewEventBridge wires a bridge between a session's engine and the
// notifier. It registers itself as the engine's event listener.
func NewEventBridge(s *Session, notifier Notifier) *EventBridge {
	b := &EventBridge{session: s, notifier: notifier}
	s.engine.SetListener(b.onEngineEvent)
	return b
}

// HandleResolve applies a resolution outcome to the session: successful
// results are enqueued, the rest turn into notifications only.
func (b *EventBridge) HandleResolve(query string, res ResolveResult, req Requester) {
	switch res.Kind {
	case ResolvedTrack:
		position, _ := b.session.Play(res.Track, req)
		b.notifier.NotifyQueued(req, res.Track, position)
	case ResolvedPlaylist:
		queued, truncated, _ := b.session.PlayList(res.Playlist.Tracks, req)
		b.notifier.NotifyPlaylistQueued(req, res.Playlist.Name, queued, len(res.Playlist.Tracks), truncated)
	case ResolvedNoMatches:
		b.notifier.NotifyNoMatches(req, query)
	case ResolveFailed:
		b.notifier.NotifyLoadFailed(req, query, res.Reason)
	}
}

func (b *EventBridge) onEngineEvent(ev Event) {
	switch ev.Kind {
	case EventStarted:
		b.session.handleTrackStart(ev.Track)
		if cur, ok := b.session.Current(); ok {
			b.notifier.NotifyNowPlaying(cur.Requester, cur.Track)
		}
	case EventEnded:
		b.session.handleTrackEnd(ev.Track, ev.Reason)
	}
}
