package audio

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/otowa/sys"
)

// State is the lifecycle phase of a session.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

const (
	MinVolume = 0
	MaxVolume = 200

	DefaultIdleGrace = 30 * time.Second
)

// SessionOptions seeds a new session. Zero values fall back to defaults.
type SessionOptions struct {
	IdleGrace     time.Duration
	Volume        int
	Repeat        RepeatMode
	PlaylistLimit int
}

// Session is the per-guild playback scheduler. It owns the queue, the
// current track slot, the repeat mode and the idle-disconnect timer, and
// sequences every engine call so that exactly one track is active at a time.
//
// All state transitions happen under s.mu; engine and transport calls are
// collected as closures under the lock and invoked only after it is
// released, so no external I/O ever runs while the lock is held.
type Session struct {
	GuildID snowflake.ID

	engine    Engine
	transport VoiceTransport

	mu        sync.Mutex
	state     State
	current   *QueuedTrack
	queue     *TrackQueue
	repeat    RepeatMode
	volume    int
	limit     int
	idleGrace time.Duration
	idleTimer *time.Timer
	idleGen   uint64
	closed    bool
}

func NewSession(guildID snowflake.ID, engine Engine, transport VoiceTransport, opts SessionOptions) *Session {
	s := &Session{
		GuildID:   guildID,
		engine:    engine,
		transport: transport,
		queue:     NewTrackQueue(),
		volume:    100,
		limit:     opts.PlaylistLimit,
		idleGrace: DefaultIdleGrace,
	}
	if opts.IdleGrace > 0 {
		s.idleGrace = opts.IdleGrace
	}
	if opts.Volume != 0 {
		s.volume = clampVolume(opts.Volume)
	}
	s.repeat = opts.Repeat
	engine.SetVolume(s.volume)
	return s
}

// Play enqueues a track. If the session is idle the track is promoted to
// current immediately and playback starts. It returns the queue position the
// track was assigned (counting the current slot) and whether playback began.
func (s *Session) Play(t Track, req Requester) (position int, started bool) {
	qt := NewQueuedTrack(t, req)

	s.mu.Lock()
	s.cancelIdleLocked()
	position = s.queue.Enqueue(qt)
	if s.current != nil {
		position++
	}

	var start *Track
	if s.state == StateIdle {
		start = s.promoteLocked()
		started = start != nil
	}
	s.mu.Unlock()

	if start != nil {
		s.engine.Start(*start)
	}
	return position, started
}

// PlayList enqueues tracks from a playlist, capped at the session's playlist
// limit per call; tracks already queued do not count against the cap. It
// returns how many tracks were accepted, whether any were dropped, and
// whether playback began.
func (s *Session) PlayList(tracks []Track, req Requester) (queued int, truncated bool, started bool) {
	qts := make([]QueuedTrack, len(tracks))
	for i, t := range tracks {
		qts[i] = NewQueuedTrack(t, req)
	}

	s.mu.Lock()
	s.cancelIdleLocked()
	queued, truncated = s.queue.EnqueueAll(qts, s.limit)

	var start *Track
	if s.state == StateIdle {
		start = s.promoteLocked()
		started = start != nil
	}
	s.mu.Unlock()

	if start != nil {
		s.engine.Start(*start)
	}
	return queued, truncated, started
}

// Skip discards the current track and advances. With keepInPlaylist set the
// skipped track is re-appended to the tail of the queue instead of being
// dropped. It returns the skipped track (nil when nothing was playing) and
// whether a next track started.
func (s *Session) Skip(keepInPlaylist bool) (skipped *Track, started bool) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, false
	}
	prev := s.current.Track
	if keepInPlaylist {
		s.queue.Enqueue(*s.current)
	}
	s.current = nil

	start := s.promoteLocked()
	if start == nil {
		s.state = StateIdle
		s.armIdleLocked()
	}
	s.mu.Unlock()

	if start != nil {
		s.engine.Start(*start)
	} else {
		s.engine.Stop()
	}
	return &prev, start != nil
}

// Pause suspends playback. Returns false when nothing is actively playing.
func (s *Session) Pause() bool {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return false
	}
	s.state = StatePaused
	s.mu.Unlock()

	s.engine.SetPaused(true)
	return true
}

// Resume continues paused playback. Returns false when not paused.
func (s *Session) Resume() bool {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return false
	}
	s.state = StatePlaying
	s.mu.Unlock()

	s.engine.SetPaused(false)
	return true
}

// Stop halts playback, purges the queue and disconnects immediately,
// bypassing the idle grace timer.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.queue.Purge()
	s.state = StateIdle
	s.cancelIdleLocked()
	s.mu.Unlock()

	s.engine.Stop()
	s.transport.Disconnect(ctx)
}

// Close is Stop plus a terminal flag so late engine events are ignored.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop(ctx)
}

// Shuffle permutes the queue. While a track is playing, every queued entry
// participates; when nothing is promoted, the head is left in place.
func (s *Session) Shuffle() int {
	s.mu.Lock()
	keepHead := s.current == nil
	s.queue.Shuffle(keepHead)
	n := s.queue.Len()
	s.mu.Unlock()
	return n
}

// SetRepeat replaces the repeat mode. Modes are mutually exclusive.
func (s *Session) SetRepeat(mode RepeatMode) {
	s.mu.Lock()
	s.repeat = mode
	s.mu.Unlock()
}

// SetVolume clamps the requested volume into [MinVolume, MaxVolume], applies
// it to the engine and returns the effective value.
func (s *Session) SetVolume(volume int) int {
	v := clampVolume(volume)
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()

	s.engine.SetVolume(v)
	return v
}

// --- Accessors ---

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a copy of the currently promoted track, if any.
func (s *Session) Current() (QueuedTrack, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return QueuedTrack{}, false
	}
	return *s.current, true
}

func (s *Session) Repeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Session) QueueSnapshot() []QueuedTrack {
	return s.queue.Snapshot()
}

func (s *Session) QueueLen() int {
	return s.queue.Len()
}

func (s *Session) Position() time.Duration {
	return s.engine.Position()
}

// --- Engine event entry points (called by the bridge) ---

// handleTrackStart records that the engine began playing. The session state
// was already set by the transition that issued the Start, so a start event
// without a current track only gets a defensive log.
func (s *Session) handleTrackStart(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		sys.LogAudio(MsgSessionStrayStart, s.GuildID, t.Title)
	}
}

// handleTrackEnd advances the scheduler after the engine reports a track
// ended. Only natural end reasons advance; Replaced and Stopped ends were
// produced by a transition that already decided what happens next.
func (s *Session) handleTrackEnd(t Track, reason EndReason) {
	s.mu.Lock()
	if s.closed || !reason.MayStartNext() {
		s.mu.Unlock()
		return
	}
	if s.current == nil {
		sys.LogAudio(MsgSessionStrayEnd, s.GuildID, reason)
		s.mu.Unlock()
		return
	}

	var start *Track
	if s.repeat == RepeatTrack && reason == EndFinished {
		restart := s.current.Track
		start = &restart
	} else {
		if s.repeat == RepeatQueue && reason == EndFinished {
			s.queue.Enqueue(*s.current)
		}
		s.current = nil
		start = s.promoteLocked()
		if start == nil {
			s.state = StateIdle
			s.armIdleLocked()
		}
	}
	s.mu.Unlock()

	if start != nil {
		s.engine.Start(*start)
	}
}

// --- Internal (callers hold s.mu) ---

// promoteLocked moves the queue head into the current slot and marks the
// session playing. Returns nil when the queue is empty.
func (s *Session) promoteLocked() *Track {
	head, ok := s.queue.DequeueHead()
	if !ok {
		return nil
	}
	s.current = &head
	s.state = StatePlaying
	s.cancelIdleLocked()
	t := head.Track
	return &t
}

// armIdleLocked schedules the idle disconnect. Re-arming replaces any
// pending timer, so at most one disconnect can fire per idle period. The
// callback carries the generation it was armed with rather than the timer
// handle, which is not yet assigned when a very short grace fires.
func (s *Session) armIdleLocked() {
	s.cancelIdleLocked()
	if s.idleGrace <= 0 {
		return
	}
	gen := s.idleGen
	s.idleTimer = time.AfterFunc(s.idleGrace, func() {
		s.onIdleExpired(gen)
	})
}

// cancelIdleLocked stops the pending timer and bumps the generation so a
// callback that already fired but has not yet run finds itself stale.
func (s *Session) cancelIdleLocked() {
	s.idleGen++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// onIdleExpired disconnects if the session is still idle and the firing
// timer's generation is still the armed one. A timer that lost a race with
// a new play request finds itself superseded and does nothing.
func (s *Session) onIdleExpired(gen uint64) {
	s.mu.Lock()
	if s.state != StateIdle || gen != s.idleGen {
		s.mu.Unlock()
		return
	}
	s.idleTimer = nil
	s.mu.Unlock()

	sys.LogAudio(MsgSessionIdleDisconnect, s.GuildID)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.transport.Disconnect(ctx)
}

func clampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// @audio internal log lines
const (
	MsgSessionStrayStart     = "Guild %s: start event for %q with no current track"
	MsgSessionStrayEnd       = "Guild %s: end event (%s) with no current track"
	MsgSessionIdleDisconnect = "Guild %s: idle grace elapsed, disconnecting"
)
