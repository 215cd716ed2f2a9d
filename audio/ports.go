package audio

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// RepeatMode controls what happens when the current track finishes on its own.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatTrack
	RepeatQueue
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatTrack:
		return "track"
	case RepeatQueue:
		return "queue"
	default:
		return "none"
	}
}

// ParseRepeatMode maps a stored or user-supplied string back to a mode.
// Unknown values fall back to RepeatNone.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "track":
		return RepeatTrack
	case "queue":
		return RepeatQueue
	default:
		return RepeatNone
	}
}

// EndReason describes why playback of a track stopped.
type EndReason int

const (
	// EndFinished means the track ran to completion.
	EndFinished EndReason = iota
	// EndLoadFailed means the track could not be loaded or the stream died
	// before producing audio.
	EndLoadFailed
	// EndReplaced means another track was started over this one.
	EndReplaced
	// EndStopped means playback was deliberately stopped.
	EndStopped
)

// MayStartNext reports whether the scheduler is allowed to advance to the
// next queued track after this end reason.
func (r EndReason) MayStartNext() bool {
	return r == EndFinished || r == EndLoadFailed
}

func (r EndReason) String() string {
	switch r {
	case EndFinished:
		return "finished"
	case EndLoadFailed:
		return "load_failed"
	case EndReplaced:
		return "replaced"
	case EndStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventKind discriminates engine events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventEnded
)

// Event is emitted by an Engine whenever playback starts or ends. Events are
// delivered asynchronously, from the engine's own goroutines.
type Event struct {
	Kind   EventKind
	Track  Track
	Reason EndReason
}

// Engine drives actual audio playback for one guild. Implementations must be
// safe for concurrent use and must never block the caller on network I/O:
// Start returns immediately and reports the outcome through the listener.
//
// Exactly one Ended event is emitted per Started event.
type Engine interface {
	// Start begins playback of a track, replacing whatever is playing.
	Start(track Track)
	// Stop tears down the current pipeline. No-op when nothing is playing.
	Stop()
	// SetPaused suspends or resumes frame delivery without losing position.
	SetPaused(paused bool)
	// SetVolume applies a percentage in [0, 200].
	SetVolume(volume int)
	// Position returns how far into the current track playback is.
	Position() time.Duration
	// SetListener registers the single event callback. Must be called
	// before the first Start.
	SetListener(fn func(Event))
}

// VoiceTransport owns the guild's voice channel connection lifecycle.
// Connect and Disconnect must be idempotent; the scheduler may issue either
// redundantly around races.
type VoiceTransport interface {
	Connect(ctx context.Context, channelID snowflake.ID) error
	Disconnect(ctx context.Context)
	Connected() bool
	Connecting() bool
}

// Notifier delivers one-way, fire-and-forget messages back to the channel a
// request came from. Implementations must not block the caller.
type Notifier interface {
	NotifyQueued(req Requester, t Track, position int)
	NotifyPlaylistQueued(req Requester, name string, queued, total int, truncated bool)
	NotifyNowPlaying(req Requester, t Track)
	NotifyNoMatches(req Requester, query string)
	NotifyLoadFailed(req Requester, query string, reason string)
	NotifyError(req Requester, context string, err error)
}

// ResolveKind discriminates resolution outcomes.
type ResolveKind int

const (
	ResolvedTrack ResolveKind = iota
	ResolvedPlaylist
	ResolvedNoMatches
	ResolveFailed
)

// Playlist is an ordered collection of resolved tracks.
type Playlist struct {
	Name   string
	Tracks []Track
}

// ResolveResult is the outcome of resolving a user query into tracks.
type ResolveResult struct {
	Kind     ResolveKind
	Track    Track
	Playlist Playlist
	Reason   string
}

// Resolver turns a raw user query (URL or search terms) into tracks.
type Resolver interface {
	Resolve(ctx context.Context, query string) ResolveResult
}
