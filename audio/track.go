package audio

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track is an immutable descriptor of something playable. It is created once
// at resolution time and never mutated afterwards.
type Track struct {
	URL        string
	Title      string
	Author     string
	Duration   time.Duration
	ArtworkURL string
	Stream     bool
}

// Requester identifies where a request came from. It is carried alongside a
// track purely so outbound notifications can find their way back to the
// originating channel.
type Requester struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
}

// QueuedTrack is a Track bound to its requester context. A QueuedTrack is
// owned by exactly one queue slot, or by the session's current slot once
// promoted.
type QueuedTrack struct {
	Track      Track
	Requester  Requester
	EnqueuedAt time.Time
}

func NewQueuedTrack(t Track, req Requester) QueuedTrack {
	return QueuedTrack{Track: t, Requester: req, EnqueuedAt: time.Now()}
}
