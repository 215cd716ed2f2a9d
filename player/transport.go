package player

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/otowa/sys"
)

// Transport owns one guild's voice gateway connection. Connect and
// Disconnect are safe to call concurrently and repeatedly.
type Transport struct {
	client  *bot.Client
	guildID snowflake.ID

	mu         sync.Mutex
	conn       voice.Conn
	channelID  snowflake.ID
	connected  bool
	connecting bool
}

func NewTransport(client *bot.Client, guildID snowflake.ID) *Transport {
	return &Transport{client: client, guildID: guildID}
}

// Connect joins the given voice channel. Joining the channel we are already
// in is a no-op; joining a different one moves the connection.
func (t *Transport) Connect(ctx context.Context, channelID snowflake.ID) error {
	t.mu.Lock()
	if t.connected && t.channelID == channelID {
		t.mu.Unlock()
		return nil
	}
	// Coalesce concurrent joins: wait out an in-flight Open instead of
	// racing a second one against the gateway.
	for t.connecting {
		t.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
		t.mu.Lock()
		if t.connected && t.channelID == channelID {
			t.mu.Unlock()
			return nil
		}
	}
	t.connecting = true
	if t.conn == nil {
		t.conn = t.client.VoiceManager.CreateConn(t.guildID)
	}
	conn := t.conn
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.connecting = false
		t.mu.Unlock()
	}()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err = conn.Open(openCtx, channelID, false, false)
		cancel()
		if err == nil {
			break
		}
		sys.LogPlayer(MsgTransportOpenRetry, t.guildID, attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.channelID = channelID
	t.connected = true
	t.mu.Unlock()
	return nil
}

// Disconnect leaves the voice channel. Safe when not connected.
func (t *Transport) Disconnect(ctx context.Context) {
	t.mu.Lock()
	conn := t.conn
	wasConnected := t.connected
	t.conn = nil
	t.connected = false
	t.channelID = 0
	t.mu.Unlock()

	if conn == nil || !wasConnected {
		return
	}
	conn.Close(ctx)
	sys.LogPlayer(MsgTransportLeft, t.guildID)
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *Transport) Connecting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connecting
}

// ChannelID returns the channel the transport is connected to, if any.
func (t *Transport) ChannelID() (snowflake.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channelID, t.connected
}

// Conn exposes the underlying connection for the frame pipeline. Returns
// nil while disconnected.
func (t *Transport) Conn() voice.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return nil
	}
	return t.conn
}

// MarkDisconnected records an externally observed disconnect (e.g. the bot
// was moved or kicked) without touching the gateway.
func (t *Transport) MarkDisconnected() {
	t.mu.Lock()
	t.conn = nil
	t.connected = false
	t.channelID = 0
	t.mu.Unlock()
}

// @player
const (
	MsgTransportOpenRetry = "Guild %s: voice open attempt %d failed: %v"
	MsgTransportLeft      = "Guild %s: left voice channel"
)
