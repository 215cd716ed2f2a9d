package home

import (
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

const (
	colorInfo  = 0x5865F2
	colorError = 0xED4245
)

// channelNotifier implements audio.Notifier by posting embeds to the
// channel a request came from. Sends run on their own goroutine so the
// scheduler never blocks on the REST API.
type channelNotifier struct {
	client *bot.Client
}

func newChannelNotifier(client *bot.Client) *channelNotifier {
	return &channelNotifier{client: client}
}

func (n *channelNotifier) send(req audio.Requester, color int, description string) {
	if req.ChannelID == 0 {
		return
	}
	go func() {
		embed := discord.NewEmbedBuilder().
			SetDescription(description).
			SetColor(color).
			Build()
		_, err := n.client.Rest.CreateMessage(req.ChannelID, discord.MessageCreate{
			Embeds: []discord.Embed{embed},
		})
		if err != nil {
			sys.LogError(MsgNotifySendFailed, req.ChannelID, err)
		}
	}()
}

func (n *channelNotifier) NotifyQueued(req audio.Requester, t audio.Track, position int) {
	n.send(req, colorInfo, fmt.Sprintf(sys.MsgQueuedFmt, sys.Truncate(t.Title, 100), position))
}

func (n *channelNotifier) NotifyPlaylistQueued(req audio.Requester, name string, queued, total int, truncated bool) {
	desc := fmt.Sprintf(sys.MsgQueuedListFmt, queued, total, sys.Truncate(name, 100))
	if truncated {
		desc += fmt.Sprintf(sys.MsgQueueTruncated, playlistLimit())
	}
	n.send(req, colorInfo, desc)
}

func (n *channelNotifier) NotifyNowPlaying(req audio.Requester, t audio.Track) {
	if req.ChannelID == 0 {
		return
	}
	go func() {
		builder := discord.NewEmbedBuilder().
			SetDescription(fmt.Sprintf(sys.MsgNowPlayingFmt,
				sys.Truncate(t.Title, 100), t.URL, t.Author, sys.FormatDuration(t.Duration))).
			SetColor(colorInfo)
		if t.ArtworkURL != "" {
			builder.SetThumbnail(t.ArtworkURL)
		}
		_, err := n.client.Rest.CreateMessage(req.ChannelID, discord.MessageCreate{
			Embeds: []discord.Embed{builder.Build()},
		})
		if err != nil {
			sys.LogError(MsgNotifySendFailed, req.ChannelID, err)
		}
	}()
}

func (n *channelNotifier) NotifyNoMatches(req audio.Requester, query string) {
	n.send(req, colorError, fmt.Sprintf(sys.MsgNoMatchesFmt, sys.Truncate(query, 100)))
}

func (n *channelNotifier) NotifyLoadFailed(req audio.Requester, query string, reason string) {
	n.send(req, colorError, fmt.Sprintf(sys.MsgLoadFailedFmt, sys.Truncate(query, 100), reason))
}

func (n *channelNotifier) NotifyError(req audio.Requester, context string, err error) {
	n.send(req, colorError, fmt.Sprintf("**%s:** %v", context, err))
}

const MsgNotifySendFailed = "Failed to send notification to channel %s: %v"
