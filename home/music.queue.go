package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

const queuePageSize = 10

func handleMusicQueue(event *events.ApplicationCommandInteractionCreate) {
	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	current, playing := gp.session.Current()
	items := gp.session.QueueSnapshot()
	if !playing && len(items) == 0 {
		respond(event, sys.MsgQueueEmpty, true)
		return
	}

	var b strings.Builder
	if playing {
		marker := "▶"
		if gp.session.State() == audio.StatePaused {
			marker = "⏸"
		}
		fmt.Fprintf(&b, "%s **[%s](%s)** `%s / %s`\n\n",
			marker,
			sys.Truncate(current.Track.Title, 80), current.Track.URL,
			sys.FormatDuration(gp.session.Position()),
			sys.FormatDuration(current.Track.Duration))
	}

	for i, qt := range items {
		if i >= queuePageSize {
			fmt.Fprintf(&b, "…and **%d** more\n", len(items)-queuePageSize)
			break
		}
		fmt.Fprintf(&b, "`%2d.` [%s](%s) `%s`\n",
			i+1, sys.Truncate(qt.Track.Title, 80), qt.Track.URL,
			sys.FormatDuration(qt.Track.Duration))
	}

	builder := discord.NewEmbedBuilder().
		SetTitle("Queue").
		SetDescription(b.String()).
		SetColor(colorInfo)
	if mode := gp.session.Repeat(); mode != audio.RepeatNone {
		builder.SetFooterText("Repeat: " + mode.String())
	}

	_ = event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{builder.Build()},
	})
}
