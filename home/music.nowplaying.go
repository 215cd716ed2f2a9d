package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/sys"
)

func handleMusicNowPlaying(event *events.ApplicationCommandInteractionCreate) {
	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	current, playing := gp.session.Current()
	if !playing {
		respond(event, sys.ErrNothingPlaying, true)
		return
	}

	t := current.Track
	builder := discord.NewEmbedBuilder().
		SetDescription(fmt.Sprintf(sys.MsgNowPlayingFmt,
			sys.Truncate(t.Title, 100), t.URL, t.Author,
			fmt.Sprintf("%s / %s",
				sys.FormatDuration(gp.session.Position()),
				sys.FormatDuration(t.Duration)))).
		SetColor(colorInfo)
	if t.ArtworkURL != "" {
		builder.SetThumbnail(t.ArtworkURL)
	}

	_ = event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{builder.Build()},
	})
}
