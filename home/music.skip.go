package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/sys"
)

func handleMusicSkip(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	keep, _ := data.OptBool("keep")

	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	skipped, _ := gp.session.Skip(keep)
	if skipped == nil {
		respond(event, sys.ErrNothingPlaying, true)
		return
	}
	respond(event, fmt.Sprintf(sys.MsgSkippedFmt, sys.Truncate(skipped.Title, 100)), false)
}
