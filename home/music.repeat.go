package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

func handleMusicRepeat(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	modeStr, _ := data.OptString("mode")
	mode := audio.ParseRepeatMode(modeStr)
	guildID := *event.GuildID()

	gp := getPlayer(guildID)
	if gp == nil {
		respond(event, sys.ErrNoSession, true)
		return
	}

	gp.session.SetRepeat(mode)
	if err := sys.SetGuildRepeatMode(sys.AppContext, guildID, mode.String()); err != nil {
		sys.LogError("Failed to persist repeat mode for guild %s: %v", guildID, err)
	}
	respond(event, fmt.Sprintf(sys.MsgRepeatSetFmt, mode), false)
}
