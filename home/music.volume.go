package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/sys"
)

func handleMusicVolume(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	level, _ := data.OptInt("level")
	guildID := *event.GuildID()

	gp := getPlayer(guildID)
	if gp == nil {
		respond(event, sys.ErrNoSession, true)
		return
	}

	effective := gp.session.SetVolume(level)
	if err := sys.SetGuildVolume(sys.AppContext, guildID, effective); err != nil {
		sys.LogError("Failed to persist volume for guild %s: %v", guildID, err)
	}
	respond(event, fmt.Sprintf(sys.MsgVolumeSetFmt, effective), false)
}
