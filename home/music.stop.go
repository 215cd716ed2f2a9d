package home

import (
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/sys"
)

func handleMusicStop(event *events.ApplicationCommandInteractionCreate) {
	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	gp.session.Stop(sys.AppContext)
	respond(event, sys.MsgStopped, false)
}
