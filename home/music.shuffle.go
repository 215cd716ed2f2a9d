package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/sys"
)

func handleMusicShuffle(event *events.ApplicationCommandInteractionCreate) {
	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	n := gp.session.Shuffle()
	if n == 0 {
		respond(event, sys.MsgQueueEmpty, true)
		return
	}
	respond(event, fmt.Sprintf(sys.MsgShuffledFmt, n), false)
}
