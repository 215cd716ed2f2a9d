package home

import (
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/sys"
)

func handleMusicPause(event *events.ApplicationCommandInteractionCreate) {
	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	if !gp.session.Pause() {
		respond(event, sys.ErrNothingPlaying, true)
		return
	}
	respond(event, sys.MsgPaused, false)
}

func handleMusicResume(event *events.ApplicationCommandInteractionCreate) {
	gp, ok := currentPlayer(*event.GuildID())
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	if !gp.session.Resume() {
		respond(event, sys.MsgNotPaused, true)
		return
	}
	respond(event, sys.MsgResumed, false)
}
