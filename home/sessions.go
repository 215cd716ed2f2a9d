package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

func init() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "sessions",
		Description:              "Playback session management (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stats",
				Description: "List active playback sessions",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "evict",
				Description: "Tear down this server's playback session",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return
		}

		switch *data.SubCommandName {
		case "stats":
			handleSessionsStats(event)
		case "evict":
			handleSessionsEvict(event)
		}
	})
}

func handleSessionsStats(event *events.ApplicationCommandInteractionCreate) {
	if registry == nil {
		respond(event, sys.ErrNoSession, true)
		return
	}

	type row struct {
		guildID snowflake.ID
		state   audio.State
		queued  int
	}
	var rows []row
	registry.Range(func(s *audio.Session) bool {
		rows = append(rows, row{guildID: s.GuildID, state: s.State(), queued: s.QueueLen()})
		return true
	})

	if len(rows) == 0 {
		respond(event, "No active sessions.", true)
		return
	}

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "`%s` — %s, %d queued\n", r.guildID, r.state, r.queued)
	}
	_ = event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{discord.NewEmbedBuilder().
			SetTitle("Active sessions").
			SetDescription(b.String()).
			SetColor(colorInfo).
			Build()},
		Flags: discord.MessageFlagEphemeral,
	})
}

func handleSessionsEvict(event *events.ApplicationCommandInteractionCreate) {
	guildID := *event.GuildID()
	if registry == nil {
		respond(event, sys.ErrNoSession, true)
		return
	}
	session, ok := registry.Get(guildID)
	if !ok {
		respond(event, sys.ErrNoSession, true)
		return
	}

	registry.Evict(sys.AppContext, guildID)
	players.Delete(session)
	respond(event, "Session evicted.", false)
}
