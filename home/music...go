package home

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/player"
	"github.com/leeineian/otowa/resolve"
	"github.com/leeineian/otowa/sys"
)

// guildPlayer bundles the per-guild pieces the handlers need next to the
// session itself.
type guildPlayer struct {
	session   *audio.Session
	bridge    *audio.EventBridge
	transport *player.Transport
}

var (
	botClient *bot.Client
	registry  *audio.Registry
	resolver  *resolve.Service
	notifier  *channelNotifier
	players   sync.Map // *audio.Session -> *guildPlayer
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "music",
		Description: "Music System",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "play",
				Description: "Play a track or playlist",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:         "query",
						Description:  "The URL or song name to play",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "skip",
				Description: "Skip the current track",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "keep",
						Description: "Put the skipped track back at the end of the queue",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stop",
				Description: "Stop playback, clear the queue and leave",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "pause",
				Description: "Pause the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "resume",
				Description: "Resume a paused track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "queue",
				Description: "Show the current queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "shuffle",
				Description: "Shuffle the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "repeat",
				Description: "Set the repeat mode",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "mode",
						Description: "What to repeat when a track finishes",
						Required:    true,
						Choices: []discord.ApplicationCommandOptionChoiceString{
							{Name: "Off", Value: "none"},
							{Name: "Current track", Value: "track"},
							{Name: "Whole queue", Value: "queue"},
						},
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "volume",
				Description: "Set the playback volume",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "level",
						Description: "Volume percentage (0-200)",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "nowplaying",
				Description: "Show the current track",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return
		}

		switch *data.SubCommandName {
		case "play":
			handleMusicPlay(event, data)
		case "skip":
			handleMusicSkip(event, data)
		case "stop":
			handleMusicStop(event)
		case "pause":
			handleMusicPause(event)
		case "resume":
			handleMusicResume(event)
		case "queue":
			handleMusicQueue(event)
		case "shuffle":
			handleMusicShuffle(event)
		case "repeat":
			handleMusicRepeat(event, data)
		case "volume":
			handleMusicVolume(event, data)
		case "nowplaying":
			handleMusicNowPlaying(event)
		}
	})

	sys.RegisterAutocompleteHandler("music", handleMusicAutocomplete)
	sys.RegisterVoiceStateUpdateHandler(onBotVoiceStateUpdate)

	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		botClient = client
		notifier = newChannelNotifier(client)
		resolver = resolve.NewService(ctx, playlistLimit())
		registry = audio.NewRegistry(newGuildSession)
	})

	sys.RegisterDaemon(sys.LogAudio, func(ctx context.Context) (bool, func(), func()) {
		run := func() { <-ctx.Done() }
		shutdown := func() {
			if registry == nil {
				return
			}
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			registry.Shutdown(closeCtx)
		}
		return true, run, shutdown
	})
}

func playlistLimit() int {
	if sys.GlobalConfig != nil {
		return sys.GlobalConfig.PlaylistLimit
	}
	return 30
}

// newGuildSession is the registry factory: it builds the transport, engine,
// session and bridge for a guild and records the bundle so handlers can get
// back to the non-session pieces.
func newGuildSession(guildID snowflake.ID) *audio.Session {
	transport := player.NewTransport(botClient, guildID)
	engine := player.NewEngine(guildID, transport)

	opts := audio.SessionOptions{PlaylistLimit: playlistLimit()}
	if sys.GlobalConfig != nil {
		opts.IdleGrace = sys.GlobalConfig.IdleGrace
	}
	if gs, err := sys.GetGuildSettings(sys.AppContext, guildID); err == nil {
		opts.Volume = gs.Volume
		opts.Repeat = audio.ParseRepeatMode(gs.RepeatMode)
	}

	session := audio.NewSession(guildID, engine, transport, opts)
	bridge := audio.NewEventBridge(session, notifier)
	players.Store(session, &guildPlayer{session: session, bridge: bridge, transport: transport})
	return session
}

// getPlayer returns the guild's player bundle, creating it on first use.
func getPlayer(guildID snowflake.ID) *guildPlayer {
	session := registry.GetOrCreate(guildID)
	if v, ok := players.Load(session); ok {
		return v.(*guildPlayer)
	}
	return nil
}

// currentPlayer returns the bundle only if the guild already has a session.
func currentPlayer(guildID snowflake.ID) (*guildPlayer, bool) {
	session, ok := registry.Get(guildID)
	if !ok {
		return nil, false
	}
	v, ok := players.Load(session)
	if !ok {
		return nil, false
	}
	return v.(*guildPlayer), true
}

// onBotVoiceStateUpdate stops the session when the bot itself is moved out
// of a voice channel by someone else.
func onBotVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	if registry == nil || botClient == nil {
		return
	}
	if event.VoiceState.UserID != botClient.ApplicationID {
		return
	}
	if event.VoiceState.ChannelID != nil {
		return
	}
	if gp, ok := currentPlayer(event.VoiceState.GuildID); ok {
		gp.transport.MarkDisconnected()
		gp.session.Stop(sys.AppContext)
		sys.LogAudio(MsgKickedFromVoice, event.VoiceState.GuildID)
	}
}

// @audio
const (
	MsgKickedFromVoice = "Guild %s: removed from voice channel, session stopped"
)
