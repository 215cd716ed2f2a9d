package home

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

func handleMusicPlay(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	query, _ := data.OptString("query")
	guildID := *event.GuildID()

	voiceState, ok := event.Client().Caches.VoiceState(guildID, event.User().ID)
	if !ok || voiceState.ChannelID == nil {
		respond(event, sys.ErrNotInVoice, true)
		return
	}

	// Instant defer; resolution can take a while.
	_ = event.DeferCreateMessage(false)

	gp := getPlayer(guildID)
	if gp == nil {
		return
	}

	// Join and resolve in parallel.
	joinErr := make(chan error, 1)
	go func() {
		joinErr <- gp.transport.Connect(context.Background(), *voiceState.ChannelID)
	}()

	req := audio.Requester{
		GuildID:   guildID,
		ChannelID: event.Channel().ID(),
		UserID:    event.User().ID,
	}
	res := resolver.Resolve(context.Background(), query)

	if err := <-joinErr; err != nil {
		sys.LogError("Voice join failed for guild %s: %v", guildID, err)
		notifier.NotifyError(req, "Could not join your voice channel", err)
		_ = event.Client().Rest.DeleteInteractionResponse(event.ApplicationID(), event.Token())
		return
	}

	// The bridge posts the outcome to the channel; the placeholder
	// interaction response is no longer needed.
	gp.bridge.HandleResolve(query, res, req)
	_ = event.Client().Rest.DeleteInteractionResponse(event.ApplicationID(), event.Token())
}

func handleMusicAutocomplete(event *events.AutocompleteInteractionCreate) {
	focused := event.Data.Focused()
	if focused.Name != "query" {
		return
	}
	query := focused.String()
	if query == "" || resolver == nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	results := resolver.Search(sys.AppContext, query)

	var choices []discord.AutocompleteChoice
	for i, r := range results {
		if i >= 25 {
			break
		}
		name := sys.Truncate(r.Title, 100)

		// Use the URL as value for instant playback
		val := r.URL
		if len(val) > 100 {
			val = sys.Truncate(r.Title, 100)
		}

		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  name,
			Value: val,
		})
	}
	_ = event.AutocompleteResult(choices)
}

func respond(event *events.ApplicationCommandInteractionCreate, content string, ephemeral bool) {
	msg := discord.MessageCreate{Content: content}
	if ephemeral {
		msg.Flags = msg.Flags.Add(discord.MessageFlagEphemeral)
	}
	_ = event.CreateMessage(msg)
}
