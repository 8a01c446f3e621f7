package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/internal/services/playback"
)

// handleQueue handles the queue command
func (h *Handler) handleQueue(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	var snap *playback.SessionSnapshot
	if current, err := h.registry.Snapshot(i.GuildID); err == nil {
		snap = &current
	} else if !errors.Is(err, apperrors.ErrNoSession) {
		return respondUserError(s, i, err)
	}

	embed, components := buildQueuePage(snap, 0)

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

// handleNowPlaying handles the nowplaying command
func (h *Handler) handleNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	snap, err := h.registry.Snapshot(i.GuildID)
	if err != nil {
		return respondUserError(s, i, err)
	}
	if snap.NowPlaying == nil {
		return respondUserError(s, i, apperrors.ErrNoSession)
	}

	embed := BuildNowPlayingEmbed(snap.NowPlaying)

	status := "Playing"
	if h.voice.IsPaused(i.GuildID) {
		status = "Paused"
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Status", Value: status, Inline: true},
	)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /skip to play next song"}

	return respondEmbed(s, i, embed)
}

// handleClear drops the queued items, leaving the current one playing
func (h *Handler) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.requireConnection(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	removed, err := h.registry.ClearQueue(i.GuildID)
	if err != nil {
		return respondUserError(s, i, err)
	}

	h.logger.ForGuild(i.GuildID).WithField("removed", removed).Info("Queue cleared")

	embed := NewEmbed().
		Title("🧹 Queue Cleared").
		Description(pluralize(removed, "song", "songs") + " removed from the queue").
		Color(ColorWarning).
		Build()

	return respondEmbed(s, i, embed)
}

// handleHistory shows the guild's recent plays
func (h *Handler) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if h.history == nil {
		return respondError(s, i, "Play history is disabled")
	}

	if boolOption(i.ApplicationCommandData().Options, "clear") {
		if err := h.history.Clear(context.Background(), i.GuildID); err != nil {
			h.logger.ForGuild(i.GuildID).WithError(err).Error("Failed to clear history")
			return respondError(s, i, "Failed to clear play history")
		}

		embed := NewEmbed().
			Title("🗑️ History Cleared").
			Description("This server's play history has been erased").
			Color(ColorSuccess).
			Build()
		return respondEmbed(s, i, embed)
	}

	records, err := h.history.Recent(context.Background(), i.GuildID, h.config.HistoryLimit)
	if err != nil {
		return respondError(s, i, "Failed to load play history")
	}

	embed, components := buildHistoryPage(records, 0)

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

// boolOption returns the named boolean option, false when absent
func boolOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionBoolean {
			return opt.BoolValue()
		}
	}
	return false
}
