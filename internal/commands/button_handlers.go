package commands

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/vuongmanhnghia/guild-player/internal/services/playback"
)

// handleButtonInteraction handles pagination button clicks ("queue:next", "history:last", ...)
func (h *Handler) handleButtonInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) < 2 {
		return
	}

	current := 0
	if i.Message != nil && len(i.Message.Embeds) > 0 {
		current = pageFromTitle(i.Message.Embeds[0].Title)
	}

	var (
		embed      *discordgo.MessageEmbed
		components []discordgo.MessageComponent
	)

	switch parts[0] {
	case "queue":
		var snap *playback.SessionSnapshot
		total := 0
		if current, err := h.registry.Snapshot(i.GuildID); err == nil {
			snap = &current
			total = len(current.Queued)
			if current.NowPlaying != nil {
				total++
			}
		}
		page, ok := targetPage(parts[1], current, pageCount(total))
		if !ok {
			return
		}
		embed, components = buildQueuePage(snap, page)

	case "history":
		if h.history == nil {
			return
		}
		records, err := h.history.Recent(context.Background(), i.GuildID, h.config.HistoryLimit)
		if err != nil {
			h.logger.ForGuild(i.GuildID).WithError(err).Error("Failed to load history for pagination")
			return
		}
		page, ok := targetPage(parts[1], current, pageCount(len(records)))
		if !ok {
			return
		}
		embed, components = buildHistoryPage(records, page)

	default:
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		h.logger.WithError(err).WithField("button", parts[0]).Error("Failed to update pagination")
	}
}
