package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/internal/validation"
)

// handlePlay resolves the query and enqueues it, joining the caller's channel first if needed
func (h *Handler) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondUserError(s, i, apperrors.ErrInvalidInput)
	}

	query, err := validation.ValidateQuery(options[0].StringValue())
	if err != nil {
		return respondUserError(s, i, err)
	}

	requester := requesterFrom(i)

	if !h.voice.IsConnected(i.GuildID) {
		channelID, err := h.getUserVoiceChannel(s, i.GuildID, requester.UserID)
		if err != nil {
			return respondUserError(s, i, err)
		}
		if err := h.voice.Connect(i.GuildID, channelID); err != nil && !errors.Is(err, apperrors.ErrAlreadyConnected) {
			h.logger.ForGuild(i.GuildID).WithError(err).Warn("Failed to join voice channel")
			return respondUserError(s, i, apperrors.ErrTransportUnavailable)
		}
	}

	// Resolution can take a few seconds
	if err := deferResponse(s, i); err != nil {
		return err
	}

	item, err := h.resolver.ResolveItem(context.Background(), query, requester)
	if err != nil {
		h.logger.ForGuild(i.GuildID).WithError(err).WithField("query", query).Warn("Failed to resolve query")
		return followUpUserError(s, i, err)
	}

	created, err := h.registry.Enqueue(i.GuildID, item)
	if err != nil {
		return followUpUserError(s, i, err)
	}

	h.logger.ForGuild(i.GuildID).WithFields(logrus.Fields{
		"title":   item.DisplayName(),
		"created": created,
	}).Info("Item enqueued")

	return followUpEmbed(s, i, buildEnqueuedEmbed(item, created))
}

// handlePause handles the pause command
func (h *Handler) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.requireConnection(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}
	if err := h.registry.Pause(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	embed := NewEmbed().
		Title("⏸️ Playback Paused").
		Description("Use `/resume` to continue playing").
		Color(ColorWarning).
		Build()

	return respondEmbed(s, i, embed)
}

// handleResume handles the resume command
func (h *Handler) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.requireConnection(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}
	if err := h.registry.Resume(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	embed := NewEmbed().
		Title("▶️ Playback Resumed").
		Description("Music is now playing").
		Color(ColorSuccess).
		Build()

	return respondEmbed(s, i, embed)
}

// handleSkip abandons the current item; the next queued one starts
func (h *Handler) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.requireConnection(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	next, err := h.registry.Skip(i.GuildID)
	if err != nil {
		return respondUserError(s, i, err)
	}

	description := "No more songs in queue"
	if next != nil {
		description = fmt.Sprintf("Up next: **%s**", next.DisplayName())
	}

	embed := NewEmbed().
		Title("⏭️ Skipped").
		Description(description).
		Color(ColorInfo).
		Build()

	return respondEmbed(s, i, embed)
}

// handleStop handles the stop command
func (h *Handler) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.requireConnection(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}
	if err := h.registry.StopAndClear(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	embed := NewEmbed().
		Title("⏹️ Playback Stopped").
		Description("Playback has been stopped and the queue has been cleared").
		Color(ColorError).
		Build()

	return respondEmbed(s, i, embed)
}
