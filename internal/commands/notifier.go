package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

// NowPlayingNotifier posts a "Now Playing" embed to the channel an item was requested from
type NowPlayingNotifier struct {
	session *discordgo.Session
	logger  *logger.Logger
}

// NewNowPlayingNotifier creates a notifier sending through the gateway session
func NewNowPlayingNotifier(session *discordgo.Session, log *logger.Logger) *NowPlayingNotifier {
	return &NowPlayingNotifier{
		session: session,
		logger:  log,
	}
}

// NotifyNowPlaying sends the now-playing embed for item
func (n *NowPlayingNotifier) NotifyNowPlaying(item *entities.PlayItem) error {
	requester := item.Requester()
	if requester.ChannelID == "" {
		return nil
	}

	if _, err := n.session.ChannelMessageSendEmbed(requester.ChannelID, BuildNowPlayingEmbed(item)); err != nil {
		return fmt.Errorf("failed to send now playing notice: %w", err)
	}

	n.logger.ForGuild(requester.GuildID).WithField("title", item.DisplayName()).Debug("Now playing notice sent")
	return nil
}

// BuildNowPlayingEmbed renders an item as a "Now Playing" embed
func BuildNowPlayingEmbed(item *entities.PlayItem) *discordgo.MessageEmbed {
	media := item.Media()
	requester := item.Requester()

	builder := NewEmbed().
		Title("Now Playing").
		Description(itemLink(item)).
		Color(ColorPrimary).
		Thumbnail(media.ThumbnailURL).
		Field("Duration", item.DurationFormatted(), true)

	if requester.Username != "" {
		builder.Author(requester.Username, requester.AvatarURL, "")
	}

	return builder.Build()
}

// buildEnqueuedEmbed confirms a /play request
func buildEnqueuedEmbed(item *entities.PlayItem, created bool) *discordgo.MessageEmbed {
	title := "🎵 Added to Queue"
	if created {
		title = "🎵 Starting Playback"
	}

	return NewEmbed().
		Title(title).
		Description(itemLink(item)).
		Color(ColorSuccess).
		Thumbnail(item.Media().ThumbnailURL).
		Field("Duration", item.DurationFormatted(), true).
		Footer("Use /queue to view the queue").
		Build()
}

// itemLink renders [title](url) when the item has a source page
func itemLink(item *entities.PlayItem) string {
	media := item.Media()
	if media.SourceURL == "" {
		return fmt.Sprintf("**%s**", item.DisplayName())
	}
	return fmt.Sprintf("[%s](%s)", item.DisplayName(), media.SourceURL)
}
