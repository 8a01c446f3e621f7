package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/vuongmanhnghia/guild-player/internal/config"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/internal/services"
	"github.com/vuongmanhnghia/guild-player/internal/services/audio"
	"github.com/vuongmanhnghia/guild-player/internal/services/playback"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

// Voice is the part of the voice transport the commands drive directly
type Voice interface {
	Connect(guildID, channelID string) error
	Disconnect(guildID string) error
	IsConnected(guildID string) bool
	IsPaused(guildID string) bool
}

// HistoryStore reads and clears a guild's play history
type HistoryStore interface {
	Recent(ctx context.Context, guildID string, n int) ([]*entities.PlayRecord, error)
	Clear(ctx context.Context, guildID string) error
}

// CacheReporter exposes resolver cache statistics
type CacheReporter interface {
	CacheStats() (hits, misses, evictions int64, size int)
	CacheHitRate() float64
}

// VoiceReporter exposes voice resource counts
type VoiceReporter interface {
	GetStats() audio.Stats
}

// HistoryReporter exposes history write statistics
type HistoryReporter interface {
	GetStats() services.HistoryStats
}

// DatabaseReporter exposes database health and pool statistics
type DatabaseReporter interface {
	Health(ctx context.Context) error
	Stats() *pgxpool.Stat
}

// StatsSources feed /stats. Nil sources are left out.
type StatsSources struct {
	Cache    CacheReporter
	Voice    VoiceReporter
	History  HistoryReporter
	Database DatabaseReporter
}

// Handler manages all bot commands
type Handler struct {
	session  *discordgo.Session
	registry *playback.Registry
	voice    Voice
	resolver playback.MediaResolver
	history  HistoryStore // nil when history is disabled
	stats    StatsSources
	logger   *logger.Logger
	config   *config.Config
}

// NewHandler creates a new command handler
func NewHandler(
	session *discordgo.Session,
	registry *playback.Registry,
	voice Voice,
	resolver playback.MediaResolver,
	history HistoryStore,
	stats StatsSources,
	log *logger.Logger,
	config *config.Config,
) *Handler {
	return &Handler{
		session:  session,
		registry: registry,
		voice:    voice,
		resolver: resolver,
		history:  history,
		stats:    stats,
		logger:   log,
		config:   config,
	}
}

// RegisterCommands registers all slash commands with Discord.
// Commands go to COMMAND_GUILD_ID when set, globally otherwise.
func (h *Handler) RegisterCommands() error {
	commands := GetCommands()

	_, err := h.session.ApplicationCommandBulkOverwrite(h.session.State.User.ID, h.config.CommandGuildID, commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"count": len(commands),
		"guild": h.config.CommandGuildID,
	}).Info("✅ All commands registered")
	return nil
}

// HandleInteraction routes incoming interactions to appropriate handlers
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error("Recovered from panic in command handler")
			_ = respondError(s, i, "An internal error occurred")
		}
	}()

	if i.Type == discordgo.InteractionMessageComponent {
		h.handleButtonInteraction(s, i)
		return
	}

	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if i.GuildID == "" {
		_ = respondError(s, i, "Commands only work inside a server")
		return
	}

	data := i.ApplicationCommandData()

	h.logger.WithFields(logrus.Fields{
		"command": data.Name,
		"guild":   i.GuildID,
		"user":    interactionUser(i).Username,
	}).Info("Command received")

	var err error
	switch data.Name {
	// Playback commands
	case "play":
		err = h.handlePlay(s, i)
	case "pause":
		err = h.handlePause(s, i)
	case "resume":
		err = h.handleResume(s, i)
	case "skip":
		err = h.handleSkip(s, i)
	case "stop":
		err = h.handleStop(s, i)

	// Queue commands
	case "queue":
		err = h.handleQueue(s, i)
	case "nowplaying":
		err = h.handleNowPlaying(s, i)
	case "clear":
		err = h.handleClear(s, i)
	case "history":
		err = h.handleHistory(s, i)

	// Utility commands
	case "join":
		err = h.handleJoin(s, i)
	case "leave":
		err = h.handleLeave(s, i)
	case "stats":
		err = h.handleStats(s, i)
	case "help":
		err = h.handleHelp(s, i)
	case "sync":
		err = h.handleSync(s, i)

	default:
		err = respondError(s, i, "Unknown command")
	}

	if err != nil {
		h.logger.WithError(err).WithField("command", data.Name).Error("Command handler failed")
	}
}

// getUserVoiceChannel gets the user's current voice channel
func (h *Handler) getUserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", apperrors.ErrNotInVoiceChannel
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}

	return "", apperrors.ErrNotInVoiceChannel
}

// requireConnection reports ErrNotConnected when the bot is not in voice
func (h *Handler) requireConnection(guildID string) error {
	if !h.voice.IsConnected(guildID) {
		return apperrors.ErrNotConnected
	}
	return nil
}

// interactionUser returns the invoking user for guild and DM interactions
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{}
}

// requesterFrom captures where now-playing notices for an item should go
func requesterFrom(i *discordgo.InteractionCreate) entities.Requester {
	user := interactionUser(i)

	avatar := ""
	if user.ID != "" {
		avatar = user.AvatarURL("")
	}

	return entities.Requester{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		UserID:    user.ID,
		Username:  user.Username,
		AvatarURL: avatar,
	}
}
