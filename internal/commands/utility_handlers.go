package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/internal/services"
	"github.com/vuongmanhnghia/guild-player/internal/services/audio"
)

const statsHealthTimeout = 2 * time.Second

// handleJoin joins the caller's channel and plays the welcome clip
func (h *Handler) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if h.voice.IsConnected(i.GuildID) {
		return respondUserError(s, i, apperrors.ErrAlreadyConnected)
	}

	requester := requesterFrom(i)

	channelID, err := h.getUserVoiceChannel(s, i.GuildID, requester.UserID)
	if err != nil {
		return respondUserError(s, i, err)
	}

	if err := h.voice.Connect(i.GuildID, channelID); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyConnected) {
			return respondUserError(s, i, err)
		}
		h.logger.ForGuild(i.GuildID).WithError(err).Warn("Failed to join voice channel")
		return respondUserError(s, i, apperrors.ErrTransportUnavailable)
	}

	if h.config.WelcomeClipPath != "" {
		welcome := entities.NewLocalItem(
			h.config.WelcomeClipPath,
			entities.SecondsToDuration(h.config.WelcomeClipSeconds),
			requester,
		)
		if err := h.registry.SeedWelcomeItem(i.GuildID, welcome); err != nil {
			h.logger.ForGuild(i.GuildID).WithError(err).Warn("Failed to seed welcome clip")
		}
	}

	embed := NewEmbed().
		Title("🔊 Connected").
		Description("Successfully joined your voice channel").
		Color(ColorSuccess).
		Footer("Use /play to start playing music").
		Build()

	return respondEmbed(s, i, embed)
}

// handleLeave destroys the guild's session and leaves voice
func (h *Handler) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := h.requireConnection(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	if err := h.registry.Destroy(i.GuildID); err != nil && !errors.Is(err, apperrors.ErrNoSession) {
		h.logger.ForGuild(i.GuildID).WithError(err).Warn("Failed to destroy session")
	}

	if err := h.voice.Disconnect(i.GuildID); err != nil {
		return respondUserError(s, i, err)
	}

	embed := NewEmbed().
		Title("👋 Disconnected").
		Description("Left the voice channel and cleared all playback state").
		Color(ColorInfo).
		Build()

	return respondEmbed(s, i, embed)
}

// statsReport is what /stats shows. Optional sections are nil when their
// source is not wired.
type statsReport struct {
	Servers   int
	Sessions  int
	LatencyMs int64

	Cache    *cacheReport
	Voice    *audio.Stats
	History  *services.HistoryStats
	Database *databaseReport
}

type cacheReport struct {
	HitRate   float64
	Size      int
	Evictions int64
}

type databaseReport struct {
	Healthy  bool
	Total    int32
	Idle     int32
	Acquired int32
}

// handleStats handles the stats command
func (h *Handler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	report := h.collectStats(len(s.State.Guilds), s.HeartbeatLatency().Milliseconds())
	return respondEmbed(s, i, buildStatsEmbed(report, h.config.BotName, h.config.Version))
}

func (h *Handler) collectStats(servers int, latencyMs int64) statsReport {
	report := statsReport{
		Servers:   servers,
		Sessions:  h.registry.Count(),
		LatencyMs: latencyMs,
	}

	if src := h.stats.Cache; src != nil {
		_, _, evictions, size := src.CacheStats()
		report.Cache = &cacheReport{HitRate: src.CacheHitRate(), Size: size, Evictions: evictions}
	}
	if src := h.stats.Voice; src != nil {
		voice := src.GetStats()
		report.Voice = &voice
	}
	if src := h.stats.History; src != nil {
		history := src.GetStats()
		report.History = &history
	}
	if src := h.stats.Database; src != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statsHealthTimeout)
		defer cancel()

		db := &databaseReport{Healthy: src.Health(ctx) == nil}
		if pool := src.Stats(); pool != nil {
			db.Total = pool.TotalConns()
			db.Idle = pool.IdleConns()
			db.Acquired = pool.AcquiredConns()
		}
		report.Database = db
	}

	return report
}

func buildStatsEmbed(r statsReport, botName, version string) *discordgo.MessageEmbed {
	latencyStatus := "🟢 Excellent"
	if r.LatencyMs > 200 {
		latencyStatus = "🔴 Poor"
	} else if r.LatencyMs > 100 {
		latencyStatus = "🟡 Moderate"
	}

	b := NewEmbed().
		Title("Bot Statistics").
		Color(ColorPrimary).
		Field("Servers", fmt.Sprintf("%d", r.Servers), true).
		Field("Active Sessions", fmt.Sprintf("%d", r.Sessions), true).
		Field("Latency", fmt.Sprintf("%dms %s", r.LatencyMs, latencyStatus), true)

	if r.Voice != nil {
		b.Field("Voice", fmt.Sprintf("%d connected, %d streaming", r.Voice.ActiveConnections, r.Voice.ActivePlayers), true)
	}
	if r.Cache != nil {
		b.Field("Resolver Cache", fmt.Sprintf("%.0f%% hits, %d cached, %d evicted", r.Cache.HitRate*100, r.Cache.Size, r.Cache.Evictions), true)
	}
	if r.History != nil {
		b.Field("History Writes", fmt.Sprintf("%d written, %d failed, %d pending", r.History.Written, r.History.Failed, r.History.Pending), true)
	}
	if r.Database != nil {
		status := "🟢 Healthy"
		if !r.Database.Healthy {
			status = "🔴 Unreachable"
		}
		b.Field("Database", fmt.Sprintf("%s (%d/%d conns in use, %d idle)", status, r.Database.Acquired, r.Database.Total, r.Database.Idle), true)
	}

	return b.
		Footer(fmt.Sprintf("%s v%s", botName, version)).
		Timestamp(time.Now().Format(time.RFC3339)).
		Build()
}

// handleHelp handles the help command
func (h *Handler) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return respondEmbed(s, i, buildHelpEmbed(h.config.BotName, h.config.Version))
}

func buildHelpEmbed(botName, version string) *discordgo.MessageEmbed {
	return NewEmbed().
		Title(botName).
		Color(ColorPrimary).
		Field("Basic",
			"> **`/join` - Join voice channel**\n"+
				"> **`/leave` - Leave and clear state**",
			false).
		Field("Playback",
			"> **`/play <query>` - Play a song**\n"+
				"> **`/pause` - Pause playback**\n"+
				"> **`/resume` - Resume playback**\n"+
				"> **`/skip` - Skip current song**\n"+
				"> **`/stop` - Stop and clear queue**",
			false).
		Field("Queue",
			"> **`/queue` - View current queue**\n"+
				"> **`/nowplaying` - Current song info**\n"+
				"> **`/clear` - Clear the queue**\n"+
				"> **`/history [clear]` - Recently played songs**",
			false).
		Field("Utility",
			"> **`/stats` - Bot statistics**\n"+
				"> **`/help` - Show this help**\n"+
				"> **`/sync` - [Admin] Sync commands**",
			false).
		Footer(fmt.Sprintf("%s v%s • Built with Go", botName, version)).
		Build()
}

// handleSync handles the sync command
func (h *Handler) handleSync(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferEphemeral(s, i); err != nil {
		return err
	}

	if err := h.RegisterCommands(); err != nil {
		h.logger.WithError(err).Error("Failed to sync commands")
		return followUpError(s, i, "Failed to sync commands: "+err.Error())
	}

	h.logger.WithField("user", interactionUser(i).Username).Info("Commands manually synced")

	return followUpSuccess(s, i, "All slash commands have been refreshed with Discord")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
