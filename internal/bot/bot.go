package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/vuongmanhnghia/guild-player/internal/commands"
	"github.com/vuongmanhnghia/guild-player/internal/config"
	"github.com/vuongmanhnghia/guild-player/internal/database"
	"github.com/vuongmanhnghia/guild-player/internal/domain/repositories"
	"github.com/vuongmanhnghia/guild-player/internal/infrastructure/persistence"
	"github.com/vuongmanhnghia/guild-player/internal/services"
	"github.com/vuongmanhnghia/guild-player/internal/services/audio"
	"github.com/vuongmanhnghia/guild-player/internal/services/playback"
	"github.com/vuongmanhnghia/guild-player/internal/services/resolver"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

const (
	historyWorkers   = 2
	historyQueueSize = 256
)

// invitePermissions are the permissions requested by the invite link
const invitePermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAddReactions |
	discordgo.PermissionVoiceConnect |
	discordgo.PermissionVoiceSpeak |
	discordgo.PermissionVoiceUseVAD

// MusicBot represents the Discord music bot
type MusicBot struct {
	config         *config.Config
	logger         *logger.Logger
	session        *discordgo.Session
	db             *database.DB
	resolver       *resolver.Resolver
	audioService   *audio.AudioService
	historyService *services.HistoryService
	registry       *playback.Registry
	cmdHandler     *commands.Handler
}

// New creates a new MusicBot instance
func New(cfg *config.Config, log *logger.Logger) (*MusicBot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Voice states feed both /join and the auto-leave trigger
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates
	session.StateEnabled = true

	var db *database.DB
	if cfg.UseDatabase {
		ctx := context.Background()
		db, err = database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	mediaResolver, err := resolver.New(resolver.Config{
		YtDlpPath: cfg.YtDlpPath,
		Timeout:   cfg.ResolveTimeout,
		Rate:      cfg.ResolveRate,
		CacheSize: cfg.ResolveCacheSize,
		CacheTTL:  cfg.ResolveCacheTTL,
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	var historyRepo repositories.HistoryRepository
	if db != nil {
		historyRepo = repositories.NewDatabaseHistoryRepository(db)
		log.Info("Using database for play history")
	} else {
		fileRepo, err := persistence.NewFileHistoryRepository(cfg.HistoryDir)
		if err != nil {
			mediaResolver.Close()
			return nil, fmt.Errorf("failed to create history storage: %w", err)
		}
		historyRepo = fileRepo
		log.WithField("dir", cfg.HistoryDir).Info("Using file-based play history")
	}
	historyService := services.NewHistoryService(historyRepo, cfg.HistoryLimit, historyWorkers, historyQueueSize, log)

	audioService := audio.NewAudioService(session, cfg.FFmpegPath, cfg.Volume, log)

	registry := playback.NewRegistry(audioService, playback.Options{
		Notifier:          commands.NewNowPlayingNotifier(session, log),
		Recorder:          historyService,
		DrainPollInterval: cfg.DrainPollInterval,
	}, log)

	stats := commands.StatsSources{
		Cache:   mediaResolver,
		Voice:   audioService,
		History: historyService,
	}
	if db != nil {
		stats.Database = db
	}

	cmdHandler := commands.NewHandler(session, registry, audioService, mediaResolver, historyService, stats, log, cfg)

	bot := &MusicBot{
		config:         cfg,
		logger:         log,
		session:        session,
		db:             db,
		resolver:       mediaResolver,
		audioService:   audioService,
		historyService: historyService,
		registry:       registry,
		cmdHandler:     cmdHandler,
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(cmdHandler.HandleInteraction)
	session.AddHandler(bot.onVoiceStateUpdate)

	return bot, nil
}

// Start starts the bot
func (b *MusicBot) Start(ctx context.Context) error {
	b.logger.Info("Starting services...")

	b.historyService.Start()

	b.logger.Info("Opening Discord connection...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	b.logger.Info("Registering slash commands...")
	if err := b.cmdHandler.RegisterCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Stop stops the bot gracefully
func (b *MusicBot) Stop() {
	b.logger.Info("Shutting down services...")

	// Drivers first so nothing plays into a closing transport
	b.registry.Shutdown()

	b.historyService.Stop()

	b.audioService.CleanupAll()

	b.resolver.Close()

	if b.db != nil {
		b.db.Close()
	}

	b.logger.Info("Closing Discord connection...")
	if err := b.session.Close(); err != nil {
		b.logger.WithError(err).Error("Failed to close Discord session")
	}
}

// onReady is called when the bot is ready
func (b *MusicBot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Infof("✅ Bot is ready! Logged in as %s", event.User.Username)
	b.logger.Infof("📊 Connected to %d guilds", len(event.Guilds))
	b.logger.Infof("🔗 Invite: %s", InviteURL(event.User.ID))

	if err := s.UpdateGameStatus(0, "🎵 /play - /help"); err != nil {
		b.logger.WithError(err).Warn("Failed to update status")
	}
}

// onVoiceStateUpdate leaves a channel once the bot is the only member left in it
func (b *MusicBot) onVoiceStateUpdate(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if !b.config.AutoLeave || s.State == nil || s.State.User == nil {
		return
	}

	guildID := event.GuildID
	botChannelID := b.audioService.GetVoiceChannelID(guildID)

	if !leftBotChannel(event, s.State.User.ID, botChannelID) {
		return
	}

	occupancy := b.audioService.ChannelOccupancy(guildID, botChannelID)

	entry := b.logger.ForGuild(guildID).WithFields(logrus.Fields{
		"channel":   botChannelID,
		"occupancy": occupancy,
	})
	entry.Debug("Voice state update - checking occupancy")

	if occupancy != 1 {
		return
	}

	entry.Info("Only the bot is left in the voice channel, leaving...")

	if err := b.registry.Destroy(guildID); err != nil {
		entry.WithError(err).Debug("No session to destroy")
	}
	if err := b.audioService.Disconnect(guildID); err != nil {
		entry.WithError(err).Warn("Failed to disconnect from guild")
	}
}

// leftBotChannel reports whether another user just left the channel the bot is in
func leftBotChannel(event *discordgo.VoiceStateUpdate, botUserID, botChannelID string) bool {
	if botChannelID == "" || event.VoiceState == nil || event.UserID == botUserID {
		return false
	}
	if event.BeforeUpdate == nil || event.BeforeUpdate.ChannelID != botChannelID {
		return false
	}
	// Muting or deafening in place is not a departure
	return event.ChannelID != botChannelID
}

// InviteURL builds the OAuth2 link that adds the bot to a server
func InviteURL(applicationID string) string {
	return fmt.Sprintf(
		"https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands",
		applicationID, int64(invitePermissions),
	)
}
