package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vuongmanhnghia/guild-player/internal/bot"
	"github.com/vuongmanhnghia/guild-player/internal/config"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Reconfigure with the configured level and format
	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Infof("Starting %s v%s", cfg.BotName, cfg.Version)
	log.WithField("token", cfg.GetSafeToken()).Debug("Configuration loaded")
	log.Infof("Auto leave: %v", cfg.AutoLeave)

	musicBot, err := bot.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx := context.Background()
	if err := musicBot.Start(ctx); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Info("✅ Bot is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info("Shutting down gracefully...")
	musicBot.Stop()
	log.Info("Bot stopped successfully")
}
