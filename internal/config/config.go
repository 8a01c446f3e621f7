package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Bot Settings
	BotToken       string `env:"BOT_TOKEN,required"`
	BotName        string `env:"BOT_NAME" envDefault:"Guild Player"`
	Version        string `env:"VERSION" envDefault:"1.0.0"`
	CommandGuildID string `env:"COMMAND_GUILD_ID"`
	AutoLeave      bool   `env:"AUTO_LEAVE" envDefault:"true"`

	// Media tools
	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	YtDlpPath  string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	Volume     int    `env:"VOLUME" envDefault:"100"`

	// Welcome clip played by /join
	WelcomeClipPath    string `env:"WELCOME_CLIP_PATH" envDefault:"./misc/slavi.wav"`
	WelcomeClipSeconds int    `env:"WELCOME_CLIP_SECONDS" envDefault:"39"`

	// Playback
	DrainPollInterval time.Duration `env:"DRAIN_POLL_INTERVAL" envDefault:"1s"`

	// Resolver
	ResolveTimeout   time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`
	ResolveRate      float64       `env:"RESOLVE_RATE" envDefault:"2"`
	ResolveCacheSize int           `env:"RESOLVE_CACHE_SIZE" envDefault:"500"`
	ResolveCacheTTL  time.Duration `env:"RESOLVE_CACHE_TTL" envDefault:"5m"`

	// Play history
	UseDatabase  bool   `env:"USE_DATABASE" envDefault:"false"`
	DatabaseURL  string `env:"DATABASE_URL"`
	HistoryDir   string `env:"HISTORY_DIR" envDefault:"./history"`
	HistoryLimit int    `env:"HISTORY_LIMIT" envDefault:"50"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment, after merging an optional .env file
func Load() (*Config, error) {
	// Missing .env is fine, real deployments use the environment
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return finish(cfg)
}

// LoadFrom parses configuration from an explicit variable map
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.UseDatabase {
		if err := os.MkdirAll(cfg.HistoryDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	if len(c.BotToken) < 50 {
		return fmt.Errorf("invalid BOT_TOKEN format (too short)")
	}

	if c.UseDatabase && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when USE_DATABASE is enabled")
	}

	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("VOLUME must be between 0 and 100")
	}

	if c.WelcomeClipSeconds < 0 {
		return fmt.Errorf("WELCOME_CLIP_SECONDS must not be negative")
	}

	if c.DrainPollInterval <= 0 {
		return fmt.Errorf("DRAIN_POLL_INTERVAL must be positive")
	}

	if c.ResolveRate <= 0 {
		return fmt.Errorf("RESOLVE_RATE must be positive")
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}

	return nil
}

// GetSafeToken returns a masked version of the token for logging
func (c *Config) GetSafeToken() string {
	if len(c.BotToken) < 15 {
		return "***"
	}
	return c.BotToken[:10] + "..." + c.BotToken[len(c.BotToken)-4:]
}
