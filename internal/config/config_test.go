package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testToken = "MTIzNDU2Nzg5MDEyMzQ1Njc4.GabcDE.abcdefghijklmnopqrstuvwxyz0123456789"

func TestLoadFromDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")

	cfg, err := LoadFrom(map[string]string{
		"BOT_TOKEN":   testToken,
		"HISTORY_DIR": dir,
	})
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.WelcomeClipPath != "./misc/slavi.wav" {
		t.Errorf("Unexpected welcome clip: %s", cfg.WelcomeClipPath)
	}
	if cfg.WelcomeClipSeconds != 39 {
		t.Errorf("Expected 39 second welcome clip, got %d", cfg.WelcomeClipSeconds)
	}
	if cfg.DrainPollInterval != time.Second {
		t.Errorf("Expected 1s poll interval, got %v", cfg.DrainPollInterval)
	}
	if !cfg.AutoLeave {
		t.Error("AutoLeave should default to true")
	}
	if cfg.Volume != 100 {
		t.Errorf("Expected full volume, got %d", cfg.Volume)
	}
	if cfg.ResolveCacheTTL != 5*time.Minute {
		t.Errorf("Expected 5m cache TTL, got %v", cfg.ResolveCacheTTL)
	}
}

func TestLoadFromValidation(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]string
		errorMsg string
	}{
		{
			name:     "missing token",
			vars:     map[string]string{},
			errorMsg: "BOT_TOKEN",
		},
		{
			name:     "short token",
			vars:     map[string]string{"BOT_TOKEN": "short"},
			errorMsg: "too short",
		},
		{
			name:     "database without url",
			vars:     map[string]string{"BOT_TOKEN": testToken, "USE_DATABASE": "true"},
			errorMsg: "DATABASE_URL",
		},
		{
			name:     "volume out of range",
			vars:     map[string]string{"BOT_TOKEN": testToken, "VOLUME": "150"},
			errorMsg: "VOLUME",
		},
		{
			name:     "zero poll interval",
			vars:     map[string]string{"BOT_TOKEN": testToken, "DRAIN_POLL_INTERVAL": "0s"},
			errorMsg: "DRAIN_POLL_INTERVAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vars["HISTORY_DIR"] = t.TempDir()
			_, err := LoadFrom(tt.vars)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestGetSafeToken(t *testing.T) {
	cfg := &Config{BotToken: testToken}

	masked := cfg.GetSafeToken()
	if strings.Contains(masked, testToken[12:40]) {
		t.Errorf("Token leaked in %q", masked)
	}
	if !strings.HasPrefix(masked, testToken[:10]) {
		t.Errorf("Expected masked token to keep prefix, got %q", masked)
	}
}
