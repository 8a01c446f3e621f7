package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
)

func record(guildID, title string, at time.Time) *entities.PlayRecord {
	return &entities.PlayRecord{
		ID:          title + "-id",
		GuildID:     guildID,
		Title:       title,
		SourceURL:   "https://example.com/" + title,
		RequestedBy: "alice",
		PlayedAt:    at,
	}
}

func TestFileHistoryAppendAndRecent(t *testing.T) {
	repo, err := NewFileHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileHistoryRepository() failed: %v", err)
	}
	ctx := context.Background()
	base := time.Now()

	for i, title := range []string{"one", "two", "three"} {
		if err := repo.Append(ctx, record("g1", title, base.Add(time.Duration(i)*time.Second)), 10); err != nil {
			t.Fatalf("Append(%s) failed: %v", title, err)
		}
	}

	records, err := repo.Recent(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Title != "three" || records[1].Title != "two" {
		t.Errorf("Expected newest first, got %s, %s", records[0].Title, records[1].Title)
	}
}

func TestFileHistoryLimit(t *testing.T) {
	repo, err := NewFileHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileHistoryRepository() failed: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Append(ctx, record("g1", fmt.Sprintf("t%d", i), time.Now()), 3); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	records, err := repo.Recent(ctx, "g1", 0)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[2].Title != "t2" {
		t.Errorf("Expected oldest kept record t2, got %s", records[2].Title)
	}
}

func TestFileHistoryGuildIsolationAndClear(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileHistoryRepository(dir)
	if err != nil {
		t.Fatalf("NewFileHistoryRepository() failed: %v", err)
	}
	ctx := context.Background()

	repo.Append(ctx, record("g1", "a", time.Now()), 10)
	repo.Append(ctx, record("g2", "b", time.Now()), 10)

	guilds, err := repo.Guilds()
	if err != nil {
		t.Fatalf("Guilds() failed: %v", err)
	}
	if len(guilds) != 2 {
		t.Errorf("Expected 2 guild files, got %v", guilds)
	}

	if err := repo.Clear(ctx, "g1"); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if err := repo.Clear(ctx, "g1"); err != nil {
		t.Errorf("Clearing a missing history should succeed, got %v", err)
	}

	records, _ := repo.Recent(ctx, "g1", 10)
	if len(records) != 0 {
		t.Errorf("Expected empty history after clear, got %d", len(records))
	}
	records, _ = repo.Recent(ctx, "g2", 10)
	if len(records) != 1 {
		t.Errorf("Other guild should keep its history, got %d", len(records))
	}

	if _, err := os.Stat(filepath.Join(dir, "g2.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temp file should not be left behind")
	}
}

func TestFileHistoryCancelledContext(t *testing.T) {
	repo, err := NewFileHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileHistoryRepository() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Append(ctx, record("g1", "a", time.Now()), 10); err == nil {
		t.Error("Expected error on cancelled context")
	}
}

func TestFileHistoryConcurrentAppend(t *testing.T) {
	repo, err := NewFileHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileHistoryRepository() failed: %v", err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.Append(ctx, record("g1", fmt.Sprintf("t%d", i), time.Now()), 100); err != nil {
				t.Errorf("Append() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, err := repo.Recent(ctx, "g1", 0)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(records) != 20 {
		t.Errorf("Expected 20 records, got %d", len(records))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123456789", "123456789"},
		{"../etc/passwd", "___etc_passwd"},
		{"guild id", "guild_id"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
