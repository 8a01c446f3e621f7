package entities_test

import (
	"testing"
	"time"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
)

func testRequester() entities.Requester {
	return entities.Requester{
		GuildID:   "123456789",
		ChannelID: "987654321",
		UserID:    "42",
		Username:  "TestUser",
	}
}

func TestLocalItemCreation(t *testing.T) {
	item := entities.NewLocalItem("./misc/slavi.wav", entities.SecondsToDuration(39), testRequester())

	if item.ID() == "" {
		t.Error("Item ID should not be empty")
	}
	if item.Origin() != valueobjects.OriginLocal {
		t.Errorf("Expected local origin, got %s", item.Origin())
	}
	if item.IsResolved() {
		t.Error("Local item should not be resolved")
	}
	if item.Duration() != 39*time.Second {
		t.Errorf("Expected 39s, got %v", item.Duration())
	}
	if item.DisplayName() != "./misc/slavi.wav" {
		t.Errorf("Local item should display its path, got %q", item.DisplayName())
	}
	if item.Media() != (valueobjects.MediaInfo{}) {
		t.Error("Local item should carry no media info")
	}
}

func TestResolvedItemCreation(t *testing.T) {
	media := valueobjects.MediaInfo{
		Title:        "Test Song",
		ThumbnailURL: "https://i.ytimg.com/vi/test/hq.jpg",
		SourceURL:    "https://www.youtube.com/watch?v=test",
	}
	item := entities.NewResolvedItem("https://stream.example/audio", 200*time.Second, testRequester(), media)

	if !item.IsResolved() {
		t.Error("Item should be resolved")
	}
	if item.AudioPath() != "https://stream.example/audio" {
		t.Errorf("Unexpected audio path %q", item.AudioPath())
	}
	if item.DisplayName() != "Test Song" {
		t.Errorf("Expected title as display name, got %q", item.DisplayName())
	}
	if item.DurationFormatted() != "03:20" {
		t.Errorf("Expected 03:20, got %s", item.DurationFormatted())
	}
	if item.Requester().Username != "TestUser" {
		t.Error("Requester should be preserved")
	}
}

func TestItemIDsAreUnique(t *testing.T) {
	a := entities.NewLocalItem("a.wav", 0, testRequester())
	b := entities.NewLocalItem("a.wav", 0, testRequester())
	if a.ID() == b.ID() {
		t.Error("Two items must not share an ID")
	}
}

func TestSecondsToDuration(t *testing.T) {
	tests := []struct {
		seconds  int
		expected time.Duration
	}{
		{0, 0},
		{-5, 0},
		{1, time.Second},
		{39, 39 * time.Second},
	}

	for _, tt := range tests {
		if got := entities.SecondsToDuration(tt.seconds); got != tt.expected {
			t.Errorf("SecondsToDuration(%d) = %v, expected %v", tt.seconds, got, tt.expected)
		}
	}
}

func TestNegativeDurationClamped(t *testing.T) {
	item := entities.NewLocalItem("a.wav", -time.Second, testRequester())
	if item.Duration() != 0 {
		t.Errorf("Expected zero duration, got %v", item.Duration())
	}
}

func TestNewPlayRecord(t *testing.T) {
	media := valueobjects.MediaInfo{Title: "Song", SourceURL: "https://youtu.be/x"}
	item := entities.NewResolvedItem("https://stream", time.Minute, testRequester(), media)
	playedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	record := entities.NewPlayRecord(item, playedAt)

	if record.GuildID != "123456789" || record.Title != "Song" || record.SourceURL != "https://youtu.be/x" {
		t.Errorf("Unexpected record %+v", record)
	}
	if record.RequestedBy != "TestUser" || !record.PlayedAt.Equal(playedAt) {
		t.Errorf("Unexpected requester or time in %+v", record)
	}
}
