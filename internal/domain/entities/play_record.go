package entities

import (
	"time"

	"github.com/google/uuid"
)

// PlayRecord is one entry of a guild's play history
type PlayRecord struct {
	ID          string    `json:"id"`
	GuildID     string    `json:"guild_id"`
	Title       string    `json:"title"`
	SourceURL   string    `json:"source_url"`
	RequestedBy string    `json:"requested_by"`
	PlayedAt    time.Time `json:"played_at"`
}

// NewPlayRecord builds a history record for an item that started playing
func NewPlayRecord(item *PlayItem, playedAt time.Time) *PlayRecord {
	media := item.Media()
	requester := item.Requester()
	return &PlayRecord{
		ID:          uuid.New().String(),
		GuildID:     requester.GuildID,
		Title:       item.DisplayName(),
		SourceURL:   media.SourceURL,
		RequestedBy: requester.Username,
		PlayedAt:    playedAt,
	}
}
