package repositories

import (
	"context"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
)

// HistoryRepository defines the contract for play history storage
type HistoryRepository interface {
	// Append stores a record and trims the guild's history to limit entries
	Append(ctx context.Context, record *entities.PlayRecord, limit int) error

	// Recent returns up to n records for a guild, newest first
	Recent(ctx context.Context, guildID string, n int) ([]*entities.PlayRecord, error)

	// Clear removes a guild's history
	Clear(ctx context.Context, guildID string) error
}
