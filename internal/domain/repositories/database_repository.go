package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vuongmanhnghia/guild-player/internal/database"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
)

const (
	insertPlayRecord = `
INSERT INTO play_history (id, guild_id, title, source_url, requested_by, played_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	trimPlayHistory = `
DELETE FROM play_history
WHERE guild_id = $1
  AND id NOT IN (
    SELECT id FROM play_history
    WHERE guild_id = $1
    ORDER BY played_at DESC
    LIMIT $2
  )`

	selectRecentPlays = `
SELECT id::text, guild_id, title, source_url, requested_by, played_at
FROM play_history
WHERE guild_id = $1
ORDER BY played_at DESC
LIMIT $2`

	deleteGuildHistory = `DELETE FROM play_history WHERE guild_id = $1`
)

// DatabaseHistoryRepository implements HistoryRepository using PostgreSQL
type DatabaseHistoryRepository struct {
	db *database.DB
}

// NewDatabaseHistoryRepository creates a new database-backed history repository
func NewDatabaseHistoryRepository(db *database.DB) *DatabaseHistoryRepository {
	return &DatabaseHistoryRepository{db: db}
}

// Append inserts the record and trims the guild's history in one transaction
func (r *DatabaseHistoryRepository) Append(ctx context.Context, record *entities.PlayRecord, limit int) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertPlayRecord,
			id, record.GuildID, record.Title, record.SourceURL, record.RequestedBy, record.PlayedAt,
		); err != nil {
			return fmt.Errorf("failed to insert play record: %w", err)
		}

		if limit > 0 {
			if _, err := tx.Exec(ctx, trimPlayHistory, record.GuildID, limit); err != nil {
				return fmt.Errorf("failed to trim play history: %w", err)
			}
		}
		return nil
	})
}

// Recent returns up to n records for a guild, newest first
func (r *DatabaseHistoryRepository) Recent(ctx context.Context, guildID string, n int) ([]*entities.PlayRecord, error) {
	if n <= 0 {
		n = 100
	}

	rows, err := r.db.Pool.Query(ctx, selectRecentPlays, guildID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.PlayRecord, error) {
		var record entities.PlayRecord
		if err := row.Scan(&record.ID, &record.GuildID, &record.Title, &record.SourceURL, &record.RequestedBy, &record.PlayedAt); err != nil {
			return nil, err
		}
		return &record, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read play history: %w", err)
	}

	return records, nil
}

// Clear removes a guild's history
func (r *DatabaseHistoryRepository) Clear(ctx context.Context, guildID string) error {
	if _, err := r.db.Pool.Exec(ctx, deleteGuildHistory, guildID); err != nil {
		return fmt.Errorf("failed to clear play history: %w", err)
	}
	return nil
}
