package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
)

// FileHistoryRepository keeps one JSON history file per guild
type FileHistoryRepository struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileHistoryRepository creates a new file-backed history repository
func NewFileHistoryRepository(basePath string) (*FileHistoryRepository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &FileHistoryRepository{
		basePath: basePath,
	}, nil
}

// Append adds a record to the guild's file, keeping at most limit records
func (r *FileHistoryRepository) Append(ctx context.Context, record *entities.PlayRecord, limit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	history, err := r.load(record.GuildID)
	if err != nil {
		return err
	}

	history.Add(record, limit)
	return r.save(history)
}

// Recent returns up to n records for a guild, newest first
func (r *FileHistoryRepository) Recent(ctx context.Context, guildID string, n int) ([]*entities.PlayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	history, err := r.load(guildID)
	if err != nil {
		return nil, err
	}
	return history.Recent(n), nil
}

// Clear removes a guild's history file
func (r *FileHistoryRepository) Clear(ctx context.Context, guildID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.getFilePath(guildID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Guilds lists the guilds that have a history file
func (r *FileHistoryRepository) Guilds() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	guilds := make([]string, 0)
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		guilds = append(guilds, strings.TrimSuffix(name, ".json"))
	}
	return guilds, nil
}

// load reads a guild's history. A missing file is an empty history.
func (r *FileHistoryRepository) load(guildID string) (*entities.PlayHistory, error) {
	file, err := os.Open(r.getFilePath(guildID))
	if err != nil {
		if os.IsNotExist(err) {
			return entities.NewPlayHistory(guildID), nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var history entities.PlayHistory
	if err := json.NewDecoder(file).Decode(&history); err != nil {
		if err == io.EOF {
			return entities.NewPlayHistory(guildID), nil
		}
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if history.GuildID == "" {
		history.GuildID = guildID
	}
	return &history, nil
}

// save writes the history through a temp file and rename
func (r *FileHistoryRepository) save(history *entities.PlayHistory) error {
	filePath := r.getFilePath(history.GuildID)
	tempPath := filePath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(history); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (r *FileHistoryRepository) getFilePath(guildID string) string {
	return filepath.Join(r.basePath, sanitizeFilename(guildID)+".json")
}

// sanitizeFilename replaces anything outside [A-Za-z0-9_-] with an underscore
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, char := range name {
		if (char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_' {
			b.WriteRune(char)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
