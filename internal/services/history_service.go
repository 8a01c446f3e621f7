package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/repositories"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	// ErrHistoryStopped is returned when the service is stopped
	ErrHistoryStopped = errors.New("history service stopped")
	// ErrHistoryQueueFull is returned when the write queue is full
	ErrHistoryQueueFull = errors.New("history write queue is full")
)

const writeTimeout = 10 * time.Second

// HistoryStats tracks write statistics
type HistoryStats struct {
	Written int64
	Failed  int64
	Pending int64
}

// HistoryService records played items through a small pool of writers
type HistoryService struct {
	repo    repositories.HistoryRepository
	limit   int
	logger  *logger.Logger
	queue   chan *entities.PlayRecord
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	statsMu sync.Mutex
	stats   HistoryStats
}

// NewHistoryService creates a history service. Call Start before recording.
func NewHistoryService(repo repositories.HistoryRepository, limit, workers, queueSize int, log *logger.Logger) *HistoryService {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	return &HistoryService{
		repo:    repo,
		limit:   limit,
		logger:  log,
		queue:   make(chan *entities.PlayRecord, queueSize),
		workers: workers,
	}
}

// Start starts the writer pool
func (s *HistoryService) Start() {
	s.logger.WithField("workers", s.workers).Info("Starting history service...")

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop refuses new records and waits for queued ones to be written
func (s *HistoryService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("✅ History service stopped")
}

// RecordPlay queues a history record for an item that started playing
func (s *HistoryService) RecordPlay(ctx context.Context, item *entities.PlayItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Submit(entities.NewPlayRecord(item, time.Now()))
}

// Submit queues a record without blocking
func (s *HistoryService) Submit(record *entities.PlayRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return ErrHistoryStopped
	}

	s.statsMu.Lock()
	s.stats.Pending++
	s.statsMu.Unlock()

	select {
	case s.queue <- record:
		return nil
	default:
		s.statsMu.Lock()
		s.stats.Pending--
		s.statsMu.Unlock()
		s.logger.ForGuild(record.GuildID).WithFields(logrus.Fields{
			"queue_size": len(s.queue),
			"max_size":   cap(s.queue),
		}).Warn("History queue is full, dropping record")
		return ErrHistoryQueueFull
	}
}

// Recent returns up to n records for a guild, newest first
func (s *HistoryService) Recent(ctx context.Context, guildID string, n int) ([]*entities.PlayRecord, error) {
	records, err := s.repo.Recent(ctx, guildID, n)
	if err != nil {
		s.logger.ForGuild(guildID).WithError(err).Error("Failed to load history")
		return nil, err
	}
	return records, nil
}

// Clear removes a guild's history
func (s *HistoryService) Clear(ctx context.Context, guildID string) error {
	return s.repo.Clear(ctx, guildID)
}

// GetStats returns write statistics
func (s *HistoryService) GetStats() HistoryStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *HistoryService) worker(id int) {
	defer s.wg.Done()

	for record := range s.queue {
		s.write(record)
	}

	s.logger.WithField("worker_id", id).Debug("History worker stopping - queue closed")
}

func (s *HistoryService) write(record *entities.PlayRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := s.repo.Append(ctx, record, s.limit)

	s.statsMu.Lock()
	s.stats.Pending--
	if err != nil {
		s.stats.Failed++
	} else {
		s.stats.Written++
	}
	s.statsMu.Unlock()

	if err != nil {
		s.logger.ForGuild(record.GuildID).WithError(err).Error("Failed to write play record")
		return
	}
	s.logger.ForGuild(record.GuildID).WithField("title", record.Title).Debug("Play recorded")
}
