package playback

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

const (
	// DefaultDrainPollInterval is how often a finished clip is re-checked for trailing playback
	DefaultDrainPollInterval = time.Second

	recordTimeout = 10 * time.Second
)

// Options configures the collaborators of every session
type Options struct {
	Notifier          Notifier
	Recorder          Recorder
	DrainPollInterval time.Duration
}

// driver is the handle of one running driver goroutine
type driver struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Session is the playback context of one guild: a FIFO queue consumed by a
// single driver goroutine that drives the guild's voice transport.
type Session struct {
	guildID   string
	transport VoiceTransport
	opts      Options
	log       *logrus.Entry

	// mu guards queue, state and current
	mu      sync.Mutex
	queue   *entities.Queue
	state   valueobjects.SessionState
	current *entities.PlayItem
	expired chan struct{}

	// ctrl serializes driver replacement, Close, Pause and Resume
	ctrl   sync.Mutex
	driver *driver
}

// newSession creates a session seeded with one item and starts its driver
func newSession(guildID string, transport VoiceTransport, opts Options, log *logger.Logger, first *entities.PlayItem) *Session {
	if opts.DrainPollInterval <= 0 {
		opts.DrainPollInterval = DefaultDrainPollInterval
	}

	s := &Session{
		guildID:   guildID,
		transport: transport,
		opts:      opts,
		log:       log.ForGuild(guildID),
		queue:     entities.NewQueue(),
		state:     valueobjects.SessionActive,
		expired:   make(chan struct{}),
	}
	s.queue.Push(first)

	s.ctrl.Lock()
	s.startDriver()
	s.ctrl.Unlock()

	return s
}

// GuildID returns the guild this session plays for
func (s *Session) GuildID() string {
	return s.guildID
}

// State returns the current lifecycle state
func (s *Session) State() valueobjects.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen returns the number of items waiting behind the current one
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Queued returns a copy of the waiting items in play order
func (s *Session) Queued() []*entities.PlayItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Items()
}

// NowPlaying returns the item the driver is playing, or nil
func (s *Session) NowPlaying() *entities.PlayItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Done is closed once the session expires
func (s *Session) Done() <-chan struct{} {
	return s.expired
}

// tryAppend queues an item unless the session already expired
func (s *Session) tryAppend(item *entities.PlayItem) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == valueobjects.SessionExpired {
		return 0, false
	}
	return s.queue.Push(item), true
}

// Skip abandons the current item and returns the item the restarted driver
// picks up next, or nil when the queue is empty.
func (s *Session) Skip() (*entities.PlayItem, error) {
	return s.recreateDriver(false)
}

// StopAndClear stops playback and empties the queue. The restarted driver
// finds nothing to play and the session expires.
func (s *Session) StopAndClear() error {
	_, err := s.recreateDriver(true)
	return err
}

// ClearQueue drops waiting items without touching the current one
func (s *Session) ClearQueue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Clear()
}

// Pause pauses the transport if it is playing and not already paused
func (s *Session) Pause() error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if s.State() == valueobjects.SessionExpired {
		return apperrors.ErrNoSession
	}
	if !s.transport.IsPlaying(s.guildID) || s.transport.IsPaused(s.guildID) {
		return nil
	}
	return s.transport.Pause(s.guildID)
}

// Resume resumes the transport if it is paused
func (s *Session) Resume() error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if s.State() == valueobjects.SessionExpired {
		return apperrors.ErrNoSession
	}
	if !s.transport.IsPaused(s.guildID) {
		return nil
	}
	return s.transport.Resume(s.guildID)
}

// Close cancels the driver, stops the transport and expires the session.
// Calling it more than once is safe.
func (s *Session) Close() {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	wasExpired := s.State() == valueobjects.SessionExpired
	s.stopDriver()

	if !wasExpired {
		if err := s.transport.Stop(s.guildID); err != nil {
			s.log.WithError(err).Warn("Failed to stop transport while closing session")
		}
	}

	s.mu.Lock()
	s.expireLocked()
	s.mu.Unlock()
}

// recreateDriver cancels and joins the running driver, stops the transport,
// then starts a fresh driver against the queue. It returns the queue head the
// fresh driver starts from.
func (s *Session) recreateDriver(clearQueue bool) (*entities.PlayItem, error) {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if s.State() == valueobjects.SessionExpired {
		return nil, apperrors.ErrNoSession
	}

	s.stopDriver()

	if err := s.transport.Stop(s.guildID); err != nil {
		s.log.WithError(err).Warn("Failed to stop transport")
	}

	s.mu.Lock()
	if clearQueue {
		s.queue.Clear()
	}
	s.current = nil
	head := s.queue.Peek()
	expired := s.state == valueobjects.SessionExpired
	s.mu.Unlock()

	if expired {
		return nil, nil
	}
	s.startDriver()
	return head, nil
}

// startDriver must be called with ctrl held
func (s *Session) startDriver() {
	ctx, cancel := context.WithCancel(context.Background())
	d := &driver{cancel: cancel, done: make(chan struct{})}
	s.driver = d
	go s.run(ctx, d.done)
}

// stopDriver cancels the driver and blocks until it has returned.
// Must be called with ctrl held.
func (s *Session) stopDriver() {
	if s.driver == nil {
		return
	}
	s.driver.cancel()
	<-s.driver.done
	s.driver = nil
}

// expireLocked must be called with mu held
func (s *Session) expireLocked() {
	if s.state == valueobjects.SessionExpired {
		return
	}
	s.queue.Clear()
	s.current = nil
	s.state = valueobjects.SessionExpired
	close(s.expired)
}

// run is the driver loop
func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.log.Debug("Driver started")
	defer s.log.Debug("Driver stopped")

	for {
		item, ok := s.next(ctx)
		if !ok {
			return
		}

		if ctx.Err() != nil {
			s.requeue(item)
			return
		}

		entry := s.log.WithFields(logrus.Fields{
			"item":  item.ID(),
			"title": item.DisplayName(),
		})

		// Notice goes out before the driver suspends
		if item.IsResolved() && s.opts.Notifier != nil {
			go s.notify(item)
		}

		if err := s.transport.Play(s.guildID, item.AudioPath(), item.IsResolved()); err != nil {
			entry.WithError(err).Warn("Failed to start playback, moving to next item")
			s.finish(item)
			continue
		}

		// Cancelled while Play was in flight. Whoever cancelled stops the
		// transport after joining this driver, so nothing else may touch it.
		if ctx.Err() != nil {
			entry.Debug("Driver cancelled during play, abandoning item")
			s.finish(item)
			return
		}
		entry.Info("▶️ Now playing")

		if item.IsResolved() && s.opts.Recorder != nil {
			go s.record(item)
		}

		if !s.await(ctx, item) {
			return
		}
		s.finish(item)
	}
}

// next pops the head of the queue, or expires the session when the queue is
// empty or the transport lost its connection. A cancellation that lands after
// the pop is handled by the caller, which puts the item back.
func (s *Session) next(ctx context.Context) (*entities.PlayItem, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	s.mu.Lock()
	if s.state == valueobjects.SessionExpired {
		s.mu.Unlock()
		return nil, false
	}
	s.state = valueobjects.SessionDraining
	s.mu.Unlock()

	connected := s.transport.IsConnected(s.guildID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == valueobjects.SessionExpired {
		return nil, false
	}

	if !connected {
		s.log.Info("Voice connection lost, ending session")
		s.expireLocked()
		return nil, false
	}

	item := s.queue.Pop()
	if item == nil {
		s.log.Debug("Queue drained, session expired")
		s.expireLocked()
		return nil, false
	}

	s.state = valueobjects.SessionActive
	s.current = item
	return item, true
}

// requeue returns an item popped by a driver that was cancelled before playing it
func (s *Session) requeue(item *entities.PlayItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == item {
		s.current = nil
	}
	if s.state != valueobjects.SessionExpired {
		s.queue.PushFront(item)
	}
}

func (s *Session) finish(item *entities.PlayItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == item {
		s.current = nil
	}
}

// await waits out the item's duration, then polls while the transport still plays.
// Returns false if the driver was cancelled.
func (s *Session) await(ctx context.Context, item *entities.PlayItem) bool {
	timer := time.NewTimer(item.Duration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	ticker := time.NewTicker(s.opts.DrainPollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return false
		}
		if !s.transport.IsPlaying(s.guildID) {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (s *Session) notify(item *entities.PlayItem) {
	if err := s.opts.Notifier.NotifyNowPlaying(item); err != nil {
		s.log.WithError(err).Warn("Failed to post now playing notice")
	}
}

func (s *Session) record(item *entities.PlayItem) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.opts.Recorder.RecordPlay(ctx, item); err != nil {
		s.log.WithError(err).Warn("Failed to record play")
	}
}
