package playback

import (
	"sync"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

// SessionSnapshot is a read-only view of a guild's session
type SessionSnapshot struct {
	GuildID    string
	State      valueobjects.SessionState
	NowPlaying *entities.PlayItem
	Queued     []*entities.PlayItem
}

// Registry maps guilds to their live playback session
type Registry struct {
	transport VoiceTransport
	opts      Options
	logger    *logger.Logger

	sessions map[string]*Session
	// closing holds guilds whose destroyed session is still shutting down.
	// The channel is closed once its transport is released.
	closing map[string]chan struct{}
	closed  bool
	mu      sync.Mutex
}

// NewRegistry creates an empty registry driving the given transport
func NewRegistry(transport VoiceTransport, opts Options, log *logger.Logger) *Registry {
	return &Registry{
		transport: transport,
		opts:      opts,
		logger:    log,
		sessions:  make(map[string]*Session),
		closing:   make(map[string]chan struct{}),
	}
}

// Enqueue appends an item to the guild's session, creating a fresh session
// when none exists or the existing one has expired. The check and the insert
// are atomic. While a destroyed session of the guild is still closing, Enqueue
// waits for it so the guild never has two drivers.
func (r *Registry) Enqueue(guildID string, item *entities.PlayItem) (created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		released, ok := r.closing[guildID]
		if !ok {
			break
		}
		r.mu.Unlock()
		<-released
		r.mu.Lock()
	}

	if r.closed {
		return false, apperrors.ErrServiceStopped
	}

	if sess, ok := r.sessions[guildID]; ok {
		if pos, appended := sess.tryAppend(item); appended {
			r.logger.ForGuild(guildID).WithField("position", pos).Debug("Item queued")
			return false, nil
		}
	}

	r.sessions[guildID] = newSession(guildID, r.transport, r.opts, r.logger, item)
	r.logger.ForGuild(guildID).Info("Playback session created")
	return true, nil
}

// SeedWelcomeItem enqueues a local clip that needs no resolution
func (r *Registry) SeedWelcomeItem(guildID string, item *entities.PlayItem) error {
	_, err := r.Enqueue(guildID, item)
	return err
}

// Destroy cancels the guild's session and removes it unconditionally.
// It returns once the session's driver has exited and the transport is stopped.
func (r *Registry) Destroy(guildID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[guildID]
	if !ok {
		r.mu.Unlock()
		return apperrors.ErrNoSession
	}
	delete(r.sessions, guildID)
	released := make(chan struct{})
	r.closing[guildID] = released
	r.mu.Unlock()

	sess.Close()

	r.mu.Lock()
	delete(r.closing, guildID)
	close(released)
	r.mu.Unlock()

	r.logger.ForGuild(guildID).Info("Playback session destroyed")
	return nil
}

// StopAndClear empties the queue and stops the current item
func (r *Registry) StopAndClear(guildID string) error {
	sess, err := r.live(guildID)
	if err != nil {
		return err
	}
	return sess.StopAndClear()
}

// ClearQueue drops waiting items, leaving the current one playing
func (r *Registry) ClearQueue(guildID string) (int, error) {
	sess, err := r.live(guildID)
	if err != nil {
		return 0, err
	}
	return sess.ClearQueue(), nil
}

// Skip abandons the current item and returns the one that plays next
func (r *Registry) Skip(guildID string) (*entities.PlayItem, error) {
	sess, err := r.live(guildID)
	if err != nil {
		return nil, err
	}
	return sess.Skip()
}

// Pause pauses the guild's playback
func (r *Registry) Pause(guildID string) error {
	sess, err := r.live(guildID)
	if err != nil {
		return err
	}
	return sess.Pause()
}

// Resume resumes the guild's playback
func (r *Registry) Resume(guildID string) error {
	sess, err := r.live(guildID)
	if err != nil {
		return err
	}
	return sess.Resume()
}

// Snapshot returns the state of the guild's live session
func (r *Registry) Snapshot(guildID string) (SessionSnapshot, error) {
	sess, err := r.live(guildID)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return SessionSnapshot{
		GuildID:    guildID,
		State:      sess.state,
		NowPlaying: sess.current,
		Queued:     sess.queue.Items(),
	}, nil
}

// Session returns the guild's live session
func (r *Registry) Session(guildID string) (*Session, error) {
	return r.live(guildID)
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	return len(r.sessions)
}

// Shutdown closes every session and refuses further enqueues
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[string]*Session)
	pending := make([]chan struct{}, 0, len(r.closing))
	for _, released := range r.closing {
		pending = append(pending, released)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(sess)
	}
	wg.Wait()

	// Sessions destroyed just before shutdown
	for _, released := range pending {
		<-released
	}

	r.logger.WithField("sessions", len(sessions)).Info("Playback registry shut down")
}

// live returns the guild's session unless it is absent or expired.
// Expired entries are pruned.
func (r *Registry) live(guildID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[guildID]
	if !ok {
		return nil, apperrors.ErrNoSession
	}
	if sess.State() == valueobjects.SessionExpired {
		delete(r.sessions, guildID)
		return nil, apperrors.ErrNoSession
	}
	return sess, nil
}

func (r *Registry) pruneLocked() {
	for guildID, sess := range r.sessions {
		if sess.State() == valueobjects.SessionExpired {
			delete(r.sessions, guildID)
		}
	}
}
