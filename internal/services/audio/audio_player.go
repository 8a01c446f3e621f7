package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	// ErrNoVoiceConnection is returned when there's no voice connection
	ErrNoVoiceConnection = errors.New("no voice connection")
	// ErrPlayerNotPlaying is returned when player is not playing
	ErrPlayerNotPlaying = errors.New("player is not playing")
)

const stopTimeout = 2 * time.Second

// AudioPlayer streams one source at a time into a guild's voice connection
type AudioPlayer struct {
	guildID string
	vc      *VoiceConnection
	encoder *AudioEncoder
	logger  *logger.Logger

	isPlaying atomic.Bool
	isPaused  atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	volume    int // Volume level 0-100

	mu sync.RWMutex
}

// NewAudioPlayer creates a new audio player
func NewAudioPlayer(guildID string, vc *VoiceConnection, encoder *AudioEncoder, log *logger.Logger) *AudioPlayer {
	return &AudioPlayer{
		guildID: guildID,
		vc:      vc,
		encoder: encoder,
		logger:  log,
		volume:  100,
	}
}

// Play starts streaming audioPath and returns once ffmpeg is running.
// The player reports IsPlaying until the stream ends or Stop is called.
func (p *AudioPlayer) Play(audioPath string, reconnectOnStall bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isPlaying.Load() {
		return ErrAlreadyPlaying
	}

	if !p.vc.IsConnected() {
		return ErrNoVoiceConnection
	}

	options := DefaultEncodeOptions()
	options.Volume = p.volume
	options.ReconnectOnStall = reconnectOnStall

	ctx, cancel := context.WithCancel(context.Background())
	frames, errs, err := p.encoder.EncodeStream(ctx, audioPath, options)
	if err != nil {
		cancel()
		return err
	}

	p.cancel = cancel
	p.done = make(chan struct{})
	p.isPlaying.Store(true)
	p.isPaused.Store(false)

	go p.playbackLoop(ctx, frames, errs, p.done)

	return nil
}

// playbackLoop sends frames to Discord until the source ends or ctx is cancelled
func (p *AudioPlayer) playbackLoop(ctx context.Context, frames <-chan []byte, errs <-chan error, done chan struct{}) {
	entry := p.logger.ForGuild(p.guildID)

	defer func() {
		p.isPlaying.Store(false)
		p.isPaused.Store(false)
		close(done)
	}()

	vc := p.vc.GetVoiceConnection()
	if vc == nil {
		entry.Error("Voice connection is nil")
		return
	}

	if err := p.vc.Speaking(true); err != nil {
		entry.WithError(err).Warn("Failed to set speaking status")
	}
	defer p.vc.Speaking(false)

	frameCount := 0
	for {
		select {
		case <-ctx.Done():
			entry.Debug("⏹️ Playback stopped")
			return

		case err, ok := <-errs:
			if ok && err != nil {
				entry.WithError(err).Error("Encoding error")
				return
			}
			errs = nil

		case frame, ok := <-frames:
			if !ok {
				entry.WithField("frames", frameCount).Debug("✅ Playback completed")
				return
			}

			// Hold the frame while paused
			for p.isPaused.Load() {
				select {
				case <-ctx.Done():
					return
				case <-time.After(100 * time.Millisecond):
				}
			}

			select {
			case vc.OpusSend <- frame:
				frameCount++
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop stops the current source and waits for the stream loop to exit
func (p *AudioPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isPlaying.Load() {
		return ErrPlayerNotPlaying
	}

	p.logger.ForGuild(p.guildID).Debug("⏹️ Stopping playback...")

	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		select {
		case <-p.done:
		case <-time.After(stopTimeout):
			p.logger.ForGuild(p.guildID).Warn("Playback loop did not exit in time")
		}
	}

	p.isPlaying.Store(false)
	p.isPaused.Store(false)

	return nil
}

// Pause pauses the playback
func (p *AudioPlayer) Pause() error {
	if !p.isPlaying.Load() {
		return ErrPlayerNotPlaying
	}

	if p.isPaused.Load() {
		return errors.New("already paused")
	}

	p.logger.ForGuild(p.guildID).Info("⏸️ Pausing playback...")
	p.isPaused.Store(true)

	if err := p.vc.Speaking(false); err != nil {
		p.logger.WithError(err).Warn("Failed to update speaking status on pause")
	}

	return nil
}

// Resume resumes the playback
func (p *AudioPlayer) Resume() error {
	if !p.isPlaying.Load() {
		return ErrPlayerNotPlaying
	}

	if !p.isPaused.Load() {
		return errors.New("not paused")
	}

	p.logger.ForGuild(p.guildID).Info("▶️ Resuming playback...")
	p.isPaused.Store(false)

	if err := p.vc.Speaking(true); err != nil {
		p.logger.WithError(err).Warn("Failed to update speaking status on resume")
	}

	return nil
}

// IsPlaying reports an active source, paused or not
func (p *AudioPlayer) IsPlaying() bool {
	return p.isPlaying.Load()
}

// IsPaused returns true if currently paused
func (p *AudioPlayer) IsPaused() bool {
	return p.isPaused.Load()
}

// Cleanup performs cleanup when player is no longer needed
func (p *AudioPlayer) Cleanup() {
	if p.isPlaying.Load() {
		p.Stop()
	}
}

// SetVolume sets the volume level (0-100) applied to the next source
func (p *AudioPlayer) SetVolume(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	p.volume = level
}

// GetVolume returns the current volume level
func (p *AudioPlayer) GetVolume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}
