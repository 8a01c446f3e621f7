package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	// ErrNotConnected is returned when not connected to a voice channel
	ErrNotConnected = apperrors.ErrNotConnected
	// ErrConnectionFailed is returned when connection fails
	ErrConnectionFailed = fmt.Errorf("%w: failed to connect to voice channel", apperrors.ErrTransportUnavailable)
)

const readyTimeout = 10 * time.Second

// VoiceConnection is the bot's voice link in one guild
type VoiceConnection struct {
	guildID   string
	channelID string
	vc        *discordgo.VoiceConnection
	logger    *logger.Logger
	mu        sync.RWMutex
}

// NewVoiceConnection creates a new voice connection
func NewVoiceConnection(guildID string, log *logger.Logger) *VoiceConnection {
	return &VoiceConnection{
		guildID: guildID,
		logger:  log,
	}
}

// Connect joins a voice channel and waits until the link is ready
func (v *VoiceConnection) Connect(session *discordgo.Session, channelID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry := v.logger.ForGuild(v.guildID).WithField("channel", channelID)

	if v.vc != nil && v.vc.Ready {
		if v.channelID == channelID {
			return apperrors.ErrAlreadyConnected
		}
		entry.Info("Disconnecting from current channel to move")
		if err := v.disconnectLocked(); err != nil {
			entry.WithError(err).Warn("Failed to disconnect before moving")
		}
	}

	entry.Info("Connecting to voice channel...")

	// mute=false, deaf=true
	vc, err := session.ChannelVoiceJoin(v.guildID, channelID, false, true)
	if err != nil {
		entry.WithError(err).Error("Failed to join voice channel")
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	timeout := time.After(readyTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for !vc.Ready {
		select {
		case <-timeout:
			vc.Disconnect()
			return fmt.Errorf("%w: connection not ready after %s", ErrConnectionFailed, readyTimeout)
		case <-ticker.C:
		}
	}

	v.vc = vc
	v.channelID = channelID

	entry.Info("✅ Connected to voice channel")
	return nil
}

// Disconnect leaves the voice channel
func (v *VoiceConnection) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnectLocked()
}

// disconnectLocked must be called with the lock held
func (v *VoiceConnection) disconnectLocked() error {
	if v.vc == nil {
		return ErrNotConnected
	}

	err := v.vc.Disconnect()
	v.vc = nil
	v.channelID = ""

	if err != nil && !errors.Is(err, ErrNotConnected) {
		return err
	}

	v.logger.ForGuild(v.guildID).Info("Disconnected from voice channel")
	return nil
}

// IsConnected returns true if the voice link is up
func (v *VoiceConnection) IsConnected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vc != nil && v.vc.Ready
}

// GetChannelID returns the current channel ID
func (v *VoiceConnection) GetChannelID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.channelID
}

// GetVoiceConnection returns the underlying voice connection
func (v *VoiceConnection) GetVoiceConnection() *discordgo.VoiceConnection {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vc
}

// Speaking sets the speaking state
func (v *VoiceConnection) Speaking(speaking bool) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.vc == nil {
		return ErrNotConnected
	}

	return v.vc.Speaking(speaking)
}
