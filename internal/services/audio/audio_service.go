package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	// ErrGuildNotFound is returned when the guild has no player
	ErrGuildNotFound = errors.New("guild not found")
)

// Stats counts the voice resources held by the service
type Stats struct {
	ActiveConnections int
	ActivePlayers     int
	TotalConnections  int
}

// AudioService owns the voice connections and audio players of all guilds
type AudioService struct {
	session *discordgo.Session
	encoder *AudioEncoder
	volume  int
	logger  *logger.Logger

	voiceConnections map[string]*VoiceConnection // guildID -> voice connection
	audioPlayers     map[string]*AudioPlayer     // guildID -> audio player

	mu sync.RWMutex
}

// NewAudioService creates a new audio service. volume (0-100) applies to every player.
func NewAudioService(session *discordgo.Session, ffmpegPath string, volume int, log *logger.Logger) *AudioService {
	return &AudioService{
		session:          session,
		encoder:          NewAudioEncoder(ffmpegPath, log),
		volume:           volume,
		logger:           log,
		voiceConnections: make(map[string]*VoiceConnection),
		audioPlayers:     make(map[string]*AudioPlayer),
	}
}

// Connect joins a voice channel. A guild already connected gets ErrAlreadyConnected.
func (s *AudioService) Connect(guildID, channelID string) error {
	if s.session == nil {
		return apperrors.ErrTransportUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vc, exists := s.voiceConnections[guildID]
	if exists && vc.IsConnected() {
		return apperrors.ErrAlreadyConnected
	}
	if !exists {
		vc = NewVoiceConnection(guildID, s.logger)
		s.voiceConnections[guildID] = vc
	}

	if err := vc.Connect(s.session, channelID); err != nil {
		return err
	}

	if _, exists := s.audioPlayers[guildID]; !exists {
		player := NewAudioPlayer(guildID, vc, s.encoder, s.logger)
		player.SetVolume(s.volume)
		s.audioPlayers[guildID] = player
		s.logger.ForGuild(guildID).WithField("volume", player.GetVolume()).Debug("Audio player created")
	}

	return nil
}

// Disconnect stops playback and leaves the guild's voice channel
func (s *AudioService) Disconnect(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if player, exists := s.audioPlayers[guildID]; exists {
		player.Cleanup()
		delete(s.audioPlayers, guildID)
	}

	vc, exists := s.voiceConnections[guildID]
	if !exists {
		return apperrors.ErrNotConnected
	}
	delete(s.voiceConnections, guildID)

	return vc.Disconnect()
}

// Play starts streaming a source in the guild
func (s *AudioService) Play(guildID, audioPath string, reconnectOnStall bool) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}

	// A finished source may still be winding down
	if player.IsPlaying() {
		if err := player.Stop(); err != nil && !errors.Is(err, ErrPlayerNotPlaying) {
			return err
		}
	}

	return player.Play(audioPath, reconnectOnStall)
}

// Stop stops the current source. Stopping an idle guild is not an error.
func (s *AudioService) Stop(guildID string) error {
	player, err := s.player(guildID)
	if err != nil {
		return nil
	}

	if err := player.Stop(); err != nil && !errors.Is(err, ErrPlayerNotPlaying) {
		return err
	}
	return nil
}

// Pause pauses current playback
func (s *AudioService) Pause(guildID string) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}
	return player.Pause()
}

// Resume resumes playback
func (s *AudioService) Resume(guildID string) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}
	return player.Resume()
}

// IsPlaying returns true if a source is active in the guild, paused or not
func (s *AudioService) IsPlaying(guildID string) bool {
	player, err := s.player(guildID)
	if err != nil {
		return false
	}
	return player.IsPlaying()
}

// IsPaused returns true if playback is paused in the guild
func (s *AudioService) IsPaused(guildID string) bool {
	player, err := s.player(guildID)
	if err != nil {
		return false
	}
	return player.IsPaused()
}

// IsConnected returns true if connected to voice in the guild
func (s *AudioService) IsConnected(guildID string) bool {
	s.mu.RLock()
	vc, exists := s.voiceConnections[guildID]
	s.mu.RUnlock()

	if !exists {
		return false
	}

	return vc.IsConnected()
}

// GetVoiceChannelID returns the current voice channel ID for a guild
func (s *AudioService) GetVoiceChannelID(guildID string) string {
	s.mu.RLock()
	vc, exists := s.voiceConnections[guildID]
	s.mu.RUnlock()

	if !exists {
		return ""
	}

	return vc.GetChannelID()
}

// ChannelOccupancy counts the members in a voice channel from gateway state
func (s *AudioService) ChannelOccupancy(guildID, channelID string) int {
	if s.session == nil || s.session.State == nil {
		return 0
	}

	s.session.State.RLock()
	defer s.session.State.RUnlock()

	for _, guild := range s.session.State.Guilds {
		if guild.ID != guildID {
			continue
		}
		count := 0
		for _, vs := range guild.VoiceStates {
			if vs.ChannelID == channelID {
				count++
			}
		}
		return count
	}
	return 0
}

// CleanupAll stops every player and leaves every voice channel
func (s *AudioService) CleanupAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Cleaning up all audio resources...")

	for guildID, player := range s.audioPlayers {
		if err := player.Stop(); err != nil && !errors.Is(err, ErrPlayerNotPlaying) {
			s.logger.ForGuild(guildID).WithError(err).Warn("Failed to stop player")
		}
	}
	s.audioPlayers = make(map[string]*AudioPlayer)

	for guildID, vc := range s.voiceConnections {
		if err := vc.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
			s.logger.ForGuild(guildID).WithError(err).Warn("Failed to disconnect voice")
		}
	}
	s.voiceConnections = make(map[string]*VoiceConnection)

	s.logger.Info("✅ All audio resources cleaned up")
}

// GetStats returns statistics about the audio service
func (s *AudioService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalConnections: len(s.voiceConnections)}
	for _, vc := range s.voiceConnections {
		if vc.IsConnected() {
			stats.ActiveConnections++
		}
	}
	for _, player := range s.audioPlayers {
		if player.IsPlaying() {
			stats.ActivePlayers++
		}
	}
	return stats
}

func (s *AudioService) player(guildID string) (*AudioPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.audioPlayers[guildID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	return player, nil
}
