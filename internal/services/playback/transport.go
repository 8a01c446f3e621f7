package playback

import (
	"context"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
)

// VoiceTransport is the guild-scoped voice output a session drives
type VoiceTransport interface {
	IsConnected(guildID string) bool
	Connect(guildID, channelID string) error
	Disconnect(guildID string) error

	// Play starts a source and returns once it is streaming.
	// reconnectOnStall asks the transport to recover from remote stream stalls.
	Play(guildID, audioPath string, reconnectOnStall bool) error
	Stop(guildID string) error
	Pause(guildID string) error
	Resume(guildID string) error

	// IsPlaying reports an active source, paused or not
	IsPlaying(guildID string) bool
	IsPaused(guildID string) bool

	// ChannelOccupancy counts members in a voice channel, the bot included
	ChannelOccupancy(guildID, channelID string) int
}

// Notifier posts "now playing" notices back to the requester
type Notifier interface {
	NotifyNowPlaying(item *entities.PlayItem) error
}

// Recorder stores items that started playing
type Recorder interface {
	RecordPlay(ctx context.Context, item *entities.PlayItem) error
}

// MediaResolver turns a URL or search query into a playable item
type MediaResolver interface {
	ResolveItem(ctx context.Context, query string, requester entities.Requester) (*entities.PlayItem, error)
}
