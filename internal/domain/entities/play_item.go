package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
)

// Requester identifies who asked for an item and where notices about it go
type Requester struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	AvatarURL string
}

// PlayItem is one playable unit. It is never mutated after construction.
type PlayItem struct {
	id        string
	origin    valueobjects.Origin
	audioPath string
	duration  time.Duration
	requester Requester
	media     valueobjects.MediaInfo
	createdAt time.Time
}

// SecondsToDuration converts a whole-second count, clamping negatives to zero
func SecondsToDuration(seconds int) time.Duration {
	if seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// NewLocalItem creates an item backed by a file on disk
func NewLocalItem(audioPath string, duration time.Duration, requester Requester) *PlayItem {
	return newPlayItem(valueobjects.OriginLocal, audioPath, duration, requester, valueobjects.MediaInfo{})
}

// NewResolvedItem creates an item backed by a resolved remote stream
func NewResolvedItem(streamURL string, duration time.Duration, requester Requester, media valueobjects.MediaInfo) *PlayItem {
	return newPlayItem(valueobjects.OriginResolved, streamURL, duration, requester, media)
}

func newPlayItem(origin valueobjects.Origin, audioPath string, duration time.Duration, requester Requester, media valueobjects.MediaInfo) *PlayItem {
	if duration < 0 {
		duration = 0
	}
	return &PlayItem{
		id:        uuid.New().String(),
		origin:    origin,
		audioPath: audioPath,
		duration:  duration,
		requester: requester,
		media:     media,
		createdAt: time.Now(),
	}
}

func (p *PlayItem) ID() string                  { return p.id }
func (p *PlayItem) Origin() valueobjects.Origin { return p.origin }
func (p *PlayItem) AudioPath() string           { return p.audioPath }
func (p *PlayItem) Duration() time.Duration     { return p.duration }
func (p *PlayItem) Requester() Requester        { return p.requester }
func (p *PlayItem) CreatedAt() time.Time        { return p.createdAt }

// IsResolved reports whether the item carries remote metadata
func (p *PlayItem) IsResolved() bool {
	return p.origin == valueobjects.OriginResolved
}

// Media returns a copy of the display metadata. Local items return zero values.
func (p *PlayItem) Media() valueobjects.MediaInfo {
	return p.media
}

// DisplayName returns the best display name for the item
func (p *PlayItem) DisplayName() string {
	if p.IsResolved() {
		return p.media.DisplayName()
	}
	return p.audioPath
}

// DurationFormatted returns formatted duration
func (p *PlayItem) DurationFormatted() string {
	return valueobjects.FormatDuration(p.duration)
}
