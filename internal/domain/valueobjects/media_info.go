package valueobjects

import (
	"fmt"
	"time"
)

// MediaInfo contains the display metadata of a resolved item
type MediaInfo struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
}

// DisplayName returns the best display name for the item
func (m *MediaInfo) DisplayName() string {
	if m.Title != "" {
		return m.Title
	}
	return m.SourceURL
}

// FormatDuration returns a duration in MM:SS, or H:MM:SS past an hour
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}

	total := int(d.Round(time.Second) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
