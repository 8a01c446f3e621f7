package entities

import "time"

// PlayHistory is a guild's capped list of past plays, oldest first
type PlayHistory struct {
	GuildID   string        `json:"guild_id"`
	Records   []*PlayRecord `json:"records"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewPlayHistory creates an empty history for a guild
func NewPlayHistory(guildID string) *PlayHistory {
	return &PlayHistory{
		GuildID:   guildID,
		Records:   make([]*PlayRecord, 0),
		UpdatedAt: time.Now(),
	}
}

// Add appends a record, dropping the oldest ones beyond limit
func (h *PlayHistory) Add(record *PlayRecord, limit int) {
	h.Records = append(h.Records, record)
	if limit > 0 && len(h.Records) > limit {
		h.Records = append([]*PlayRecord(nil), h.Records[len(h.Records)-limit:]...)
	}
	h.UpdatedAt = time.Now()
}

// Recent returns up to n records, newest first
func (h *PlayHistory) Recent(n int) []*PlayRecord {
	if n <= 0 || n > len(h.Records) {
		n = len(h.Records)
	}
	result := make([]*PlayRecord, 0, n)
	for i := len(h.Records) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, h.Records[i])
	}
	return result
}

// Len returns the number of records
func (h *PlayHistory) Len() int {
	return len(h.Records)
}
