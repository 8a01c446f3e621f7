package valueobjects

// SessionState represents the lifecycle state of a guild's playback session
type SessionState string

const (
	// SessionActive means an item is playing or about to
	SessionActive SessionState = "active"
	// SessionDraining means the driver is between items
	SessionDraining SessionState = "draining"
	// SessionExpired is terminal
	SessionExpired SessionState = "expired"
)

// String returns the string representation
func (s SessionState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s SessionState) IsTerminal() bool {
	return s == SessionExpired
}
