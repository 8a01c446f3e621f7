package valueobjects

// Origin tells where a play item's audio comes from
type Origin string

const (
	OriginLocal    Origin = "local"
	OriginResolved Origin = "resolved"
)

// String returns the string representation
func (o Origin) String() string {
	return string(o)
}

// IsValid checks if the origin is valid
func (o Origin) IsValid() bool {
	switch o {
	case OriginLocal, OriginResolved:
		return true
	}
	return false
}
