package blocks

import "github.com/google/uuid"

// IDGenerator assigns client IDs to newly created blocks.
type IDGenerator interface {
	NewClientID() string
}

// UUIDGenerator generates random UUIDv4 client IDs.
//
// Client IDs are opaque and never reused; v4 gives that without leaking
// creation order into documents.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// NewClientID returns a hyphenated UUIDv4 string.
// Panics if the system random source fails.
func (UUIDGenerator) NewClientID() string {
	return uuid.Must(uuid.NewRandom()).String()
}
