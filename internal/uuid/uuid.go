package uuid

import "github.com/google/uuid"

// New returns a random (version 4) UUID string. Used for session tokens,
// which must be unguessable 128-bit identifiers.
func New() string {
	return uuid.NewString()
}
