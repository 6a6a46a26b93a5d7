package annotation

import (
	"crypto/rand"
	"encoding/hex"
)

// idBytes is 160 bits of randomness.
const idBytes = 20

// NewID returns a random 40-character lower-case hex identifier.
func NewID() string {
	var b [idBytes]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
