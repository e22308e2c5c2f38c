package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// NewGameID returns the idempotency key for one game's score submission.
// It prefers a cryptographically random UUID; if the system's entropy source
// fails it falls back to a pseudo-random v4-shaped string. The fallback has
// weaker collision resistance, which is acceptable because the storage-level
// uniqueness constraint on game_id is the actual correctness guarantee --
// the id is a key, not a security control.
func NewGameID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return fmt.Sprintf("%08x-%04x-4%03x-%04x-%012x",
		rand.Uint32(),
		rand.Uint32()&0xffff,
		rand.Uint32()&0xfff,
		(rand.Uint32()&0x3fff)|0x8000,
		rand.Uint64()&0xffffffffffff)
}
