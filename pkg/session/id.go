package session

import (
	cryptorand "crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var ulidEntropy = ulid.Monotonic(cryptorand.Reader, 0)

// NewSessionID returns a unique, lexicographically sortable session ID.
func NewSessionID() string {
	return "sess-" + ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// NewActionID returns a unique ID for one recorded action.
func NewActionID() string {
	return uuid.NewString()
}
