package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	bidEntropyMu sync.Mutex
	bidEntropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateID returns a new auction identifier
func GenerateID() string {
	return uuid.New().String()
}

// GenerateBidID returns a ULID for a bid placed at t. IDs minted in the same
// millisecond still sort in generation order.
func GenerateBidID(t time.Time) string {
	bidEntropyMu.Lock()
	defer bidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), bidEntropy).String()
}
