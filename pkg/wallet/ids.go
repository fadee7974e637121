package wallet

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator assigns identifiers to new records.
type IDGenerator interface {
	// TimeOrderedID returns an id that sorts after every id previously
	// returned for an equal or earlier time.
	TimeOrderedID(at time.Time) string
	// RandomID returns an opaque unique id.
	RandomID() string
}

type defaultIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newDefaultIDGenerator() *defaultIDGenerator {
	return &defaultIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (generator *defaultIDGenerator) TimeOrderedID(at time.Time) string {
	generator.mu.Lock()
	defer generator.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), generator.entropy).String()
}

func (generator *defaultIDGenerator) RandomID() string {
	return uuid.NewString()
}
