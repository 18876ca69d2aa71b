package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so a replayed
// mutation is refused instead of being applied twice.
type IdempotencyStore interface {
	// Claim reserves a key for ttl. Returns false if the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a key whose request failed, so the client may retry it.
	Release(ctx context.Context, key string) error

	// IsClaimed checks whether a key is currently held
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks replays. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether keys are checked at all. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
