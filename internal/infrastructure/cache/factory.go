package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend names reported by Connect
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Stores bundles the Redis-backed collaborators, or their in-process
// replacements when Redis is not configured.
type Stores struct {
	Backend     string
	Client      *redis.Client
	Idempotency shared.IdempotencyStore
}

// Close releases the idempotency store and the Redis client
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if s.Client != nil {
		if cerr := s.Client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// StoreFactoryOption configures Connect
type StoreFactoryOption func(*storeFactory)

type storeFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
	clock                 shared.Clock
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *storeFactory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// process memory instead of failing. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *storeFactory) { f.allowInMemoryFallback = allow }
}

// WithClock sets the clock of the in-memory store
func WithClock(clock shared.Clock) StoreFactoryOption {
	return func(f *storeFactory) { f.clock = clock }
}

// Connect builds the stores for cfg. An empty Redis host selects the
// in-memory backend without trying to connect.
func Connect(ctx context.Context, cfg config.RedisConfig, opts ...StoreFactoryOption) (*Stores, error) {
	f := &storeFactory{
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		clock:                 shared.SystemClock{},
	}
	for _, opt := range opts {
		opt(f)
	}

	if cfg.Host == "" {
		f.logger.Info("Redis not configured, using in-memory idempotency store")
		return f.memory(), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Replays across instances will not be detected.", zap.Error(err))
		return f.memory(), nil
	}

	f.logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
	return &Stores{
		Backend:     BackendRedis,
		Client:      client,
		Idempotency: NewRedisIdempotencyStore(client, ""),
	}, nil
}

func (f *storeFactory) memory() *Stores {
	return &Stores{
		Backend:     BackendMemory,
		Idempotency: NewInMemoryIdempotencyStore(f.clock, 5*time.Minute),
	}
}
