package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// StaticSupplierDirectory resolves names from a fixed table, normally the
// [suppliers.names] section of the configuration.
type StaticSupplierDirectory struct {
	names map[uuid.UUID]string
}

// NewStaticSupplierDirectory parses the configured id to name table.
// Keys that are not UUIDs are an error so typos surface at startup.
func NewStaticSupplierDirectory(names map[string]string) (*StaticSupplierDirectory, error) {
	parsed := make(map[uuid.UUID]string, len(names))
	for key, name := range names {
		id, err := uuid.Parse(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("suppliers.names: %q is not a supplier id: %w", key, err)
		}
		parsed[id] = name
	}
	return &StaticSupplierDirectory{names: parsed}, nil
}

// ResolveSupplierName returns ErrNotFound for unknown suppliers
func (d *StaticSupplierDirectory) ResolveSupplierName(_ context.Context, supplierID uuid.UUID) (string, error) {
	name, ok := d.names[supplierID]
	if !ok {
		return "", shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Supplier %s not found", supplierID))
	}
	return name, nil
}

// CachedSupplierDirectory keeps resolved names in Redis so every instance
// shares one lookup per supplier and TTL.
type CachedSupplierDirectory struct {
	next      receiving.SupplierDirectory
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// NewCachedSupplierDirectory wraps next with a Redis read-through cache
func NewCachedSupplierDirectory(next receiving.SupplierDirectory, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedSupplierDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSupplierDirectory{
		next:      next,
		client:    client,
		ttl:       ttl,
		keyPrefix: "backoffice:supplier:name:",
		logger:    logger.Named("supplier_cache"),
	}
}

// ResolveSupplierName reads through the cache. Redis failures degrade to
// the wrapped directory; misses of the wrapped directory are not cached.
func (d *CachedSupplierDirectory) ResolveSupplierName(ctx context.Context, supplierID uuid.UUID) (string, error) {
	key := d.keyPrefix + supplierID.String()

	name, err := d.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return name, nil
	case !errors.Is(err, redis.Nil):
		d.logger.Warn("Supplier cache read failed", zap.String("supplier_id", supplierID.String()), zap.Error(err))
	}

	name, err = d.next.ResolveSupplierName(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if err := d.client.Set(ctx, key, name, d.ttl).Err(); err != nil {
		d.logger.Warn("Supplier cache write failed", zap.String("supplier_id", supplierID.String()), zap.Error(err))
	}
	return name, nil
}

var (
	_ receiving.SupplierDirectory = (*StaticSupplierDirectory)(nil)
	_ receiving.SupplierDirectory = (*CachedSupplierDirectory)(nil)
)
