package receiving

import (
	"context"

	"github.com/google/uuid"
)

// SupplierDirectory resolves supplier display names for listings
type SupplierDirectory interface {
	ResolveSupplierName(ctx context.Context, supplierID uuid.UUID) (string, error)
}
