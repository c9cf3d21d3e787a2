package grant

import (
	"context"
	"time"
)

// Store persists promotional grants.
type Store interface {
	// Create persists a new grant.
	Create(ctx context.Context, g *Grant) error

	// GetCurrent returns the most recently granted grant for a tenant.
	GetCurrent(ctx context.Context, tenantID string) (*Grant, error)

	// ListExpired returns grants whose expiry is at or before the given
	// instant, limited to the given count. A limit of 0 means no limit.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*Grant, error)
}
