package audit

import "context"

// Store is an append-only log. Records are never updated or removed.
type Store interface {
	Append(ctx context.Context, r *DeletionRecord) error
	List(ctx context.Context, tenantID string) ([]*DeletionRecord, error)
}
