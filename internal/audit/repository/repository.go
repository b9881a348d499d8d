package repository

import (
	"context"

	"personnel-registry/backend/internal/audit/domain"
)

// Repository defines persistence for audit events. The store is append-only:
// there is no update or delete path.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	// ListRecent returns the newest events, paginated. Read path for ops
	// spot-checks; compliance reporting reads the store separately.
	ListRecent(ctx context.Context, limit, offset int32) ([]*domain.Event, error)
}
