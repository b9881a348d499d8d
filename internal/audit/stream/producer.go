// Package stream defines the interface for publishing audit events (e.g. to Kafka).
package stream

import (
	"context"

	"personnel-registry/backend/internal/audit/domain"
)

// Producer publishes audit events to the stream. Callers use it best-effort:
// log and ignore errors.
type Producer interface {
	// Emit sends a single audit event. Implementations may block briefly; the
	// recorder calls this off the request path. Returns an error only on write
	// failure; callers typically log and ignore.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
