// Package audit captures structured before/after records for every mutating
// action and persists them on a path decoupled from the triggering request.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"personnel-registry/backend/internal/audit/domain"
	auditrepo "personnel-registry/backend/internal/audit/repository"
	"personnel-registry/backend/internal/audit/stream"
)

// writeTimeout is the max time allowed for a single audit persist + emit.
const writeTimeout = 5 * time.Second

// Actor identifies who performed the audited action.
type Actor struct {
	ID    string
	Email string
	Name  string
}

// Entry is one audit capture handed to a Recorder. Before and After are
// arbitrary structured values; the recorder serializes each independently.
type Entry struct {
	Actor       Actor
	Table       string
	RecordID    string
	Action      domain.Action
	Before      any
	After       any
	Description string
	Client      ClientMeta
}

// Recorder accepts audit entries fire-and-forget. Implementations must never
// propagate a failure to the caller: audit logging is best-effort observability,
// not a consistency guarantee.
type Recorder interface {
	Record(entry Entry)
}

// AsyncRecorder queues entries on a buffered channel and persists them from a
// background worker, so callers never block on audit storage and a cancelled
// request cannot abort an in-flight write. Semantics are at-least-once relative
// to the triggering business transaction: if that transaction later rolls back,
// the audit row may still exist.
type AsyncRecorder struct {
	repo     auditrepo.Repository
	producer stream.Producer
	queue    chan *domain.Event
	wg       sync.WaitGroup
}

// NewAsyncRecorder returns a running AsyncRecorder with the given queue size.
// producer may be nil; then events are only persisted. Call Close at shutdown,
// after the HTTP server has stopped accepting requests.
func NewAsyncRecorder(repo auditrepo.Repository, producer stream.Producer, queueSize int) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &AsyncRecorder{
		repo:     repo,
		producer: producer,
		queue:    make(chan *domain.Event, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record serializes the entry and enqueues it without blocking. A full queue
// drops the event with a log line rather than stalling the request path.
func (r *AsyncRecorder) Record(entry Entry) {
	event := &domain.Event{
		ID:          uuid.New().String(),
		UserID:      entry.Actor.ID,
		UserEmail:   entry.Actor.Email,
		UserName:    entry.Actor.Name,
		TableName:   entry.Table,
		RecordID:    entry.RecordID,
		Action:      entry.Action,
		OldValues:   serialize(entry.Before),
		NewValues:   serialize(entry.After),
		IPAddress:   entry.Client.IP,
		UserAgent:   entry.Client.UserAgent,
		Description: entry.Description,
		CreatedAt:   time.Now().UTC(),
	}
	select {
	case r.queue <- event:
	default:
		log.Printf("audit: queue full, dropping %s on %s/%s", event.Action, event.TableName, event.RecordID)
	}
}

// Close drains the queue and stops the worker. Record must not be called after Close.
func (r *AsyncRecorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

func (r *AsyncRecorder) run() {
	defer r.wg.Done()
	for event := range r.queue {
		r.write(event)
	}
}

// write persists one event and, when a producer is configured, emits it to the
// audit stream. Uses context.Background so request cancellation never reaches
// here. Failures are logged and swallowed.
func (r *AsyncRecorder) write(event *domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, event); err != nil {
		log.Printf("audit: failed to persist %s on %s/%s: %v", event.Action, event.TableName, event.RecordID, err)
	}
	if r.producer != nil {
		if err := r.producer.Emit(ctx, event); err != nil {
			log.Printf("audit: stream emit failed: %v", err)
		}
	}
}

// serialize renders v as JSON. A marshal failure must not abort the audit write,
// so it falls back to a best-effort string rendering. nil becomes "".
func serialize(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
