package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/observability"
	"github.com/perscom/personnel-api/internal/repository"
)

const defaultQueueSize = 256

// Entry captures the details of one auditable event. ActorType decides which
// actor id field is authoritative; both ids nil means a system action.
type Entry struct {
	ActorType    string
	UserID       *uint
	AdminID      *uint
	Action       string
	Description  string
	TargetUserID *uint
	IPAddress    string
	UserAgent    string
	Metadata     map[string]interface{}
}

// Recorder accepts audit entries without ever blocking or failing the
// caller. Persistence happens on a background worker; failures are logged
// and swallowed.
type Recorder interface {
	Record(entry Entry)
}

// Writer is the queue-backed Recorder used in production. Entries are
// enqueued on a bounded channel and drained by a single worker goroutine,
// so request handlers never wait on audit I/O.
type Writer struct {
	repo   repository.ActivityLogRepository
	queue  chan Entry
	logger zerolog.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	started   bool
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewWriter constructs a Writer with the given queue capacity. A
// non-positive size falls back to the default.
func NewWriter(repo repository.ActivityLogRepository, queueSize int, logger zerolog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Writer{
		repo:   repo,
		queue:  make(chan Entry, queueSize),
		logger: logger.With().Str("component", "audit_writer").Logger(),
		tracer: otel.Tracer("github.com/perscom/personnel-api/internal/audit"),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. The worker keeps draining until the
// queue is closed, so entries accepted before shutdown still get written
// even after the parent context is cancelled.
func (w *Writer) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.started = true
		w.mu.Unlock()

		go w.run(context.WithoutCancel(ctx))
	})
}

// Record enqueues an entry. When the queue is full the entry is dropped with
// a warning rather than blocking the request path.
func (w *Writer) Record(entry Entry) {
	select {
	case w.queue <- entry:
	default:
		observability.AuditDropped().Inc()
		w.logger.Warn().Str("action", entry.Action).Msg("audit queue full, entry dropped")
	}
}

// Close stops accepting entries and blocks until the worker has drained the
// queue. On a writer that was never started there is no worker to wait for,
// so Close returns immediately.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		started := w.started
		w.mu.Unlock()

		close(w.queue)
		if !started {
			close(w.done)
		}
	})
	<-w.done
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)

	for entry := range w.queue {
		w.write(ctx, entry)
	}
}

func (w *Writer) write(ctx context.Context, entry Entry) {
	spanCtx, span := w.tracer.Start(ctx, "audit.write", trace.WithAttributes(
		attribute.String("audit.action", entry.Action),
		attribute.String("audit.actor_type", entry.ActorType),
	))
	defer span.End()

	model := models.ActivityLog{
		ActorType:    entry.ActorType,
		UserID:       entry.UserID,
		AdminID:      entry.AdminID,
		Action:       entry.Action,
		Description:  entry.Description,
		TargetUserID: entry.TargetUserID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Metadata:     jsonMap(entry.Metadata),
		CreatedAt:    time.Now().UTC(),
	}

	writeCtx, cancel := context.WithTimeout(spanCtx, 5*time.Second)
	defer cancel()

	if err := w.repo.Create(writeCtx, &model); err != nil {
		span.RecordError(err)
		observability.AuditWriteFailures().Inc()
		w.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to persist audit entry")
		return
	}

	observability.AuditEntries().WithLabelValues(entry.Action).Inc()
}

func jsonMap(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}
	out := datatypes.JSONMap{}
	for key, value := range metadata {
		out[key] = value
	}
	return out
}
