package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trustdocs/internal/config"
	"trustdocs/internal/model"
	"trustdocs/internal/repository"
)

// Recorder is the write side of the audit trail. Enqueue never blocks and
// never fails: audit bookkeeping must not jeopardize the business operation
// that produced the event.
type Recorder interface {
	Enqueue(ev model.AuditEvent)
}

// Metrics exposes queue health. Dropped events are observable here since
// there is no retry path for them.
type Metrics struct {
	depth     prometheus.Gauge
	persisted prometheus.Counter
	dropped   prometheus.Counter
	notified  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Number of audit events waiting to be persisted.",
		}),
		persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_persisted_total",
			Help: "Total audit events written to the store.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Total audit events dropped due to overflow or persistence failure.",
		}),
		notified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_notified_total",
			Help: "Total critical events sent to the immediate notification path.",
		}),
	}
	for _, c := range []prometheus.Collector{m.depth, m.persisted, m.dropped, m.notified} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Queue buffers audit events in memory and drains them to the store in fixed
// size batches on a fixed interval. Critical events additionally take the
// immediate notification path at enqueue time.
type Queue struct {
	mu  sync.Mutex
	buf []model.AuditEvent

	store    repository.AuditRepository
	notifier Notifier
	log      *slog.Logger
	metrics  *Metrics

	batchSize int
	interval  time.Duration
	capacity  int
}

// NewQueue builds a Queue from configuration. metrics may be nil in tests.
func NewQueue(cfg config.AuditConfig, store repository.AuditRepository, notifier Notifier, log *slog.Logger, metrics *Metrics) *Queue {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	interval := time.Duration(cfg.DrainIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	capacity := cfg.BufferCapacity
	if capacity <= 0 {
		capacity = 10000
	}
	return &Queue{
		store:     store,
		notifier:  notifier,
		log:       log,
		metrics:   metrics,
		batchSize: batch,
		interval:  interval,
		capacity:  capacity,
	}
}

var _ Recorder = (*Queue)(nil)

// Enqueue appends the event to the buffer and returns immediately. Missing
// bookkeeping fields are filled in: correlation id, retention, timestamp.
// When the buffer is full the oldest event is dropped to make room.
func (q *Queue) Enqueue(ev model.AuditEvent) {
	if ev.CorrelationID == "" {
		ev.CorrelationID = NewCorrelationID()
	}
	if ev.RetentionDays == 0 {
		ev.RetentionDays = model.DefaultRetentionDays
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	q.mu.Lock()
	if len(q.buf) >= q.capacity {
		q.buf = q.buf[1:]
		if q.metrics != nil {
			q.metrics.dropped.Inc()
		}
		q.log.Warn("audit buffer full, dropped oldest event")
	}
	q.buf = append(q.buf, ev)
	depth := len(q.buf)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.depth.Set(float64(depth))
	}

	if ev.Severity == model.SeverityCritical && q.notifier != nil {
		q.notifier.Notify(context.Background(), ev)
		if q.metrics != nil {
			q.metrics.notified.Inc()
		}
	}
}

// Run drains the buffer on the configured interval until ctx ends, then makes
// a final flush so shutdown does not lose buffered events.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.drainOnce(ctx)
		case <-ctx.Done():
			q.Flush(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}
}

// Flush drains the buffer completely. Used on shutdown and in tests.
func (q *Queue) Flush(ctx context.Context) {
	for q.drainOnce(ctx) {
	}
}

// drainOnce dequeues at most one batch atomically and persists it. Returns
// true if events remain buffered. A failed batch is logged and dropped; audit
// persistence failure never propagates to business operations.
func (q *Queue) drainOnce(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.buf) == 0 {
		q.mu.Unlock()
		return false
	}
	n := q.batchSize
	if n > len(q.buf) {
		n = len(q.buf)
	}
	batch := make([]model.AuditEvent, n)
	copy(batch, q.buf[:n])
	q.buf = q.buf[n:]
	remaining := len(q.buf)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.depth.Set(float64(remaining))
	}

	if err := q.store.InsertBatch(ctx, batch); err != nil {
		q.log.Error("audit batch persistence failed, events dropped",
			"count", len(batch), "error", err)
		if q.metrics != nil {
			q.metrics.dropped.Add(float64(len(batch)))
		}
		return remaining > 0
	}

	if q.metrics != nil {
		q.metrics.persisted.Add(float64(len(batch)))
	}
	return remaining > 0
}
