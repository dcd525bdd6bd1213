package audit

import (
	"context"
	"log/slog"

	"trustdocs/internal/model"
)

// Notifier is the immediate out-of-band path for critical events. It is
// invoked inline from Enqueue, so implementations must return quickly and
// must not block on network I/O without their own short timeout.
type Notifier interface {
	Notify(ctx context.Context, ev model.AuditEvent)
}

// LogNotifier raises critical events as error-level log lines, which the
// deployment's alerting pipeline picks up.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(ctx context.Context, ev model.AuditEvent) {
	n.log.ErrorContext(ctx, "critical audit event",
		"event_id", ev.ID,
		"event_type", ev.EventType,
		"subject_id", ev.SubjectID,
		"actor_id", ev.ActorID,
		"correlation_id", ev.CorrelationID,
	)
}
