package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/escalation"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/gate"
)

// StartEscalationWorker runs the escalation scheduler until ctx is cancelled.
func StartEscalationWorker(ctx context.Context, scheduler *escalation.Scheduler) {
	if scheduler == nil {
		return
	}
	go scheduler.Run(ctx)
}

// StartRateSweepWorker periodically drops idle rate-limit entries.
func StartRateSweepWorker(ctx context.Context, spamGate *gate.SpamGate, interval time.Duration, logger *zap.Logger) {
	if spamGate == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := spamGate.RateSweep(ctx)
				if err != nil {
					logger.Warn("rate limit sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Debug("rate limit sweep completed", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// StartAuditWorker subscribes an audit log handler to every compliance event type.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}

	handler := func(_ context.Context, event events.Event) error {
		logger.Info("audit event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Time("timestamp", event.Timestamp),
			zap.Any("payload", event.Payload),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventTicketAdmitted,
		events.EventTicketRejected,
		events.EventRulesApplied,
		events.EventTicketEscalated,
		events.EventTicketNearBreach,
		events.EventSweepCompleted,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
