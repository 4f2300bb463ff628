// Package escalation drives the periodic SLA sweep: finding breached and
// near-breach tickets and pushing them through the rule engine's escalate
// trigger with bounded, monotonic severity.
package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/notify"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/rules"
	"github.com/spec-kit/ticket-routing/internal/sla"
)

// DefaultInterval is the sweep cadence when none is configured.
const DefaultInterval = time.Minute

// DefaultReescalateAfter bounds notification volume: a breached ticket is
// not escalated again until this much time has passed since the last one.
const DefaultReescalateAfter = time.Hour

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned           int
	Escalated         int
	NearBreachFlagged int
	FlagsCleared      int
	Errors            int
}

// Scheduler owns the periodic sweep. A single active scheduler instance is
// assumed; overlapping sweeps within one process skip via try-lock.
type Scheduler struct {
	store           repository.TicketStore
	engine          *rules.Engine
	calc            *sla.Calculator
	notifier        notify.Notifier
	dispatcher      events.Dispatcher
	clock           clock.Clock
	logger          *zap.Logger
	metrics         *observability.Metrics
	interval        time.Duration
	reescalateAfter time.Duration

	// sweepMu is held for the duration of one sweep, never across two.
	sweepMu sync.Mutex
}

// Dependencies bundles scheduler collaborators.
type Dependencies struct {
	Store      repository.TicketStore
	Engine     *rules.Engine
	Calculator *sla.Calculator
	Notifier   notify.Notifier
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// Config tunes the scheduler cadence.
type Config struct {
	Interval        time.Duration
	ReescalateAfter time.Duration
}

// NewScheduler constructs the scheduler, applying defaults for zero values.
func NewScheduler(deps Dependencies, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ReescalateAfter <= 0 {
		cfg.ReescalateAfter = DefaultReescalateAfter
	}
	return &Scheduler{
		store:           deps.Store,
		engine:          deps.Engine,
		calc:            deps.Calculator,
		notifier:        deps.Notifier,
		dispatcher:      deps.Dispatcher,
		clock:           deps.Clock,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
		interval:        cfg.Interval,
		reescalateAfter: cfg.ReescalateAfter,
	}
}

// Run drives sweeps on the configured cadence until ctx is cancelled. Each
// sweep gets a timeout of one interval so a slow sweep cannot block the
// schedule indefinitely.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
			s.Sweep(sweepCtx)
			cancel()
		}
	}
}

// Sweep performs one scan over open, deadline-bearing tickets. A sweep
// already in progress makes this call a logged no-op.
func (s *Scheduler) Sweep(ctx context.Context) SweepResult {
	if !s.sweepMu.TryLock() {
		s.logger.Warn("escalation sweep still running, skipping tick")
		if s.metrics != nil {
			s.metrics.SweepsSkipped.Inc()
		}
		return SweepResult{}
	}
	defer s.sweepMu.Unlock()

	tickets, err := s.store.FindOpenWithDeadline(ctx)
	if err != nil {
		s.logger.Error("escalation sweep could not list tickets", zap.Error(err))
		return SweepResult{Errors: 1}
	}

	var result SweepResult
	result.Scanned = len(tickets)
	now := s.clock.Now()

	for i := range tickets {
		ticket := &tickets[i]
		if err := s.processTicket(ctx, ticket, now, &result); err != nil {
			// One bad ticket must not abort the sweep for the rest.
			result.Errors++
			s.logger.Error("escalation processing failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.Sweeps.Inc()
	}
	s.publish(ctx, events.Event{
		Type: events.EventSweepCompleted,
		Payload: events.SweepCompletedPayload{
			Scanned:    result.Scanned,
			Escalated:  result.Escalated,
			NearBreach: result.NearBreachFlagged,
			Errors:     result.Errors,
		},
	})
	s.logger.Debug("escalation sweep completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("escalated", result.Escalated),
		zap.Int("near_breach", result.NearBreachFlagged),
		zap.Int("errors", result.Errors))
	return result
}

func (s *Scheduler) processTicket(ctx context.Context, ticket *domain.Ticket, now time.Time, result *SweepResult) error {
	deadline := *ticket.SLABreachAt

	if !deadline.After(now) {
		return s.processBreached(ctx, ticket, now, result)
	}

	nearBreach := deadline.Sub(now) <= s.calc.NearBreachWindow()
	switch {
	case nearBreach && !ticket.Escalation.NearBreachFlagged:
		return s.flagNearBreach(ctx, ticket, deadline, result)
	case !nearBreach && ticket.Escalation.NearBreachFlagged:
		// Deadline moved back out of the window (priority or type change
		// after flagging); clear the stale flag so the next approach
		// notifies again.
		return s.clearNearBreachFlag(ctx, ticket, result)
	}
	return nil
}

func (s *Scheduler) processBreached(ctx context.Context, ticket *domain.Ticket, now time.Time, result *SweepResult) error {
	level := ticket.Escalation.Level
	if level >= domain.MaxEscalationLevel {
		return nil
	}
	if level > 0 && ticket.Escalation.EscalatedAt != nil &&
		now.Sub(*ticket.Escalation.EscalatedAt) < s.reescalateAfter {
		return nil
	}

	firstBreach := level == 0
	applied := s.engine.Apply(ctx, ticket, domain.TriggerEscalate)
	if !applied.Escalated() {
		if applied.ActionsFailed > 0 {
			s.logger.Warn("escalate pass executed no escalation",
				zap.String("ticket_id", ticket.ID),
				zap.Int("actions_failed", applied.ActionsFailed))
		}
		return nil
	}

	result.Escalated++
	if s.metrics != nil {
		s.metrics.ObserveEscalation(ticket.Escalation.Level)
		if firstBreach {
			s.metrics.Breaches.Inc()
		}
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Payload: events.TicketEscalatedPayload{
			Level:      ticket.Escalation.Level,
			Recipients: rules.EscalationRecipients(ticket.Escalation.Level),
			BreachedAt: ticket.SLABreachAt,
		},
	})
	return nil
}

// flagNearBreach marks the ticket and sends the single pre-breach
// notification. Flag only, no escalation: repeat sweeps stay quiet until
// the deadline actually passes.
func (s *Scheduler) flagNearBreach(ctx context.Context, ticket *domain.Ticket, deadline time.Time, result *SweepResult) error {
	state := ticket.Escalation
	state.NearBreachFlagged = true
	if err := s.store.Update(ctx, ticket.ID, repository.TicketPatch{Escalation: &state}); err != nil {
		return err
	}
	ticket.Escalation = state
	result.NearBreachFlagged++

	variables := map[string]any{
		"ticket_id":     ticket.ID,
		"ticket_key":    ticket.ExternalKey,
		"title":         ticket.Title,
		"priority":      string(ticket.Priority),
		"sla_breach_at": deadline,
	}
	if err := s.notifier.Send(ctx, rules.EscalationRecipients(1), "sla_near_breach", variables); err != nil {
		s.logger.Warn("near-breach notification failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketNearBreach,
		TicketID: ticket.ID,
		Payload:  events.TicketNearBreachPayload{BreachAt: deadline},
	})
	return nil
}

func (s *Scheduler) clearNearBreachFlag(ctx context.Context, ticket *domain.Ticket, result *SweepResult) error {
	state := ticket.Escalation
	state.NearBreachFlagged = false
	if err := s.store.Update(ctx, ticket.ID, repository.TicketPatch{Escalation: &state}); err != nil {
		return err
	}
	ticket.Escalation = state
	result.FlagsCleared++
	return nil
}

func (s *Scheduler) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
