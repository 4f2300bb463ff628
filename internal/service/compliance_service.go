package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/escalation"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/gate"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/rules"
	"github.com/spec-kit/ticket-routing/internal/sla"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util/errorutil"
)

// SpamFlagTag marks admitted-but-flagged tickets for manual review.
const SpamFlagTag = "spam-flagged"

// ComplianceService coordinates the admission pipeline and exposes the
// compliance operations consumed by the API layer.
type ComplianceService struct {
	store      repository.TicketStore
	engine     *rules.Engine
	calc       *sla.Calculator
	gate       *gate.SpamGate
	scheduler  *escalation.Scheduler
	dispatcher events.Dispatcher
	clock      clock.Clock
	metrics    *observability.Metrics
}

// Dependencies bundles collaborators for the compliance service.
type Dependencies struct {
	Store      repository.TicketStore
	Engine     *rules.Engine
	Calculator *sla.Calculator
	Gate       *gate.SpamGate
	Scheduler  *escalation.Scheduler
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Metrics    *observability.Metrics
}

// NewComplianceService constructs the service.
func NewComplianceService(deps Dependencies) *ComplianceService {
	return &ComplianceService{
		store:      deps.Store,
		engine:     deps.Engine,
		calc:       deps.Calculator,
		gate:       deps.Gate,
		scheduler:  deps.Scheduler,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
	}
}

// SubmitTicket runs the full intake pipeline: admission decision, ticket
// creation, the created-trigger rule pass, and deadline assignment. A
// non-admitting decision returns no ticket and no error; the decision
// itself is the caller-facing outcome.
func (s *ComplianceService) SubmitTicket(ctx context.Context, sub domain.Submission) (*domain.Ticket, gate.Decision, error) {
	decision := s.gate.Decide(ctx, sub)
	s.metrics.ObserveAdmission(string(decision.Action))

	if !decision.Allowed {
		s.publish(ctx, events.Event{
			Type: events.EventTicketRejected,
			Payload: events.TicketRejectedPayload{
				Identifier: sub.Identifier,
				Action:     decision.Action,
				Reason:     decision.Reason,
			},
		})
		return nil, decision, nil
	}

	ticket := &domain.Ticket{
		ExternalKey:       generateTicketKey(),
		RequesterID:       sub.Identifier,
		CreatorDepartment: sub.Department,
		Title:             strings.TrimSpace(sub.Subject),
		Description:       strings.TrimSpace(sub.Body),
		Status:            domain.TicketStatusOpen,
		Priority:          sub.Priority,
		Type:              sub.Type,
		Category:          sub.Category,
		CreatedAt:         s.clock.Now(),
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeIncident
	}
	if decision.Action == domain.GateActionFlag {
		ticket.Tags = append(ticket.Tags, SpamFlagTag)
	}

	if err := s.store.Create(ctx, ticket); err != nil {
		return nil, decision, apperrors.MapError(err)
	}

	result := s.engine.Apply(ctx, ticket, domain.TriggerCreated)
	s.metrics.ObserveRulePass(len(result.ActionsExecuted), result.ActionsFailed)

	// The deadline reflects the post-pass priority and type so routing
	// rules that raise urgency tighten the window too.
	if err := s.AssignDeadline(ctx, ticket); err != nil {
		return nil, decision, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAdmitted,
		TicketID: ticket.ID,
		Payload: events.TicketAdmittedPayload{
			Action:     decision.Action,
			Priority:   ticket.Priority,
			TicketType: ticket.Type,
			Title:      ticket.Title,
		},
	})
	s.publishRulePass(ctx, ticket.ID, domain.TriggerCreated, result)
	return ticket, decision, nil
}

// AssignDeadline recomputes and persists the ticket's breach deadline. A
// recalculation that lands outside the near-breach window clears a stale
// near-breach flag so the next approach notifies again.
func (s *ComplianceService) AssignDeadline(ctx context.Context, ticket *domain.Ticket) error {
	deadline := s.calc.BreachTime(ticket.Priority, ticket.Type, ticket.Category, ticket.CreatedAt)
	patch := repository.TicketPatch{SLABreachAt: &deadline}

	if ticket.Escalation.NearBreachFlagged && deadline.Sub(s.clock.Now()) > s.calc.NearBreachWindow() {
		state := ticket.Escalation
		state.NearBreachFlagged = false
		patch.Escalation = &state
	}

	if err := s.store.Update(ctx, ticket.ID, patch); err != nil {
		return apperrors.MapError(err)
	}
	ticket.SLABreachAt = &deadline
	if patch.Escalation != nil {
		ticket.Escalation = *patch.Escalation
	}
	return nil
}

// ApplyWorkflowRules runs one rule pass for an existing ticket.
func (s *ComplianceService) ApplyWorkflowRules(ctx context.Context, ticketID string, trigger domain.Trigger) (rules.Result, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return rules.Result{}, err
	}
	result := s.engine.Apply(ctx, ticket, trigger)
	s.metrics.ObserveRulePass(len(result.ActionsExecuted), result.ActionsFailed)
	s.publishRulePass(ctx, ticket.ID, trigger, result)
	return result, nil
}

// ProcessEscalations triggers one synchronous sweep.
func (s *ComplianceService) ProcessEscalations(ctx context.Context) escalation.SweepResult {
	return s.scheduler.Sweep(ctx)
}

// GetTicketSLAStatus reports the ticket's current SLA position.
func (s *ComplianceService) GetTicketSLAStatus(ctx context.Context, ticketID string) (sla.Status, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return sla.Status{}, err
	}
	return s.calc.Status(ticket, s.clock.Now()), nil
}

// GetSLAStatistics aggregates compliance over tickets created in [from, to].
func (s *ComplianceService) GetSLAStatistics(ctx context.Context, from, to time.Time) (sla.Statistics, error) {
	tickets, err := s.store.FindCreatedBetween(ctx, from, to)
	if err != nil {
		return sla.Statistics{}, apperrors.MapError(err)
	}
	return s.calc.Statistics(tickets, from, to, s.clock.Now()), nil
}

// CalculateBreachTime exposes the pure deadline computation.
func (s *ComplianceService) CalculateBreachTime(priority domain.TicketPriority, ticketType domain.TicketType, category string, createdAt time.Time) time.Time {
	return s.calc.BreachTime(priority, ticketType, category, createdAt)
}

// CheckTicketSpam evaluates a submission without creating anything.
func (s *ComplianceService) CheckTicketSpam(ctx context.Context, sub domain.Submission) gate.Decision {
	decision := s.gate.Decide(ctx, sub)
	s.metrics.ObserveAdmission(string(decision.Action))
	return decision
}

func (s *ComplianceService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *ComplianceService) publishRulePass(ctx context.Context, ticketID string, trigger domain.Trigger, result rules.Result) {
	s.publish(ctx, events.Event{
		Type:     events.EventRulesApplied,
		TicketID: ticketID,
		Payload: events.RulesAppliedPayload{
			Trigger:         trigger,
			RulesApplied:    result.RulesApplied,
			ActionsExecuted: len(result.ActionsExecuted),
			ActionsFailed:   result.ActionsFailed,
		},
	})
}

func (s *ComplianceService) publish(ctx context.Context, event events.Event) {
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

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
