package escalation

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/rules"
	"github.com/spec-kit/ticket-routing/internal/sla"
)

type sentMessage struct {
	Recipients []string
	Template   string
	Variables  map[string]any
}

type recordingNotifier struct {
	sent []sentMessage
}

func (r *recordingNotifier) Send(ctx context.Context, recipients []string, template string, variables map[string]any) error {
	r.sent = append(r.sent, sentMessage{Recipients: recipients, Template: template, Variables: variables})
	return nil
}

func (r *recordingNotifier) byTemplate(template string) []sentMessage {
	var out []sentMessage
	for _, msg := range r.sent {
		if msg.Template == template {
			out = append(out, msg)
		}
	}
	return out
}

type schedulerFixture struct {
	scheduler  *Scheduler
	store      *repository.MemoryTicketStore
	notifier   *recordingNotifier
	clock      *clock.Fake
	dispatcher events.Dispatcher
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	store := repository.NewMemoryTicketStore()
	notifier := &recordingNotifier{}
	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	escalateRule := []domain.WorkflowRule{{
		ID:       "escalate-breached",
		Enabled:  true,
		Trigger:  domain.TriggerEscalate,
		Priority: 100,
		Actions: []domain.Action{
			{Type: domain.ActionEscalate, Params: map[string]any{"raise_priority": true}},
		},
	}}
	engine := rules.NewEngine(escalateRule, rules.Dependencies{
		Store:    store,
		Agents:   store,
		Notifier: notifier,
		Clock:    clk,
		Logger:   logger,
	})

	dispatcher := events.NewInMemoryDispatcher()
	scheduler := NewScheduler(Dependencies{
		Store:      store,
		Engine:     engine,
		Calculator: sla.NewCalculator(),
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	}, Config{
		Interval:        time.Minute,
		ReescalateAfter: time.Hour,
	})
	return &schedulerFixture{
		scheduler:  scheduler,
		store:      store,
		notifier:   notifier,
		clock:      clk,
		dispatcher: dispatcher,
	}
}

func (f *schedulerFixture) createTicket(t *testing.T, deadline time.Duration) *domain.Ticket {
	t.Helper()
	breachAt := f.clock.Now().Add(deadline)
	ticket := &domain.Ticket{
		ExternalKey: "TCK-SWEEP01",
		Title:       "database unreachable",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityUrgent,
		Type:        domain.TicketTypeIncident,
		CreatedAt:   f.clock.Now(),
		SLABreachAt: &breachAt,
	}
	if err := f.store.Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (f *schedulerFixture) ticketState(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	return ticket
}

func TestSweepEscalationTimeline(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, 4*time.Hour)

	// Well before the deadline nothing happens.
	f.clock.Advance(time.Hour)
	if result := f.scheduler.Sweep(ctx); result.Escalated != 0 || result.NearBreachFlagged != 0 {
		t.Fatalf("early sweep = %+v, want quiet", result)
	}

	// Inside the lookahead window the ticket is flagged and announced once.
	f.clock.Advance(90 * time.Minute)
	result := f.scheduler.Sweep(ctx)
	if result.NearBreachFlagged != 1 {
		t.Fatalf("near-breach sweep = %+v, want one flag", result)
	}
	if got := f.notifier.byTemplate("sla_near_breach"); len(got) != 1 {
		t.Fatalf("near-breach notifications = %d, want 1", len(got))
	} else if len(got[0].Recipients) != 1 || got[0].Recipients[0] != "support-lead" {
		t.Fatalf("near-breach recipients = %v, want [support-lead]", got[0].Recipients)
	}

	// A repeat sweep inside the window stays quiet.
	f.clock.Advance(10 * time.Minute)
	if result := f.scheduler.Sweep(ctx); result.NearBreachFlagged != 0 {
		t.Fatalf("repeat near-breach sweep = %+v, want quiet", result)
	}
	if got := f.notifier.byTemplate("sla_near_breach"); len(got) != 1 {
		t.Fatalf("near-breach notifications = %d, want still 1", len(got))
	}

	// One hour past the deadline the first escalation fires.
	f.clock.Set(ticket.CreatedAt.Add(5 * time.Hour))
	result = f.scheduler.Sweep(ctx)
	if result.Escalated != 1 {
		t.Fatalf("breach sweep = %+v, want one escalation", result)
	}
	state := f.ticketState(t, ticket.ID)
	if state.Escalation.Level != 1 {
		t.Fatalf("level = %d, want 1", state.Escalation.Level)
	}
	if got := f.notifier.byTemplate("sla_escalation"); len(got) != 1 {
		t.Fatalf("escalation notifications = %d, want 1", len(got))
	} else if len(got[0].Recipients) != 1 || got[0].Recipients[0] != "support-lead" {
		t.Fatalf("level 1 recipients = %v, want [support-lead]", got[0].Recipients)
	}

	// Ten minutes later the re-escalation gate holds.
	f.clock.Advance(10 * time.Minute)
	if result := f.scheduler.Sweep(ctx); result.Escalated != 0 {
		t.Fatalf("gated sweep = %+v, want no escalation", result)
	}
	if state := f.ticketState(t, ticket.ID); state.Escalation.Level != 1 {
		t.Fatalf("level after gated sweep = %d, want 1", state.Escalation.Level)
	}

	// Past the gate the second escalation fires to the wider audience.
	f.clock.Set(ticket.CreatedAt.Add(6*time.Hour + 5*time.Minute))
	result = f.scheduler.Sweep(ctx)
	if result.Escalated != 1 {
		t.Fatalf("second breach sweep = %+v, want one escalation", result)
	}
	state = f.ticketState(t, ticket.ID)
	if state.Escalation.Level != 2 {
		t.Fatalf("level = %d, want 2", state.Escalation.Level)
	}
	escalations := f.notifier.byTemplate("sla_escalation")
	if len(escalations) != 2 {
		t.Fatalf("escalation notifications = %d, want 2", len(escalations))
	}
	if got := escalations[1].Recipients; len(got) != 2 || got[0] != "support-manager" || got[1] != "director" {
		t.Fatalf("level 2 recipients = %v, want [support-manager director]", got)
	}

	// The level never exceeds the cap no matter how long the breach lasts.
	for i := 0; i < 4; i++ {
		f.clock.Advance(2 * time.Hour)
		f.scheduler.Sweep(ctx)
	}
	state = f.ticketState(t, ticket.ID)
	if state.Escalation.Level != domain.MaxEscalationLevel {
		t.Fatalf("level = %d, want capped at %d", state.Escalation.Level, domain.MaxEscalationLevel)
	}
	if got := f.notifier.byTemplate("sla_escalation"); len(got) != 3 {
		t.Fatalf("escalation notifications = %d, want 3 total", len(got))
	}
}

func TestSweepClearsStaleNearBreachFlag(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, 4*time.Hour)

	f.clock.Advance(150 * time.Minute)
	if result := f.scheduler.Sweep(ctx); result.NearBreachFlagged != 1 {
		t.Fatalf("sweep = %+v, want one flag", result)
	}

	// The deadline moves out (window recalculated after a priority drop).
	movedOut := f.clock.Now().Add(20 * time.Hour)
	if err := f.store.Update(ctx, ticket.ID, repository.TicketPatch{SLABreachAt: &movedOut}); err != nil {
		t.Fatalf("update deadline: %v", err)
	}

	result := f.scheduler.Sweep(ctx)
	if result.FlagsCleared != 1 {
		t.Fatalf("sweep = %+v, want one cleared flag", result)
	}
	if state := f.ticketState(t, ticket.ID); state.Escalation.NearBreachFlagged {
		t.Fatal("near-breach flag still set after deadline moved out")
	}

	// Approaching again re-flags and re-notifies.
	f.clock.Advance(19 * time.Hour)
	if result := f.scheduler.Sweep(ctx); result.NearBreachFlagged != 1 {
		t.Fatalf("re-approach sweep = %+v, want one flag", result)
	}
	if got := f.notifier.byTemplate("sla_near_breach"); len(got) != 2 {
		t.Fatalf("near-breach notifications = %d, want 2", len(got))
	}
}

func TestSweepSkipsClosedAndUndeadlinedTickets(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	ctx := context.Background()

	past := f.clock.Now().Add(-time.Hour)
	closed := &domain.Ticket{
		Status:      domain.TicketStatusResolved,
		Priority:    domain.TicketPriorityUrgent,
		Type:        domain.TicketTypeIncident,
		CreatedAt:   f.clock.Now().Add(-5 * time.Hour),
		SLABreachAt: &past,
	}
	if err := f.store.Create(ctx, closed); err != nil {
		t.Fatalf("create closed ticket: %v", err)
	}
	undeadlined := &domain.Ticket{
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityLow,
		Type:      domain.TicketTypeTask,
		CreatedAt: f.clock.Now(),
	}
	if err := f.store.Create(ctx, undeadlined); err != nil {
		t.Fatalf("create undeadlined ticket: %v", err)
	}

	result := f.scheduler.Sweep(ctx)
	if result.Scanned != 0 {
		t.Fatalf("scanned = %d, want 0", result.Scanned)
	}
	if result.Escalated != 0 {
		t.Fatalf("escalated = %d, want 0", result.Escalated)
	}
}

func TestSweepOverlapSkips(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	f.createTicket(t, -time.Hour)

	f.scheduler.sweepMu.Lock()
	result := f.scheduler.Sweep(context.Background())
	f.scheduler.sweepMu.Unlock()

	if result.Scanned != 0 || result.Escalated != 0 {
		t.Fatalf("overlapping sweep = %+v, want zero result", result)
	}
}

func TestSweepPublishesCompletionEvent(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	var captured []events.Event
	f.dispatcher.Subscribe(events.EventSweepCompleted, func(ctx context.Context, event events.Event) error {
		captured = append(captured, event)
		return nil
	})

	f.createTicket(t, -time.Hour)
	f.scheduler.Sweep(context.Background())

	if len(captured) != 1 {
		t.Fatalf("sweep events = %d, want 1", len(captured))
	}
	payload, ok := captured[0].Payload.(events.SweepCompletedPayload)
	if !ok {
		t.Fatalf("payload type %T, want SweepCompletedPayload", captured[0].Payload)
	}
	if payload.Scanned != 1 || payload.Escalated != 1 {
		t.Fatalf("payload = %+v, want scanned 1 escalated 1", payload)
	}
}
