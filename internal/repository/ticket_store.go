package repository

import (
	"context"
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// TicketPatch carries the fields the compliance core writes back. Nil
// pointers leave the stored value untouched; each write is independent, no
// transaction spans a rule pass.
type TicketPatch struct {
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssigneeID  *string
	Tags        *[]string
	SLABreachAt *time.Time
	Escalation  *domain.EscalationState
	ResolvedAt  *time.Time
}

// IsEmpty reports whether the patch would change nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Priority == nil && p.Status == nil && p.AssigneeID == nil &&
		p.Tags == nil && p.SLABreachAt == nil && p.Escalation == nil && p.ResolvedAt == nil
}

// TicketStore encapsulates ticket persistence as consumed by the core.
type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, id string, patch TicketPatch) error
	FindOpenWithDeadline(ctx context.Context) ([]domain.Ticket, error)
	FindCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error)
}

// Agent is an assignable staff member as seen by the rule engine.
type Agent struct {
	ID         string
	Name       string
	Department string
	Role       string
	Active     bool
	CreatedAt  time.Time
}

// AgentFilter narrows agent directory lookups.
type AgentFilter struct {
	Department *string
	Role       *string
	Limit      int
}

// AgentDirectory resolves assignment candidates for the assign action.
type AgentDirectory interface {
	Find(ctx context.Context, filter AgentFilter) ([]Agent, error)
}
