package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// ErrTicketNotFound reports a missing ticket id in the memory store.
var ErrTicketNotFound = fmt.Errorf("ticket not found")

// MemoryTicketStore is a map-backed TicketStore used when no database is
// configured and by tests. It also serves as an in-memory AgentDirectory.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	agents  []Agent
	nowFn   func() time.Time
}

// NewMemoryTicketStore builds an empty store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		tickets: make(map[string]*domain.Ticket),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SeedAgents installs the assignable agent set.
func (s *MemoryTicketStore) SeedAgents(agents []Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append([]Agent{}, agents...)
}

// Create stores a new ticket, assigning id and timestamps when absent.
func (s *MemoryTicketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.nowFn()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	copied := cloneTicket(ticket)
	s.tickets[ticket.ID] = copied
	return nil
}

// Get returns a snapshot of the ticket.
func (s *MemoryTicketStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

// Update applies the patch to the stored ticket.
func (s *MemoryTicketStore) Update(ctx context.Context, id string, patch TicketPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.AssigneeID != nil {
		assignee := *patch.AssigneeID
		ticket.AssigneeID = &assignee
	}
	if patch.Tags != nil {
		ticket.Tags = append([]string{}, (*patch.Tags)...)
	}
	if patch.SLABreachAt != nil {
		deadline := *patch.SLABreachAt
		ticket.SLABreachAt = &deadline
	}
	if patch.ResolvedAt != nil {
		resolved := *patch.ResolvedAt
		ticket.ResolvedAt = &resolved
	}
	if patch.Escalation != nil {
		ticket.Escalation = *patch.Escalation
		if patch.Escalation.EscalatedAt != nil {
			stamped := *patch.Escalation.EscalatedAt
			ticket.Escalation.EscalatedAt = &stamped
		}
	}
	ticket.UpdatedAt = s.nowFn()
	return nil
}

// FindOpenWithDeadline returns open tickets carrying a deadline, soonest first.
func (s *MemoryTicketStore) FindOpenWithDeadline(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if ticket.IsOpen() && ticket.SLABreachAt != nil {
			result = append(result, *cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SLABreachAt.Before(*result[j].SLABreachAt)
	})
	return result, nil
}

// FindCreatedBetween returns tickets created inside [from, to].
func (s *MemoryTicketStore) FindCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if !ticket.CreatedAt.Before(from) && !ticket.CreatedAt.After(to) {
			result = append(result, *cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Find returns agents matching the filter, oldest first.
func (s *MemoryTicketStore) Find(ctx context.Context, filter AgentFilter) ([]Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Agent
	for _, agent := range s.agents {
		if !agent.Active {
			continue
		}
		if filter.Department != nil && agent.Department != *filter.Department {
			continue
		}
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		result = append(result, agent)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func cloneTicket(ticket *domain.Ticket) *domain.Ticket {
	copied := *ticket
	copied.Tags = append([]string{}, ticket.Tags...)
	if ticket.AssigneeID != nil {
		assignee := *ticket.AssigneeID
		copied.AssigneeID = &assignee
	}
	if ticket.SLABreachAt != nil {
		deadline := *ticket.SLABreachAt
		copied.SLABreachAt = &deadline
	}
	if ticket.ResolvedAt != nil {
		resolved := *ticket.ResolvedAt
		copied.ResolvedAt = &resolved
	}
	if ticket.Escalation.EscalatedAt != nil {
		stamped := *ticket.Escalation.EscalatedAt
		copied.Escalation.EscalatedAt = &stamped
	}
	return &copied
}
