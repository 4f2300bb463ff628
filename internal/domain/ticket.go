package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// RaisePriority returns the next priority step up, saturating at URGENT.
func RaisePriority(p TicketPriority) TicketPriority {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityMedium
	case TicketPriorityMedium:
		return TicketPriorityHigh
	case TicketPriorityHigh, TicketPriorityUrgent:
		return TicketPriorityUrgent
	}
	return p
}

// TicketType enumerates request kinds that scale the SLA window.
type TicketType string

const (
	TicketTypeIncident TicketType = "INC"
	TicketTypeRequest  TicketType = "REQ"
	TicketTypeHR       TicketType = "HR"
	TicketTypeOps      TicketType = "OPS"
	TicketTypeTask     TicketType = "TASK"
	TicketTypeChange   TicketType = "CHG"
	TicketTypeProblem  TicketType = "PRB"
)

// MaxEscalationLevel bounds the escalation counter.
const MaxEscalationLevel = 3

// EscalationState tracks how far a breached ticket has been escalated.
type EscalationState struct {
	Level             int
	EscalatedAt       *time.Time
	NearBreachFlagged bool
}

// Ticket is the fact view the compliance core reads and selectively mutates.
type Ticket struct {
	ID                string
	ExternalKey       string
	RequesterID       string
	CreatorDepartment string
	AssigneeID        *string
	Title             string
	Description       string
	Status            TicketStatus
	Priority          TicketPriority
	Type              TicketType
	Category          string
	Tags              []string
	Escalation        EscalationState
	SLABreachAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

// IsOpen reports whether the ticket still counts for SLA enforcement.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress || t.Status == TicketStatusPendingUser
}

// HasTag reports tag membership.
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}
