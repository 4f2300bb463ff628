package events

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketAdmitted   EventType = "ticket_admitted"
	EventTicketRejected   EventType = "ticket_rejected"
	EventRulesApplied     EventType = "rules_applied"
	EventTicketEscalated  EventType = "ticket_escalated"
	EventTicketNearBreach EventType = "ticket_near_breach"
	EventSweepCompleted   EventType = "sweep_completed"
)

// Event represents a compliance event emitted by the core.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketAdmittedPayload payload.
type TicketAdmittedPayload struct {
	Action     domain.GateAction     `json:"gate_action"`
	Priority   domain.TicketPriority `json:"priority"`
	TicketType domain.TicketType     `json:"ticket_type"`
	Title      string                `json:"title"`
}

// TicketRejectedPayload payload.
type TicketRejectedPayload struct {
	Identifier string            `json:"identifier"`
	Action     domain.GateAction `json:"gate_action"`
	Reason     string            `json:"reason"`
}

// RulesAppliedPayload payload.
type RulesAppliedPayload struct {
	Trigger         domain.Trigger `json:"trigger"`
	RulesApplied    []string       `json:"rules_applied"`
	ActionsExecuted int            `json:"actions_executed"`
	ActionsFailed   int            `json:"actions_failed"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Level      int        `json:"level"`
	Recipients []string   `json:"recipients"`
	BreachedAt *time.Time `json:"breached_at,omitempty"`
}

// TicketNearBreachPayload payload.
type TicketNearBreachPayload struct {
	BreachAt time.Time `json:"breach_at"`
}

// SweepCompletedPayload payload.
type SweepCompletedPayload struct {
	Scanned    int `json:"scanned"`
	Escalated  int `json:"escalated"`
	NearBreach int `json:"near_breach"`
	Errors     int `json:"errors"`
}
