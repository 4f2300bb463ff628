package dto

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/escalation"
	"github.com/spec-kit/ticket-routing/internal/gate"
	"github.com/spec-kit/ticket-routing/internal/rules"
	"github.com/spec-kit/ticket-routing/internal/sla"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	Identifier string                `json:"identifier"`
	Email      string                `json:"email"`
	Subject    string                `json:"subject"`
	Body       string                `json:"body"`
	SourceIP   string                `json:"source_ip"`
	Department string                `json:"department"`
	Priority   domain.TicketPriority `json:"priority"`
	Type       domain.TicketType     `json:"type"`
	Category   string                `json:"category"`
}

// ToSubmission converts the request into the domain submission.
func (r SubmitTicketRequest) ToSubmission() domain.Submission {
	return domain.Submission{
		Identifier: r.Identifier,
		Email:      r.Email,
		Subject:    r.Subject,
		Body:       r.Body,
		SourceIP:   r.SourceIP,
		Department: r.Department,
		Priority:   r.Priority,
		Type:       r.Type,
		Category:   r.Category,
	}
}

// GateDecisionResponse reports the admission verdict.
type GateDecisionResponse struct {
	Allowed bool              `json:"allowed"`
	Action  domain.GateAction `json:"action"`
	Reason  string            `json:"reason"`
	Details map[string]any    `json:"details,omitempty"`
}

// NewGateDecisionResponse maps a gate decision.
func NewGateDecisionResponse(decision gate.Decision) GateDecisionResponse {
	return GateDecisionResponse{
		Allowed: decision.Allowed,
		Action:  decision.Action,
		Reason:  decision.Reason,
		Details: decision.Details,
	}
}

// EscalationResponse reports the escalation position of a ticket.
type EscalationResponse struct {
	Level             int        `json:"level"`
	EscalatedAt       *time.Time `json:"escalated_at,omitempty"`
	NearBreachFlagged bool       `json:"near_breach_flagged"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID                string                `json:"id"`
	ExternalKey       string                `json:"external_key"`
	RequesterID       string                `json:"requester_id"`
	CreatorDepartment string                `json:"creator_department"`
	AssigneeID        *string               `json:"assignee_id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	Type              domain.TicketType     `json:"type"`
	Category          string                `json:"category,omitempty"`
	Tags              []string              `json:"tags"`
	Escalation        EscalationResponse    `json:"escalation"`
	SLABreachAt       *time.Time            `json:"sla_breach_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	ResolvedAt        *time.Time            `json:"resolved_at,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                ticket.ID,
		ExternalKey:       ticket.ExternalKey,
		RequesterID:       ticket.RequesterID,
		CreatorDepartment: ticket.CreatorDepartment,
		AssigneeID:        ticket.AssigneeID,
		Title:             ticket.Title,
		Description:       ticket.Description,
		Status:            ticket.Status,
		Priority:          ticket.Priority,
		Type:              ticket.Type,
		Category:          ticket.Category,
		Tags:              ticket.Tags,
		Escalation: EscalationResponse{
			Level:             ticket.Escalation.Level,
			EscalatedAt:       ticket.Escalation.EscalatedAt,
			NearBreachFlagged: ticket.Escalation.NearBreachFlagged,
		},
		SLABreachAt: ticket.SLABreachAt,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ResolvedAt:  ticket.ResolvedAt,
	}
}

// ApplyRulesRequest payload.
type ApplyRulesRequest struct {
	Trigger domain.Trigger `json:"trigger"`
}

// RulePassResponse reports one rule evaluation pass.
type RulePassResponse struct {
	RulesApplied    []string `json:"rules_applied"`
	ActionsExecuted int      `json:"actions_executed"`
	ActionsFailed   int      `json:"actions_failed"`
}

// NewRulePassResponse maps a rule pass result.
func NewRulePassResponse(result rules.Result) RulePassResponse {
	applied := result.RulesApplied
	if applied == nil {
		applied = []string{}
	}
	return RulePassResponse{
		RulesApplied:    applied,
		ActionsExecuted: len(result.ActionsExecuted),
		ActionsFailed:   result.ActionsFailed,
	}
}

// SLAStatusResponse reports the SLA position of one ticket.
type SLAStatusResponse struct {
	Applicable     bool       `json:"applicable"`
	IsBreached     bool       `json:"is_breached"`
	IsNearBreach   bool       `json:"is_near_breach"`
	HoursRemaining float64    `json:"hours_remaining"`
	PercentElapsed float64    `json:"percent_elapsed"`
	BreachAt       *time.Time `json:"breach_at,omitempty"`
}

// NewSLAStatusResponse maps a calculator status.
func NewSLAStatusResponse(status sla.Status) SLAStatusResponse {
	return SLAStatusResponse{
		Applicable:     status.Applicable,
		IsBreached:     status.IsBreached,
		IsNearBreach:   status.IsNearBreach,
		HoursRemaining: status.HoursRemaining,
		PercentElapsed: status.PercentElapsed,
		BreachAt:       status.BreachAt,
	}
}

// SLAStatisticsResponse aggregates compliance over a reporting window.
type SLAStatisticsResponse struct {
	Total              int     `json:"total"`
	Breached           int     `json:"breached"`
	BreachRatePercent  float64 `json:"breach_rate_percent"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
	OnTimeCount        int     `json:"on_time_count"`
}

// NewSLAStatisticsResponse maps calculator statistics.
func NewSLAStatisticsResponse(stats sla.Statistics) SLAStatisticsResponse {
	return SLAStatisticsResponse{
		Total:              stats.Total,
		Breached:           stats.Breached,
		BreachRatePercent:  stats.BreachRatePercent,
		AvgResolutionHours: stats.AvgResolutionHours,
		OnTimeCount:        stats.OnTimeCount,
	}
}

// BreachTimeRequest payload.
type BreachTimeRequest struct {
	Priority  domain.TicketPriority `json:"priority"`
	Type      domain.TicketType     `json:"type"`
	Category  string                `json:"category"`
	CreatedAt *time.Time            `json:"created_at"`
}

// BreachTimeResponse reports the computed deadline.
type BreachTimeResponse struct {
	BreachAt time.Time `json:"breach_at"`
}

// SweepResultResponse reports one escalation sweep.
type SweepResultResponse struct {
	Scanned           int `json:"scanned"`
	Escalated         int `json:"escalated"`
	NearBreachFlagged int `json:"near_breach_flagged"`
	FlagsCleared      int `json:"flags_cleared"`
	Errors            int `json:"errors"`
}

// NewSweepResultResponse maps a sweep result.
func NewSweepResultResponse(result escalation.SweepResult) SweepResultResponse {
	return SweepResultResponse{
		Scanned:           result.Scanned,
		Escalated:         result.Escalated,
		NearBreachFlagged: result.NearBreachFlagged,
		FlagsCleared:      result.FlagsCleared,
		Errors:            result.Errors,
	}
}
