// Package sla computes service-level deadlines and breach status. All
// functions are pure over an injected notion of "now"; unknown priorities
// and types fall back to defaults instead of failing ticket intake.
package sla

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// DefaultNearBreachWindow is the lookahead used when none is configured.
const DefaultNearBreachWindow = 2 * time.Hour

// baseResolutionHours maps priority to the resolution window in hours.
var baseResolutionHours = map[domain.TicketPriority]float64{
	domain.TicketPriorityUrgent: 4,
	domain.TicketPriorityHigh:   8,
	domain.TicketPriorityMedium: 24,
	domain.TicketPriorityLow:    72,
}

// typeMultipliers scale the resolution window per ticket type. Problem
// tickets get a shorter window; long-form request types stretch it.
var typeMultipliers = map[domain.TicketType]float64{
	domain.TicketTypeIncident: 1.0,
	domain.TicketTypeRequest:  2.0,
	domain.TicketTypeHR:       1.5,
	domain.TicketTypeOps:      1.0,
	domain.TicketTypeTask:     3.0,
	domain.TicketTypeChange:   1.5,
	domain.TicketTypeProblem:  0.5,
}

// Calculator computes deadlines and breach status for tickets.
type Calculator struct {
	nearBreachWindow time.Duration
	// categoryMultipliers optionally scale the window per category on top
	// of the type multiplier. Empty by default; the category parameter is
	// carried so overrides need no signature change.
	categoryMultipliers map[string]float64
}

// Option customizes a Calculator.
type Option func(*Calculator)

// WithNearBreachWindow overrides the 2h near-breach lookahead.
func WithNearBreachWindow(window time.Duration) Option {
	return func(c *Calculator) {
		if window > 0 {
			c.nearBreachWindow = window
		}
	}
}

// WithCategoryMultipliers installs per-category window overrides.
func WithCategoryMultipliers(multipliers map[string]float64) Option {
	return func(c *Calculator) {
		c.categoryMultipliers = multipliers
	}
}

// NewCalculator builds a Calculator with defaults.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{nearBreachWindow: DefaultNearBreachWindow}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolutionHours returns the full resolution window in hours for a
// priority/type pair. Unknown values fall back to MEDIUM and 1.0x.
func (c *Calculator) ResolutionHours(priority domain.TicketPriority, ticketType domain.TicketType) float64 {
	base, ok := baseResolutionHours[priority]
	if !ok {
		base = baseResolutionHours[domain.TicketPriorityMedium]
	}
	multiplier, ok := typeMultipliers[ticketType]
	if !ok {
		multiplier = 1.0
	}
	return base * multiplier
}

// ResponseHours returns the first-response window: the resolution table
// quartered.
func (c *Calculator) ResponseHours(priority domain.TicketPriority, ticketType domain.TicketType) float64 {
	return c.ResolutionHours(priority, ticketType) / 4
}

// BreachTime computes the resolution deadline for a ticket created at createdAt.
func (c *Calculator) BreachTime(priority domain.TicketPriority, ticketType domain.TicketType, category string, createdAt time.Time) time.Time {
	hours := c.ResolutionHours(priority, ticketType)
	if factor, ok := c.categoryMultipliers[category]; ok && factor > 0 {
		hours *= factor
	}
	return createdAt.Add(time.Duration(hours * float64(time.Hour)))
}

// ResponseDeadline computes the first-response deadline.
func (c *Calculator) ResponseDeadline(priority domain.TicketPriority, ticketType domain.TicketType, category string, createdAt time.Time) time.Time {
	hours := c.ResponseHours(priority, ticketType)
	if factor, ok := c.categoryMultipliers[category]; ok && factor > 0 {
		hours *= factor
	}
	return createdAt.Add(time.Duration(hours * float64(time.Hour)))
}

// Status reports the current SLA position of a ticket.
type Status struct {
	Applicable     bool
	IsBreached     bool
	IsNearBreach   bool
	HoursRemaining float64
	PercentElapsed float64
	BreachAt       *time.Time
}

// Status evaluates the ticket's deadline against now. A ticket without a
// deadline reports not-applicable rather than erroring.
func (c *Calculator) Status(ticket *domain.Ticket, now time.Time) Status {
	if ticket == nil || ticket.SLABreachAt == nil {
		return Status{}
	}
	breachAt := *ticket.SLABreachAt
	status := Status{
		Applicable: true,
		BreachAt:   &breachAt,
	}
	status.IsBreached = !breachAt.After(now)
	if !status.IsBreached {
		status.IsNearBreach = breachAt.Sub(now) <= c.nearBreachWindow
	}
	status.HoursRemaining = breachAt.Sub(now).Hours()

	total := breachAt.Sub(ticket.CreatedAt)
	if total > 0 {
		elapsed := now.Sub(ticket.CreatedAt).Hours() / total.Hours() * 100
		status.PercentElapsed = clampPercent(elapsed)
	} else {
		status.PercentElapsed = 100
	}
	return status
}

// NearBreachWindow exposes the configured lookahead.
func (c *Calculator) NearBreachWindow() time.Duration {
	return c.nearBreachWindow
}

// Statistics aggregates SLA compliance over a set of tickets.
type Statistics struct {
	Total              int
	Breached           int
	BreachRatePercent  float64
	AvgResolutionHours float64
	OnTimeCount        int
}

// Statistics computes aggregate compliance over tickets created inside
// [from, to]. A ticket is on time when it resolved at or before its
// deadline; a ticket is breached when its deadline passed before now or
// before its resolution.
func (c *Calculator) Statistics(tickets []domain.Ticket, from, to, now time.Time) Statistics {
	var stats Statistics
	var resolvedHours float64
	var resolvedCount int

	for i := range tickets {
		ticket := &tickets[i]
		if ticket.CreatedAt.Before(from) || ticket.CreatedAt.After(to) {
			continue
		}
		stats.Total++

		if ticket.ResolvedAt != nil {
			resolvedHours += ticket.ResolvedAt.Sub(ticket.CreatedAt).Hours()
			resolvedCount++
		}

		if ticket.SLABreachAt == nil {
			continue
		}
		deadline := *ticket.SLABreachAt
		switch {
		case ticket.ResolvedAt != nil && !ticket.ResolvedAt.After(deadline):
			stats.OnTimeCount++
		case ticket.ResolvedAt != nil:
			stats.Breached++
		case !deadline.After(now):
			stats.Breached++
		}
	}

	if stats.Total > 0 {
		stats.BreachRatePercent = float64(stats.Breached) / float64(stats.Total) * 100
	}
	if resolvedCount > 0 {
		stats.AvgResolutionHours = resolvedHours / float64(resolvedCount)
	}
	return stats
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
