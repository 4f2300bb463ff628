package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/repository"
)

// escalationRecipients maps escalation level to its notification audience.
var escalationRecipients = map[int][]string{
	1: {"support-lead"},
	2: {"support-manager", "director"},
	3: {"executive"},
}

// EscalationRecipients returns the audience for a level, clamped into range.
func EscalationRecipients(level int) []string {
	if level < 1 {
		level = 1
	}
	if level > domain.MaxEscalationLevel {
		level = domain.MaxEscalationLevel
	}
	return escalationRecipients[level]
}

func (e *Engine) execute(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	switch action.Type {
	case domain.ActionAssign:
		return e.executeAssign(ctx, ticket, action)
	case domain.ActionSetPriority:
		return e.executeSetPriority(ctx, ticket, action)
	case domain.ActionSetStatus:
		return e.executeSetStatus(ctx, ticket, action)
	case domain.ActionAddTag:
		return e.executeAddTag(ctx, ticket, action)
	case domain.ActionRemoveTag:
		return e.executeRemoveTag(ctx, ticket, action)
	case domain.ActionNotify:
		return e.executeNotify(ctx, ticket, action)
	case domain.ActionEscalate:
		return e.executeEscalate(ctx, ticket, action)
	}
	return fmt.Errorf("unknown action type %q", action.Type)
}

// executeAssign resolves an assignee from an explicit id or a directory
// lookup. No matching candidate is a logged no-op, not an error.
func (e *Engine) executeAssign(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	assigneeID := action.StringParam("assignee_id")
	if assigneeID == "" {
		filter := repository.AgentFilter{Limit: 100}
		if department := action.StringParam("department"); department != "" {
			filter.Department = &department
		}
		if role := action.StringParam("role"); role != "" {
			filter.Role = &role
		}
		candidates, err := e.agents.Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("resolve assignee: %w", err)
		}
		if len(candidates) == 0 {
			e.logger.Debug("assign action found no candidate",
				zap.String("ticket_id", ticket.ID))
			return nil
		}
		assigneeID = candidates[selectIndex(ticket.ID, len(candidates))].ID
	}

	if err := e.store.Update(ctx, ticket.ID, repository.TicketPatch{AssigneeID: &assigneeID}); err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	ticket.AssigneeID = &assigneeID
	return nil
}

func (e *Engine) executeSetPriority(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	priority := domain.TicketPriority(action.StringParam("priority"))
	if priority == "" {
		return fmt.Errorf("set_priority: missing priority param")
	}
	if err := e.store.Update(ctx, ticket.ID, repository.TicketPatch{Priority: &priority}); err != nil {
		return fmt.Errorf("set_priority: %w", err)
	}
	ticket.Priority = priority
	return nil
}

func (e *Engine) executeSetStatus(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	status := domain.TicketStatus(action.StringParam("status"))
	if status == "" {
		return fmt.Errorf("set_status: missing status param")
	}
	if err := e.store.Update(ctx, ticket.ID, repository.TicketPatch{Status: &status}); err != nil {
		return fmt.Errorf("set_status: %w", err)
	}
	ticket.Status = status
	return nil
}

func (e *Engine) executeAddTag(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	tag := action.StringParam("tag")
	if tag == "" {
		return fmt.Errorf("add_tag: missing tag param")
	}
	if ticket.HasTag(tag) {
		return nil
	}
	tags := append(append([]string{}, ticket.Tags...), tag)
	if err := e.store.Update(ctx, ticket.ID, repository.TicketPatch{Tags: &tags}); err != nil {
		return fmt.Errorf("add_tag: %w", err)
	}
	ticket.Tags = tags
	return nil
}

func (e *Engine) executeRemoveTag(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	tag := action.StringParam("tag")
	if tag == "" {
		return fmt.Errorf("remove_tag: missing tag param")
	}
	if !ticket.HasTag(tag) {
		return nil
	}
	tags := make([]string, 0, len(ticket.Tags))
	for _, existing := range ticket.Tags {
		if existing != tag {
			tags = append(tags, existing)
		}
	}
	if err := e.store.Update(ctx, ticket.ID, repository.TicketPatch{Tags: &tags}); err != nil {
		return fmt.Errorf("remove_tag: %w", err)
	}
	ticket.Tags = tags
	return nil
}

func (e *Engine) executeNotify(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	recipients := action.StringListParam("recipients")
	if len(recipients) == 0 {
		return fmt.Errorf("notify: missing recipients param")
	}
	template := action.StringParam("template")
	if template == "" {
		template = "workflow_notification"
	}
	if err := e.notifier.Send(ctx, recipients, template, ticketVariables(ticket)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// executeEscalate bumps the escalation level by one, capped at the
// maximum, stamps the escalation time and notifies the level audience.
// Delivery failure is logged, never retried within the pass.
func (e *Engine) executeEscalate(ctx context.Context, ticket *domain.Ticket, action domain.Action) error {
	if ticket.Escalation.Level >= domain.MaxEscalationLevel {
		e.logger.Debug("escalation already at maximum level",
			zap.String("ticket_id", ticket.ID))
		return nil
	}

	now := e.clock.Now()
	state := domain.EscalationState{
		Level:             ticket.Escalation.Level + 1,
		EscalatedAt:       &now,
		NearBreachFlagged: ticket.Escalation.NearBreachFlagged,
	}
	patch := repository.TicketPatch{Escalation: &state}

	var raised domain.TicketPriority
	if action.BoolParam("raise_priority") {
		raised = domain.RaisePriority(ticket.Priority)
		if raised != ticket.Priority {
			patch.Priority = &raised
		}
	}

	if err := e.store.Update(ctx, ticket.ID, patch); err != nil {
		return fmt.Errorf("escalate: %w", err)
	}
	ticket.Escalation = state
	if patch.Priority != nil {
		ticket.Priority = raised
	}

	variables := ticketVariables(ticket)
	variables["escalation_level"] = state.Level
	if err := e.notifier.Send(ctx, EscalationRecipients(state.Level), "sla_escalation", variables); err != nil {
		e.logger.Warn("escalation notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.Int("level", state.Level),
			zap.Error(err))
	}
	e.logger.Info("ticket escalated",
		zap.String("ticket_id", ticket.ID),
		zap.Int("level", state.Level))
	return nil
}

func ticketVariables(ticket *domain.Ticket) map[string]any {
	variables := map[string]any{
		"ticket_id":   ticket.ID,
		"ticket_key":  ticket.ExternalKey,
		"title":       ticket.Title,
		"priority":    string(ticket.Priority),
		"status":      string(ticket.Status),
		"category":    ticket.Category,
		"ticket_type": string(ticket.Type),
	}
	if ticket.SLABreachAt != nil {
		variables["sla_breach_at"] = *ticket.SLABreachAt
	}
	return variables
}

// selectIndex deterministically picks a candidate for a ticket so repeated
// assignment passes land on the same agent.
func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
