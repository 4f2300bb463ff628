package rules

import (
	"strings"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// Facts projects a ticket into the fact map conditions evaluate against.
// The projection is taken once per pass, before any action runs, so a pass
// is deterministic regardless of action side effects.
func Facts(ticket *domain.Ticket) map[string]any {
	assignee := ""
	if ticket.AssigneeID != nil {
		assignee = *ticket.AssigneeID
	}
	facts := map[string]any{
		"id":           ticket.ID,
		"external_key": ticket.ExternalKey,
		"title":        ticket.Title,
		"description":  ticket.Description,
		"status":       string(ticket.Status),
		"priority":     string(ticket.Priority),
		"type":         string(ticket.Type),
		"category":     ticket.Category,
		"tags":         append([]string{}, ticket.Tags...),
		"assignee_id":  assignee,
		"created_at":   ticket.CreatedAt,
		"creator": map[string]any{
			"id":         ticket.RequesterID,
			"department": ticket.CreatorDepartment,
		},
		"escalation": map[string]any{
			"level":               ticket.Escalation.Level,
			"near_breach_flagged": ticket.Escalation.NearBreachFlagged,
		},
	}
	if ticket.SLABreachAt != nil {
		facts["sla_breach_at"] = *ticket.SLABreachAt
	}
	return facts
}

// Lookup resolves a dotted path in the fact map. The second return is false
// when any intermediate segment is missing or not a nested map; it never
// panics on malformed paths.
func Lookup(facts map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = facts
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
