package rules

import (
	"testing"
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

func sampleFacts() map[string]any {
	breach := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:                "t-1",
		ExternalKey:       "TCK-AB12CD34",
		RequesterID:       "u-9",
		CreatorDepartment: "finance",
		Title:             "Payroll export fails",
		Description:       "Monthly payroll export aborts with a timeout.",
		Status:            domain.TicketStatusOpen,
		Priority:          domain.TicketPriorityHigh,
		Type:              domain.TicketTypeIncident,
		Category:          "payroll",
		Tags:              []string{"finance", "export"},
		Escalation:        domain.EscalationState{Level: 1},
		SLABreachAt:       &breach,
		CreatedAt:         time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	return Facts(ticket)
}

func TestLookupNestedPaths(t *testing.T) {
	t.Parallel()

	facts := sampleFacts()
	if v, ok := Lookup(facts, "creator.department"); !ok || v != "finance" {
		t.Fatalf("creator.department = %v (%v), want finance", v, ok)
	}
	if v, ok := Lookup(facts, "escalation.level"); !ok || v != 1 {
		t.Fatalf("escalation.level = %v (%v), want 1", v, ok)
	}
	if _, ok := Lookup(facts, "creator.missing"); ok {
		t.Fatal("missing leaf resolved, want miss")
	}
	if _, ok := Lookup(facts, "title.nested"); ok {
		t.Fatal("path through scalar resolved, want miss")
	}
}

func TestEvalConditionOperators(t *testing.T) {
	t.Parallel()

	facts := sampleFacts()
	cases := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"equals matches", domain.Condition{Field: "priority", Operator: domain.OperatorEquals, Value: "HIGH"}, true},
		{"equals mismatch", domain.Condition{Field: "priority", Operator: domain.OperatorEquals, Value: "LOW"}, false},
		{"equals is type strict", domain.Condition{Field: "priority", Operator: domain.OperatorEquals, Value: 4}, false},
		{"not_equals", domain.Condition{Field: "status", Operator: domain.OperatorNotEquals, Value: "CLOSED"}, true},
		{"contains folds case", domain.Condition{Field: "title", Operator: domain.OperatorContains, Value: "PAYROLL"}, true},
		{"contains over tag list", domain.Condition{Field: "tags", Operator: domain.OperatorContains, Value: "export"}, true},
		{"not_contains", domain.Condition{Field: "description", Operator: domain.OperatorNotContains, Value: "invoice"}, true},
		{"in", domain.Condition{Field: "priority", Operator: domain.OperatorIn, Value: []any{"HIGH", "URGENT"}}, true},
		{"in non-list value", domain.Condition{Field: "priority", Operator: domain.OperatorIn, Value: "HIGH"}, false},
		{"not_in", domain.Condition{Field: "type", Operator: domain.OperatorNotIn, Value: []string{"REQ", "TASK"}}, true},
		{"not_in non-list value", domain.Condition{Field: "type", Operator: domain.OperatorNotIn, Value: "REQ"}, false},
		{"greater_than", domain.Condition{Field: "escalation.level", Operator: domain.OperatorGreaterThan, Value: 0}, true},
		{"less_than", domain.Condition{Field: "escalation.level", Operator: domain.OperatorLessThan, Value: 3}, true},
		{"numeric value as string", domain.Condition{Field: "escalation.level", Operator: domain.OperatorLessThan, Value: "3"}, true},
		{"numeric op on text field never matches", domain.Condition{Field: "title", Operator: domain.OperatorGreaterThan, Value: 0}, false},
		{"numeric op with text value never matches", domain.Condition{Field: "escalation.level", Operator: domain.OperatorGreaterThan, Value: "soon"}, false},
		{"unknown operator", domain.Condition{Field: "priority", Operator: domain.Operator("matches"), Value: "HIGH"}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := EvalCondition(tc.cond, facts); got != tc.want {
				t.Fatalf("EvalCondition(%+v) = %v, want %v", tc.cond, got, tc.want)
			}
		})
	}
}

func TestEvalConditionMissingPath(t *testing.T) {
	t.Parallel()

	facts := Facts(&domain.Ticket{Status: domain.TicketStatusOpen})

	// No deadline fact: only negated operators are satisfied by absence.
	positive := []domain.Operator{
		domain.OperatorEquals, domain.OperatorContains, domain.OperatorIn,
		domain.OperatorGreaterThan, domain.OperatorLessThan,
	}
	for _, op := range positive {
		cond := domain.Condition{Field: "sla_breach_at", Operator: op, Value: "x"}
		if EvalCondition(cond, facts) {
			t.Fatalf("operator %q matched a missing fact", op)
		}
	}

	negated := []domain.Operator{
		domain.OperatorNotEquals, domain.OperatorNotContains, domain.OperatorNotIn,
	}
	for _, op := range negated {
		cond := domain.Condition{Field: "sla_breach_at", Operator: op, Value: "x"}
		if !EvalCondition(cond, facts) {
			t.Fatalf("negated operator %q failed on a missing fact", op)
		}
	}
}

func TestFactsSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	ticket := &domain.Ticket{Tags: []string{"one"}}
	facts := Facts(ticket)
	ticket.Tags[0] = "changed"

	tags, ok := facts["tags"].([]string)
	if !ok || len(tags) != 1 || tags[0] != "one" {
		t.Fatalf("tags fact = %v, want detached copy [one]", facts["tags"])
	}
}
