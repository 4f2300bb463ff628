package rules

import (
	"strings"
	"testing"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

func TestValidateCleanRuleSet(t *testing.T) {
	t.Parallel()

	ruleSet := []domain.WorkflowRule{{
		ID: "ok", Enabled: true, Trigger: domain.TriggerCreated,
		Conditions: []domain.Condition{
			{Field: "priority", Operator: domain.OperatorEquals, Value: "URGENT"},
			{Field: "escalation.level", Operator: domain.OperatorLessThan, Value: 3},
			{Field: "type", Operator: domain.OperatorIn, Value: []string{"INC", "PRB"}},
		},
		Actions: []domain.Action{
			{Type: domain.ActionAddTag, Params: map[string]any{"tag": "x"}},
			{Type: domain.ActionEscalate},
		},
	}}
	if warnings := Validate(ruleSet); len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
}

func TestValidateFlagsAuthoringMistakes(t *testing.T) {
	t.Parallel()

	ruleSet := []domain.WorkflowRule{{
		ID: "broken",
		Conditions: []domain.Condition{
			{Field: "priority", Operator: domain.Operator("regex"), Value: ".*"},
			{Field: "customer_tier", Operator: domain.OperatorEquals, Value: "gold"},
			{Field: "title", Operator: domain.OperatorGreaterThan, Value: 10},
			{Field: "status", Operator: domain.OperatorIn, Value: "OPEN"},
		},
		Actions: []domain.Action{{Type: domain.ActionType("reopen")}},
	}}

	warnings := Validate(ruleSet)
	if len(warnings) != 5 {
		t.Fatalf("warnings = %v, want 5", warnings)
	}

	wantFragments := []string{
		"unknown operator",
		"not a declared fact path",
		"numeric operator",
		"requires a list value",
		"unknown action type",
	}
	for i, fragment := range wantFragments {
		if !strings.Contains(warnings[i], fragment) {
			t.Fatalf("warning %d = %q, want it to mention %q", i, warnings[i], fragment)
		}
	}
}
