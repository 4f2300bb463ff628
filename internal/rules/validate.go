package rules

import (
	"fmt"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

type factKind int

const (
	kindString factKind = iota
	kindNumber
	kindBool
	kindSet
	kindTime
)

// declaredFields maps the addressable fact paths to their semantic type.
var declaredFields = map[string]factKind{
	"id":                             kindString,
	"external_key":                   kindString,
	"title":                          kindString,
	"description":                    kindString,
	"status":                         kindString,
	"priority":                       kindString,
	"type":                           kindString,
	"category":                       kindString,
	"tags":                           kindSet,
	"assignee_id":                    kindString,
	"created_at":                     kindTime,
	"sla_breach_at":                  kindTime,
	"creator.id":                     kindString,
	"creator.department":             kindString,
	"escalation.level":               kindNumber,
	"escalation.near_breach_flagged": kindBool,
}

var knownOperators = map[domain.Operator]bool{
	domain.OperatorEquals:      true,
	domain.OperatorNotEquals:   true,
	domain.OperatorContains:    true,
	domain.OperatorNotContains: true,
	domain.OperatorIn:          true,
	domain.OperatorNotIn:       true,
	domain.OperatorGreaterThan: true,
	domain.OperatorLessThan:    true,
}

var knownActions = map[domain.ActionType]bool{
	domain.ActionAssign:      true,
	domain.ActionSetPriority: true,
	domain.ActionSetStatus:   true,
	domain.ActionAddTag:      true,
	domain.ActionRemoveTag:   true,
	domain.ActionNotify:      true,
	domain.ActionEscalate:    true,
}

// Validate checks the rule set for likely authoring mistakes and returns
// human-readable warnings. None are fatal: a numeric operator aimed at a
// non-numeric field simply never matches at evaluation time, but that
// silence is exactly what rule authors should hear about at load.
func Validate(ruleSet []domain.WorkflowRule) []string {
	var warnings []string
	for _, rule := range ruleSet {
		for _, cond := range rule.Conditions {
			if !knownOperators[cond.Operator] {
				warnings = append(warnings, fmt.Sprintf(
					"rule %s: unknown operator %q on field %q", rule.ID, cond.Operator, cond.Field))
				continue
			}

			kind, declared := declaredFields[cond.Field]
			if !declared {
				warnings = append(warnings, fmt.Sprintf(
					"rule %s: field %q is not a declared fact path; condition will never match", rule.ID, cond.Field))
				continue
			}

			switch cond.Operator {
			case domain.OperatorGreaterThan, domain.OperatorLessThan:
				if kind != kindNumber {
					warnings = append(warnings, fmt.Sprintf(
						"rule %s: numeric operator %q on non-numeric field %q will never match",
						rule.ID, cond.Operator, cond.Field))
				}
			case domain.OperatorIn, domain.OperatorNotIn:
				if _, ok := asList(cond.Value); !ok {
					warnings = append(warnings, fmt.Sprintf(
						"rule %s: operator %q on field %q requires a list value", rule.ID, cond.Operator, cond.Field))
				}
			}
		}
		for _, action := range rule.Actions {
			if !knownActions[action.Type] {
				warnings = append(warnings, fmt.Sprintf(
					"rule %s: unknown action type %q", rule.ID, action.Type))
			}
		}
	}
	return warnings
}
