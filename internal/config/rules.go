package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// RuleSet bundles the static workflow rules and spam patterns loaded at startup.
type RuleSet struct {
	Rules    []domain.WorkflowRule
	Patterns []domain.SpamPattern
}

type ruleFile struct {
	Rule    []ruleEntry    `toml:"rule"`
	Pattern []patternEntry `toml:"pattern"`
}

type ruleEntry struct {
	ID        string           `toml:"id"`
	Name      string           `toml:"name"`
	Enabled   *bool            `toml:"enabled"`
	Trigger   string           `toml:"trigger"`
	Priority  int              `toml:"priority"`
	Condition []conditionEntry `toml:"condition"`
	Action    []actionEntry    `toml:"action"`
}

type conditionEntry struct {
	Field    string `toml:"field"`
	Operator string `toml:"operator"`
	Value    any    `toml:"value"`
}

type actionEntry struct {
	Type   string         `toml:"type"`
	Params map[string]any `toml:"params"`
}

type patternEntry struct {
	Regex     string `toml:"regex"`
	AppliesTo string `toml:"applies_to"`
	Action    string `toml:"action"`
	Weight    int    `toml:"weight"`
}

// LoadRules parses the TOML rule file at path. A missing file yields the
// built-in default rule set rather than an error.
func LoadRules(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultRuleSet(), nil
		}
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var file ruleFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	set := &RuleSet{}
	for i, entry := range file.Rule {
		rule, err := entry.toDomain()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, entry.ID, err)
		}
		set.Rules = append(set.Rules, rule)
	}
	for i, entry := range file.Pattern {
		pattern, err := entry.toDomain()
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		set.Patterns = append(set.Patterns, pattern)
	}
	if len(set.Patterns) == 0 {
		set.Patterns = DefaultSpamPatterns()
	}
	return set, nil
}

func (e ruleEntry) toDomain() (domain.WorkflowRule, error) {
	if e.ID == "" {
		return domain.WorkflowRule{}, errors.New("rule id required")
	}
	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}
	rule := domain.WorkflowRule{
		ID:       e.ID,
		Name:     e.Name,
		Enabled:  enabled,
		Trigger:  domain.Trigger(e.Trigger),
		Priority: e.Priority,
	}
	for _, cond := range e.Condition {
		if cond.Field == "" {
			return domain.WorkflowRule{}, errors.New("condition field required")
		}
		rule.Conditions = append(rule.Conditions, domain.Condition{
			Field:    cond.Field,
			Operator: domain.Operator(cond.Operator),
			Value:    cond.Value,
		})
	}
	for _, action := range e.Action {
		if action.Type == "" {
			return domain.WorkflowRule{}, errors.New("action type required")
		}
		rule.Actions = append(rule.Actions, domain.Action{
			Type:   domain.ActionType(action.Type),
			Params: action.Params,
		})
	}
	return rule, nil
}

func (e patternEntry) toDomain() (domain.SpamPattern, error) {
	compiled, err := regexp.Compile(e.Regex)
	if err != nil {
		return domain.SpamPattern{}, fmt.Errorf("compile %q: %w", e.Regex, err)
	}
	scope := domain.PatternScope(e.AppliesTo)
	switch scope {
	case domain.PatternScopeEmail, domain.PatternScopeSubject, domain.PatternScopeBody:
	default:
		return domain.SpamPattern{}, fmt.Errorf("unknown applies_to %q", e.AppliesTo)
	}
	action := domain.GateAction(e.Action)
	switch action {
	case domain.GateActionFlag, domain.GateActionQuarantine, domain.GateActionBlock:
	default:
		return domain.SpamPattern{}, fmt.Errorf("unknown pattern action %q", e.Action)
	}
	if e.Weight <= 0 {
		return domain.SpamPattern{}, fmt.Errorf("pattern weight must be positive, got %d", e.Weight)
	}
	return domain.SpamPattern{
		Pattern:   compiled,
		AppliesTo: scope,
		Action:    action,
		Weight:    e.Weight,
	}, nil
}

// DefaultRuleSet returns the built-in rules used when no rule file exists.
// The escalation rule is required for the scheduler to have any effect.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Rules: []domain.WorkflowRule{
			{
				ID:       "escalate-breached",
				Name:     "Escalate breached tickets",
				Enabled:  true,
				Trigger:  domain.TriggerEscalate,
				Priority: 100,
				Actions: []domain.Action{
					{Type: domain.ActionEscalate, Params: map[string]any{"raise_priority": true}},
				},
			},
			{
				ID:       "tag-urgent-intake",
				Name:     "Tag urgent tickets on intake",
				Enabled:  true,
				Trigger:  domain.TriggerCreated,
				Priority: 200,
				Conditions: []domain.Condition{
					{Field: "priority", Operator: domain.OperatorEquals, Value: string(domain.TicketPriorityUrgent)},
				},
				Actions: []domain.Action{
					{Type: domain.ActionAddTag, Params: map[string]any{"tag": "sla-watch"}},
				},
			},
		},
		Patterns: DefaultSpamPatterns(),
	}
}

// DefaultSpamPatterns returns the built-in content scoring patterns.
func DefaultSpamPatterns() []domain.SpamPattern {
	return []domain.SpamPattern{
		{Pattern: regexp.MustCompile(`(?i)congratulations`), AppliesTo: domain.PatternScopeBody, Action: domain.GateActionQuarantine, Weight: 5},
		{Pattern: regexp.MustCompile(`(?i)you have won`), AppliesTo: domain.PatternScopeBody, Action: domain.GateActionBlock, Weight: 5},
		{Pattern: regexp.MustCompile(`(?i)\b(money|cash|prize|winner)\b`), AppliesTo: domain.PatternScopeBody, Action: domain.GateActionFlag, Weight: 3},
		{Pattern: regexp.MustCompile(`(?i)(viagra|casino|lottery)`), AppliesTo: domain.PatternScopeBody, Action: domain.GateActionBlock, Weight: 8},
		{Pattern: regexp.MustCompile(`(?i)click here`), AppliesTo: domain.PatternScopeBody, Action: domain.GateActionFlag, Weight: 2},
		{Pattern: regexp.MustCompile(`(?i)urgent.{0,20}action required`), AppliesTo: domain.PatternScopeBody, Action: domain.GateActionFlag, Weight: 2},
		{Pattern: regexp.MustCompile(`(?i)^test(ing)?$`), AppliesTo: domain.PatternScopeSubject, Action: domain.GateActionFlag, Weight: 3},
		{Pattern: regexp.MustCompile(`(?i)@(tempmail|mailinator|guerrillamail)\.`), AppliesTo: domain.PatternScopeEmail, Action: domain.GateActionQuarantine, Weight: 6},
	}
}
