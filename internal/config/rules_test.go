package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
	return path
}

func TestLoadRulesMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	set, err := LoadRules(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set.Rules) == 0 {
		t.Fatal("default rule set is empty")
	}
	if len(set.Patterns) == 0 {
		t.Fatal("default pattern set is empty")
	}

	var hasEscalate bool
	for _, rule := range set.Rules {
		if rule.Trigger == domain.TriggerEscalate {
			for _, action := range rule.Actions {
				if action.Type == domain.ActionEscalate {
					hasEscalate = true
				}
			}
		}
	}
	if !hasEscalate {
		t.Fatal("default rule set carries no escalate rule; sweeps would be no-ops")
	}
}

func TestLoadRulesParsesFile(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, `
[[rule]]
id = "route-hr"
name = "Route HR tickets"
trigger = "created"
priority = 300

[[rule.condition]]
field = "type"
operator = "equals"
value = "HR"

[[rule.action]]
type = "assign"
params = { department = "hr" }

[[rule]]
id = "muted"
enabled = false
trigger = "updated"
priority = 10

[[pattern]]
regex = "(?i)free gift"
applies_to = "body"
action = "flag"
weight = 4
`)

	set, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(set.Rules))
	}

	rule := set.Rules[0]
	if rule.ID != "route-hr" || rule.Trigger != domain.TriggerCreated || rule.Priority != 300 {
		t.Fatalf("rule = %+v, want route-hr/created/300", rule)
	}
	if !rule.Enabled {
		t.Fatal("enabled must default to true")
	}
	if len(rule.Conditions) != 1 || rule.Conditions[0].Operator != domain.OperatorEquals {
		t.Fatalf("conditions = %+v, want one equals condition", rule.Conditions)
	}
	if len(rule.Actions) != 1 || rule.Actions[0].StringParam("department") != "hr" {
		t.Fatalf("actions = %+v, want assign to hr", rule.Actions)
	}
	if set.Rules[1].Enabled {
		t.Fatal("explicit enabled=false ignored")
	}

	if len(set.Patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(set.Patterns))
	}
	pattern := set.Patterns[0]
	if pattern.AppliesTo != domain.PatternScopeBody || pattern.Action != domain.GateActionFlag || pattern.Weight != 4 {
		t.Fatalf("pattern = %+v, want body/flag/4", pattern)
	}
	if !pattern.Pattern.MatchString("claim your FREE GIFT now") {
		t.Fatal("compiled pattern does not match")
	}
}

func TestLoadRulesWithoutPatternsFallsBack(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, `
[[rule]]
id = "only-rule"
trigger = "created"

[[rule.action]]
type = "add_tag"
params = { tag = "seen" }
`)

	set, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set.Patterns) == 0 {
		t.Fatal("expected default patterns when the file lists none")
	}
}

func TestLoadRulesRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			"missing rule id",
			"[[rule]]\ntrigger = \"created\"\n",
			"rule id required",
		},
		{
			"bad regex",
			"[[pattern]]\nregex = \"([\"\napplies_to = \"body\"\naction = \"flag\"\nweight = 1\n",
			"compile",
		},
		{
			"unknown scope",
			"[[pattern]]\nregex = \"x\"\napplies_to = \"headers\"\naction = \"flag\"\nweight = 1\n",
			"unknown applies_to",
		},
		{
			"unknown action",
			"[[pattern]]\nregex = \"x\"\napplies_to = \"body\"\naction = \"reject\"\nweight = 1\n",
			"unknown pattern action",
		},
		{
			"bad weight",
			"[[pattern]]\nregex = \"x\"\napplies_to = \"body\"\naction = \"flag\"\nweight = 0\n",
			"weight must be positive",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeRuleFile(t, tc.content)
			_, err := LoadRules(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}
