package domain

// Trigger names the event that causes a rule evaluation pass.
type Trigger string

const (
	TriggerCreated   Trigger = "created"
	TriggerUpdated   Trigger = "updated"
	TriggerAssigned  Trigger = "assigned"
	TriggerCommented Trigger = "commented"
	TriggerEscalate  Trigger = "escalate"
)

// Operator enumerates condition comparators.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// Condition compares one dotted ticket fact path against a value.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ActionType enumerates rule action kinds.
type ActionType string

const (
	ActionAssign      ActionType = "assign"
	ActionSetPriority ActionType = "set_priority"
	ActionSetStatus   ActionType = "set_status"
	ActionAddTag      ActionType = "add_tag"
	ActionRemoveTag   ActionType = "remove_tag"
	ActionNotify      ActionType = "notify"
	ActionEscalate    ActionType = "escalate"
)

// Action is a side effect executed when a rule matches. Params carry the
// type-specific parameter bag.
type Action struct {
	Type   ActionType
	Params map[string]any
}

// StringParam reads a string parameter, empty when absent or mistyped.
func (a Action) StringParam(key string) string {
	if a.Params == nil {
		return ""
	}
	value, _ := a.Params[key].(string)
	return value
}

// BoolParam reads a boolean parameter, false when absent or mistyped.
func (a Action) BoolParam(key string) bool {
	if a.Params == nil {
		return false
	}
	value, _ := a.Params[key].(bool)
	return value
}

// StringListParam reads a list-of-strings parameter.
func (a Action) StringListParam(key string) []string {
	if a.Params == nil {
		return nil
	}
	switch raw := a.Params[key].(type) {
	case []string:
		return raw
	case []any:
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return values
	}
	return nil
}

// WorkflowRule is one immutable entry of the ordered rule set. Lower
// Priority evaluates first; ties keep declaration order.
type WorkflowRule struct {
	ID         string
	Name       string
	Enabled    bool
	Trigger    Trigger
	Priority   int
	Conditions []Condition
	Actions    []Action
}

// AppliesTo reports whether the rule participates in a pass for trigger.
// An empty rule trigger matches every pass.
func (r WorkflowRule) AppliesTo(trigger Trigger) bool {
	return r.Trigger == "" || r.Trigger == trigger
}
