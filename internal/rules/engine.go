// Package rules evaluates the ordered workflow rule set against ticket
// facts and executes matched actions. Rules are immutable configuration;
// the engine is safe for concurrent Apply calls.
package rules

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/notify"
	"github.com/spec-kit/ticket-routing/internal/repository"
)

// Result reports what one evaluation pass did.
type Result struct {
	RulesApplied    []string
	ActionsExecuted []domain.Action
	ActionsFailed   int
}

// Escalated reports whether the pass executed an escalate action.
func (r Result) Escalated() bool {
	for _, action := range r.ActionsExecuted {
		if action.Type == domain.ActionEscalate {
			return true
		}
	}
	return false
}

// Engine holds the ordered rule set and its collaborators.
type Engine struct {
	rules    []domain.WorkflowRule
	store    repository.TicketStore
	agents   repository.AgentDirectory
	notifier notify.Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

// Dependencies bundles engine collaborators.
type Dependencies struct {
	Store    repository.TicketStore
	Agents   repository.AgentDirectory
	Notifier notify.Notifier
	Clock    clock.Clock
	Logger   *zap.Logger
}

// NewEngine builds an engine over a fixed rule set. The set is sorted once:
// ascending priority, declaration order preserved on ties.
func NewEngine(ruleSet []domain.WorkflowRule, deps Dependencies) *Engine {
	ordered := append([]domain.WorkflowRule{}, ruleSet...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return &Engine{
		rules:    ordered,
		store:    deps.Store,
		agents:   deps.Agents,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
}

// Rules exposes the ordered rule set (for validation reporting).
func (e *Engine) Rules() []domain.WorkflowRule {
	return e.rules
}

// Apply runs one evaluation pass for the trigger. Conditions are evaluated
// once against the pre-pass fact snapshot; every enabled matching rule
// fires, and each action is isolated so one failure never aborts the pass.
// Later actions observe the in-memory mutations of earlier ones.
func (e *Engine) Apply(ctx context.Context, ticket *domain.Ticket, trigger domain.Trigger) Result {
	facts := Facts(ticket)
	var result Result

	for _, rule := range e.rules {
		if !rule.Enabled || !rule.AppliesTo(trigger) {
			continue
		}
		if !e.matches(rule, facts) {
			continue
		}
		result.RulesApplied = append(result.RulesApplied, rule.ID)
		for _, action := range rule.Actions {
			if err := e.execute(ctx, ticket, action); err != nil {
				result.ActionsFailed++
				e.logger.Error("rule action failed",
					zap.String("ticket_id", ticket.ID),
					zap.String("rule_id", rule.ID),
					zap.String("action", string(action.Type)),
					zap.Error(err))
				continue
			}
			result.ActionsExecuted = append(result.ActionsExecuted, action)
		}
	}
	return result
}

func (e *Engine) matches(rule domain.WorkflowRule, facts map[string]any) bool {
	for _, cond := range rule.Conditions {
		if !EvalCondition(cond, facts) {
			return false
		}
	}
	return true
}
