package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for the compliance core.
type Metrics struct {
	AdmissionDecisions *prometheus.CounterVec
	RulePasses         prometheus.Counter
	ActionsExecuted    prometheus.Counter
	ActionsFailed      prometheus.Counter
	Escalations        *prometheus.CounterVec
	Sweeps             prometheus.Counter
	SweepsSkipped      prometheus.Counter
	Breaches           prometheus.Counter
	HTTPErrors         *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors on the registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AdmissionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_admission_decisions_total",
			Help: "Submission admission decisions by action.",
		}, []string{"action"}),
		RulePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_rule_passes_total",
			Help: "Workflow rule evaluation passes.",
		}),
		ActionsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_rule_actions_executed_total",
			Help: "Rule actions executed successfully.",
		}),
		ActionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_rule_actions_failed_total",
			Help: "Rule actions that failed and were skipped.",
		}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_escalations_total",
			Help: "Escalations performed, by resulting level.",
		}, []string{"level"}),
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_escalation_sweeps_total",
			Help: "Escalation sweeps completed.",
		}),
		SweepsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_escalation_sweeps_skipped_total",
			Help: "Sweeps skipped because the previous one was still running.",
		}),
		Breaches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_sla_breaches_total",
			Help: "Tickets newly observed past their SLA deadline.",
		}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests that ended in an error response.",
		}, []string{"path", "method", "code"}),
	}
	registry.MustRegister(
		m.AdmissionDecisions,
		m.RulePasses,
		m.ActionsExecuted,
		m.ActionsFailed,
		m.Escalations,
		m.Sweeps,
		m.SweepsSkipped,
		m.Breaches,
		m.HTTPErrors,
	)
	return m
}

// RecordError records one errored HTTP request.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(path, method, code).Inc()
}

// ObserveEscalation records one escalation at the given level.
func (m *Metrics) ObserveEscalation(level int) {
	if m == nil {
		return
	}
	m.Escalations.WithLabelValues(strconv.Itoa(level)).Inc()
}

// ObserveAdmission records one admission decision.
func (m *Metrics) ObserveAdmission(action string) {
	if m == nil {
		return
	}
	m.AdmissionDecisions.WithLabelValues(action).Inc()
}

// ObserveRulePass records one rule evaluation pass and its action counts.
func (m *Metrics) ObserveRulePass(executed, failed int) {
	if m == nil {
		return
	}
	m.RulePasses.Inc()
	m.ActionsExecuted.Add(float64(executed))
	m.ActionsFailed.Add(float64(failed))
}
