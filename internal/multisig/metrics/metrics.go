package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Execution outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"

	// OutcomeCommitLost counts invocations that succeeded without the
	// proposal being marked executed.
	OutcomeCommitLost = "commit_lost"
)

// Metrics provides observability for the multisig module.
// Tracks registry and proposal activity plus the execute critical path.
type Metrics struct {
	RegistriesInitialized prometheus.Counter
	ProposalsCreated      prometheus.Counter
	Approvals             prometheus.Counter
	Executions            *prometheus.CounterVec
	Rejections            *prometheus.CounterVec
	ExecuteDuration       prometheus.Histogram
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the module metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistriesInitialized: factory.NewCounter(prometheus.CounterOpts{
			Name: "multisig_registries_initialized_total",
			Help: "Total number of owner registries initialized",
		}),
		ProposalsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "multisig_proposals_created_total",
			Help: "Total number of proposals created",
		}),
		Approvals: factory.NewCounter(prometheus.CounterOpts{
			Name: "multisig_approvals_total",
			Help: "Total number of accepted approvals, including repeats",
		}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "multisig_executions_total",
			Help: "Execute attempts by outcome",
		}, []string{"outcome"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "multisig_rejections_total",
			Help: "Operations rejected by a domain check, by error code",
		}, []string{"code"}),
		ExecuteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "multisig_execute_duration_seconds",
			Help:    "Duration of Execute operations including the host invocation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) IncrementRegistriesInitialized() {
	if m == nil {
		return
	}
	m.RegistriesInitialized.Inc()
}

func (m *Metrics) IncrementProposalsCreated() {
	if m == nil {
		return
	}
	m.ProposalsCreated.Inc()
}

func (m *Metrics) IncrementApprovals() {
	if m == nil {
		return
	}
	m.Approvals.Inc()
}

// IncrementExecutions records one execute attempt with the given outcome.
func (m *Metrics) IncrementExecutions(outcome string) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(outcome).Inc()
}

// IncrementRejections records a domain rejection by code.
func (m *Metrics) IncrementRejections(code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(code).Inc()
}

// ObserveExecute records the duration of an Execute operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveExecute(start time.Time) {
	if m == nil {
		return
	}
	m.ExecuteDuration.Observe(time.Since(start).Seconds())
}
