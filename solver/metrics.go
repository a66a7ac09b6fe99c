package solver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors updated by Eval. A nil *Metrics records nothing.
type Metrics struct {
	Steps      prometheus.Counter
	Candidates *prometheus.CounterVec // outcome: opened | discarded
	Tests      *prometheus.CounterVec // result: pass | fail
	Runs       *prometheus.CounterVec // result: solved | no_candidates | budget_exceeded | error
	Frontier   prometheus.Gauge
}

// NewMetrics creates the solver collectors and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvplan_solver_steps_total",
			Help: "Search steps executed",
		}),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lvplan_solver_candidates_total",
			Help: "Instantiated candidates by evaluation outcome",
		}, []string{"outcome"}),
		Tests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lvplan_solver_tests_total",
			Help: "Candidate tests by result",
		}, []string{"result"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lvplan_solver_runs_total",
			Help: "Completed Eval calls by result",
		}, []string{"result"}),
		Frontier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lvplan_solver_frontier_size",
			Help: "Open frontier size after the last step",
		}),
	}
	for _, c := range []prometheus.Collector{m.Steps, m.Candidates, m.Tests, m.Runs, m.Frontier} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) step(frontier int) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	m.Frontier.Set(float64(frontier))
}

func (m *Metrics) candidate(opened bool) {
	if m == nil {
		return
	}
	if opened {
		m.Candidates.WithLabelValues("opened").Inc()
	} else {
		m.Candidates.WithLabelValues("discarded").Inc()
	}
}

func (m *Metrics) test(pass bool) {
	if m == nil {
		return
	}
	if pass {
		m.Tests.WithLabelValues("pass").Inc()
	} else {
		m.Tests.WithLabelValues("fail").Inc()
	}
}

func (m *Metrics) run(result string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
}
