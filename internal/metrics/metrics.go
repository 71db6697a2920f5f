// Package metrics exposes Prometheus instrumentation for rule evaluation
// and validation.
//
// Each Collector owns a private registry; the CLI dumps it with
// WriteTextfile when asked.
package metrics

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/solatis/expenserules/internal/types"
)

const namespace = "expenserules"

// Outcome label values for rule evaluations.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
)

// Collector records engine activity.
type Collector struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	actions     *prometheus.CounterVec
	problems    *prometheus.CounterVec
	latency     prometheus.Histogram
	rules       prometheus.Gauge
	logger      *slog.Logger
}

// NewCollector registers every metric on a fresh registry.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Rule evaluations against an expense, by outcome",
		}, []string{"outcome"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_fired_total",
			Help:      "Actions fired by matching rules, by action type",
		}, []string{"action_type"}),
		problems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_problems_total",
			Help:      "Validation problems found in saved rules, by problem",
		}, []string{"problem"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expense_evaluation_duration_seconds",
			Help:      "Time taken to evaluate every active rule against one expense",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		}),
		rules: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rules",
			Help:      "Active rules considered by the last evaluation",
		}),
		logger: logger,
	}
}

// RuleEvaluated counts one rule applied to one expense.
func (c *Collector) RuleEvaluated(matched bool) {
	if matched {
		c.evaluations.WithLabelValues(OutcomeMatched).Inc()
		return
	}
	c.evaluations.WithLabelValues(OutcomeUnmatched).Inc()
}

// ActionFired counts one fired action.
func (c *Collector) ActionFired(at types.ActionType) {
	c.actions.WithLabelValues(string(at)).Inc()
}

// ValidationProblem counts one problem. The label is the sentinel's text,
// which keeps cardinality bounded by the sentinel list.
func (c *Collector) ValidationProblem(err error) {
	label := "unknown"
	if err != nil {
		label = err.Error()
		for u := errors.Unwrap(err); u != nil; u = errors.Unwrap(u) {
			label = u.Error()
		}
	}
	c.problems.WithLabelValues(label).Inc()
}

// ExpenseEvaluated records how long one expense took against activeRules rules.
func (c *Collector) ExpenseEvaluated(d time.Duration, activeRules int) {
	c.latency.Observe(d.Seconds())
	c.rules.Set(float64(activeRules))
}

// Registry exposes the underlying registry for tests and custom exporters.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the registry to path in the node_exporter textfile
// format. The write is atomic.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return err
	}
	c.logger.Debug("metrics written", slog.String("path", path))
	return nil
}
