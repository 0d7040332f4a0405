// Package metrics exports benchmark, loop and token usage counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"promptopt/internal/agent"
	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

const namespace = "promptopt"

// Observer implements runner.Observer, loop.PhaseObserver and agent.UsageRecorder.
type Observer struct {
	registry *prometheus.Registry

	items         *prometheus.CounterVec
	facts         *prometheus.CounterVec
	passRate      prometheus.Gauge
	overallScore  prometheus.Gauge
	phaseDuration *prometheus.HistogramVec
	phaseErrors   *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	terminations  *prometheus.CounterVec
	tokens        *prometheus.CounterVec
	calls         *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() (*Observer, error) {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "benchmark_items_total",
			Help:      "Benchmark items finished, by outcome.",
		}, []string{"outcome"}),
		facts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_judged_total",
			Help:      "Required facts judged, by verdict.",
		}, []string{"verdict"}),
		passRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_pass_rate",
			Help:      "Passed facts over judged facts in the current pass.",
		}),
		overallScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overall_score",
			Help:      "Overall score of the latest evaluation.",
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each loop phase.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"phase"}),
		phaseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_errors_total",
			Help:      "Loop phases that ended with an error.",
		}, []string{"phase"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Loop decisions taken.",
		}, []string{"decision"}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminations_total",
			Help:      "Loop runs that reached a terminal state.",
		}, []string{"termination"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens sent and received per agent.",
		}, []string{"agent", "model", "direction"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Completed model calls per agent.",
		}, []string{"agent", "model"}),
	}
	for _, collector := range []prometheus.Collector{
		o.items, o.facts, o.passRate, o.overallScore, o.phaseDuration,
		o.phaseErrors, o.decisions, o.terminations, o.tokens, o.calls,
	} {
		if err := o.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return o, nil
}

// Registry exposes the registry for gathering or HTTP export.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// WriteTextfile writes the current values in node-exporter textfile format.
func (o *Observer) WriteTextfile(path string) error {
	if o == nil {
		return errors.New("metrics: observer is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (o *Observer) OnBenchmarkStart(int) {
	if o == nil {
		return
	}
	o.passRate.Set(0)
}

func (o *Observer) OnItemEvent(event runner.ItemEvent) {
	if o == nil {
		return
	}
	switch event.Type {
	case runner.ItemGraded:
		o.items.WithLabelValues("graded").Inc()
		o.facts.WithLabelValues("passed").Add(float64(event.Passed))
		o.facts.WithLabelValues("failed").Add(float64(event.Facts - event.Passed))
		o.passRate.Set(event.PassRate)
	case runner.ItemFailed:
		o.items.WithLabelValues("failed").Inc()
		o.passRate.Set(event.PassRate)
	}
}

func (o *Observer) OnBenchmarkEnd(report runner.EvaluationReport) {
	if o == nil {
		return
	}
	o.overallScore.Set(report.OverallScore)
}

func (o *Observer) OnPhaseStart(loop.PhaseEvent) {}

func (o *Observer) OnPhaseEnd(event loop.PhaseEvent) {
	if o == nil {
		return
	}
	phase := string(event.Phase)
	o.phaseDuration.WithLabelValues(phase).Observe(event.Elapsed.Seconds())
	if event.Err != nil {
		o.phaseErrors.WithLabelValues(phase).Inc()
	}
	switch event.Phase {
	case loop.PhaseDeciding:
		o.decisions.WithLabelValues(string(event.Decision)).Inc()
	case loop.PhaseTerminated:
		o.terminations.WithLabelValues(string(event.Termination)).Inc()
	}
}

func (o *Observer) RecordUsage(agentID, model string, usage agent.Usage) {
	if o == nil {
		return
	}
	o.calls.WithLabelValues(agentID, model).Inc()
	o.tokens.WithLabelValues(agentID, model, "prompt").Add(float64(usage.PromptTokens))
	o.tokens.WithLabelValues(agentID, model, "completion").Add(float64(usage.CompletionTokens))
}

var (
	_ runner.Observer     = (*Observer)(nil)
	_ loop.PhaseObserver  = (*Observer)(nil)
	_ agent.UsageRecorder = (*Observer)(nil)
)
