package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	relayAttempts *prometheus.CounterVec
	tierOutcomes  *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec
	narratives    *prometheus.CounterVec
	publishes     *prometheus.CounterVec
}

// New creates a recorder registered on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		relayAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thermo",
				Name:      "relay_attempts_total",
				Help:      "Relay attempts by relay and outcome",
			},
			[]string{"relay", "result"},
		),
		tierOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thermo",
				Name:      "tier_outcomes_total",
				Help:      "Fetch tier outcomes",
			},
			[]string{"tier", "result"},
		),
		reportLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "thermo",
				Name:      "report_duration_seconds",
				Help:      "Time to assemble a report",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"path", "result"},
		),
		narratives: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thermo",
				Name:      "narratives_total",
				Help:      "Narrative requests by outcome",
			},
			[]string{"outcome"},
		),
		publishes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "thermo",
				Name:      "report_publishes_total",
				Help:      "Report publish attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (r *Recorder) RecordRelayAttempt(relay, result string) {
	r.relayAttempts.WithLabelValues(relay, result).Inc()
}

func (r *Recorder) RecordTier(tier, result string) {
	r.tierOutcomes.WithLabelValues(tier, result).Inc()
}

// RecordReport observes assembly latency in seconds.
func (r *Recorder) RecordReport(path, result string, seconds float64) {
	r.reportLatency.WithLabelValues(path, result).Observe(seconds)
}

func (r *Recorder) RecordNarrative(outcome string) {
	r.narratives.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordPublish(result string) {
	r.publishes.WithLabelValues(result).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRelayAttempt(string, string)    {}
func (Nop) RecordTier(string, string)            {}
func (Nop) RecordReport(string, string, float64) {}
func (Nop) RecordNarrative(string)               {}
func (Nop) RecordPublish(string)                 {}
