package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	verdicts     *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	sourceFetch  *prometheus.HistogramVec
	indicator    *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg. Pass prometheus.DefaultRegisterer
// to expose them on /metrics, or a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketphase_verdicts_total",
				Help: "Phase verdicts produced, by verdict and origin",
			},
			[]string{"verdict", "origin"},
		),
		sourceErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketphase_source_errors_total",
				Help: "Indicator source fetch failures",
			},
			[]string{"source"},
		),
		sourceFetch: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketphase_source_fetch_seconds",
				Help:    "Indicator source fetch duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"source"},
		),
		indicator: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketphase_indicator_value",
				Help: "Last observed value of each indicator",
			},
			[]string{"indicator"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketphase_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketphase_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordVerdict(verdict, origin string) {
	r.verdicts.WithLabelValues(verdict, origin).Inc()
}

// RecordSourceFetch records one source call; failed calls also bump the error counter.
func (r *Recorder) RecordSourceFetch(source string, seconds float64, err error) {
	r.sourceFetch.WithLabelValues(source).Observe(seconds)
	if err != nil {
		r.sourceErrors.WithLabelValues(source).Inc()
	}
}

func (r *Recorder) RecordIndicator(indicator string, value float64) {
	r.indicator.WithLabelValues(indicator).Set(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything; used where metrics are disabled.
type Nop struct{}

func (Nop) RecordVerdict(string, string)             {}
func (Nop) RecordSourceFetch(string, float64, error) {}
func (Nop) RecordIndicator(string, float64)          {}
func (Nop) RecordError(string)                       {}
func (Nop) RecordLatency(string, float64)            {}
