package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/electroop-engineering/gib-esu/internal/gib"
)

const metricPrefix = "esu_"

// Metrics holds the Prometheus collectors for batch runs and registry calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	records       *prometheus.CounterVec
	remoteCalls   *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
	batchDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_total",
				Help: "Processed input records by run kind and final state",
			},
			[]string{"kind", "state"},
		),
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "remote_calls_total",
				Help: "Registry calls by endpoint and response durum",
			},
			[]string{"endpoint", "durum"},
		),
		remoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "remote_call_seconds",
				Help:    "Registry call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "batch_duration_seconds",
				Help:    "Batch run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"kind", "mode"},
		),
	}

	reg.MustRegister(m.records, m.remoteCalls, m.remoteLatency, m.batchDuration)
	return m
}

// ObserveCall implements gib.Observer.
func (m *Metrics) ObserveCall(endpoint gib.Endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(string(endpoint), outcome).Inc()
	m.remoteLatency.WithLabelValues(string(endpoint)).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRecord(kind Kind, state State) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(string(kind), string(state)).Inc()
}

func (m *Metrics) observeBatch(kind Kind, parallel bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(string(kind), modeLabel(parallel)).Observe(elapsed.Seconds())
}

func modeLabel(parallel bool) string {
	if parallel {
		return "concurrent"
	}
	return "sequential"
}
