package metrics

import (
	"PPEGuard/internal/entity"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the compliance engine counters exported to Prometheus.
type Metrics struct {
	// Frame processing counters
	FramesEvaluated   atomic.Uint64
	PersonsEvaluated  atomic.Uint64
	PersonsWithAlarm  atomic.Uint64
	MissingItems      atomic.Uint64
	AlertsEmitted     atomic.Uint64
	InferenceFailures atomic.Uint64

	// Session counters
	SessionsAnalyzed atomic.Uint64
	SessionsFailed   atomic.Uint64
	LiveConnections  atomic.Int64

	inferenceLatency prometheus.Histogram
	registry         *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ppe_inference_duration_seconds",
			Help:    "Latency of PPE inference calls",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name  string
		help  string
		value *atomic.Uint64
	}{
		{"ppe_frames_evaluated_total", "Total frames mapped to compliance records", &m.FramesEvaluated},
		{"ppe_persons_evaluated_total", "Total person detections evaluated", &m.PersonsEvaluated},
		{"ppe_persons_alarmed_total", "Total person detections with missing PPE", &m.PersonsWithAlarm},
		{"ppe_missing_items_total", "Total missing PPE items", &m.MissingItems},
		{"ppe_alerts_emitted_total", "Total consolidated alerts emitted", &m.AlertsEmitted},
		{"ppe_inference_failures_total", "Total inference calls replaced by empty frames", &m.InferenceFailures},
		{"ppe_sessions_analyzed_total", "Total sessions analyzed", &m.SessionsAnalyzed},
		{"ppe_sessions_failed_total", "Total sessions that failed analysis or persistence", &m.SessionsFailed},
	}

	for _, c := range counters {
		value := c.value
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(value.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ppe_live_connections",
			Help: "Open live compliance websocket connections",
		},
		func() float64 { return float64(m.LiveConnections.Load()) },
	))

	m.registry.MustRegister(m.inferenceLatency)
}

// ObserveFrame records the outcome of one mapped frame.
func (m *Metrics) ObserveFrame(summary entity.AlarmSummary) {
	m.FramesEvaluated.Add(1)
	m.PersonsEvaluated.Add(uint64(summary.PersonsEvaluated))
	m.PersonsWithAlarm.Add(uint64(summary.PersonsWithAlarm))
	m.MissingItems.Add(uint64(summary.TotalMissingItems))
}

func (m *Metrics) ObserveInference(duration time.Duration, err error) {
	m.inferenceLatency.Observe(duration.Seconds())
	if err != nil {
		m.InferenceFailures.Add(1)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
