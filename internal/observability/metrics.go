package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveTurns      prometheus.Gauge
	Turns            *prometheus.CounterVec
	UpdateOps        *prometheus.CounterVec
	ExtractionErrors *prometheus.CounterVec
	IngestionSkips   prometheus.Counter
	TurnLatency      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveTurns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_turns",
			Help:      "Number of conversation turns currently in flight.",
		}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by outcome.",
		}, []string{"outcome"}),
		UpdateOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_updates_total",
			Help:      "Memory update operations by category.",
		}, []string{"category"}),
		ExtractionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_errors_total",
			Help:      "Extraction failures by category.",
		}, []string{"category"}),
		IngestionSkips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_skipped_lines_total",
			Help:      "Transcript lines skipped for not matching the expected shape.",
		}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end turn latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
