// Package metrics exposes Prometheus counters for the relay pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dino_relay"

// Metrics holds the relay collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ItemsSeen       *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	JudgeCalls      prometheus.Counter
	Translations    *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	FeedErrors      *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ItemsSeen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_seen_total",
			Help:      "Feed items inspected, by source and outcome (new, duplicate, stale)",
		}, []string{"source", "outcome"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classification results by cascade method and decision",
		}, []string{"method", "decision"}),
		JudgeCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judge_consultations_total",
			Help:      "Items for which the remote judge was consulted",
		}),
		Translations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translations by result (hit, remote, fallback)",
		}, []string{"result"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Notification deliveries by status",
		}, []string{"status"}),
		FeedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed fetch or parse failures by source",
		}, []string{"source"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full polling cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

// Handler returns the HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ItemSeen(source, outcome string) {
	if m == nil {
		return
	}
	m.ItemsSeen.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Classified(method string, decision, judgeConsulted bool) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(method, boolLabel(decision)).Inc()
	if judgeConsulted {
		m.JudgeCalls.Inc()
	}
}

func (m *Metrics) Translated(result string) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(result).Inc()
}

func (m *Metrics) Delivered(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.Deliveries.WithLabelValues(status).Inc()
}

func (m *Metrics) FeedFailed(source string) {
	if m == nil {
		return
	}
	m.FeedErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(d.Seconds())
}

func boolLabel(v bool) string {
	if v {
		return "relevant"
	}
	return "irrelevant"
}
