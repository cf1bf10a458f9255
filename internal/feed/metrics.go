package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts loader and eviction activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Fetches  *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Stale    prometheus.Counter
	Dropped  prometheus.Counter
	Evicted  prometheus.Counter
	Resident prometheus.Gauge
}

// NewMetrics creates the feed collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inbox",
			Subsystem: "feed",
			Name:      "fetches_total",
			Help:      "Page fetches issued, by kind.",
		}, []string{"kind"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inbox",
			Subsystem: "feed",
			Name:      "fetch_failures_total",
			Help:      "Page fetches that returned an error, by kind.",
		}, []string{"kind"}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inbox",
			Subsystem: "feed",
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because the page set moved on.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inbox",
			Subsystem: "feed",
			Name:      "dropped_triggers_total",
			Help:      "Load triggers ignored because the same target was in flight.",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inbox",
			Subsystem: "feed",
			Name:      "evicted_pages_total",
			Help:      "Pages evicted to keep the window bounded.",
		}),
		Resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inbox",
			Subsystem: "feed",
			Name:      "resident_pages",
			Help:      "Pages currently held in memory.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Fetches, m.Failures, m.Stale, m.Dropped, m.Evicted, m.Resident)
	}
	return m
}

func (m *Metrics) fetch(k Kind) {
	if m != nil {
		m.Fetches.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) failure(k Kind) {
	if m != nil {
		m.Failures.WithLabelValues(k.String()).Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.Stale.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m != nil && n > 0 {
		m.Evicted.Add(float64(n))
	}
}

func (m *Metrics) resident(n int) {
	if m != nil {
		m.Resident.Set(float64(n))
	}
}
