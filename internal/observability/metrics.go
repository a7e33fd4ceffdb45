package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// submission pipeline and the alert engine.
type Metrics struct {
	// Submission pipeline metrics.
	Submissions      *prometheus.CounterVec // labels: outcome={delivered,queued,failed,timeout,invalid}
	DeliveryDuration prometheus.Histogram
	QueueDepth       prometheus.Gauge
	QueueErrors      prometheus.Counter
	SyncItems        *prometheus.CounterVec // labels: result={synced,failed}

	// Alert engine metrics.
	AlertCycles   *prometheus.CounterVec // labels: engine={ai,threshold}, outcome={success,error}
	ActiveAlerts  prometheus.Gauge
	AIRequests    *prometheus.CounterVec // labels: outcome={success,rate_limited,error,invalid}
	AICache       *prometheus.CounterVec // labels: result={hit,miss,stale}
	AlertsFanout  prometheus.Counter
	SMSDeliveries *prometheus.CounterVec // labels: outcome={sent,error}

	// Connectivity and geocoding metrics.
	ConnectivityOnline prometheus.Gauge
	GeocodeRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={reverse}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Submissions,
		m.DeliveryDuration,
		m.QueueDepth,
		m.QueueErrors,
		m.SyncItems,
		m.AlertCycles,
		m.ActiveAlerts,
		m.AIRequests,
		m.AICache,
		m.AlertsFanout,
		m.SMSDeliveries,
		m.ConnectivityOnline,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "submissions_total",
			Help:      "Incident submissions by outcome.",
		}, []string{"outcome"}),
		DeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rescuehq",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of a successful dispatch store delivery.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescuehq",
			Name:      "queue_depth",
			Help:      "Number of submissions parked in the durable queue.",
		}),
		QueueErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "queue_errors_total",
			Help:      "Durable queue read/write failures.",
		}),
		SyncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "sync_items_total",
			Help:      "Queued submissions processed by the sync engine, by result.",
		}, []string{"result"}),
		AlertCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "alert_cycles_total",
			Help:      "Alert refresh cycles by engine and outcome.",
		}, []string{"engine", "outcome"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescuehq",
			Name:      "active_alerts",
			Help:      "Alerts produced by the most recent refresh cycle.",
		}),
		AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "ai_requests_total",
			Help:      "Gemini analysis requests by outcome.",
		}, []string{"outcome"}),
		AICache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "ai_cache_total",
			Help:      "AI analysis cache lookups by result.",
		}, []string{"result"}),
		AlertsFanout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "alerts_published_total",
			Help:      "Alert cycle summaries published to Kafka.",
		}),
		SMSDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "sms_deliveries_total",
			Help:      "Admin SMS notifications by outcome.",
		}, []string{"outcome"}),
		ConnectivityOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescuehq",
			Name:      "connectivity_online",
			Help:      "1 when the dispatch store is considered reachable, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rescuehq",
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rescuehq",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
	}
}
