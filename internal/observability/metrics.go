package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/weather-by-city/internal/notify"
)

const namespace = "weather_widget"

// Metrics holds the Prometheus collectors for lookups and notifications.
type Metrics struct {
	Lookups          *prometheus.CounterVec   // labels: kind={city,coords}, outcome={success,provider_error,transport_error,invalid}
	LookupDuration   *prometheus.HistogramVec // labels: kind
	Notifications    *prometheus.CounterVec   // labels: level
	FetchInFlight    prometheus.Gauge
	BreakerEnabled   prometheus.Gauge
	RefreshScheduled prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Weather lookups by query kind and outcome.",
		}, []string{"kind", "outcome"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of a weather lookup including the provider round trip.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Toasts shown to the user by level.",
		}, []string{"level"}),
		FetchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_in_flight",
			Help:      "Lookups started by the widget and not yet finished.",
		}),
		BreakerEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_breaker_enabled",
			Help:      "1 when the provider circuit breaker is enabled, 0 otherwise.",
		}),
		RefreshScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_scheduled",
			Help:      "1 when periodic refresh is active, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Lookups,
		m.LookupDuration,
		m.Notifications,
		m.FetchInFlight,
		m.BreakerEnabled,
		m.RefreshScheduled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveLookup implements weather.Recorder.
func (m *Metrics) ObserveLookup(kind, outcome string, seconds float64) {
	m.Lookups.WithLabelValues(kind, outcome).Inc()
	m.LookupDuration.WithLabelValues(kind).Observe(seconds)
}

// Notify implements notify.Notifier by counting toasts.
func (m *Metrics) Notify(n notify.Notification) {
	m.Notifications.WithLabelValues(string(n.Level)).Inc()
}
