package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors.
type Metrics struct {
	Readings      prometheus.Counter
	Alerts        *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	LiveClients   prometheus.Gauge
	Exports       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Readings: f.NewCounter(prometheus.CounterOpts{
			Name: "csms_readings_total",
			Help: "Synthetic sensor readings generated.",
		}),
		Alerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csms_alerts_total",
			Help: "Alert breaches observed, by parameter and severity.",
		}, []string{"parameter", "severity"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csms_notifications_total",
			Help: "Alert notifications attempted, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csms_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		LiveClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "csms_live_clients",
			Help: "Browsers connected to the live snapshot stream.",
		}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csms_exports_total",
			Help: "Report downloads by format.",
		}, []string{"format"}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
