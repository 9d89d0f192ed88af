package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	clmmodels "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Models"
)

// Sink receives post-ingest measurements
type Sink interface {
	RecordReading(r clmmodels.Reading)
}

// PrometheusSink exposes climate gauges and counters on its own registry
type PrometheusSink struct {
	registry    *prometheus.Registry
	temperature *prometheus.GaugeVec
	humidity    *prometheus.GaugeVec
	dataPoints  *prometheus.CounterVec
}

// NewPrometheusSink creates a sink with process and Go runtime collectors
func NewPrometheusSink() *PrometheusSink {
	labels := []string{"device_id", "location"}

	s := &PrometheusSink{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climate_temperature_celsius",
			Help: "Current temperature in Celsius",
		}, labels),
		humidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climate_humidity_percent",
			Help: "Current humidity percentage",
		}, labels),
		dataPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "climate_data_points_total",
			Help: "Total number of climate data points received",
		}, labels),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.temperature,
		s.humidity,
		s.dataPoints,
	)
	return s
}

func (s *PrometheusSink) RecordReading(r clmmodels.Reading) {
	labels := prometheus.Labels{"device_id": r.DeviceID, "location": r.Location}
	s.temperature.With(labels).Set(r.Temperature)
	s.humidity.With(labels).Set(r.Humidity)
	s.dataPoints.With(labels).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
