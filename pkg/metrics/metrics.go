// Package metrics exposes the station's Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/pms.go/pkg/pms5003"
)

const namespace = "pms"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// SensorMetrics are the sensor and station metrics.
type SensorMetrics struct {
	ReadTotal       *prometheus.CounterVec // labels: result=ok|error
	AttemptFailures *prometheus.CounterVec // labels: kind
	Concentration   *prometheus.GaugeVec   // labels: measure
	AQI             *prometheus.GaugeVec   // labels: pollutant
	Mode            prometheus.Gauge
	PublishTotal    *prometheus.CounterVec // labels: result
	Climate         *prometheus.GaugeVec   // labels: quantity
	ClimateFailures prometheus.Counter
}

// NewSensorMetrics registers and returns the sensor metrics.
func NewSensorMetrics(reg prometheus.Registerer) *SensorMetrics {
	m := &SensorMetrics{
		ReadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_total",
			Help:      "Sensor reads by result.",
		}, []string{"result"}),
		AttemptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_failures_total",
			Help:      "Failed read attempts by error kind.",
		}, []string{"kind"}),
		Concentration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "measurement",
			Help:      "Latest raw measurement, ug/m3 or particles per 0.1L.",
		}, []string{"measure"}),
		AQI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aqi",
			Help:      "US EPA air quality index of the smoothed values.",
		}, []string{"pollutant"}),
		Mode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "passive_mode",
			Help:      "1 when the sensor is in passive mode.",
		}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Message bus publishes by result.",
		}, []string{"result"}),
		Climate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "climate",
			Help:      "Latest temperature and relative humidity.",
		}, []string{"quantity"}),
		ClimateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_failures_total",
			Help:      "Failed temperature and humidity reads.",
		}),
	}
	reg.MustRegister(m.ReadTotal, m.AttemptFailures, m.Concentration, m.AQI, m.Mode, m.PublishTotal,
		m.Climate, m.ClimateFailures)
	return m
}

// AttemptFailed implements pms5003.Observer.
func (m *SensorMetrics) AttemptFailed(attempt int, err error) {
	m.AttemptFailures.WithLabelValues(pms5003.ErrorKind(err)).Inc()
}

// ObserveRead records the outcome of one Read.
func (m *SensorMetrics) ObserveRead(values map[string]uint16, err error) {
	if err != nil {
		m.ReadTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReadTotal.WithLabelValues("ok").Inc()
	for key, value := range values {
		m.Concentration.WithLabelValues(key).Set(float64(value))
	}
}

// ObserveMode records the sensor mode.
func (m *SensorMetrics) ObserveMode(mode pms5003.Mode) {
	if mode == pms5003.ModePassive {
		m.Mode.Set(1)
	} else {
		m.Mode.Set(0)
	}
}

// ObservePublish records the outcome of one publish.
func (m *SensorMetrics) ObservePublish(err error) {
	if err != nil {
		m.PublishTotal.WithLabelValues("error").Inc()
	} else {
		m.PublishTotal.WithLabelValues("ok").Inc()
	}
}

// ObserveClimate records a temperature and humidity read.
func (m *SensorMetrics) ObserveClimate(values map[string]float64, err error) {
	if err != nil {
		m.ClimateFailures.Inc()
		return
	}
	for key, value := range values {
		m.Climate.WithLabelValues(key).Set(value)
	}
}
