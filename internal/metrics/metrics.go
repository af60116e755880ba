// Package metrics exposes the monitor's Prometheus collectors.
//
// Collectors are registered once with Init. Every recording helper is a no-op
// until then, so packages can record unconditionally and tests that never
// call Init are unaffected.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "fridge_"

// Result labels.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultSuccess  = "success"
	ResultError    = "error"
)

var (
	registerOnce sync.Once
	registry     *prometheus.Registry

	messagesTotal   *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	shortSamples    prometheus.Counter
	sinkErrors      *prometheus.CounterVec
	alarmActive     *prometheus.GaugeVec
	alarmEdges      *prometheus.CounterVec
	temperature     *prometheus.GaugeVec
	doorOpen        prometheus.Gauge
	powerOn         prometheus.Gauge
	mailboxDepth    prometheus.Gauge
	publishTotal    *prometheus.CounterVec
	offlineBuffered prometheus.Gauge
)

// Init creates and registers the collectors on a dedicated registry that
// also carries the Go and process collectors.
func Init() {
	registerOnce.Do(func() {
		registry = prometheus.NewRegistry()

		messagesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "messages_total",
				Help: "Dispatcher messages by kind and result",
			},
			[]string{"kind", "result"},
		)
		recordsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_total",
				Help: "Long-period aggregation records by sink and result",
			},
			[]string{"sink", "result"},
		)
		shortSamples = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "short_samples_total",
				Help: "Short-period samples emitted",
			},
		)
		sinkErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_errors_total",
				Help: "Sink delivery failures by sink",
			},
			[]string{"sink"},
		)
		alarmActive = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alarm_active",
				Help: "1 while the named alarm is raised",
			},
			[]string{"alarm"},
		)
		alarmEdges = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_transitions_total",
				Help: "Alarm raise and clear transitions",
			},
			[]string{"alarm", "edge"},
		)
		temperature = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "temperature_celsius",
				Help: "Last good probe reading",
			},
			[]string{"probe"},
		)
		doorOpen = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "door_open",
			Help: "1 while the door is open",
		})
		powerOn = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "power_on",
			Help: "1 while mains power is present",
		})
		mailboxDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "mailbox_depth",
			Help: "Messages waiting in the dispatcher mailbox",
		})
		publishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_publish_total",
				Help: "MQTT publishes by topic kind and result",
			},
			[]string{"kind", "result"},
		)
		offlineBuffered = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "mqtt_offline_buffered",
			Help: "Messages held while the broker is unreachable",
		})

		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			messagesTotal,
			recordsTotal,
			shortSamples,
			sinkErrors,
			alarmActive,
			alarmEdges,
			temperature,
			doorOpen,
			powerOn,
			mailboxDepth,
			publishTotal,
			offlineBuffered,
		)
	})
}

// Handler serves the registered collectors.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Gatherer returns the registry for tests and custom exposition.
func Gatherer() prometheus.Gatherer {
	Init()
	return registry
}

// ObserveMessage counts one dispatcher message.
func ObserveMessage(kind, result string) {
	if messagesTotal != nil {
		messagesTotal.WithLabelValues(kind, result).Inc()
	}
}

// ObserveRecord counts one record handed to a sink.
func ObserveRecord(sink, result string) {
	if recordsTotal != nil {
		recordsTotal.WithLabelValues(sink, result).Inc()
	}
	if result == ResultError && sinkErrors != nil {
		sinkErrors.WithLabelValues(sink).Inc()
	}
}

// IncShortSample counts one short-period sample.
func IncShortSample() {
	if shortSamples != nil {
		shortSamples.Inc()
	}
}

// IncSinkError counts a failed delivery to a non-record sink.
func IncSinkError(sink string) {
	if sinkErrors != nil {
		sinkErrors.WithLabelValues(sink).Inc()
	}
}

// SetAlarm records an alarm level and counts the transition.
func SetAlarm(alarm string, active bool) {
	if alarmActive == nil {
		return
	}
	alarmActive.WithLabelValues(alarm).Set(boolValue(active))
	edge := "cleared"
	if active {
		edge = "raised"
	}
	alarmEdges.WithLabelValues(alarm, edge).Inc()
}

// SetTemperature records the last good reading of a probe.
func SetTemperature(probe string, celsius float32) {
	if temperature != nil {
		temperature.WithLabelValues(probe).Set(float64(celsius))
	}
}

// SetInputs records the door and power input levels.
func SetInputs(open, on bool) {
	if doorOpen == nil {
		return
	}
	doorOpen.Set(boolValue(open))
	powerOn.Set(boolValue(on))
}

// SetMailboxDepth records the mailbox backlog.
func SetMailboxDepth(n int) {
	if mailboxDepth != nil {
		mailboxDepth.Set(float64(n))
	}
}

// ObservePublish counts one MQTT publish attempt.
func ObservePublish(kind, result string) {
	if publishTotal != nil {
		publishTotal.WithLabelValues(kind, result).Inc()
	}
}

// SetOfflineBuffered records the MQTT offline buffer length.
func SetOfflineBuffered(n int) {
	if offlineBuffered != nil {
		offlineBuffered.Set(float64(n))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
