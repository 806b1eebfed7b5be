// Package metrics exposes Prometheus metrics for discovery, pipelines and
// session shutdowns, fed from the event bus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/ouvrt-cameras/internal/events"
)

const namespace = "ouvrt_cameras"

var (
	devicesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "devices",
		Name:      "discovered_total",
		Help:      "Devices reported by the provider, by classification outcome",
	}, []string{"accepted"})

	pipelinePlaying = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "playing",
		Help:      "1 while the pipeline is playing, 0 otherwise",
	}, []string{"pipeline", "device"})

	pipelineTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "transitions_total",
		Help:      "Pipeline lifecycle transitions",
	}, []string{"to", "failed"})

	pipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "errors_total",
		Help:      "Errors posted on pipeline buses",
	}, []string{"pipeline", "benign"})

	sessionShutdowns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "shutdowns_total",
		Help:      "Session shutdowns by reason",
	}, []string{"reason"})
)

// Subscribe updates the metrics from bus events until the returned function
// is called.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.DeviceDiscoveredEvent) {
			devicesDiscovered.WithLabelValues(strconv.FormatBool(e.Accepted)).Inc()
		}),
		bus.Subscribe(func(e events.PipelineStateChangedEvent) {
			pipelineTransitions.WithLabelValues(e.To, strconv.FormatBool(e.Error != "")).Inc()
			playing := 0.0
			if e.To == "playing" {
				playing = 1
			}
			pipelinePlaying.WithLabelValues(e.PipelineID, e.Device).Set(playing)
		}),
		bus.Subscribe(func(e events.PipelineErrorEvent) {
			pipelineErrors.WithLabelValues(e.PipelineID, strconv.FormatBool(e.Benign)).Inc()
		}),
		bus.Subscribe(func(e events.SessionShutdownEvent) {
			sessionShutdowns.WithLabelValues(e.Reason).Inc()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
