package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "featherlink"

type Metrics struct {
	registry *prometheus.Registry

	SessionsActive   prometheus.Gauge
	CommandsSent     *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec
	FramesReceived   *prometheus.CounterVec
	MalformedTotal   prometheus.Counter

	SimulatorConnections prometheus.Gauge
	SimulatorFramesSent  *prometheus.CounterVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected camera sessions",
		}),
		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Commands written to the camera",
		}, []string{"command"}),
		CommandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands dropped because their precondition did not hold",
		}, []string{"command"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound frames by message type",
		}, []string{"type"}),
		MalformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_payloads_total",
			Help:      "Inbound messages that failed to decode",
		}),
		SimulatorConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "connections",
			Help:      "Open simulator websocket connections",
		}),
		SimulatorFramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "frames_sent_total",
			Help:      "Frames sent by the simulator by message type",
		}, []string{"type"}),
	}
	r.MustRegister(
		m.SessionsActive, m.CommandsSent, m.CommandsRejected, m.FramesReceived, m.MalformedTotal,
		m.SimulatorConnections, m.SimulatorFramesSent,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
