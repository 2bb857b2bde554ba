// Package metrics exposes Prometheus instrumentation for the relay. All
// record helpers are safe on a nil receiver so the relay runs unmetered when
// nothing is wired up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all counters and gauges for one process.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ActiveConnections   prometheus.Gauge
	FramesReceived      prometheus.Counter
	FramesSent          prometheus.Counter
	FramingErrors       prometheus.Counter
	PeerErrors          prometheus.Counter
	SilenceSynthesized  prometheus.Counter
	QueueDrops          *prometheus.CounterVec
}

// New registers all metrics with the default registry. Call once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics with the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiosocket_connections_accepted_total",
			Help: "Total number of accepted AudioSocket connections",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audiosocket_active_connections",
			Help: "Current number of live AudioSocket connections",
		}),
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiosocket_frames_received_total",
			Help: "Total number of inbound audio frames",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiosocket_frames_sent_total",
			Help: "Total number of outbound audio frames",
		}),
		FramingErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiosocket_framing_errors_total",
			Help: "Total number of segments too short to decode",
		}),
		PeerErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiosocket_peer_errors_total",
			Help: "Total number of ERROR frames received from the peer",
		}),
		SilenceSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiosocket_silence_frames_total",
			Help: "Total number of silence frames synthesized for an empty tx queue",
		}),
		QueueDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiosocket_queue_drops_total",
			Help: "Total number of audio frames dropped on a full queue",
		}, []string{"queue"}),
	}
}

func (m *Metrics) RecordConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsAccepted.Inc()
	m.ActiveConnections.Inc()
}

func (m *Metrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) RecordFrameReceived() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

func (m *Metrics) RecordFrameSent() {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
}

func (m *Metrics) RecordFramingError() {
	if m == nil {
		return
	}
	m.FramingErrors.Inc()
}

func (m *Metrics) RecordPeerError() {
	if m == nil {
		return
	}
	m.PeerErrors.Inc()
}

func (m *Metrics) RecordSilenceSynthesized() {
	if m == nil {
		return
	}
	m.SilenceSynthesized.Inc()
}

func (m *Metrics) RecordQueueDrop(queue string) {
	if m == nil {
		return
	}
	m.QueueDrops.WithLabelValues(queue).Inc()
}
