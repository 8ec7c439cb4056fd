// Package metrics exposes Prometheus metrics for the frame pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FramesDelivered counts frames handed to the source boundary,
	// labeled by origin (placeholder or sink).
	FramesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcam_frames_delivered_total",
		Help: "Frames delivered to the source boundary by origin",
	}, []string{"origin"})

	// FramesDropped counts frames dropped before delivery, by reason.
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcam_frames_dropped_total",
		Help: "Frames dropped before delivery by reason",
	}, []string{"reason"})

	// PoolRebuilds counts buffer pool rebuilds from format switches.
	PoolRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcam_pool_rebuilds_total",
		Help: "Buffer pool rebuilds triggered by format switches",
	})

	// SwitchesRejected counts refused format switch requests.
	SwitchesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcam_format_switches_rejected_total",
		Help: "Format switch requests rejected by validation",
	})

	// ActiveFormatIndex tracks the authoritative active format index.
	ActiveFormatIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcam_active_format_index",
		Help: "Index of the active format descriptor",
	})

	// StreamClients tracks the reference count per stream direction.
	StreamClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vcam_stream_clients",
		Help: "Active client count per stream direction",
	}, []string{"direction"})

	// ForwardLatency observes the delay between a producer's embedded
	// timestamp and the forwarder picking the frame up.
	ForwardLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vcam_forward_latency_seconds",
		Help:    "Latency between producer PTS and forwarder pickup",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// SinkQueueDepth tracks the pending frame count at the sink boundary.
	SinkQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcam_sink_queue_depth",
		Help: "Frames pending in the sink queue",
	})
)

// Handler returns the Prometheus metrics HTTP handler, collecting all
// promauto-registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
