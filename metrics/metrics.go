// Package metrics wires Prometheus counters and histograms around the
// decoder core, grounded on the teacher's pkg/celeris/metrics.go
// promauto pattern. The decoder core itself stays free of this concern;
// callers attach a *Recorder as an optional hook around DecodeFrame.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts frames decoded, frames errored (by error kind), and
// tracks decode latency.
type Recorder struct {
	FramesDecoded   *prometheus.CounterVec
	FramesErrored   *prometheus.CounterVec
	DecodeDuration  prometheus.Histogram
	ActiveStreams   prometheus.Gauge
}

// Config controls the metric names and registerer, mirroring the
// teacher's PrometheusConfig/DefaultPrometheusConfig pair.
type Config struct {
	Namespace  string
	Subsystem  string
	Registerer prometheus.Registerer
}

// DefaultConfig returns the namespace/subsystem the demo command uses.
func DefaultConfig() Config {
	return Config{Namespace: "h2decode", Subsystem: "decoder", Registerer: prometheus.DefaultRegisterer}
}

// NewRecorder registers the decoder's metrics against cfg.Registerer.
func NewRecorder(cfg Config) *Recorder {
	factory := promauto.With(cfg.Registerer)
	return &Recorder{
		FramesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "frames_decoded_total",
			Help:      "Total number of inbound HTTP/2 frames successfully dispatched, by frame type.",
		}, []string{"frame_type"}),
		FramesErrored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "frames_errored_total",
			Help:      "Total number of inbound HTTP/2 frames that raised a connection or stream error, by error kind.",
		}, []string{"error_kind"}),
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "decode_duration_seconds",
			Help:      "Time spent in a single DecodeFrame call.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "active_streams",
			Help:      "Number of streams not yet CLOSED on this connection.",
		}),
	}
}
