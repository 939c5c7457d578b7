package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extract_frames_written_total",
		Help: "Total number of frame images written, by sampling strategy",
	}, []string{"strategy"})

	FrameFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extract_frames_failures_total",
		Help: "Per-frame failures that were skipped, by kind",
	}, []string{"kind"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "extract_frames_stage_duration_seconds",
		Help:    "Duration of run stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	SegmentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extract_frames_segments_processed_total",
		Help: "Segments sampled by the parallel orchestrator, by outcome",
	}, []string{"status"})

	ActiveSamplers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "extract_frames_active_samplers",
		Help: "Number of sampling passes currently running",
	})

	CleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extract_frames_cleanup_failures_total",
		Help: "Files or directories that could not be removed during cleanup",
	})
)

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
