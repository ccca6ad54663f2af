// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesProcessed counts frames that made it through inference.
	FramesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frames_processed_total",
			Help: "Total number of frames processed per stream role",
		},
		[]string{"role"},
	)

	// FrameReadFailures counts failed frame reads (retried, never fatal).
	FrameReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_read_failures_total",
			Help: "Total number of failed frame reads per stream role",
		},
		[]string{"role"},
	)

	// InferenceFailures counts failed model calls.
	InferenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_failures_total",
			Help: "Total number of failed inference calls per stream role",
		},
		[]string{"role"},
	)

	// InferenceLatency measures the round trip to the model server.
	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Inference round-trip latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"role"},
	)

	// AlertsGenerated counts alerts by type and severity.
	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"type", "severity"},
	)

	// KPIFlushFailures counts failed persistence flushes.
	KPIFlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kpi_flush_failures_total",
			Help: "Total number of failed KPI record flushes",
		},
	)

	// CurrentQueueLength is the latest observed queue length.
	CurrentQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "current_queue_length",
			Help: "Current number of persons in queue zones",
		},
	)

	// CurrentStaffCount is the latest observed staff count.
	CurrentStaffCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "current_staff_count",
			Help: "Current number of staff in the work area",
		},
	)

	// CurrentVehicles is the latest observed vehicle count.
	CurrentVehicles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "current_vehicles",
			Help: "Current number of vehicles in view",
		},
	)

	// CurrentOccupancy is the latest observed gate occupancy.
	CurrentOccupancy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "current_occupancy",
			Help: "Current number of persons at the gate",
		},
	)

	// ServiceEfficiency is the queue-per-staff load ratio; lower is better.
	ServiceEfficiency = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "service_efficiency",
			Help: "Average queue length per staff member",
		},
	)
)
