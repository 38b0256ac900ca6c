package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry holds every OCR collector; the worker exposes it on /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ResourcesProcessed, CycleDuration, CyclesSkipped,
		RecognitionDuration, PagesRecognized,
	)
}

// ResourcesProcessed resources that reached a terminal OCR status
var ResourcesProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ocr_resources_processed_total",
		Help: "Resources that reached a terminal OCR status.",
	},
	[]string{"status"}, // done | error
)

// CycleDuration maintenance cycle duration in seconds
var CycleDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ocr_cycle_duration_seconds",
		Help:    "Duration of maintenance cycles.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
	},
	[]string{"outcome"}, // completed | aborted
)

// CyclesSkipped calls that found a cycle already in flight
var CyclesSkipped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ocr_cycles_skipped_total",
		Help: "Maintenance calls ignored because a cycle was already running.",
	},
)

var RecognitionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ocr_recognition_duration_seconds",
		Help:    "Duration of single recognition engine calls.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"engine", "outcome"},
)

var PagesRecognized = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ocr_pdf_pages_recognized_total",
		Help: "Document pages extracted and sent to the recognition engine.",
	},
)

// Handler serves DefaultRegistry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
