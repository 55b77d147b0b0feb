// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"feetfit/internal/gait"
)

const namespace = "feetfit"

// Ingest sources.
const (
	SourceHTTP   = "http"
	SourceMQTT   = "mqtt"
	SourceImport = "import"
)

var (
	SamplesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Sensor samples stored, by ingest source.",
		},
		[]string{"source"},
	)
	SamplesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_rejected_total",
			Help:      "Malformed sensor samples dropped before storage, by ingest source.",
		},
		[]string{"source"},
	)
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Gait analysis runs by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one gait analysis run including the sample load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	LastCadence = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_cadence_spm",
		Help:      "Cadence of the most recent successful analysis, steps per minute.",
	})
	LastContactTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_contact_time_seconds",
		Help:      "Average contact time of the most recent successful analysis.",
	})
	LastStepCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_step_count",
		Help:      "Step count of the most recent successful analysis.",
	})
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status.",
		},
		[]string{"method", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SamplesIngested, SamplesRejected,
		AnalysisRuns, AnalysisDuration,
		LastCadence, LastContactTime, LastStepCount,
		HTTPRequests, HTTPDuration,
	)
}

// ObserveIngest counts one ingest batch.
func ObserveIngest(source string, stored, rejected int) {
	if stored > 0 {
		SamplesIngested.WithLabelValues(source).Add(float64(stored))
	}
	if rejected > 0 {
		SamplesRejected.WithLabelValues(source).Add(float64(rejected))
	}
}

// ObserveAnalysis records one analysis run.
func ObserveAnalysis(trigger, outcome string, took time.Duration) {
	AnalysisRuns.WithLabelValues(trigger, outcome).Inc()
	AnalysisDuration.Observe(took.Seconds())
}

// SetLastMetrics publishes the headline numbers of a successful run.
func SetLastMetrics(m gait.Metrics) {
	LastCadence.Set(m.Cadence)
	LastContactTime.Set(m.AvgContactTime)
	LastStepCount.Set(float64(m.StepCount))
}

// ObserveHTTP records one served request.
func ObserveHTTP(method string, status int, took time.Duration) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method).Observe(took.Seconds())
}
