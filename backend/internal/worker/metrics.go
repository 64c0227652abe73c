package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusRetried   = "retried"
	statusRejected  = "rejected"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediable",
			Name:      "conversion_jobs_total",
			Help:      "Conversion jobs by outcome",
		},
		[]string{"status"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediable",
			Name:      "conversion_queue_depth",
			Help:      "Conversion jobs waiting for a worker",
		},
	)

	jobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mediable",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent executing one conversion job attempt",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
