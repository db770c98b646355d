// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_dispatch_model_request_duration_seconds",
			Help:    "Time taken for a single model call in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"model"},
	)

	ModelRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_dispatch_model_request_count_total",
			Help: "Total number of model calls issued",
		},
		[]string{"model", "status"},
	)

	ImageRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_dispatch_image_request_count_total",
			Help: "Total number of image generation calls issued",
		},
		[]string{"model", "status"},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_dispatch_error_count",
			Help: "Error count",
		},
		[]string{"from"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_dispatch_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
