// Package metrics holds the prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrisaarthi_requests_total",
			Help: "Total number of requests handled, by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agrisaarthi_request_duration_seconds",
			Help:    "Duration of request processing in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"route"},
	)

	ExtractorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrisaarthi_extractor_failures_total",
			Help: "Extractor calls that degraded to an empty value or sentinel",
		},
		[]string{"modality"},
	)

	AdvisoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrisaarthi_advisories_total",
			Help: "LLM advisory generations, by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agrisaarthi_connectivity_online",
			Help: "1 when the last connectivity probe succeeded, 0 otherwise",
		},
	)
)
