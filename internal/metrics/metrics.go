// Package metrics holds the Prometheus collectors shared across the
// service. Collectors are registered once at init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberclaim_claims_processed_total",
		Help: "Claims that completed the pipeline, by final status.",
	}, []string{"status"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberclaim_status_transitions_total",
		Help: "Claim status transitions committed to the database.",
	}, []string{"from", "to"})

	FraudFindings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberclaim_fraud_findings_total",
		Help: "Fraud findings fired, by detection type and risk level.",
	}, []string{"detection_type", "risk_level"})

	TextAcquisitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cyberclaim_text_acquisition_seconds",
		Help:    "Time to pull text out of one PDF, by method.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"method"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cyberclaim_pipeline_stage_seconds",
		Help:    "Duration of one pipeline stage per claim.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"stage"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyberclaim_http_requests_total",
		Help: "HTTP requests served, by route and status class.",
	}, []string{"route", "code"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cyberclaim_queue_depth",
		Help: "Jobs waiting in the validation queue.",
	})
)
