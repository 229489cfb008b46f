package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readingsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_readings_received_total",
		Help: "Total number of readings submitted for ingestion.",
	})
	readingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waterquality_readings_rejected_total",
		Help: "Total number of readings rejected by validation, by field.",
	}, []string{"field"})
	readingsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_readings_stored_total",
		Help: "Total number of readings successfully appended to the store.",
	})
	readingsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waterquality_readings_failed_total",
		Help: "Total number of valid readings that were not stored, by error kind.",
	}, []string{"kind"})
	readingsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_readings_discarded_total",
		Help: "Readings stored after the submitting client went away.",
	})
	classifierErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_classifier_errors_total",
		Help: "Total number of classifier failures; the rule verdict was still stored.",
	})
	ruleViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waterquality_rule_violations_total",
		Help: "Safety threshold violations observed in stored readings, by rule.",
	}, []string{"rule"})
	ruleOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_rule_overrides_total",
		Help: "Stored readings where the rule verdict disagreed with the classifier.",
	})
	finalStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waterquality_final_status_total",
		Help: "Stored readings by final status.",
	}, []string{"status"})
	appendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waterquality_store_append_duration_seconds",
		Help:    "Latency of reading store appends.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})
)
