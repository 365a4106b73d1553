// Package metrics exposes Prometheus counters for the retrieval pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCalls counts upstream provider attempts by provider, concern
	// and outcome.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketbrief",
		Name:      "provider_calls_total",
		Help:      "Upstream provider call attempts.",
	}, []string{"provider", "concern", "outcome"})

	// Retries counts backoff retries by provider.
	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketbrief",
		Name:      "provider_retries_total",
		Help:      "Retry attempts against upstream providers.",
	}, []string{"provider"})

	// CacheLookups counts cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketbrief",
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by result.",
	}, []string{"result"})

	// PipelineStages counts geopolitical pipeline stage outcomes.
	PipelineStages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketbrief",
		Name:      "pipeline_stages_total",
		Help:      "Geopolitical pipeline stage outcomes.",
	}, []string{"stage", "outcome"})

	// ConcernResults counts per-concern aggregate outcomes.
	ConcernResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketbrief",
		Name:      "concern_results_total",
		Help:      "Aggregation outcomes per concern.",
	}, []string{"concern", "outcome"})
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	HitLabel       = "hit"
	MissLabel      = "miss"
)
