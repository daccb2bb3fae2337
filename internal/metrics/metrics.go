// Package metrics provides Prometheus metrics for the grading-value
// pipeline. Scrape these at /metrics for dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream API metrics
	MarketAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradescout_market_api_requests_total",
			Help: "Total upstream market-data API requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: "ok", "retried", "failed"
	)

	MarketAPIProxyPromotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescout_market_api_proxy_promotions_total",
			Help: "Times a successful proxied retry promoted proxy use for the session",
		},
	)

	// Cache gateway metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescout_cache_hits_total",
			Help: "Snapshot cache hits in the gateway",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescout_cache_misses_total",
			Help: "Snapshot cache misses in the gateway",
		},
	)

	// Ingestion metrics
	RowsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradescout_rows_upserted_total",
			Help: "Rows written by the ingestion normalizers",
		},
		[]string{"table"},
	)

	MalformedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradescout_malformed_records_total",
			Help: "Payload records skipped during ingestion",
		},
		[]string{"payload"},
	)

	// Derived-metric metrics
	RecalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradescout_recalculations_total",
			Help: "Derived-metric recalculations by table and outcome",
		},
		[]string{"table", "outcome"}, // outcome: "written", "noop"
	)

	// Update orchestrator metrics
	UpdateCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescout_update_cycles_total",
			Help: "Completed update cycles",
		},
	)

	UpdateStageEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gradescout_update_stage_entities",
			Help: "Entities affected by each updater stage in the last cycle",
		},
		[]string{"stage"},
	)

	UpdateCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradescout_update_cycle_duration_seconds",
			Help:    "Wall time of a full update cycle",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	// Candidate cache metrics
	CandidateCacheRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradescout_candidate_cache_rebuilds_total",
			Help: "Rebuilds of the materialized candidate list",
		},
	)

	CandidateCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradescout_candidate_count",
			Help: "Candidates in the last materialized list",
		},
	)
)
