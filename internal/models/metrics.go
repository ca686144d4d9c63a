package models

import "time"

// SystemMetrics is a point-in-time summary of the instrumentation counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	PlannerRuns              uint64    `json:"planner_runs"`
	ProposerFallbacks        uint64    `json:"proposer_fallbacks"`
	InfeasibleDeadlines      uint64    `json:"infeasible_deadlines"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
