// Package metrics keeps in-memory generation statistics for the stats
// endpoint. These are the atom-level data types.
package metrics

import "time"

// GenerationRecord is one completed pipeline run.
type GenerationRecord struct {
	ID        string        `json:"id,omitempty"`
	Variant   string        `json:"variant"`
	Backend   string        `json:"backend,omitempty"`
	Bucket    string        `json:"bucket,omitempty"`
	Success   bool          `json:"success"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Duration  time.Duration `json:"duration"`
	Inference time.Duration `json:"inference"`
	StartedAt time.Time     `json:"started_at"`
}

// VariantStats aggregates runs of one pipeline variant.
type VariantStats struct {
	Count        int64         `json:"count"`
	SuccessRate  float64       `json:"success_rate"`
	AvgDuration  time.Duration `json:"avg_duration"`
	AvgInference time.Duration `json:"avg_inference"`
}

// Summary aggregates every run since startup.
type Summary struct {
	TotalProcessed int64                    `json:"total_processed"`
	TotalSuccess   int64                    `json:"total_success"`
	TotalErrors    int64                    `json:"total_errors"`
	ByVariant      map[string]*VariantStats `json:"by_variant"`
	ByBucket       map[string]int64         `json:"by_bucket"`
}

// SystemStatus is the process-level view.
type SystemStatus struct {
	Version   string        `json:"version"`
	Uptime    time.Duration `json:"uptime"`
	InFlight  int           `json:"in_flight"`
	LastCheck time.Time     `json:"last_check"`
}
