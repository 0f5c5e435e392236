package metrics

import "roomify/logging"

// Collector records runs and answers the stats endpoint. Implementations
// must be safe for concurrent use.
type Collector interface {
	Record(m logging.GenerationMetrics)
	Summary() Summary
	Recent(limit int) []GenerationRecord
	Status(inFlight int) SystemStatus
}
