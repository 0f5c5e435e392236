package metrics

import (
	"sync"
	"time"

	"roomify/logging"
)

// DefaultHistoryCapacity is the number of recent runs kept.
const DefaultHistoryCapacity = 100

// Store is the in-memory Collector: a ring buffer of recent runs plus
// running aggregates.
//
//	store := NewStore(100, core.Version, time.Now())
//	pipe.WithRecorder(store)
//	summary := store.Summary()
type Store struct {
	mu sync.RWMutex

	history []GenerationRecord
	head    int
	size    int

	total     int64
	successes int64
	errors    int64
	byVariant map[string]*variantAgg
	byBucket  map[string]int64

	startTime time.Time
	version   string
}

type variantAgg struct {
	count     int64
	successes int64
	duration  time.Duration
	inference time.Duration
}

// NewStore creates a Store retaining capacity recent runs.
func NewStore(capacity int, version string, startTime time.Time) *Store {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &Store{
		history:   make([]GenerationRecord, capacity),
		byVariant: make(map[string]*variantAgg),
		byBucket:  make(map[string]int64),
		startTime: startTime,
		version:   version,
	}
}

// Record implements pipeline.Recorder.
func (s *Store) Record(m logging.GenerationMetrics) {
	rec := GenerationRecord{
		ID:        m.RequestID,
		Variant:   m.Variant,
		Backend:   m.Backend,
		Bucket:    m.Bucket,
		Success:   m.Success,
		ErrorKind: m.ErrorKind,
		Duration:  m.TotalDuration,
		Inference: m.InferenceDuration,
		StartedAt: time.Now().Add(-m.TotalDuration),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = rec
	s.head = (s.head + 1) % len(s.history)
	if s.size < len(s.history) {
		s.size++
	}

	s.total++
	agg, ok := s.byVariant[rec.Variant]
	if !ok {
		agg = &variantAgg{}
		s.byVariant[rec.Variant] = agg
	}
	agg.count++
	agg.duration += rec.Duration
	agg.inference += rec.Inference
	if rec.Success {
		s.successes++
		agg.successes++
		if rec.Bucket != "" {
			s.byBucket[rec.Bucket]++
		}
	} else {
		s.errors++
	}
}

// Summary returns the aggregates.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Summary{
		TotalProcessed: s.total,
		TotalSuccess:   s.successes,
		TotalErrors:    s.errors,
		ByVariant:      make(map[string]*VariantStats, len(s.byVariant)),
		ByBucket:       make(map[string]int64, len(s.byBucket)),
	}
	for name, agg := range s.byVariant {
		n := time.Duration(agg.count)
		out.ByVariant[name] = &VariantStats{
			Count:        agg.count,
			SuccessRate:  float64(agg.successes) / float64(agg.count) * 100,
			AvgDuration:  agg.duration / n,
			AvgInference: agg.inference / n,
		}
	}
	for b, n := range s.byBucket {
		out.ByBucket[b] = n
	}
	return out
}

// Recent returns up to limit runs, oldest first.
func (s *Store) Recent(limit int) []GenerationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []GenerationRecord{}
	}
	if limit > s.size {
		limit = s.size
	}
	capacity := len(s.history)
	out := make([]GenerationRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.history[(s.head-limit+i+capacity)%capacity]
	}
	return out
}

// Status reports uptime and the caller-supplied in-flight count.
func (s *Store) Status(inFlight int) SystemStatus {
	return SystemStatus{
		Version:   s.version,
		Uptime:    time.Since(s.startTime),
		InFlight:  inFlight,
		LastCheck: time.Now(),
	}
}

var _ Collector = (*Store)(nil)
