package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Hook releases one resource at shutdown.
type Hook func(ctx context.Context) error

// Hook priorities. Lower runs first.
const (
	PriorityServer  = 10 // stop accepting connections
	PriorityWorkers = 20 // drain background jobs
	PriorityModels  = 30 // release model backends
	PriorityStorage = 40 // close databases and stores
	PriorityLogger  = 90 // flush logs last
)

type hookEntry struct {
	name     string
	priority int
	seq      int
	fn       Hook
}

// Registry runs hooks once, ordered by priority. Hooks with equal
// priority run in reverse registration order, so later dependents are
// released before what they were built on.
type Registry struct {
	mu      sync.Mutex
	entries []hookEntry
	closed  bool
}

// Register adds a hook. Registration after Run is ignored.
func (r *Registry) Register(name string, priority int, fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, hookEntry{name: name, priority: priority, seq: len(r.entries), fn: fn})
}

// Run executes every hook and collects their errors. Only the first call
// does anything.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errs
}

// Names lists hooks in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.sorted()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

func (r *Registry) sorted() []hookEntry {
	out := make([]hookEntry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].seq > out[j].seq
	})
	return out
}
