package db

import (
	"context"
	"fmt"
	"time"
)

// SweeperConfig controls history retention.
type SweeperConfig struct {
	// RetentionDays is how long designs are kept. Zero disables the sweeper.
	RetentionDays int
	// Interval between sweeps.
	Interval time.Duration
	// OnExpired is called for each removed design, typically to delete its
	// stored images.
	OnExpired func(ctx context.Context, d Design)
	// OnSweep is called after every run (optional).
	OnSweep func(removed int, err error)
}

// DefaultSweeperConfig sweeps daily.
func DefaultSweeperConfig(retentionDays int) SweeperConfig {
	return SweeperConfig{RetentionDays: retentionDays, Interval: 24 * time.Hour}
}

// Sweep removes designs older than retentionDays once.
func (r *Repository) Sweep(ctx context.Context, cfg SweeperConfig) (int, error) {
	if cfg.RetentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", cfg.RetentionDays)
	}
	cutoff := r.now().Add(-time.Duration(cfg.RetentionDays) * 24 * time.Hour)
	expired, err := r.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if cfg.OnExpired != nil {
		for _, d := range expired {
			cfg.OnExpired(ctx, d)
		}
	}
	return len(expired), nil
}

// StartSweeper runs Sweep now and then every Interval until ctx is done.
// The returned channel closes when the goroutine exits.
func (r *Repository) StartSweeper(ctx context.Context, cfg SweeperConfig) <-chan struct{} {
	done := make(chan struct{})
	if cfg.RetentionDays <= 0 {
		close(done)
		return done
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	go func() {
		defer close(done)
		run := func() {
			n, err := r.Sweep(ctx, cfg)
			if cfg.OnSweep != nil {
				cfg.OnSweep(n, err)
			}
		}

		run()
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
	return done
}
