package inference

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// blockingDiffuser holds each call until release is closed and tracks peak concurrency.
type blockingDiffuser struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func (d *blockingDiffuser) Generate(ctx context.Context, req GenerateRequest) (image.Image, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return req.Images[0], nil
}

func TestNewSlotPool(t *testing.T) {
	tests := []struct {
		name    string
		d       Diffuser
		maxSize int
		wantErr error
	}{
		{"valid", StubDiffuser{}, 2, nil},
		{"zero size", StubDiffuser{}, 0, ErrInvalidParams},
		{"negative size", StubDiffuser{}, -1, ErrInvalidParams},
		{"nil diffuser", nil, 1, ErrMissingDiffuser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewSlotPool(tt.d, tt.maxSize)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewSlotPool() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSlotPool() unexpected error: %v", err)
			}
			defer pool.Close()

			if pool.MaxSize() != tt.maxSize {
				t.Errorf("MaxSize() = %d, want %d", pool.MaxSize(), tt.maxSize)
			}
			if pool.Created() != 0 || pool.InUse() != 0 {
				t.Errorf("new pool: Created() = %d, InUse() = %d", pool.Created(), pool.InUse())
			}
		})
	}
}

func TestSlotPool_LimitsConcurrency(t *testing.T) {
	d := &blockingDiffuser{release: make(chan struct{})}
	pool, err := NewSlotPool(d, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Generate(context.Background(), validRequest()); err != nil {
				t.Errorf("Generate() error: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.active.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(d.release)
	wg.Wait()

	if peak := d.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
	if pool.Created() > 2 {
		t.Errorf("Created() = %d, want <= 2", pool.Created())
	}
	if pool.InUse() != 0 {
		t.Errorf("InUse() = %d after all calls returned", pool.InUse())
	}
}

func TestSlotPool_AcquireTimeout(t *testing.T) {
	d := &blockingDiffuser{release: make(chan struct{})}
	pool, err := NewSlotPool(d, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		pool.Generate(context.Background(), validRequest())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for d.active.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Generate(ctx, validRequest()); !errors.Is(err, ErrAcquireTimeout) {
		t.Errorf("Generate() error = %v, want ErrAcquireTimeout", err)
	}

	close(d.release)
	<-done
}

func TestSlotPool_Closed(t *testing.T) {
	pool, err := NewSlotPool(StubDiffuser{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Generate(context.Background(), validRequest()); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if !pool.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if _, err := pool.Generate(context.Background(), validRequest()); !errors.Is(err, ErrSlotPoolClosed) {
		t.Errorf("Generate() error = %v, want ErrSlotPoolClosed", err)
	}
}

func TestSlotPool_ValidatesBeforeAcquire(t *testing.T) {
	pool, _ := NewSlotPool(StubDiffuser{}, 1)
	defer pool.Close()

	req := validRequest()
	req.Steps = 0
	if _, err := pool.Generate(context.Background(), req); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("error = %v, want ErrInvalidParams", err)
	}
	if pool.Created() != 0 {
		t.Error("invalid request consumed a slot")
	}
}

func TestSlotPool_SupportsConditioning(t *testing.T) {
	pool, _ := NewSlotPool(&OpenAIDiffuser{}, 1)
	if pool.SupportsConditioning() {
		t.Error("pool over OpenAI diffuser must report no conditioning support")
	}
	stub, _ := NewSlotPool(StubDiffuser{}, 1)
	if !SupportsConditioning(stub) {
		t.Error("pool over stub diffuser must report conditioning support")
	}
}
