package inference

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// slot is one unit of generation capacity.
type slot struct {
	id   int
	uses int
}

// SlotPool bounds how many generations run against a Diffuser at once.
// Slots are created lazily up to maxSize and recycled through a buffered
// channel; callers beyond capacity wait until a slot is released or their
// context ends.
//
// SlotPool is itself a Diffuser.
type SlotPool struct {
	mu       sync.Mutex
	slots    chan *slot
	diffuser Diffuser
	maxSize  int
	closed   bool
	created  int
	inUse    int
	nextID   int
}

// NewSlotPool wraps d with at most maxSize concurrent generations.
func NewSlotPool(d Diffuser, maxSize int) (*SlotPool, error) {
	if d == nil {
		return nil, ErrMissingDiffuser
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: pool size %d", ErrInvalidParams, maxSize)
	}

	return &SlotPool{
		slots:    make(chan *slot, maxSize),
		diffuser: d,
		maxSize:  maxSize,
		nextID:   1,
	}, nil
}

// Generate validates req, waits for a slot and runs the wrapped diffuser.
func (p *SlotPool) Generate(ctx context.Context, req GenerateRequest) (image.Image, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	s, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(s)

	img, err := p.diffuser.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrGenerationFailed)
	}
	return img, nil
}

// SupportsConditioning delegates to the wrapped diffuser.
func (p *SlotPool) SupportsConditioning() bool {
	return SupportsConditioning(p.diffuser)
}

func (p *SlotPool) acquire(ctx context.Context) (*slot, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrSlotPoolClosed
	}

	// Fast path: an idle slot is waiting.
	select {
	case s := <-p.slots:
		p.inUse++
		p.mu.Unlock()
		s.uses++
		return s, nil
	default:
	}

	if p.created < p.maxSize {
		s := &slot{id: p.nextID, uses: 1}
		p.nextID++
		p.created++
		p.inUse++
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	select {
	case s := <-p.slots:
		if s == nil {
			return nil, ErrSlotPoolClosed
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrSlotPoolClosed
		}
		p.inUse++
		p.mu.Unlock()
		s.uses++
		return s, nil

	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err())
	}
}

func (p *SlotPool) release(s *slot) {
	if s == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse--
	if p.closed {
		p.created--
		return
	}

	select {
	case p.slots <- s:
	default:
		p.created--
	}
}

// Close stops handing out slots. In-flight generations finish normally.
func (p *SlotPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.slots)
	for range p.slots {
		p.created--
	}
	return nil
}

// InUse returns the number of generations currently running.
func (p *SlotPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Created returns the number of slots currently allocated.
func (p *SlotPool) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// MaxSize returns the concurrency limit.
func (p *SlotPool) MaxSize() int {
	return p.maxSize
}

// IsClosed reports whether Close has been called.
func (p *SlotPool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
