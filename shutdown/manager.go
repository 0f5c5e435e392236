// Package shutdown coordinates graceful shutdown: signal handling,
// draining in-flight requests and running cleanup hooks.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"roomify/core"
	"roomify/logging"
)

// DefaultTimeout bounds the whole shutdown sequence.
const DefaultTimeout = 30 * time.Second

// Manager owns the process context.
//
//	m := shutdown.NewManager(logger)
//	m.Register("http-server", shutdown.PriorityServer, srv.Shutdown)
//	m.Start()
//	<-m.Context().Done()
//	os.Exit(m.Shutdown())
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	tracker  OperationTracker
	registry Registry

	mu       sync.Mutex
	started  bool
	done     bool
	received os.Signal
	sigCount int
	sigChan  chan os.Signal

	// exit is replaced in tests.
	exit func(code int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates a Manager. Nothing happens until Start.
func NewManager(logger *logging.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:  logger.Named("shutdown"),
		timeout: DefaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 2),
		exit:    os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup hook.
func (m *Manager) Register(name string, priority int, fn Hook) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown hook", zap.String("name", name), zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. The first signal cancels the
// context; a second one exits immediately.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go m.watch()
}

func (m *Manager) watch() {
	for sig := range m.sigChan {
		m.mu.Lock()
		m.sigCount++
		count := m.sigCount
		if count == 1 {
			m.received = sig
		}
		m.mu.Unlock()

		if count == 1 {
			m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			m.cancel()
			continue
		}
		m.logger.Warn("received second signal, forcing exit")
		_ = m.logger.Sync()
		m.exit(core.ExitCodeForSignal(sig))
	}
}

// Trigger begins shutdown without a signal, e.g. after a fatal server error.
func (m *Manager) Trigger() {
	m.cancel()
}

// Track runs fn as an in-flight operation. Once shutdown has begun it
// returns ErrTrackerClosed without calling fn.
func (m *Manager) Track(ctx context.Context, fn func(context.Context) error) error {
	if m.ctx.Err() != nil || !m.tracker.Start() {
		return ErrTrackerClosed
	}
	defer m.tracker.Done()
	return fn(ctx)
}

// ActiveOperations is the number of tracked operations in flight.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// Hooks lists hook names in execution order.
func (m *Manager) Hooks() []string {
	return m.registry.Names()
}

// Shutdown drains tracked operations, runs hooks and returns the process
// exit code. Later calls return ExitCodeSuccess without doing anything.
func (m *Manager) Shutdown() int {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return core.ExitCodeSuccess
	}
	m.done = true
	sig := m.received
	m.mu.Unlock()

	m.cancel()
	start := time.Now()
	m.tracker.Close()

	if n := m.tracker.ActiveCount(); n > 0 {
		m.logger.Info("waiting for in-flight operations", zap.Int64("active", n))
	}
	if err := m.tracker.Wait(m.timeout); errors.Is(err, ErrWaitTimeout) {
		m.logger.Warn("in-flight operations did not finish", zap.Int64("remaining", m.tracker.ActiveCount()))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("shutdown hook failed", zap.Error(err))
	}

	m.mu.Lock()
	if m.started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}
	m.mu.Unlock()

	code := core.ExitCodeSuccess
	if sig != nil {
		code = core.ExitCodeForSignal(sig)
	}
	if len(errs) > 0 && code == core.ExitCodeSuccess {
		code = core.ExitCodeError
	}
	m.logger.Info("shutdown complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("exit_code", code),
		zap.String("exit_reason", core.ExitCodeName(code)),
	)
	return code
}

// notify injects a signal; used by tests in place of the OS.
func (m *Manager) notify(sig os.Signal) {
	m.sigChan <- sig
}
