package shutdown

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sync"
	"syscall"
	"testing"
	"time"

	"roomify/core"
	"roomify/logging"
)

func TestRegistry_Order(t *testing.T) {
	var r Registry
	var mu sync.Mutex
	var ran []string
	hook := func(name string) Hook {
		return func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}

	r.Register("logger", PriorityLogger, hook("logger"))
	r.Register("database", PriorityStorage, hook("database"))
	r.Register("objectstore", PriorityStorage, hook("objectstore"))
	r.Register("http", PriorityServer, hook("http"))

	want := []string{"http", "objectstore", "database", "logger"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if errs := r.Run(context.Background()); len(errs) != 0 {
		t.Fatalf("Run() errors = %v", errs)
	}
	if !reflect.DeepEqual(ran, want) {
		t.Errorf("ran %v, want %v", ran, want)
	}
	if errs := r.Run(context.Background()); errs != nil {
		t.Error("second Run() should be a no-op")
	}
}

func TestRegistry_CollectsErrors(t *testing.T) {
	var r Registry
	r.Register("a", 1, func(context.Context) error { return errors.New("boom") })
	r.Register("b", 2, func(context.Context) error { return nil })

	errs := r.Run(context.Background())
	if len(errs) != 1 || errs[0].Error() != "a: boom" {
		t.Errorf("Run() errors = %v", errs)
	}
}

func TestTracker_WaitAndClose(t *testing.T) {
	var tr OperationTracker
	if !tr.Start() {
		t.Fatal("Start() rejected before Close")
	}
	if tr.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d", tr.ActiveCount())
	}
	if err := tr.Wait(10 * time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("Wait() = %v, want timeout", err)
	}

	tr.Close()
	if tr.Start() {
		t.Error("Start() accepted after Close")
	}
	tr.Done()
	if err := tr.Wait(time.Second); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}

func TestManager_ShutdownRunsHooks(t *testing.T) {
	m := NewManager(logging.NewNop(), WithTimeout(time.Second))
	closed := false
	m.Register("database", PriorityStorage, func(context.Context) error { closed = true; return nil })

	if code := m.Shutdown(); code != core.ExitCodeSuccess {
		t.Errorf("Shutdown() = %d", code)
	}
	if !closed {
		t.Error("hook not run")
	}
	if m.Context().Err() == nil {
		t.Error("context not cancelled")
	}
	if code := m.Shutdown(); code != core.ExitCodeSuccess {
		t.Errorf("second Shutdown() = %d", code)
	}
}

func TestManager_HookErrorExitCode(t *testing.T) {
	m := NewManager(logging.NewNop())
	m.Register("flaky", PriorityModels, func(context.Context) error { return errors.New("close failed") })
	if code := m.Shutdown(); code != core.ExitCodeError {
		t.Errorf("Shutdown() = %d, want %d", code, core.ExitCodeError)
	}
}

func TestManager_SignalCancelsContextAndMapsExitCode(t *testing.T) {
	m := NewManager(logging.NewNop())
	m.Start()
	m.notify(syscall.SIGTERM)

	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by signal")
	}
	if code := m.Shutdown(); code != core.ExitCodeSIGTERM {
		t.Errorf("Shutdown() = %d, want %d", code, core.ExitCodeSIGTERM)
	}
}

func TestManager_SecondSignalForcesExit(t *testing.T) {
	m := NewManager(logging.NewNop())
	exited := make(chan int, 1)
	m.exit = func(code int) { exited <- code }
	m.Start()

	m.notify(os.Interrupt)
	m.notify(os.Interrupt)

	select {
	case code := <-exited:
		if code != core.ExitCodeSIGINT {
			t.Errorf("exit code = %d", code)
		}
	case <-time.After(time.Second):
		t.Fatal("second signal did not force exit")
	}
	m.Shutdown()
}

func TestManager_TrackDrainsBeforeHooks(t *testing.T) {
	m := NewManager(logging.NewNop(), WithTimeout(2*time.Second))

	started := make(chan struct{})
	release := make(chan struct{})
	var order []string
	var mu sync.Mutex

	go func() {
		_ = m.Track(context.Background(), func(context.Context) error {
			close(started)
			<-release
			mu.Lock()
			order = append(order, "request")
			mu.Unlock()
			return nil
		})
	}()
	<-started

	m.Register("store", PriorityStorage, func(context.Context) error {
		mu.Lock()
		order = append(order, "hook")
		mu.Unlock()
		return nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	m.Shutdown()

	if !reflect.DeepEqual(order, []string{"request", "hook"}) {
		t.Errorf("order = %v", order)
	}
	if err := m.Track(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrTrackerClosed) {
		t.Errorf("Track() after shutdown = %v", err)
	}
}
