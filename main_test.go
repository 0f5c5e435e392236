package main

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"roomify/core"
)

func setRunEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DB_PATH", filepath.Join(dir, "roomify.db"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "roomify.log"))
	t.Setenv("INFERENCE_BACKEND", "stub")
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("PIPELINE_VARIANT", "depth-seg")
	t.Setenv("API_TOKEN_HASH", "")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunInvalidConfig(t *testing.T) {
	setRunEnv(t)
	t.Setenv("PIPELINE_VARIANT", "watercolor")

	if code := run(context.Background(), false); code != core.ExitCodeError {
		t.Errorf("run() = %d, want %d", code, core.ExitCodeError)
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	setRunEnv(t)
	port := freePort(t)
	t.Setenv("PORT", strconv.Itoa(port))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- run(ctx, false) }()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/health"
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("GET /health = %d, want 200", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case code := <-done:
		if code != core.ExitCodeSuccess {
			t.Errorf("run() = %d, want %d", code, core.ExitCodeSuccess)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	logger, err := newLogger(&core.Config{})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if logger.Zap().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled at error level")
	}
}
