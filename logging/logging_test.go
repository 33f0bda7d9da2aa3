package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHelpersWorkBeforeInit(t *testing.T) {
	prev := DefaultLoggingService
	DefaultLoggingService = nil
	defer func() { DefaultLoggingService = prev }()

	// Must fall back to a console logger, not panic.
	Info("info before init", "key", "value")
	Warn("warn before init")
	Error("error before init")
	Debug("debug before init")
}

func TestInitLoggerSetsDefault(t *testing.T) {
	prev := DefaultLoggingService
	defer func() { DefaultLoggingService = prev }()

	InitLogger(t.TempDir(), 1)

	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		t.Fatal("InitLogger did not set the global logging service")
	}
}

func TestRotatingLoggerWritesWeeklyFile(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 1)
	defer func() {
		close(rl.cleanupDone)
		if err := rl.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	if _, err := rl.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := filepath.Join(dir, fmt.Sprintf("rollwin-%s.log", weekKey(time.Now())))
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected log file %s: %v", want, err)
	}
	if string(data) != "hello\n" {
		t.Errorf("file contents: got %q, want %q", data, "hello\n")
	}
}

func TestCleanupRemovesExpiredLogs(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 1)

	oldFile := filepath.Join(dir, "rollwin-2020-W01.log")
	if err := os.WriteFile(oldFile, []byte("stale"), 0666); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	oldTime := time.Now().Add(-8 * 24 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	freshFile := filepath.Join(dir, "rollwin-fresh.log")
	if err := os.WriteFile(freshFile, []byte("fresh"), 0666); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := rl.cleanupOldLogs(); err != nil {
		t.Fatalf("cleanupOldLogs: %v", err)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("expired log file was not removed")
	}
	if _, err := os.Stat(freshFile); err != nil {
		t.Errorf("fresh log file should survive cleanup: %v", err)
	}
}

func TestMiddlewareLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/work?ms=5", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"HTTP request", "method=GET", "path=/work", "status_code=418", `query="ms=5"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestMiddlewareSkipsProbeEndpoints(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if buf.Len() != 0 {
		t.Errorf("probe endpoints should not be logged, got: %s", buf.String())
	}
}
