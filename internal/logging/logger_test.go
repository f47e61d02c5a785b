package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sbsconv/internal/config"
	"sbsconv/internal/logging"
	"sbsconv/internal/services"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("scan complete", logging.Int("shots", 3))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "sbsconv.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, data)
	}
	if record["msg"] != "scan complete" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersShotSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "scheduler").Info("frame converted",
		logging.Shot("shot_010"),
		logging.String(logging.FieldRunID, "1a2b3c4d-0000-0000-0000-000000000000"),
		logging.Frame("shot_010.0001.exr"),
		logging.Duration("elapsed", 90*time.Second),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"[scheduler]", "shot_010 (run 1a2b3c4d)", "frame converted", "Frame: shot_010.0001.exr", "Elapsed: 1m30s"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in console output, got %q", want, text)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithShot(context.Background(), "shot_020")
	ctx = services.WithRunID(ctx, "run-xyz")

	var captured []slog.Attr
	logger := slog.New(&captureHandler{attrs: &captured})
	logging.WithContext(ctx, logger).Info("contextual log")

	want := map[string]string{logging.FieldShot: "shot_020", logging.FieldRunID: "run-xyz"}
	for key, value := range want {
		found := false
		for _, attr := range captured {
			if attr.Key == key && attr.Value.String() == value {
				found = true
			}
		}
		if !found {
			t.Fatalf("field %s=%s not found in %v", key, value, captured)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var captured []slog.Attr
	logger := slog.New(&captureHandler{attrs: &captured})
	logging.WarnWithContext(logger, "promotion deferred", "promotion_deferred", logging.Shot("shot_030"))

	keys := map[string]bool{}
	for _, attr := range captured {
		keys[attr.Key] = true
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if !keys[key] {
			t.Fatalf("expected %s to be injected, got %v", key, captured)
		}
	}
}

type captureHandler struct {
	pre   []slog.Attr
	attrs *[]slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	*h.attrs = append(*h.attrs, h.pre...)
	record.Attrs(func(attr slog.Attr) bool {
		*h.attrs = append(*h.attrs, attr)
		return true
	})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{pre: append(append([]slog.Attr{}, h.pre...), attrs...), attrs: h.attrs}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }
