package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONFormatWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentAuth, Output: &buf})

	logger.Info("User logged in", FieldUserID, "u1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["component"] != ComponentAuth {
		t.Errorf("expected component %q, got %v", ComponentAuth, entry["component"])
	}
	if entry[FieldUserID] != "u1" {
		t.Errorf("expected user_id u1, got %v", entry[FieldUserID])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf, Component: ComponentApp})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWithLoggerAndFromContext(t *testing.T) {
	logger := New(Config{Level: slog.LevelInfo, Output: &bytes.Buffer{}, Component: ComponentTransaction})

	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected stored logger, got %+v", got)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger for empty context")
	}
}

func TestStructuredLogger_LogErrorNilFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf, Format: "json", Component: ComponentHTTP}))

	sl.LogError(context.Background(), "write failed", errors.New("disk full"), OpCreateTransaction, nil)

	out := buf.String()
	if !strings.Contains(out, "disk full") || !strings.Contains(out, `"operation":"create_transaction"`) {
		t.Fatalf("expected error and operation in output, got %q", out)
	}
}

func TestStructuredLogger_HTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf, Format: "json"}))
		r := httptest.NewRequest(http.MethodGet, "/api/ledger?month=12", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "10.0.0.1")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("status %d: decode log: %v", tt.status, err)
		}
		if entry["level"] != tt.level || entry[FieldQuery] != "month=12" {
			t.Errorf("status %d: got level %v query %v", tt.status, entry["level"], entry[FieldQuery])
		}
	}
}

func TestLogFields_Builder(t *testing.T) {
	f := NewFields().
		WithUser("u1").
		WithTransaction("t1", "Lunch", "Expense", "Food", "25000").
		WithPeriod(2025, 12)

	if f[FieldUserID] != "u1" || f[FieldTxID] != "t1" || f[FieldCategory] != "Food" || f[FieldMonth] != 12 {
		t.Fatalf("unexpected fields %+v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("expected key/value pairs")
	}
}

func TestWithComponent_SingleAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf, Component: ComponentApp}).
		WithComponent(ComponentWorker)

	logger.Info("Sweep done")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=worker") {
		t.Fatalf("expected a single worker component, got %q", out)
	}
}
