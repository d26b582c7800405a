package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterLevelAndFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn").With(String("comp", "scheduler"))

	log.Info("hidden")
	log.Warn("queue full", Int("cap", 4), Err(errors.New("dropped")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["message"] != "queue full" || rec["comp"] != "scheduler" || rec["cap"] != float64(4) {
		t.Fatalf("record = %v", rec)
	}
	if rec["err"] != "dropped" && rec["error"] != "dropped" {
		t.Fatalf("error field missing: %v", rec)
	}
}

func TestNopAndZero(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	zero.Error("no panic")
	if Nop().IsZero() {
		t.Fatal("Nop should not be zero")
	}
	Nop().With(String("k", "v")).Info("discarded")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		in string
		ok bool
	}{
		{"", true}, {"debug", true}, {" WARNING ", true}, {"loud", false},
	} {
		if _, ok := ParseLevel(tt.in); ok != tt.ok {
			t.Fatalf("ParseLevel(%q) ok = %v", tt.in, ok)
		}
	}
}

func TestServiceApplyFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontimer.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.Info("first")
	log.Debug("filtered")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("second")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") || strings.Contains(got, "filtered") {
		t.Fatalf("log file = %q", got)
	}
}
