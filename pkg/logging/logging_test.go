package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInit_StderrLevels(t *testing.T) {
	restoreDefault(t)

	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet by default", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, closeFn, err := Init(Options{Verbose: tt.verbose, Stderr: &buf})
			if err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			defer closeFn()

			logger.Debug("debug message")
			logger.Warn("warn message")

			out := buf.String()
			if strings.Contains(out, "debug message") != tt.wantDebug {
				t.Errorf("debug output = %v, want %v: %s", !tt.wantDebug, tt.wantDebug, out)
			}
			if !strings.Contains(out, "warn message") {
				t.Errorf("expected warning in output: %s", out)
			}
		})
	}
}

func TestInit_JSON(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	logger, closeFn, err := Init(Options{JSON: true, Stderr: &buf})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer closeFn()

	logger.Warn("timer failed", "timer", 2)
	if !strings.Contains(buf.String(), `"timer":2`) {
		t.Errorf("expected JSON attributes, got: %s", buf.String())
	}
	if slog.Default() != logger {
		t.Error("Init did not install the default logger")
	}
}

func TestInit_DebugFile(t *testing.T) {
	restoreDefault(t)

	path := filepath.Join(t.TempDir(), "logs", "idlehook.jsonl")
	var buf bytes.Buffer
	logger, closeFn, err := Init(Options{DebugFile: path, Stderr: &buf})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	logger.With("component", "loop").Debug("polled", "idle", "5s")
	closeFn()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading debug log: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"polled"`) || !strings.Contains(string(content), `"component":"loop"`) {
		t.Errorf("debug file missing record: %s", content)
	}
	if buf.Len() != 0 {
		t.Errorf("debug record leaked to stderr: %s", buf.String())
	}
}
