package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kingrea/crow-eye/internal/config"
)

func readLog(t *testing.T, projectDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(projectDir, config.CrowEyeDir, "logs", FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	projectDir := t.TempDir()
	logger, err := New(projectDir, Options{Level: "info"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Printf("swarm ready\n")
	logger.Zap().Debug("hidden detail")
	logger.Zap().Warn("low energy", zap.String("crow", "crow-03"))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := readLog(t, projectDir)
	if !strings.Contains(out, "swarm ready") || !strings.Contains(out, "crow-03") {
		t.Fatalf("missing entries in %q", out)
	}
	if strings.Contains(out, "hidden detail") {
		t.Fatalf("debug entry written at info level: %q", out)
	}
}

func TestJSONLoggerVerboseWritesDebug(t *testing.T) {
	projectDir := t.TempDir()
	logger, err := New(projectDir, Options{Level: "error", Format: "json", Verbose: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Zap().Debug("tick complete", zap.Int("tick", 3))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	line := strings.TrimSpace(readLog(t, projectDir))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("entry is not json: %q: %v", line, err)
	}
	if entry["msg"] != "tick complete" || entry["tick"] != float64(3) {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("missing timestamp key: %v", entry)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Printf("ignored")
	logger.Zap().Info("ignored")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}
