package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDebugfRespectsFlag(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil); Debug = false })

	Debug = false
	Debugf("hidden %d", 1)
	Debug = true
	Debugf("shown %d", 2)

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "shown 2" {
		t.Fatalf("expected only the enabled debug line, got %+v", entries)
	}
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "clickchess.log")
	if err := Init(Options{Level: "info", Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { Set(nil) })

	L().Info("session_create", zap.String("session_id", "s1"))
	_ = L().Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"session_id":"s1"`) {
		t.Fatalf("expected structured field in log file, got %s", raw)
	}
}
