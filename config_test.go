package coop

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coop.toml")
	data := `
stack-size = 32768
frame-interval = "5ms"
verbosity = 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StackSize != 32768 {
		t.Errorf("stack size: %d", cfg.StackSize)
	}
	if time.Duration(cfg.FrameInterval) != 5*time.Millisecond {
		t.Errorf("frame interval: %v", time.Duration(cfg.FrameInterval))
	}
	if cfg.Verbosity != 2 {
		t.Errorf("verbosity: %d", cfg.Verbosity)
	}
	// Absent keys keep their defaults.
	if cfg.TraceDepth != 0 {
		t.Errorf("trace depth: %d", cfg.TraceDepth)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected an error")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coop.toml")
	if err := os.WriteFile(path, []byte(`frame-interval = "fast"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error")
	}
}

func TestWithConfig(t *testing.T) {
	s := NewScheduler(WithConfig(Config{
		StackSize:     8 << 10,
		FrameInterval: Duration(4 * time.Millisecond),
		TraceDepth:    16,
	}))
	defer s.Close()

	if s.stackSize != 8<<10 {
		t.Errorf("stack size: %d", s.stackSize)
	}
	if s.frameInterval != 4*time.Millisecond {
		t.Errorf("frame interval: %v", s.frameInterval)
	}
	if s.Trace() == nil {
		t.Error("trace not enabled")
	}
}
