package coop

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dispatchrun/coop/internal/eventloop"
)

// Duration wraps time.Duration so TOML values can be written as "16.7ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config carries the tunables for a scheduler and its host loop.
type Config struct {
	StackSize     int      `toml:"stack-size"`
	FrameInterval Duration `toml:"frame-interval"`
	TraceDepth    int      `toml:"trace-depth"`
	Verbosity     int      `toml:"verbosity"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		StackSize:     DefaultStackSize,
		FrameInterval: Duration(eventloop.DefaultFrameInterval),
	}
}

// LoadConfig reads a TOML config file, with defaults for absent keys.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("coop: config: %w", err)
	}
	return cfg, nil
}

// WithConfig applies cfg to a scheduler.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		if cfg.StackSize > 0 {
			s.stackSize = cfg.StackSize
		}
		if cfg.FrameInterval > 0 {
			s.frameInterval = time.Duration(cfg.FrameInterval)
		}
		if cfg.TraceDepth > 0 {
			s.trace = newTrace(cfg.TraceDepth)
		}
	}
}
