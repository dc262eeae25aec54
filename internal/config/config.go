// Package config builds the immutable run configuration from defaults, an
// optional YAML file and command line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luki/twatch/internal/capture"
	"github.com/luki/twatch/internal/series"
	"github.com/luki/twatch/internal/store"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	ModeTrigger = "trigger"
	ModeCount   = "count"
)

// Config is built once and then passed by value.
type Config struct {
	SessionDir    string `yaml:"session_dir"`
	DelayMS       int    `yaml:"delay_ms"`
	Mode          string `yaml:"mode"`
	Lower         int    `yaml:"lower"`
	Upper         int    `yaml:"upper"`
	Captures      int    `yaml:"captures"`
	Source        string `yaml:"source"`
	HwmonRoot     string `yaml:"hwmon_root"`
	Nvidia        bool   `yaml:"nvidia"`
	Smartctl      bool   `yaml:"smartctl"`
	RecordUnknown bool   `yaml:"record_unknown"`
	ShowUnknown   bool   `yaml:"show_unknown"`
	TUI           bool   `yaml:"tui"`
	Plot          bool   `yaml:"plot"`
	KeyBy         string `yaml:"key_by"`
	PowerRoot     string `yaml:"power_root"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		SessionDir: store.DefaultDir,
		DelayMS:    250,
		Mode:       ModeTrigger,
		Lower:      40,
		Upper:      70,
		Captures:   250,
		Source:     "hwmon",
		TUI:        true,
		Plot:       true,
		KeyBy:      "class",
	}
}

// Load overlays the YAML file at path onto the defaults. Unknown keys are
// rejected so typos do not silently fall back to defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

// Interval returns the poll interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// Policy returns the termination policy selected by Mode.
func (c Config) Policy() capture.Policy {
	if c.Mode == ModeCount {
		return capture.CaptureLimit{Target: c.Captures}
	}
	return capture.TemperatureTrigger{Lower: c.Lower, Upper: c.Upper}
}

// KeyPolicy returns the series grouping used for plots.
func (c Config) KeyPolicy() series.KeyPolicy {
	p, _ := series.ParseKeyPolicy(c.KeyBy)
	return p
}

// Validate rejects configurations that could never run or terminate.
func (c Config) Validate() error {
	if c.DelayMS <= 0 {
		return fmt.Errorf("%w: delay must be positive, got %dms", ErrInvalid, c.DelayMS)
	}
	if c.SessionDir == "" {
		return fmt.Errorf("%w: session directory is empty", ErrInvalid)
	}
	switch c.Mode {
	case ModeTrigger, ModeCount:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, c.Mode)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Source {
	case "hwmon", "lm-sensors", "gopsutil":
	default:
		return fmt.Errorf("%w: unknown sensor source %q", ErrInvalid, c.Source)
	}
	if _, err := series.ParseKeyPolicy(c.KeyBy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
