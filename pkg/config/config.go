package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/idlehook/pkg/idle"
)

// Config holds all configuration for idlehook
type Config struct {
	// Control socket
	Socket string `yaml:"socket" env:"IDLEHOOK_SOCKET"`

	// Behavior flags
	Once              bool `yaml:"once" env:"IDLEHOOK_ONCE"`
	NotWhenFullscreen bool `yaml:"not_when_fullscreen" env:"IDLEHOOK_NOT_WHEN_FULLSCREEN"`
	NotWhenAudio      bool `yaml:"not_when_audio" env:"IDLEHOOK_NOT_WHEN_AUDIO"`
	DetectSleep       bool `yaml:"detect_sleep" env:"IDLEHOOK_DETECT_SLEEP"`

	// IdleSource is one of auto, x11, xprintidle, tmux or ioreg.
	IdleSource string `yaml:"idle_source" env:"IDLEHOOK_IDLE_SOURCE"`

	// PTY runs timer commands on a pseudo-terminal.
	PTY bool `yaml:"pty"`

	// Timers in chain order
	Timers []Timer `yaml:"timers"`
}

// Timer describes one timer of the chain. Commands are run through /bin/sh.
type Timer struct {
	Duration     Duration `yaml:"duration"`
	Activation   string   `yaml:"activation"`
	Abortion     string   `yaml:"abortion"`
	Deactivation string   `yaml:"deactivation"`
	Disabled     bool     `yaml:"disabled"`
}

// Duration accepts a Go duration string or a number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ParseDuration parses "90s", "1m30s" or a bare number of seconds such
// as "90" or "1.5". Negative durations are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d = time.Duration(secs * float64(time.Second))
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
	}

	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must be non-negative", s)
	}
	return d, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		IdleSource: string(idle.Auto),
	}
}

// Load loads configuration from file and environment. An explicit path
// must exist; the default locations are optional.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && (explicit || !os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv("IDLEHOOK_CONFIG"); path != "" {
		return path
	}

	// Check XDG config directory
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "idlehook", "config.yaml")
	}

	// Fall back to home directory
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "idlehook", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if socket := os.Getenv("IDLEHOOK_SOCKET"); socket != "" {
		cfg.Socket = socket
	}

	if source := os.Getenv("IDLEHOOK_IDLE_SOURCE"); source != "" {
		cfg.IdleSource = source
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"IDLEHOOK_ONCE", &cfg.Once},
		{"IDLEHOOK_NOT_WHEN_FULLSCREEN", &cfg.NotWhenFullscreen},
		{"IDLEHOOK_NOT_WHEN_AUDIO", &cfg.NotWhenAudio},
		{"IDLEHOOK_DETECT_SLEEP", &cfg.DetectSleep},
	}
	for _, f := range flags {
		if err := envBool(f.name, f.dst); err != nil {
			return err
		}
	}

	return nil
}

func envBool(name string, dst *bool) error {
	value := os.Getenv(name)
	switch value {
	case "":
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid %s value: %q (use true/false)", name, value)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := idle.ParseKind(c.IdleSource); err != nil {
		return fmt.Errorf("idle_source: %w", err)
	}

	for i, t := range c.Timers {
		if t.Duration < 0 {
			return fmt.Errorf("timers[%d].duration must be non-negative", i)
		}
	}

	return nil
}

// SplitTimers removes every "--timer DURATION ACTIVATION ABORTION" triple
// from args and returns the timers in order with the remaining arguments.
// Arguments after "--" are left alone.
func SplitTimers(args []string) ([]Timer, []string, error) {
	var timers []Timer
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		if arg != "--timer" {
			rest = append(rest, arg)
			continue
		}

		if i+3 >= len(args) {
			return nil, nil, fmt.Errorf("--timer needs DURATION ACTIVATION ABORTION, got %d argument(s)", len(args)-i-1)
		}
		d, err := ParseDuration(args[i+1])
		if err != nil {
			return nil, nil, fmt.Errorf("--timer: %w", err)
		}
		timers = append(timers, Timer{
			Duration:   Duration(d),
			Activation: args[i+2],
			Abortion:   args[i+3],
		})
		i += 3
	}

	return timers, rest, nil
}
