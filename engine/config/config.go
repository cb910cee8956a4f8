// Package config loads the settings of the triangle host from an optional TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/pelletier/go-toml/v2"
)

// Window holds the initial window settings.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Log holds the logging settings.
type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

// Profiling holds the frame counter settings.
type Profiling struct {
	// Enabled reports frame rates from a background poller instead of from the render path.
	Enabled bool `toml:"enabled"`
	// MemoryStats adds Go runtime memory statistics to every report.
	MemoryStats bool `toml:"memory_stats"`
	// Interval is the report window, e.g. "1s".
	Interval string `toml:"interval"`
}

// GPU holds the adapter settings.
type GPU struct {
	ForceFallbackAdapter bool `toml:"force_fallback_adapter"`
}

// Config is the full host configuration. The zero value of every field means "use the default".
type Config struct {
	Window    Window    `toml:"window"`
	Log       Log       `toml:"log"`
	Profiling Profiling `toml:"profiling"`
	GPU       GPU       `toml:"gpu"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: Window{
			Title:  "Triangle",
			Width:  1024,
			Height: 768,
		},
		Log: Log{
			Level: "info",
		},
		Profiling: Profiling{
			Interval: "1s",
		},
	}
}

// Load reads and parses the TOML file at path. An empty path returns the defaults.
//
// Parameters:
//   - path: the file to read, or ""
//
// Returns:
//   - Config: the parsed configuration with defaults filled in
//   - error: an error if the file cannot be read or is invalid
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data. Unknown keys are rejected and missing keys take their defaults.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the parsed configuration with defaults filled in
//   - error: an error if the document is malformed or a value is out of range
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	def := Default()
	cfg.Window.Title = common.Coalesce(cfg.Window.Title, def.Window.Title)
	cfg.Window.Width = common.Coalesce(cfg.Window.Width, def.Window.Width)
	cfg.Window.Height = common.Coalesce(cfg.Window.Height, def.Window.Height)
	cfg.Log.Level = common.Coalesce(cfg.Log.Level, def.Log.Level)
	cfg.Profiling.Interval = common.Coalesce(cfg.Profiling.Interval, def.Profiling.Interval)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: the first invalid value found, or nil
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.ReportInterval(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
//
// Returns:
//   - slog.Level: the parsed level
//   - error: an error if the level name is unknown
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// ReportInterval parses Profiling.Interval.
//
// Returns:
//   - time.Duration: the frame counter report window
//   - error: an error if the interval is malformed or not positive
func (c Config) ReportInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Profiling.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid profiling interval %q: %w", c.Profiling.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("profiling interval must be positive, got %s", d)
	}
	return d, nil
}
