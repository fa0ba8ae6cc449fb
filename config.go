package loggery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied by normalize when a field is unset or out of range.
const (
	DefaultAddr       = ":7717"
	DefaultRefreshMs  = 1000
	MinRefreshFloorMs = 200
	DefaultIdleMs     = 120_000
	DefaultQueueSize  = 32
	DefaultFailLimit  = 3
	DefaultLevelName  = "trace"
	DefaultFormatName = "text"
)

// Config controls the in-process logger and its viewer. All durations
// are integer milliseconds in the file so the TOML stays plain numbers.
type Config struct {
	Capacity   int    `toml:"capacity"`
	Level      string `toml:"level"`
	Pattern    string `toml:"pattern"`
	TimeLayout string `toml:"time_layout"`
	UTC        bool   `toml:"utc"`
	Color      bool   `toml:"color"`
	Caller     bool   `toml:"caller"`
	Format     string `toml:"format"`

	Viewer ViewerConfig `toml:"viewer"`
}

// ViewerConfig is the [viewer] table.
type ViewerConfig struct {
	Addr          string `toml:"addr"`
	RefreshMs     int    `toml:"refresh_ms"`
	MinRefreshMs  int    `toml:"min_refresh_ms"`
	IdleTimeoutMs int    `toml:"idle_timeout_ms"`
	QueueSize     int    `toml:"queue_size"`
	FailureLimit  int    `toml:"failure_limit"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		Level:      DefaultLevelName,
		Pattern:    DefaultPattern,
		TimeLayout: DefaultTimeLayout,
		Color:      true,
		Format:     DefaultFormatName,
		Viewer: ViewerConfig{
			Addr:          DefaultAddr,
			RefreshMs:     DefaultRefreshMs,
			MinRefreshMs:  MinRefreshFloorMs,
			IdleTimeoutMs: DefaultIdleMs,
			QueueSize:     DefaultQueueSize,
			FailureLimit:  DefaultFailLimit,
		},
	}
}

// LoadConfig reads a TOML config file. A missing file is not an error;
// it yields the defaults so a fresh checkout runs without setup.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize clamps out-of-range values back to defaults instead of
// failing, so a partially wrong file still starts the process.
func (c *Config) normalize() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if _, err := ParseLevel(c.Level); err != nil {
		c.Level = DefaultLevelName
	}
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.TimeLayout == "" {
		c.TimeLayout = DefaultTimeLayout
	}
	if c.Format != "json" {
		c.Format = DefaultFormatName
	}
	c.Viewer.Normalize()
}

// Normalize clamps out-of-range viewer settings back to defaults. The
// viewer server calls this itself so a hand-built ViewerConfig behaves
// like a loaded one.
func (v *ViewerConfig) Normalize() {
	if v.Addr == "" {
		v.Addr = DefaultAddr
	}
	if v.MinRefreshMs <= 0 {
		v.MinRefreshMs = MinRefreshFloorMs
	}
	if v.RefreshMs <= 0 {
		v.RefreshMs = DefaultRefreshMs
	}
	if v.RefreshMs < v.MinRefreshMs {
		v.RefreshMs = v.MinRefreshMs
	}
	if v.IdleTimeoutMs <= 0 {
		v.IdleTimeoutMs = DefaultIdleMs
	}
	if v.QueueSize <= 0 {
		v.QueueSize = DefaultQueueSize
	}
	if v.FailureLimit <= 0 {
		v.FailureLimit = DefaultFailLimit
	}
}

// MinLevel returns the configured default level, already validated by
// normalize.
func (c Config) MinLevel() Level {
	return ParseLevelDefault(c.Level, LevelTrace)
}

// Refresh returns the default streaming interval.
func (v ViewerConfig) Refresh() time.Duration {
	return time.Duration(v.RefreshMs) * time.Millisecond
}

// MinRefresh returns the lowest interval a client may request.
func (v ViewerConfig) MinRefresh() time.Duration {
	return time.Duration(v.MinRefreshMs) * time.Millisecond
}

// IdleTimeout returns how long a subscription may sit idle before the
// sweeper drops it.
func (v ViewerConfig) IdleTimeout() time.Duration {
	return time.Duration(v.IdleTimeoutMs) * time.Millisecond
}

// ClampRefresh bounds a client-requested interval. Non-positive values
// fall back to the default; values below the floor are raised to it.
func (v ViewerConfig) ClampRefresh(ms int) time.Duration {
	if ms <= 0 {
		ms = v.RefreshMs
	}
	if ms < v.MinRefreshMs {
		ms = v.MinRefreshMs
	}
	return time.Duration(ms) * time.Millisecond
}
