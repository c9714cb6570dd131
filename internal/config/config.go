// Package config handles rig tool and server configuration.
package config

import (
	"fmt"
	"time"
)

// Config holds all settings shared by rigserver and rigtool.
type Config struct {
	Assets   AssetsConfig   `yaml:"assets"`
	Playback PlaybackConfig `yaml:"playback"`
	Server   ServerConfig   `yaml:"server"`
	Preview  PreviewConfig  `yaml:"preview"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AssetsConfig holds asset locations. Patterns are globs relative to Dir.
type AssetsConfig struct {
	Dir         string   `yaml:"dir"`
	Skeletons   []string `yaml:"skeletons"`
	Clips       []string `yaml:"clips"`
	Controllers []string `yaml:"controllers"`
}

// PlaybackConfig holds simulation timing.
type PlaybackConfig struct {
	TickRate  int     `yaml:"tick_rate"`  // resolves per second
	TimeScale float32 `yaml:"time_scale"` // 1 = real time
}

// TickInterval returns the duration of one simulation tick.
func (p PlaybackConfig) TickInterval() time.Duration {
	if p.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(p.TickRate)
}

// ServerConfig holds inspect server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
}

// PreviewConfig holds snapshot rendering settings.
type PreviewConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float32 `yaml:"scale"`  // pixels per model unit
	Format string  `yaml:"format"` // webp or png
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			Dir:         "assets",
			Skeletons:   []string{"skeletons/*.yaml"},
			Clips:       []string{"clips/*.yaml"},
			Controllers: []string{"controllers/*.yaml"},
		},
		Playback: PlaybackConfig{
			TickRate:  30,
			TimeScale: 1,
		},
		Server: ServerConfig{
			Addr:              "127.0.0.1:8420",
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			PingInterval:      30 * time.Second,
		},
		Preview: PreviewConfig{
			Width:  256,
			Height: 256,
			Scale:  6,
			Format: "webp",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the commands cannot run with.
func (c *Config) Validate() error {
	if c.Playback.TickRate <= 0 || c.Playback.TickRate > 1000 {
		return fmt.Errorf("playback.tick_rate must be in 1..1000, got %d", c.Playback.TickRate)
	}
	if c.Playback.TimeScale <= 0 {
		return fmt.Errorf("playback.time_scale must be positive, got %v", c.Playback.TimeScale)
	}
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		return fmt.Errorf("preview size must be positive, got %dx%d", c.Preview.Width, c.Preview.Height)
	}
	switch c.Preview.Format {
	case "webp", "png":
	default:
		return fmt.Errorf("preview.format must be webp or png, got %q", c.Preview.Format)
	}
	if c.Server.PingInterval <= 0 {
		return fmt.Errorf("server.ping_interval must be positive, got %v", c.Server.PingInterval)
	}
	return nil
}
