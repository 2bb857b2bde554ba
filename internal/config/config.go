// Package config loads and validates the yaml configuration of the relay
// binary. The relay library itself takes its tunables as plain structs; this
// package only backs cmd/relay.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"audiosocket-relay/internal/audio/transcode"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig tunes the listener and per-connection queues.
type ServerConfig struct {
	BindAddress     string `yaml:"bind_address"`
	Port            int    `yaml:"port"`
	AcceptTimeoutS  int    `yaml:"accept_timeout"`  // seconds, 0 = block forever
	ReadTimeoutMs   int    `yaml:"read_timeout_ms"` // 0 = default 200ms
	HangupGraceMs   int    `yaml:"hangup_grace_ms"` // 0 = default 200ms
	RxQueueSize     int    `yaml:"rx_queue_size"`
	TxQueueSize     int    `yaml:"tx_queue_size"`
}

// FormatConfig describes one transcoding direction. Disabled means raw 8kHz
// mono passthrough.
type FormatConfig struct {
	Enabled    bool `yaml:"enabled"`
	SampleRate int  `yaml:"sample_rate"`
	Channels   int  `yaml:"channels"`
	MuLaw      bool `yaml:"mu_law"`
}

// AudioConfig holds both transcoding directions.
type AudioConfig struct {
	Input  FormatConfig `yaml:"input"`
	Output FormatConfig `yaml:"output"`
}

// MetricsConfig tunes the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig tunes the global logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates the server section.
func (s *ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", s.Port)
	}
	if s.AcceptTimeoutS < 0 {
		return fmt.Errorf("accept_timeout cannot be negative, got %d", s.AcceptTimeoutS)
	}
	if s.ReadTimeoutMs < 0 {
		return fmt.Errorf("read_timeout_ms cannot be negative, got %d", s.ReadTimeoutMs)
	}
	if s.HangupGraceMs < 0 {
		return fmt.Errorf("hangup_grace_ms cannot be negative, got %d", s.HangupGraceMs)
	}
	if s.RxQueueSize < 0 || s.TxQueueSize < 0 {
		return fmt.Errorf("queue sizes cannot be negative")
	}
	return nil
}

// Validate validates both transcoding directions.
func (a *AudioConfig) Validate() error {
	if err := a.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := a.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// Validate validates one transcoding direction.
func (f *FormatConfig) Validate() error {
	if !f.Enabled {
		return nil
	}
	if f.SampleRate < 8000 || f.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	return nil
}

// Validate validates the metrics section.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}

// Validate validates the logging section.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	return nil
}

// AcceptTimeout returns the accept timeout as a time.Duration.
func (s *ServerConfig) AcceptTimeout() time.Duration {
	return time.Duration(s.AcceptTimeoutS) * time.Second
}

// ReadTimeout returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// HangupGrace returns the hangup grace period as a time.Duration.
func (s *ServerConfig) HangupGrace() time.Duration {
	return time.Duration(s.HangupGraceMs) * time.Millisecond
}

// Format converts a direction to the transcoder's format struct.
func (f *FormatConfig) Format() transcode.Format {
	return transcode.Format{
		SampleRate: uint32(f.SampleRate),
		Channels:   uint16(f.Channels),
		MuLaw:      f.MuLaw,
	}
}
