// control/config.go
// Author: momentics <momentics@gmail.com>
//
// File configuration for the demo programs and the facade.

package control

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a client or server process.
type Config struct {
	Address        string   `yaml:"address"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	WriteTimeout   Duration `yaml:"write_timeout"`
	ChunkSize      int      `yaml:"chunk_size"`
	DataEvents     bool     `yaml:"data_events"`
	Workers        int      `yaml:"workers"` // 0 keeps stream I/O on the loop
	BatchSize      int      `yaml:"batch_size"`
	LoopCPU        int      `yaml:"loop_cpu"` // -1 leaves the loop unpinned
	MetricsAddr    string   `yaml:"metrics_addr"`
	LogLevel       string   `yaml:"log_level"`
	Response       string   `yaml:"response"`
}

// DefaultConfig returns the defaults used when a key is absent.
func DefaultConfig() *Config {
	return &Config{
		Address:        fmt.Sprintf("127.0.0.1:%d", api.DefaultPort),
		ConnectTimeout: Duration{10 * time.Second},
		ReadTimeout:    Duration{5 * time.Second},
		WriteTimeout:   Duration{5 * time.Second},
		ChunkSize:      1024,
		BatchSize:      64,
		LoopCPU:        -1,
		LogLevel:       "info",
		Response:       "Ahoy, client!",
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.Endpoint(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Endpoint parses Address.
func (c *Config) Endpoint() (api.Address, error) {
	return api.ParseAddress(c.Address)
}

// Level maps LogLevel onto slog levels; unknown names mean info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Duration is a time.Duration written as "10s" in YAML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
