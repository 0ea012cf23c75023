package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scmregistry/core/pkg/log"
	"github.com/scmregistry/core/pkg/registry"
)

// Config is the on-disk deployment configuration for one SCM instance.
type Config struct {
	NodeID   string `yaml:"nodeId"`
	BindAddr string `yaml:"bindAddr"`
	DataDir  string `yaml:"dataDir"`

	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// RegistryConfig maps directly onto registry.Config, using
// time.Duration-parseable strings in YAML (e.g. "90s").
type RegistryConfig struct {
	UseHostname                bool   `yaml:"useHostname"`
	StaleThreshold              string `yaml:"staleThreshold"`
	DeadThreshold                string `yaml:"deadThreshold"`
	ScanInterval                 string `yaml:"scanInterval"`
	DatanodePipelineLimit        int    `yaml:"datanodePipelineLimit"`
	PipelinesPerMetadataVolume   int    `yaml:"pipelinesPerMetadataVolume"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSONOutput bool   `yaml:"jsonOutput"`
}

// MetricsConfig configures the /metrics HTTP listener.
type MetricsConfig struct {
	BindAddr string `yaml:"bindAddr"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return &cfg, nil
}

// ToRegistryConfig converts the YAML registry section into registry.Config,
// falling back to registry.DefaultConfig() for anything left zero.
func (c *Config) ToRegistryConfig() (registry.Config, error) {
	cfg := registry.DefaultConfig()
	cfg.UseHostname = c.Registry.UseHostname

	if c.Registry.StaleThreshold != "" {
		d, err := time.ParseDuration(c.Registry.StaleThreshold)
		if err != nil {
			return registry.Config{}, fmt.Errorf("config: staleThreshold: %w", err)
		}
		cfg.StaleThreshold = d
	}
	if c.Registry.DeadThreshold != "" {
		d, err := time.ParseDuration(c.Registry.DeadThreshold)
		if err != nil {
			return registry.Config{}, fmt.Errorf("config: deadThreshold: %w", err)
		}
		cfg.DeadThreshold = d
	}
	if c.Registry.ScanInterval != "" {
		d, err := time.ParseDuration(c.Registry.ScanInterval)
		if err != nil {
			return registry.Config{}, fmt.Errorf("config: scanInterval: %w", err)
		}
		cfg.ScanInterval = d
	}
	if c.Registry.DatanodePipelineLimit > 0 {
		cfg.DatanodePipelineLimit = c.Registry.DatanodePipelineLimit
	}
	if c.Registry.PipelinesPerMetadataVolume > 0 {
		cfg.PipelinesPerMetadataVolume = c.Registry.PipelinesPerMetadataVolume
	}
	return cfg, nil
}

// ToLogConfig converts the YAML log section into log.Config.
func (c *Config) ToLogConfig() log.Config {
	level := log.InfoLevel
	switch c.Log.Level {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	return log.Config{Level: level, JSONOutput: c.Log.JSONOutput, Output: os.Stdout}
}
