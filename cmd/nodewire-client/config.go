package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/nodewire/pkg/connection"
)

// fileConfig is the optional YAML config file. Flags override anything
// set here. Durations are in milliseconds, matching the backend's own
// configuration units.
type fileConfig struct {
	Endpoint      string   `yaml:"endpoint"`
	APIURL        string   `yaml:"api_url"`
	NexusDir      string   `yaml:"nexus_dir"`
	Compress      bool     `yaml:"compress_workspaces"`
	LogLevel      string   `yaml:"log_level"`
	LogPath       string   `yaml:"log_path"`
	TelemetryAddr string   `yaml:"telemetry_addr"`
	TriggerTypes  []string `yaml:"trigger_types"`

	Connection struct {
		HeartbeatIntervalMS *int  `yaml:"heartbeat_interval_ms"`
		BackoffBaseMS       int   `yaml:"backoff_base_ms"`
		BackoffCapMS        int   `yaml:"backoff_cap_ms"`
		MaxRetries          int   `yaml:"max_retries"`
		AutoReconnect       *bool `yaml:"auto_reconnect"`
	} `yaml:"connection"`
}

// loadFileConfig parses the YAML config at path. An empty path yields the
// zero config.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// connectionConfig folds the file settings into a connection config for
// the given endpoint. Unset file fields keep the package defaults.
func (c fileConfig) connectionConfig(endpoint string) connection.Config {
	cfg := connection.DefaultConfig()
	cfg.Endpoint = endpoint

	if c.Connection.HeartbeatIntervalMS != nil {
		cfg.HeartbeatInterval = time.Duration(*c.Connection.HeartbeatIntervalMS) * time.Millisecond
	}
	if c.Connection.BackoffBaseMS > 0 {
		cfg.BackoffBase = time.Duration(c.Connection.BackoffBaseMS) * time.Millisecond
	}
	if c.Connection.BackoffCapMS > 0 {
		cfg.BackoffCap = time.Duration(c.Connection.BackoffCapMS) * time.Millisecond
	}
	if c.Connection.MaxRetries > 0 {
		cfg.MaxRetries = c.Connection.MaxRetries
	}
	if c.Connection.AutoReconnect != nil {
		cfg.AutoReconnect = *c.Connection.AutoReconnect
	}
	return cfg
}
