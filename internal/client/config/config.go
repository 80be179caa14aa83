// Package config loads the sentinel-agent's configuration from a YAML
// file, with environment variables (and an optional .env file) as the
// primary override mechanism.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the sentinel-agent's runtime configuration.
type Config struct {
	StoreID             string             `yaml:"store_id"`
	StoreName           string             `yaml:"store_name"`
	MonitoringServerURL string             `yaml:"monitoring_server_url"`
	HeartbeatInterval   time.Duration      `yaml:"heartbeat_interval"`
	Buffer              BufferConfig       `yaml:"buffer"`
	NetworkProbe        NetworkProbeConfig `yaml:"network_probe"`
}

// BufferConfig locates the client's durable buffer database.
type BufferConfig struct {
	Path string `yaml:"path"`
}

// NetworkProbeConfig lists the URLs used to measure outbound throughput.
type NetworkProbeConfig struct {
	URLs     []string      `yaml:"urls"`
	Interval time.Duration `yaml:"interval"`
}

// Load reads configuration from a YAML file if present, then applies
// environment variable overrides (loading a local .env file first for
// convenience), and finally fills in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORE_ID"); v != "" {
		cfg.StoreID = v
	}
	if v := os.Getenv("STORE_NAME"); v != "" {
		cfg.StoreName = v
	}
	if v := os.Getenv("MONITORING_SERVER_URL"); v != "" {
		cfg.MonitoringServerURL = v
	}
	if v := os.Getenv("HEARTBEAT_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.HeartbeatInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("BUFFER_PATH"); v != "" {
		cfg.Buffer.Path = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 60 * time.Second
	}
	if cfg.Buffer.Path == "" {
		cfg.Buffer.Path = "data/heartbeat-buffer.db"
	}
	if cfg.NetworkProbe.Interval <= 0 {
		cfg.NetworkProbe.Interval = 30 * time.Minute
	}
	if len(cfg.NetworkProbe.URLs) == 0 {
		cfg.NetworkProbe.URLs = []string{
			"https://www.cloudflare.com/cdn-cgi/trace",
			"https://www.google.com/generate_204",
		}
	}
}

// Validate rejects a config missing the fields the shipper cannot run
// without.
func (cfg *Config) Validate() error {
	if cfg.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	if cfg.MonitoringServerURL == "" {
		return fmt.Errorf("monitoring_server_url is required")
	}
	return nil
}
