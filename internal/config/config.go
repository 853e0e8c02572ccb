// Package config holds daemon configuration, loaded from a YAML file
// under $HOME/.config with built-in defaults for anything unset.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arc-language/omg/internal/paths"
)

// Config holds omg daemon configuration.
type Config struct {
	DataDir          string        `yaml:"data_dir"`
	SocketPath       string        `yaml:"socket_path"`
	Debug            bool          `yaml:"debug"`
	CacheMaxSize     int           `yaml:"cache_max_size"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	StatusTTL        time.Duration `yaml:"status_ttl"`
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
	MmapIdleTimeout  time.Duration `yaml:"mmap_idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	Logger           *log.Logger   `yaml:"-"`
}

// DefaultConfig returns a configuration with the built-in defaults:
// 1000-entry caches, 300s search TTL, 30s status TTL, 300s refresh cadence,
// 30-minute mmap idle eviction, 30s request timeout.
func DefaultConfig() *Config {
	return &Config{
		DataDir:         paths.DataDir(),
		SocketPath:      paths.SocketPath(),
		Debug:           false,
		CacheMaxSize:    1000,
		CacheTTL:        300 * time.Second,
		StatusTTL:       30 * time.Second,
		RefreshInterval: 300 * time.Second,
		MmapIdleTimeout: 30 * time.Minute,
		RequestTimeout:  30 * time.Second,
	}
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "omg", "config.yaml"), nil
}

// Load reads configuration from path, or the default location if path is
// empty. A missing file is not an error: DefaultConfig is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, or the default location if path is empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
