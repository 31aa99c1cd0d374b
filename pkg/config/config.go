// Package config loads pulse client settings from YAML with env overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/pulse/pkg/redisstream"
)

const (
	EnvBaseURL  = "PULSE_BASE_URL"
	EnvLanguage = "PULSE_LANGUAGE"
)

type Config struct {
	BaseURL     string               `yaml:"base_url"`
	SearchLimit int                  `yaml:"search_limit"`
	RecentLimit int                  `yaml:"recent_limit"`
	RecentDays  int                  `yaml:"recent_days"`
	Language    string               `yaml:"language"`
	EventLog    string               `yaml:"event_log,omitempty"`
	Redis       redisstream.Settings `yaml:"redis"`
}

func Default() Config {
	return Config{
		BaseURL:     "http://localhost:8000",
		SearchLimit: 20,
		RecentLimit: 64,
		RecentDays:  7,
		Language:    "zh",
		Redis:       redisstream.DefaultSettings(),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/pulse/config.yaml, falling back to the
// platform user config dir.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pulse", "config.yaml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config dir")
	}
	return filepath.Join(dir, "pulse", "config.yaml"), nil
}

// Load reads path over Default and applies env overrides. An empty path uses
// DefaultPath; a missing default file is not an error, a missing explicit
// file is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	cfg.applyEnv(os.Getenv)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := getenv(EnvLanguage); v != "" {
		c.Language = v
	}
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	d := Default()
	if c.SearchLimit <= 0 {
		c.SearchLimit = d.SearchLimit
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = d.RecentLimit
	}
	if c.RecentDays <= 0 {
		c.RecentDays = d.RecentDays
	}
	if c.Language == "" {
		c.Language = d.Language
	}
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("config: base_url %q must be http(s)", c.BaseURL)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("config: redis.addr is required when redis is enabled")
	}
	return nil
}

// Save writes c as YAML, creating parent directories.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return os.WriteFile(path, data, 0o644)
}
