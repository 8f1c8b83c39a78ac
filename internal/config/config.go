package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr   string `yaml:"addr"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`

	Backend struct {
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"api_key"`
		PreMerged       bool    `yaml:"pre_merged"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RateLimit       float64 `yaml:"rate_limit"`
		RateBurst       int     `yaml:"rate_burst"`
	} `yaml:"backend"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Timeline struct {
		DefaultWindowDays int `yaml:"default_window_days"`
		MaxWindowDays     int `yaml:"max_window_days"`
	} `yaml:"timeline"`

	Audit struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"audit"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	return &cfg, nil
}

// DefaultWindowDays is the window length used when a timeline request does
// not specify one.
func (c *Config) DefaultWindowDays() int {
	if c.Timeline.DefaultWindowDays <= 0 {
		return 14
	}
	return c.Timeline.DefaultWindowDays
}

// MaxWindowDays caps the requestable window length.
func (c *Config) MaxWindowDays() int {
	if c.Timeline.MaxWindowDays <= 0 {
		return 90
	}
	return c.Timeline.MaxWindowDays
}

func (c *Config) CacheTTL() time.Duration {
	if c.Backend.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Backend.CacheTTLSeconds) * time.Second
}

func (c *Config) AuditRetention() time.Duration {
	days := c.Audit.RetentionDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}
