package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr          string `yaml:"addr"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		TTL           string `yaml:"ttl"`
		Channel       string `yaml:"channel"`
		MetricsPrefix string `yaml:"metricsPrefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Leaderboard struct {
		Limit int `yaml:"limit"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// NotificationChannel returns the Redis pub/sub channel for award notifications.
func (c Config) NotificationChannel() string {
	if c.Redis.Channel == "" {
		return "progression:notifications"
	}
	return c.Redis.Channel
}

// MetricsPrefix returns the key prefix of per-user metric hashes.
func (c Config) MetricsPrefix() string {
	if c.Redis.MetricsPrefix == "" {
		return "metrics:"
	}
	return c.Redis.MetricsPrefix
}
