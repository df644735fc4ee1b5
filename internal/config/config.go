package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SessionConfig holds the shared secret used to verify session tokens
// issued by the external authentication service. This service never issues
// tokens; it only extracts the caller identity when a valid token is sent.
type SessionConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ReferralConfig carries the abuse-prevention policy constants.
type ReferralConfig struct {
	BanThreshold int           `yaml:"ban_threshold"` // failed attempts before a ban
	BanWindow    time.Duration `yaml:"ban_window"`    // how long a ban lasts
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Referral ReferralConfig `yaml:"referral"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Referral.BanThreshold <= 0 {
		cfg.Referral.BanThreshold = 5
	}
	if cfg.Referral.BanWindow <= 0 {
		cfg.Referral.BanWindow = 24 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Admin.APIKey == "" {
		return nil, errors.New("admin.api_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
