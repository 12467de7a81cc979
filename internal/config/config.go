package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Addr        string `yaml:"addr"`
	Debug       bool   `yaml:"debug"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	Log     LogConfig     `yaml:"log"`
	Clock   ClockConfig   `yaml:"clock"`
	Rules   RulesConfig   `yaml:"rules"`
	Session SessionConfig `yaml:"session"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type ClockConfig struct {
	Seconds   int           `yaml:"seconds"`
	Tick      time.Duration `yaml:"tick"`
	AutoStart bool          `yaml:"auto_start"`
}

type RulesConfig struct {
	// KingSafety filters moves that leave the mover's king attacked and enables
	// checkmate/stalemate detection.
	KingSafety bool `yaml:"king_safety"`
}

type SessionConfig struct {
	IdleTTL   time.Duration `yaml:"idle_ttl"`
	EndedTTL  time.Duration `yaml:"ended_ttl"`
	WhiteName string        `yaml:"white_name"`
	BlackName string        `yaml:"black_name"`
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		Addr: ":8080",
		Log:  LogConfig{Level: "info", Format: "console"},
		Clock: ClockConfig{
			Seconds:   600,
			Tick:      time.Second,
			AutoStart: true,
		},
		Session: SessionConfig{
			IdleTTL:   24 * time.Hour,
			EndedTTL:  10 * time.Minute,
			WhiteName: "Player 1",
			BlackName: "Player 2",
		},
	}
}

// Load reads .env (if present), then the optional YAML file at path, then
// environment overrides.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("CLICKCHESS_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("CLOCK_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Clock.Seconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("KING_SAFETY")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Rules.KingSafety = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTTL = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	if c.Clock.Seconds < 0 {
		return errors.New("clock.seconds must not be negative")
	}
	if c.Clock.Tick <= 0 {
		return errors.New("clock.tick must be positive")
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session.idle_ttl must be positive")
	}
	if c.Session.EndedTTL < 0 {
		return errors.New("session.ended_ttl must not be negative")
	}
	return nil
}
