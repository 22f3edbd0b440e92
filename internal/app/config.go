package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lukasbauer/fishaudio/internal/costs"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	LiveURL     string `yaml:"live_url"`
	DeveloperID string `yaml:"developer_id"`

	// Live sessions
	LiveCodec    string        `yaml:"live_codec"` // "msgpack" or "json"
	PingInterval time.Duration `yaml:"ping_interval"`

	// Synthesis defaults
	Backend     string `yaml:"backend"`
	ReferenceID string `yaml:"reference_id"`
	ChunkLength int    `yaml:"chunk_length"`

	// Usage ledger, optional
	DatabaseURL string `yaml:"database_url"`

	// Cost estimate rates in cents
	SynthesisCentsPerMillionBytes float64 `yaml:"tts_cents_per_million_bytes"`
	TranscriptionCentsPerHour     float64 `yaml:"asr_cents_per_hour"`

	SentryDSN   string `yaml:"sentry_dsn"`
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`
}

func DefaultConfig() Config {
	rates := costs.DefaultRates()
	return Config{
		BaseURL:      "https://api.fish.audio",
		LiveURL:      "wss://api.fish.audio",
		DeveloperID:  "fishaudio-go",
		LiveCodec:    "msgpack",
		PingInterval: 20 * time.Second,
		ChunkLength:  200,

		SynthesisCentsPerMillionBytes: rates.SynthesisCentsPerMillionBytes,
		TranscriptionCentsPerHour:     rates.TranscriptionCentsPerHour,

		LogLevel:    "info",
		Environment: "development",
	}
}

// LoadConfig starts from the defaults, applies the YAML file at path when
// one is given, then environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	return applyEnv(cfg), nil
}

// LoadConfigFromEnv is LoadConfig without a file.
func LoadConfigFromEnv() Config {
	return applyEnv(DefaultConfig())
}

func applyEnv(cfg Config) Config {
	cfg.APIKey = getenv("FISH_API_KEY", cfg.APIKey)
	cfg.BaseURL = getenv("FISH_BASE_URL", cfg.BaseURL)
	cfg.LiveURL = getenv("FISH_LIVE_URL", cfg.LiveURL)
	cfg.DeveloperID = getenv("FISH_DEVELOPER_ID", cfg.DeveloperID)
	cfg.LiveCodec = getenv("FISH_LIVE_CODEC", cfg.LiveCodec)
	cfg.PingInterval = getenvDuration("FISH_PING_INTERVAL", cfg.PingInterval)
	cfg.Backend = getenv("FISH_BACKEND", cfg.Backend)
	cfg.ReferenceID = getenv("FISH_REFERENCE_ID", cfg.ReferenceID)
	cfg.ChunkLength = getenvIntClamped("FISH_CHUNK_LENGTH", cfg.ChunkLength, 100, 300)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SynthesisCentsPerMillionBytes = getenvFloat("COST_TTS_CENTS_PER_1M_BYTES", cfg.SynthesisCentsPerMillionBytes)
	cfg.TranscriptionCentsPerHour = getenvFloat("COST_ASR_CENTS_PER_HOUR", cfg.TranscriptionCentsPerHour)
	cfg.SentryDSN = getenv("SENTRY_DSN", cfg.SentryDSN)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = getenv("ENVIRONMENT", cfg.Environment)
	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("FISH_API_KEY is required")
	}
	switch c.LiveCodec {
	case "msgpack", "json":
	default:
		return fmt.Errorf("unsupported live codec %q", c.LiveCodec)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Rates returns the configured cost estimate rates.
func (c Config) Rates() costs.Rates {
	return costs.Rates{
		SynthesisCentsPerMillionBytes: c.SynthesisCentsPerMillionBytes,
		TranscriptionCentsPerHour:     c.TranscriptionCentsPerHour,
	}
}

func getenvFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// getenvIntClamped parses an int env var and clamps it to [min, max].
// Unset or invalid values return def.
func getenvIntClamped(k string, def, min, max int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
