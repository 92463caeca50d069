package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"currency-gateway/internal"
)

type Config struct {
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	ExcludedCurrencies string `env:"EXCLUDED_CURRENCIES" env-default:"TRY,PLN,THB,MXN"`

	HTTPServer HTTPServerConfig
	Cache      CacheConfig
	Upstream   UpstreamConfig
	Providers  ProvidersConfig
	Refresh    RefreshConfig
}

type HTTPServerConfig struct {
	Port         string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type CacheConfig struct {
	TTL time.Duration `env:"CACHE_TTL" env-default:"60m"`
}

type UpstreamConfig struct {
	Timeout               time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"30s"`
	RetryMax              int           `env:"UPSTREAM_RETRY_MAX" env-default:"3"`
	RetryBaseDelay        time.Duration `env:"UPSTREAM_RETRY_BASE_DELAY" env-default:"2s"`
	BreakerFailureRatio   float64       `env:"BREAKER_FAILURE_RATIO" env-default:"0.5"`
	BreakerMinThroughput  int           `env:"BREAKER_MIN_THROUGHPUT" env-default:"10"`
	BreakerSamplingWindow time.Duration `env:"BREAKER_SAMPLING_WINDOW" env-default:"30s"`
	BreakerBreakDuration  time.Duration `env:"BREAKER_BREAK_DURATION" env-default:"30s"`
}

type ProvidersConfig struct {
	Default        string `env:"DEFAULT_PROVIDER" env-default:"frankfurter"`
	FrankfurterURL string `env:"FRANKFURTER_URL" env-default:"https://api.frankfurter.app"`
	FixerURL       string `env:"FIXER_URL" env-default:"https://data.fixer.io/api"`
	FixerAPIKey    string `env:"FIXER_API_KEY"`
}

type RefreshConfig struct {
	CronSpec string `env:"REFRESH_CRON" env-default:"@every 30m"`
	Bases    string `env:"REFRESH_BASES" env-default:"EUR,USD"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

func (c *Config) ExcludedCodes() []internal.CurrencyCode {
	return splitCodes(c.ExcludedCurrencies)
}

func (c *Config) RefreshBases() []internal.CurrencyCode {
	return splitCodes(c.Refresh.Bases)
}

func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitCodes(s string) []internal.CurrencyCode {
	parts := strings.Split(s, ",")
	codes := make([]internal.CurrencyCode, 0, len(parts))
	for _, p := range parts {
		ccy, err := internal.NewCurrencyCode(p)
		if err != nil {
			continue
		}
		codes = append(codes, ccy)
	}
	return codes
}
