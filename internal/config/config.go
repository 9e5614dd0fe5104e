// Package config содержит логику чтения конфигурации админ-шлюза.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации админ-шлюза.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	UpstreamAddress   string        `env:"UPSTREAM_API_ADDRESS"`
	IFSCLookupAddress string        `env:"IFSC_LOOKUP_ADDRESS"`
	OrderCachePath    string        `env:"ORDER_CACHE_PATH"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envUpstream := cfg.UpstreamAddress
	envIFSC := cfg.IFSCLookupAddress
	envCachePath := cfg.OrderCachePath
	envSecret := cfg.SessionSecret
	envInterval := cfg.RefreshInterval

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.UpstreamAddress, "u", "", "business backend API address")
	flag.StringVar(&cfg.IFSCLookupAddress, "i", "https://ifsc.razorpay.com", "IFSC lookup service address")
	flag.StringVar(&cfg.OrderCachePath, "c", "orders-cache.db", "fallback order cache file")
	flag.StringVar(&cfg.SessionSecret, "s", "", "secret for signing session cookies")
	flag.DurationVar(&cfg.RefreshInterval, "t", 5*time.Minute, "orders refresh interval")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envUpstream != "" {
		cfg.UpstreamAddress = envUpstream
	}
	if envIFSC != "" {
		cfg.IFSCLookupAddress = envIFSC
	}
	if envCachePath != "" {
		cfg.OrderCachePath = envCachePath
	}
	if envSecret != "" {
		cfg.SessionSecret = envSecret
	}
	if envInterval != 0 {
		cfg.RefreshInterval = envInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}

	return cfg, nil
}
