package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"coinbase-pro-go/logger"
	"coinbase-pro-go/rest"
)

// Config represents the application configuration.
type Config struct {
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Exchange ExchangeConfig `yaml:"exchange" envPrefix:"CBPRO_"`
}

// AppConfig represents the process level configuration.
type AppConfig struct {
	Name        string        `yaml:"name" env:"NAME" envDefault:"coinbase-pro-go"`
	Log         logger.Config `yaml:"log"`
	SandboxAddr string        `yaml:"sandboxAddr" env:"SANDBOX_ADDR" envDefault:"localhost:8888"`
	MetricsAddr string        `yaml:"metricsAddr" env:"METRICS_ADDR"`
}

// ExchangeConfig holds the REST endpoint and API credentials.
type ExchangeConfig struct {
	URL        string        `yaml:"url" env:"URL" envDefault:"https://api.exchange.coinbase.com"`
	APIKey     string        `yaml:"apiKey" env:"API_KEY"`
	APISecret  string        `yaml:"apiSecret" env:"API_SECRET"`
	Passphrase string        `yaml:"passphrase" env:"PASSPHRASE"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"10s"`
}

func (e ExchangeConfig) RestConfig() rest.Config {
	return rest.Config{
		URL:        e.URL,
		APIKey:     e.APIKey,
		APISecret:  e.APISecret,
		Passphrase: e.Passphrase,
	}
}

// Default returns the configuration with every envDefault applied.
func Default() Config {
	var cfg Config
	// parsing against an empty environment only applies defaults and cannot fail
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})

	return cfg
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(*cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads a YAML config on top of the defaults, then lets the
// CBPRO_API_KEY, CBPRO_API_SECRET and CBPRO_PASSPHRASE env vars override
// the credentials.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if v := os.Getenv("CBPRO_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("CBPRO_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("CBPRO_PASSPHRASE"); v != "" {
		cfg.Exchange.Passphrase = v
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate ensures required fields are present.
func Validate(cfg Config) error {
	if cfg.Exchange.URL == "" {
		return errors.New("exchange.url is required")
	}
	if cfg.Exchange.Timeout < 0 {
		return errors.New("exchange.timeout must be >= 0")
	}

	set := 0
	for _, v := range []string{cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.Passphrase} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return errors.New("exchange.apiKey/apiSecret/passphrase must be set together")
	}

	return nil
}
