package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBDir       string     `env:"DB_DIR" envDefault:"data"`
	DatasetPath string     `env:"DATASET_PATH" envDefault:"data/countries.json"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	Difficulty  string     `env:"DIFFICULTY" envDefault:"easy"`

	// Enrichment service. The API key can also be set at runtime through
	// the settings endpoint; an empty key disables enrichment.
	OracleURL     string        `env:"ORACLE_URL" envDefault:"https://api.openai.com/v1/chat/completions"`
	OracleModel   string        `env:"ORACLE_MODEL" envDefault:"gpt-4o-mini"`
	OracleAPIKey  string        `env:"ORACLE_API_KEY"`
	OracleTimeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"60s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
