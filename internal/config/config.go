package config

import (
	"fmt"

	"fenrir/internal/logging"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BookAVL   = "avl"
	BookBTree = "btree"
)

// Config represents the application configuration.
type Config struct {
	App    AppConfig    `envPrefix:"APP_"`
	Engine EngineConfig `envPrefix:"ENGINE_"`
}

// AppConfig represents the process level configuration.
type AppConfig struct {
	Name      string `env:"NAME" envDefault:"fenrir"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// EngineConfig represents the matching engine configuration.
type EngineConfig struct {
	// BookKind selects the price index behind each book.
	BookKind  string `env:"BOOK" envDefault:"avl"`
	QueueSize int    `env:"QUEUE_SIZE" envDefault:"100"`
}

// Load loads the configuration from the environment, after merging in any
// of the given .env files (or ./.env when none are named) that exist.
func Load(files ...string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Engine.BookKind {
	case BookAVL, BookBTree:
	default:
		return fmt.Errorf("invalid config: unknown book kind %q", cfg.Engine.BookKind)
	}
	switch cfg.App.LogFormat {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid config: unknown log format %q", cfg.App.LogFormat)
	}
	if cfg.Engine.QueueSize <= 0 {
		return fmt.Errorf("invalid config: queue size must be positive, got %d", cfg.Engine.QueueSize)
	}
	return nil
}
