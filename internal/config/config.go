package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Admin surface
	AdminAPIKey string `env:"ADMIN_API_KEY,required,notEmpty"`

	// Access code ledger backend: file, postgres or redis
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"file"`
	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`

	// File storage backend: local or s3
	StorageType        string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageDir         string `env:"STORAGE_DIR" envDefault:"local_storage"`
	S3Bucket           string `env:"S3_BUCKET"`
	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Vision / summarization model
	VisionAPIKey  string `env:"ANTHROPIC_API_KEY"`
	VisionModel   string `env:"VISION_MODEL" envDefault:"claude-3-7-sonnet-20250219"`
	VisionBaseURL string `env:"VISION_BASE_URL" envDefault:"https://api.anthropic.com"`

	// Product data index
	ProductDataDir string `env:"PRODUCT_DATA_DIR" envDefault:"product_data"`

	// Stored report/feedback retention, in days; 0 disables pruning
	RetentionDays int `env:"RETENTION_DAYS" envDefault:"0"`

	// Bundled frontend
	StaticDir string `env:"STATIC_DIR" envDefault:"static"`

	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"26214400"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case "file":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when LEDGER_BACKEND=postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LEDGER_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q (expected file, postgres or redis)", c.LedgerBackend)
	}

	switch c.StorageType {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_TYPE=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q (expected local or s3)", c.StorageType)
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
