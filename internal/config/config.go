// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// A .env file in the working directory is loaded into the environment first,
// so both sources can read variables defined there.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	limit := cfg.Reconciliation.TransactionLimit
//	dsn := cfg.Ledger.DSN
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxTransactionLimit is the largest page the aggregator serves per account
const MaxTransactionLimit = 1000

// Config represents the entire application configuration
type Config struct {
	Powens          PowensConfig         `yaml:"powens"`
	CredentialsPath string               `yaml:"credentials_path"`
	Reconciliation  ReconciliationConfig `yaml:"reconciliation"`
	Ledger          LedgerConfig         `yaml:"ledger"`
	Kafka           KafkaConfig          `yaml:"kafka"`
	Observability   ObservabilityConfig  `yaml:"observability"`
}

// PowensConfig holds bank aggregation API configuration
type PowensConfig struct {
	Domain   string `yaml:"domain"`
	ClientID string `yaml:"client_id"`
}

// ReconciliationConfig holds the run defaults; CLI flags override them
type ReconciliationConfig struct {
	TransactionLimit int  `yaml:"transaction_limit"`
	CombineTransfers bool `yaml:"combine_transfers"`
	Interactive      bool `yaml:"interactive"`
}

// LedgerConfig holds ledger database configuration. An empty DSN disables the SQL ledger.
type LedgerConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// KafkaConfig holds event publishing configuration. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		CredentialsPath: "credentials.yaml",
		Reconciliation: ReconciliationConfig{
			TransactionLimit: MaxTransactionLimit,
			CombineTransfers: true,
			Interactive:      true,
		},
		Ledger: LedgerConfig{Driver: "sqlite3"},
		Kafka:  KafkaConfig{Topic: "reconciliation.ledger"},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	loadDotEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGER_DSN})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	loadDotEnv()

	defaults := Default()
	return &Config{
		Powens: PowensConfig{
			Domain:   os.Getenv("POWENS_DOMAIN"),
			ClientID: os.Getenv("POWENS_CLIENT_ID"),
		},
		CredentialsPath: getEnv("CREDENTIALS_PATH", defaults.CredentialsPath),
		Reconciliation: ReconciliationConfig{
			TransactionLimit: clampLimit(getEnvInt("TRANSACTION_LIMIT", defaults.Reconciliation.TransactionLimit)),
			CombineTransfers: getEnvBool("COMBINE_TRANSFERS", defaults.Reconciliation.CombineTransfers),
			Interactive:      getEnvBool("INTERACTIVE", defaults.Reconciliation.Interactive),
		},
		Ledger: LedgerConfig{
			Driver: getEnv("LEDGER_DRIVER", defaults.Ledger.Driver),
			DSN:    os.Getenv("LEDGER_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", defaults.Kafka.Topic),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", defaults.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", defaults.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks values that cannot be repaired silently and caps the transaction limit
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported ledger driver %q", c.Ledger.Driver)
	}

	if c.Reconciliation.TransactionLimit < 0 {
		return fmt.Errorf("transaction limit must not be negative, got %d", c.Reconciliation.TransactionLimit)
	}
	c.Reconciliation.TransactionLimit = clampLimit(c.Reconciliation.TransactionLimit)

	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxTransactionLimit {
		return MaxTransactionLimit
	}
	return limit
}

// loadDotEnv loads .env when present; existing variables win
func loadDotEnv() {
	_ = godotenv.Load()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

// SplitList splits a comma-separated list, dropping blank items
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
