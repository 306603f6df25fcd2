package common

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Input    InputConfig
	Registry RegistryConfig
	Output   OutputConfig
	Batch    BatchConfig
}

// InputConfig holds document-acquisition configuration.
type InputConfig struct {
	Dir      string
	Watch    bool
	Debounce time.Duration
}

// RegistryConfig holds customer-registry configuration.
type RegistryConfig struct {
	WorkbookPath string
	SheetName    string
}

// OutputConfig holds result-sink configuration.
type OutputConfig struct {
	WorkbookPath string
	HistoryDB    string
}

// BatchConfig holds worker-pool configuration.
type BatchConfig struct {
	Workers          int
	QueueSize        int
	DocTimeout       time.Duration
	FullCompensation bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:      getEnv("INVOICE_INPUT_DIR", ""),
			Watch:    getEnvAsBool("INVOICE_WATCH", false),
			Debounce: getEnvAsDuration("INVOICE_WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Registry: RegistryConfig{
			WorkbookPath: getEnv("REGISTRY_WORKBOOK", ""),
			SheetName:    getEnv("REGISTRY_SHEET", "Controle"),
		},
		Output: OutputConfig{
			WorkbookPath: getEnv("OUTPUT_WORKBOOK", ""),
			HistoryDB:    getEnv("HISTORY_DB", "invoices.db"),
		},
		Batch: BatchConfig{
			Workers:          getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize:        getEnvAsInt("BATCH_QUEUE_SIZE", 256),
			DocTimeout:       getEnvAsDuration("BATCH_DOC_TIMEOUT", time.Minute),
			FullCompensation: getEnvAsBool("CALC_FULL_COMPENSATION", false),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return errors.New("INVOICE_INPUT_DIR is required")
	}
	if c.Registry.WorkbookPath == "" {
		return errors.New("REGISTRY_WORKBOOK is required")
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 1
	}
	return nil
}
