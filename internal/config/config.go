package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	ModelID         string
	DataDir         string
	DataFile        string
	GridFile        string
	ArchivePassword string

	Workers         int
	DisaggCacheSize int

	HTTPAddr        string
	MetricsEnabled  bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional publication of key results.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaKeysTopic string
	BatchSize      int
}

// DataPath is the reference workbook archive.
func (c *Config) DataPath() string {
	return filepath.Join(c.DataDir, c.DataFile)
}

// GridPath is the village-grid raster archive.
func (c *Config) GridPath() string {
	return filepath.Join(c.DataDir, c.GridFile)
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	workers, err := parseWorkers()
	if err != nil {
		return nil, err
	}

	topic := os.Getenv("KAFKA_KEYS_TOPIC")
	kafkaEnabled := topic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		ModelID:         sharedcfg.EnvOrDefault("OASIS_MODEL_ID", "CRSEQ"),
		DataDir:         sharedcfg.EnvOrDefault("KEYS_DATA_DIR", "keys_data"),
		DataFile:        sharedcfg.EnvOrDefault("KEYS_DATA_FILE", "crseq_keysdata.dat"),
		GridFile:        sharedcfg.EnvOrDefault("KEYS_GRID_FILE", "crseq_apgrid.dat"),
		ArchivePassword: os.Getenv("KEYS_ARCHIVE_PASSWORD"),
		Workers:         workers,
		DisaggCacheSize: parseDisaggCacheSize(),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		MetricsEnabled:  os.Getenv("METRICS_ENABLED") == "true",
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaKeysTopic:  topic,
		BatchSize:       batchSize,
	}

	if cfg.DataFile == "" {
		return nil, errors.New("KEYS_DATA_FILE is required")
	}
	if cfg.GridFile == "" {
		return nil, errors.New("KEYS_GRID_FILE is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaKeysTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_KEYS_TOPIC is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseWorkers() (int, error) {
	s := os.Getenv("WORKERS")
	if s == "" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid WORKERS %q: must be a positive integer", s)
	}
	return n, nil
}

func parseDisaggCacheSize() int {
	if s := os.Getenv("DISAGG_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
