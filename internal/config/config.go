package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all report settings, populated from environment variables.
type Config struct {
	RequestsPath      string
	CanopyPath        string
	DateLayout        string
	CanopyKeyColumn   string
	CanopyValueColumn string

	LogLevel   string
	LogFormat  string
	RunTimeout time.Duration

	// ConsoleRowLimit caps rows per printed table; 0 prints everything.
	ConsoleRowLimit int
	XLSXPath        string

	// Kafka summary publication.
	KafkaBrokers      []string
	KafkaEnabled      bool
	KafkaSummaryTopic string

	PushgatewayURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	runTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("RUN_TIMEOUT", "5m"))
	if err != nil || runTimeout <= 0 {
		return nil, errors.New("invalid RUN_TIMEOUT")
	}

	rowLimit, err := strconv.Atoi(sharedcfg.EnvOrDefault("CONSOLE_ROW_LIMIT", "20"))
	if err != nil || rowLimit < 0 {
		return nil, errors.New("invalid CONSOLE_ROW_LIMIT")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		RequestsPath:      sharedcfg.EnvOrDefault("REQUESTS_PATH", "data/Forestry_Service_Requests.csv"),
		CanopyPath:        sharedcfg.EnvOrDefault("CANOPY_PATH", "data/Tree_Canopy_Community_District.csv"),
		DateLayout:        sharedcfg.EnvOrDefault("DATE_LAYOUT", "01/02/2006 15:04:05"),
		CanopyKeyColumn:   sharedcfg.EnvOrDefault("CANOPY_KEY_COLUMN", "CommunityDistrict"),
		CanopyValueColumn: sharedcfg.EnvOrDefault("CANOPY_VALUE_COLUMN", "CanopyCover"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		RunTimeout:        runTimeout,
		ConsoleRowLimit:   rowLimit,
		XLSXPath:          os.Getenv("XLSX_PATH"),
		KafkaBrokers:      brokers,
		KafkaEnabled:      kafkaEnabled,
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "forestry-canopy-summaries"),
		PushgatewayURL:    os.Getenv("PUSHGATEWAY_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. cmd/report calls it again after
// applying flag overrides.
func (c *Config) Validate() error {
	if c.RequestsPath == "" {
		return errors.New("REQUESTS_PATH is required")
	}
	if c.CanopyPath == "" {
		return errors.New("CANOPY_PATH is required")
	}
	if c.CanopyKeyColumn == "" || c.CanopyValueColumn == "" {
		return errors.New("CANOPY_KEY_COLUMN and CANOPY_VALUE_COLUMN are required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if c.KafkaEnabled && c.KafkaSummaryTopic == "" {
		return errors.New("KAFKA_SUMMARY_TOPIC is required when Kafka is enabled")
	}
	return nil
}
