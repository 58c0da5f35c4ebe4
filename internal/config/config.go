// Package config provides configuration management for the candle exporter.
// Settings are loaded from a JSON file, overridden by environment variables,
// and validated before any fetching begins.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattjh/candle-export/internal/models"
)

// DateFormat is the calendar date layout used for StartDate and EndDate.
const DateFormat = "2006-01-02"

// Config is the complete application configuration. StartDate is inclusive
// and EndDate is exclusive: both are interpreted as midnight UTC, so a range
// of 2024-01-01 to 2024-01-05 covers the four days 01 through 04.
type Config struct {
	MaxRetryAttempts       int      `json:"MaxRetryAttempts"`
	RetryDelayMilliseconds int      `json:"RetryDelayMilliseconds"`
	ProductIDs             []string `json:"ProductIds"`
	Granularities          []string `json:"Granularities"`
	StartDate              string   `json:"StartDate"`
	EndDate                string   `json:"EndDate"`

	// OutputDir is where CSV files are written. Defaults to the working directory.
	OutputDir string `json:"OutputDir"`

	// RequestsPerSecond paces candle requests to stay under the exchange's
	// public rate limit.
	RequestsPerSecond float64 `json:"RequestsPerSecond"`

	Logging LoggingConfig `json:"Logging"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // json, text
	Output     string `json:"output"`      // stdout, stderr, file
	FilePath   string `json:"file_path"`   // log file path when output is "file"
	MaxSize    int    `json:"max_size"`    // maximum log file size in MB
	MaxBackups int    `json:"max_backups"` // maximum rotated files to keep
	MaxAge     int    `json:"max_age"`     // maximum log file age in days
	Compress   bool   `json:"compress"`    // compress rotated files
}

// Default returns a configuration with sensible defaults. ProductIds,
// Granularities, StartDate, and EndDate have no defaults and must come from
// the settings file or environment.
func Default() *Config {
	return &Config{
		MaxRetryAttempts:       3,
		RetryDelayMilliseconds: 2000,
		OutputDir:              ".",
		RequestsPerSecond:      3,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// Load reads the settings file at path, applies environment overrides, and
// validates the result. A missing or malformed settings file is a fatal
// configuration error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromEnv applies environment variable overrides on top of file values.
func loadFromEnv(cfg *Config) {
	if val := os.Getenv("MAX_RETRY_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil {
			cfg.MaxRetryAttempts = attempts
		}
	}
	if val := os.Getenv("RETRY_DELAY_MS"); val != "" {
		if delay, err := strconv.Atoi(val); err == nil {
			cfg.RetryDelayMilliseconds = delay
		}
	}
	if val := os.Getenv("PRODUCT_IDS"); val != "" {
		cfg.ProductIDs = strings.Split(val, ",")
	}
	if val := os.Getenv("GRANULARITIES"); val != "" {
		cfg.Granularities = strings.Split(val, ",")
	}
	if val := os.Getenv("START_DATE"); val != "" {
		cfg.StartDate = val
	}
	if val := os.Getenv("END_DATE"); val != "" {
		cfg.EndDate = val
	}
	if val := os.Getenv("OUTPUT_DIR"); val != "" {
		cfg.OutputDir = val
	}
	if val := os.Getenv("REQUESTS_PER_SECOND"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.RequestsPerSecond = rps
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		cfg.Logging.Output = val
	}
	if val := os.Getenv("LOG_FILE_PATH"); val != "" {
		cfg.Logging.FilePath = val
	}
}

// Validate checks the configuration for consistency and required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.MaxRetryAttempts < 1 {
		errs = append(errs, "MaxRetryAttempts must be at least 1")
	}
	if c.RetryDelayMilliseconds < 0 {
		errs = append(errs, "RetryDelayMilliseconds must not be negative")
	}
	if len(c.ProductIDs) == 0 {
		errs = append(errs, "ProductIds must list at least one product")
	}
	for _, id := range c.ProductIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, "ProductIds must not contain empty entries")
			break
		}
	}
	if len(c.Granularities) == 0 {
		errs = append(errs, "Granularities must list at least one granularity")
	}
	for _, g := range c.Granularities {
		if _, err := models.ParseGranularity(g); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if _, err := time.Parse(DateFormat, c.StartDate); err != nil {
		errs = append(errs, fmt.Sprintf("StartDate is not a valid %s date: %v", DateFormat, err))
	}
	if _, err := time.Parse(DateFormat, c.EndDate); err != nil {
		errs = append(errs, fmt.Sprintf("EndDate is not a valid %s date: %v", DateFormat, err))
	}
	if c.RequestsPerSecond <= 0 {
		errs = append(errs, "RequestsPerSecond must be greater than 0")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, "Logging.level must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errs = append(errs, "Logging.format must be one of: json, text")
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		errs = append(errs, "Logging.file_path is required when output is 'file'")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// StartTime returns StartDate as midnight UTC. Call Validate first.
func (c *Config) StartTime() time.Time {
	t, _ := time.Parse(DateFormat, c.StartDate)
	return t.UTC()
}

// EndTime returns EndDate as midnight UTC, the exclusive end of the range.
// Call Validate first.
func (c *Config) EndTime() time.Time {
	t, _ := time.Parse(DateFormat, c.EndDate)
	return t.UTC()
}

// RetryDelay returns the configured inter-retry delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMilliseconds) * time.Millisecond
}

// ParsedGranularities returns the configured granularities as typed values,
// in configuration order. Call Validate first.
func (c *Config) ParsedGranularities() []models.Granularity {
	out := make([]models.Granularity, 0, len(c.Granularities))
	for _, g := range c.Granularities {
		parsed, err := models.ParseGranularity(g)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}
