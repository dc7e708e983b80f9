// Package config loads and validates the service configuration from the
// environment.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime setting the service reads at startup.
type Config struct {
	Port              string
	Address           string
	Env               string
	LogLevel          string
	LogRetentionWeeks int   // Weeks of rotated log files to keep
	MaxLogFileSize    int64 // Per-file rotation threshold in bytes
	MaxRequestBody    int64 // Request body cap in bytes
	MaxHeaderSize     int64 // Request header cap in bytes
	TrainingCSV       string
	TreatmentsCSV     string
	RetrainAt         string // Semicolon-separated HH:MM times for the daily retrain
}

// Load reads every setting from the environment, applying defaults for
// anything unset, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              envOr("PORT", "8000"),
		Address:           envOr("ADDRESS", "127.0.0.1"),
		Env:               envOr("ENV", "dev"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogRetentionWeeks: intEnvOr("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    int64EnvOr("MAX_LOG_FILE_SIZE", 100*1024*1024),
		MaxRequestBody:    int64EnvOr("MAX_REQUEST_BODY", 1024*1024),
		MaxHeaderSize:     int64EnvOr("MAX_HEADER_SIZE", 1024*1024),
		TrainingCSV:       envOr("TRAINING_CSV", "files/Training.csv"),
		TreatmentsCSV:     envOr("TREATMENTS_CSV", "files/Diseases_Symptoms.csv"),
		RetrainAt:         envOr("RETRAIN_AT", "06:00"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate runs every field check in declaration order; the first failure
// wins so error messages always name a single variable. The checks return
// bare reasons, the wrapper here supplies the variable name.
func (cfg *Config) validate() error {
	checks := []struct {
		name string
		run  func() error
	}{
		{"PORT", func() error { return checkPort(cfg.Port) }},
		{"ADDRESS", func() error { return checkAddress(cfg.Address) }},
		{"ENV", func() error { return checkOneOf(cfg.Env, []string{"dev", "staging", "prod", "test"}) }},
		{"LOG_LEVEL", func() error { return checkOneOf(cfg.LogLevel, []string{"debug", "info", "warn", "error"}) }},
		{"MAX_REQUEST_BODY", func() error { return checkSizeLimit(cfg.MaxRequestBody) }},
		{"MAX_HEADER_SIZE", func() error { return checkSizeLimit(cfg.MaxHeaderSize) }},
		{"LOG_RETENTION_WEEKS", func() error { return checkLogRetention(cfg.LogRetentionWeeks) }},
		{"MAX_LOG_FILE_SIZE", func() error { return checkLogFileSize(cfg.MaxLogFileSize) }},
		{"TRAINING_CSV", func() error { return checkCSVPath(cfg.TrainingCSV) }},
		{"TREATMENTS_CSV", func() error { return checkCSVPath(cfg.TreatmentsCSV) }},
		{"RETRAIN_AT", func() error { return checkRetrainAt(cfg.RetrainAt) }},
	}

	for _, c := range checks {
		if err := c.run(); err != nil {
			return fmt.Errorf("invalid %s: %w", c.name, err)
		}
	}
	return nil
}

func checkPort(port string) error {
	if port == "" {
		return fmt.Errorf("empty value")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}
	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("%d outside 1-65535", portNum)
	}
	if portNum < 1024 {
		return fmt.Errorf("%d is a privileged port, use 1024 or above", portNum)
	}
	return nil
}

// checkAddress accepts loopback names outright and otherwise requires a
// parseable, non-public IP. The service is meant to sit behind a proxy, so
// binding a public address is treated as a configuration mistake.
func checkAddress(address string) error {
	if address == "" {
		return fmt.Errorf("empty value")
	}
	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("%q is neither an IP address nor localhost", address)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("%s is public, bind a loopback or private range instead", address)
	}
	return nil
}

// checkOneOf matches value against the allowed set, case-insensitively.
func checkOneOf(value string, allowed []string) error {
	if value == "" {
		return fmt.Errorf("empty value")
	}

	value = strings.ToLower(value)
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %v", value, allowed)
}

func checkSizeLimit(size int64) error {
	if size <= 0 {
		return fmt.Errorf("%d is not positive", size)
	}
	if size > 100*1024*1024 {
		return fmt.Errorf("%d bytes exceeds the 100MB cap", size)
	}
	return nil
}

func checkLogRetention(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("%d weeks is not positive", weeks)
	}
	if weeks > 52 {
		return fmt.Errorf("%d weeks exceeds the 52 week cap", weeks)
	}
	return nil
}

func checkLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("%d is not positive", size)
	}
	if size < 1024*1024 {
		return fmt.Errorf("%d bytes is below the 1MB floor", size)
	}
	if size > 1024*1024*1024 {
		return fmt.Errorf("%d bytes exceeds the 1GB cap", size)
	}
	return nil
}

func checkCSVPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty value")
	}
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return fmt.Errorf("%s is not a .csv file", path)
	}
	return nil
}

// checkRetrainAt accepts one or more HH:MM times separated by semicolons,
// the format the scheduler takes.
func checkRetrainAt(retrainAt string) error {
	if strings.TrimSpace(retrainAt) == "" {
		return fmt.Errorf("empty value")
	}

	for _, at := range strings.Split(retrainAt, ";") {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("%q is not a semicolon-separated list of HH:MM times", retrainAt)
		}
	}
	return nil
}

// envOr returns the environment value for key, or fallback when unset or
// empty.
func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnvOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64EnvOr(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetEnvVars lists every environment variable the service reads, in the
// order Load applies them.
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"TRAINING_CSV",
		"TREATMENTS_CSV",
		"RETRAIN_AT",
	}
}
