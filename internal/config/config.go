// Package config loads the dashboard configuration.
//
// Values are layered, lowest precedence first: defaults from New, an optional
// YAML file, then environment variables prefixed with DASHBOARD_.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/openlearnnitj/openlearn-dashboard/internal/history"
	"github.com/openlearnnitj/openlearn-dashboard/internal/monitoring"
	"github.com/openlearnnitj/openlearn-dashboard/internal/schedule"
)

// Config holds all configuration values for the dashboard service
type Config struct {
	// MetricsAPIURL is the endpoint returning the metrics snapshot. Required.
	MetricsAPIURL string `koanf:"metrics_api_url"`

	// FeedbackAPIURL returns the sentiment summary. Empty disables it.
	FeedbackAPIURL string `koanf:"feedback_api_url"`

	// RepeatedAPICall keeps polling on PollInterval instead of polling once.
	RepeatedAPICall bool `koanf:"repeated_api_call"`

	// PollInterval is a Go duration ("10s") or a cron expression ("*/5 * * * *").
	PollInterval string `koanf:"poll_interval"`

	HistorySize    int           `koanf:"history_size"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	Port     string `koanf:"port"`
	LogLevel string `koanf:"log_level"`

	// Snapshots are archived to DynamoDB only when DynamoDBTableName is set.
	AWSRegion         string        `koanf:"aws_region"`
	DynamoDBTableName string        `koanf:"dynamodb_table_name"`
	ArchiveRetention  time.Duration `koanf:"archive_retention"`
}

// New returns a Config filled with defaults.
func New() *Config {
	return &Config{
		PollInterval:     schedule.DefaultInterval.String(),
		HistorySize:      history.DefaultCapacity,
		RequestTimeout:   monitoring.DefaultTimeout,
		Port:             "8080",
		LogLevel:         "info",
		AWSRegion:        "ap-south-1",
		ArchiveRetention: 30 * 24 * time.Hour,
	}
}

// Schedule parses PollInterval.
func (c *Config) Schedule() (schedule.Schedule, error) {
	s, err := schedule.Parse(c.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: poll_interval %q: %v", ErrInvalidConfig, c.PollInterval, err)
	}
	return s, nil
}

// ArchiveEnabled reports whether snapshots should be written to DynamoDB.
func (c *Config) ArchiveEnabled() bool {
	return c.DynamoDBTableName != ""
}

// SentimentEnabled reports whether the feedback endpoint is polled.
func (c *Config) SentimentEnabled() bool {
	return c.FeedbackAPIURL != ""
}

// Validate checks required values and replaces unusable optional ones with defaults.
func (c *Config) Validate() error {
	if c.MetricsAPIURL == "" {
		return fmt.Errorf("%w: metrics_api_url must not be empty", ErrInvalidConfig)
	}
	if err := checkURL(c.MetricsAPIURL); err != nil {
		return fmt.Errorf("%w: metrics_api_url: %v", ErrInvalidConfig, err)
	}
	if c.FeedbackAPIURL != "" {
		if err := checkURL(c.FeedbackAPIURL); err != nil {
			return fmt.Errorf("%w: feedback_api_url: %v", ErrInvalidConfig, err)
		}
	}

	if c.HistorySize <= 0 {
		c.HistorySize = history.DefaultCapacity
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = monitoring.DefaultTimeout
	}
	if c.PollInterval == "" {
		c.PollInterval = schedule.DefaultInterval.String()
	}
	if _, err := c.Schedule(); err != nil {
		if c.RepeatedAPICall {
			return err
		}
		c.PollInterval = schedule.DefaultInterval.String()
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.ArchiveEnabled() && c.AWSRegion == "" {
		return fmt.Errorf("%w: aws_region must be set when dynamodb_table_name is", ErrInvalidConfig)
	}

	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
