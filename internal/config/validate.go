package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every section and joins all problems found.
func (c *Config) Validate() error {
	return errors.Join(
		c.Notion.Validate(),
		c.Logging.Validate(),
		c.Retry.Validate(),
	)
}

// Validate checks the Notion section.
func (c *NotionConfig) Validate() error {
	if c.Token == "" {
		return &ValidationError{Field: "notion.token", Message: "is required (set NOTION_TOKEN)"}
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "notion.base_url", Message: "must be an absolute URL"}
	}
	return nil
}

// Validate checks the logging section.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"}
	}
	switch c.Format {
	case "console", "json":
	default:
		return &ValidationError{Field: "logging.format", Message: "must be one of: console, json"}
	}
	return nil
}

// Validate checks the retry section.
func (c *RetryConfig) Validate() error {
	if c.MaxDelay < c.InitialDelay {
		return &ValidationError{Field: "retry.max_delay", Message: "must not be smaller than retry.initial_delay"}
	}
	return nil
}
