package config

import (
	"strings"
	"time"

	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/retry"
)

// Config is the full migrator configuration.
type Config struct {
	Notion   NotionConfig   `yaml:"notion"`
	Drive    DriveConfig    `yaml:"drive"`
	Logging  LoggingConfig  `yaml:"logging"`
	Download DownloadConfig `yaml:"download"`
	Retry    RetryConfig    `yaml:"retry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// NotionConfig holds source workspace settings.
type NotionConfig struct {
	Token string `env:"NOTION_TOKEN" yaml:"token"`
	// DatabaseID restricts migration to one database. Empty means every page the
	// integration can see.
	DatabaseID        string  `env:"NOTION_DATABASE_ID" yaml:"database_id"`
	BaseURL           string  `env:"NOTION_BASE_URL"    yaml:"base_url"`
	Version           string  `env:"NOTION_VERSION"     yaml:"version"`
	RequestsPerSecond float64 `env:"NOTION_RPS"         yaml:"requests_per_second"`
}

// DriveConfig holds destination settings.
type DriveConfig struct {
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" yaml:"credentials_file"`
	TokenFile       string `env:"GOOGLE_TOKEN_FILE"       yaml:"token_file"`
	// ParentFolderID is the folder that receives per-database subfolders.
	// Empty means the Drive root.
	ParentFolderID string `env:"GOOGLE_DRIVE_FOLDER_ID" yaml:"parent_folder_id"`
}

// LoggingConfig controls console output and where run logs are written.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
	Dir    string `env:"LOG_DIR"    yaml:"dir"`
}

// DownloadConfig controls attachment downloads.
type DownloadConfig struct {
	Timeout time.Duration `env:"DOWNLOAD_TIMEOUT" yaml:"timeout"`
}

// RetryConfig bounds retries of transient API failures.
type RetryConfig struct {
	MaxAttempts  int           `env:"RETRY_MAX_ATTEMPTS"  yaml:"max_attempts"`
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" yaml:"initial_delay"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY"     yaml:"max_delay"`
}

// MetricsConfig controls the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `env:"METRICS_TEXTFILE" yaml:"textfile"`
}

// Defaults.
const (
	DefaultNotionBaseURL     = "https://api.notion.com/v1"
	DefaultNotionVersion     = "2022-06-28"
	DefaultNotionRPS         = 3
	DefaultCredentialsFile   = "credentials.json"
	DefaultTokenFile         = "token.json"
	DefaultDownloadTimeout   = 60 * time.Second
	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay     = 30 * time.Second
)

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	c.Notion.SetDefaults()
	c.Drive.SetDefaults()
	c.Logging.SetDefaults()
	c.Download.SetDefaults()
	c.Retry.SetDefaults()
}

// SetDefaults applies default values for NotionConfig.
func (c *NotionConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultNotionBaseURL
	}
	if c.Version == "" {
		c.Version = DefaultNotionVersion
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultNotionRPS
	}
}

// SetDefaults applies default values for DriveConfig.
func (c *DriveConfig) SetDefaults() {
	if c.CredentialsFile == "" {
		c.CredentialsFile = DefaultCredentialsFile
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
}

// SetDefaults applies default values for LoggingConfig.
func (c *LoggingConfig) SetDefaults() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Level == "" {
		c.Level = logger.DefaultLevel
	}
	if c.Format == "" {
		c.Format = logger.DefaultFormat
	}
	if c.Dir == "" {
		c.Dir = "."
	}
}

// SetDefaults applies default values for DownloadConfig.
func (c *DownloadConfig) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultDownloadTimeout
	}
}

// SetDefaults applies default values for RetryConfig.
func (c *RetryConfig) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultRetryInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultRetryMaxDelay
	}
}

// LoggerConfig converts the logging section into a logger.Config writing to
// filePath.
func (c *LoggingConfig) LoggerConfig(filePath string) logger.Config {
	return logger.Config{
		Level:    c.Level,
		Format:   c.Format,
		FilePath: filePath,
	}
}

// Policy converts the retry section into a retry.Config.
func (c *RetryConfig) Policy() retry.Config {
	policy := retry.DefaultConfig()
	policy.MaxAttempts = c.MaxAttempts
	policy.InitialDelay = c.InitialDelay
	policy.MaxDelay = c.MaxDelay
	return policy
}

// LoadFile loads path (optional), applies defaults and validates.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load[Config](path, true)
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return cfg, nil
}
