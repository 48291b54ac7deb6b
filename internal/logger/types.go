package logger

// Console formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error).
	Level string `env:"LOG_LEVEL" yaml:"level"`
	// Format selects the console encoding: "console" or "json".
	// The run file is always JSON.
	Format string `env:"LOG_FORMAT" yaml:"format"`
	// Development adds caller information to every entry.
	Development bool `yaml:"development"`
	// FilePath, when set, receives every entry as one JSON object per line.
	FilePath string `yaml:"-"`
	// Quiet disables the console output, leaving only the run file.
	Quiet bool `yaml:"-"`
}

// Default configuration values.
const (
	DefaultLevel  = "info"
	DefaultFormat = FormatConsole
)

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
}
