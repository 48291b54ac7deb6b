// Package common provides shared utilities for command implementations.
package common

import (
	"github.com/mtalcott/notion-file-migration-tool/internal/config"
	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/metrics"
)

// GlobalFlags are the persistent flags of the root command.
type GlobalFlags struct {
	ConfigPath string
	Debug      bool
}

// Flags is bound to the root command's persistent flags.
var Flags = GlobalFlags{ConfigPath: config.DefaultPath}

// CommandDeps holds common dependencies for all commands.
type CommandDeps struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Metrics
	// LogPath is the run log file; empty when the command writes none.
	LogPath string
	RunID   string
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// Close flushes the logger and closes the run log file.
func (d CommandDeps) Close() error {
	if d.Logger == nil {
		return nil
	}
	return d.Logger.Close()
}
