package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mtalcott/notion-file-migration-tool/internal/config"
	"github.com/mtalcott/notion-file-migration-tool/internal/download"
	"github.com/mtalcott/notion-file-migration-tool/internal/drive"
	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/metrics"
	"github.com/mtalcott/notion-file-migration-tool/internal/notion"
	"github.com/mtalcott/notion-file-migration-tool/internal/runlog"
)

const logDirMode = 0o755

// LoadConfig loads the configuration selected by the global flags.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(config.PathFromEnv(Flags.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewCommandDeps loads config and creates the logger for command. When
// logPrefix is set, records are also written to a timestamped run log in the
// configured log directory.
func NewCommandDeps(command, logPrefix string) (CommandDeps, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return CommandDeps{}, err
	}

	logCfg := cfg.Logging.LoggerConfig("")
	if Flags.Debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}

	var logPath string
	if logPrefix != "" {
		if mkErr := os.MkdirAll(cfg.Logging.Dir, logDirMode); mkErr != nil {
			return CommandDeps{}, fmt.Errorf("create log directory: %w", mkErr)
		}
		logPath = runlog.Path(cfg.Logging.Dir, logPrefix, time.Now())
		logCfg.FilePath = logPath
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	runID := uuid.NewString()
	deps := CommandDeps{
		Config:  cfg,
		Logger:  log.With(logger.String(runlog.FieldRunID, runID), logger.String("command", command)),
		LogPath: logPath,
		RunID:   runID,
	}
	if cfg.Metrics.Textfile != "" {
		deps.Metrics = metrics.New(command)
	}

	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}

	return deps, nil
}

// NewNotionClient creates the Notion client from configuration.
func NewNotionClient(deps CommandDeps) (*notion.Client, error) {
	cfg := deps.Config
	client, err := notion.NewClient(cfg.Notion.Token,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
		notion.WithDatabase(cfg.Notion.DatabaseID),
		notion.WithRateLimit(cfg.Notion.RequestsPerSecond),
		notion.WithRetry(cfg.Retry.Policy()),
		notion.WithLogger(deps.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create notion client: %w", err)
	}
	return client, nil
}

// NewDriveClient authorizes against Google and creates the Drive client.
// With interactive set, a missing token starts the browser consent flow and
// the authorization URL is written to prompt.
func NewDriveClient(ctx context.Context, deps CommandDeps, interactive bool, prompt io.Writer) (*drive.Client, error) {
	cfg := deps.Config
	auth := &drive.Authenticator{
		CredentialsFile: cfg.Drive.CredentialsFile,
		TokenFile:       cfg.Drive.TokenFile,
		Out:             prompt,
		Log:             deps.Logger,
		Interactive:     interactive,
	}

	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorize google drive: %w", err)
	}

	client, err := drive.NewClient(ctx, httpClient, nil,
		drive.WithRetry(cfg.Retry.Policy()),
		drive.WithLogger(deps.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return client, nil
}

// NewDownloader creates the attachment downloader from configuration.
func NewDownloader(deps CommandDeps) *download.Downloader {
	return download.New(deps.Config.Download.Timeout, download.WithRetry(deps.Config.Retry.Policy()))
}

// FinishMetrics writes the metrics textfile, logging rather than failing.
func FinishMetrics(deps CommandDeps) {
	if err := deps.Metrics.WriteTextfile(deps.Config.Metrics.Textfile, time.Now()); err != nil {
		deps.Logger.Warn("Could not write metrics", logger.Error(err))
	}
}
