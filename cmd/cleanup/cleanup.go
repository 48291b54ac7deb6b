// Package cleanup implements the cleanup command, which archives the Notion
// pages a migration log reports as migrated.
package cleanup

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/mtalcott/notion-file-migration-tool/cmd/common"
	cleanuppkg "github.com/mtalcott/notion-file-migration-tool/internal/cleanup"
	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/report"
	"github.com/mtalcott/notion-file-migration-tool/internal/runlog"
)

// ErrArchiveFailures is returned when at least one page could not be archived.
var ErrArchiveFailures = errors.New("some pages could not be archived")

// Command returns the cleanup command for use in the root command.
func Command() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup <migration-log>",
		Short: "Archive Notion pages listed as migrated in a migration log",
		Long: `Reads a migration log written by the migrate command, collects the pages it
reports as successfully migrated, and moves them to the Notion trash.

Use --dry-run first to see which pages would be archived.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := runlog.ReadSuccesses(args[0])
			if err != nil {
				return err
			}

			deps, err := cmdcommon.NewCommandDeps("cleanup", runlog.PrefixCleanup)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Close() }()

			archiver, err := cmdcommon.NewNotionClient(deps)
			if err != nil {
				return err
			}

			deps.Logger.Info("Starting cleanup",
				logger.String("migration_log", args[0]),
				logger.Bool("dry_run", dryRun),
				logger.String("log_file", deps.LogPath),
			)

			summary, runErr := cleanuppkg.NewDriver(archiver, deps.Logger, deps.Metrics).Run(cmd.Context(), set, dryRun)

			deps.Logger.Info("Cleanup finished",
				logger.Int("found", summary.Found),
				logger.Int("previewed", summary.Previewed),
				logger.Int("archived", summary.Archived),
				logger.Int("failed", summary.Failed),
				logger.Int("anomalies", summary.Anomalies),
			)
			cmdcommon.FinishMetrics(deps)
			report.NewRenderer(cmd.OutOrStdout()).Cleanup(summary, dryRun, deps.LogPath)

			if runErr != nil {
				return fmt.Errorf("cleanup stopped: %w", runErr)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrArchiveFailures, summary.Failed, summary.Found)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the pages that would be archived without archiving them")

	return cmd
}
