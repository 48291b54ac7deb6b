// Package migrate implements the migrate command, which copies
// single-attachment Notion pages into Google Drive.
package migrate

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/mtalcott/notion-file-migration-tool/cmd/common"
	"github.com/mtalcott/notion-file-migration-tool/internal/folders"
	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	migratepkg "github.com/mtalcott/notion-file-migration-tool/internal/migrate"
	"github.com/mtalcott/notion-file-migration-tool/internal/report"
	"github.com/mtalcott/notion-file-migration-tool/internal/runlog"
)

// Command returns the migrate command for use in the root command.
func Command() *cobra.Command {
	var (
		dryRun bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move single-attachment Notion pages to Google Drive",
		Long: `Lists every page the integration can see (or every page of the configured
database), finds pages whose only content is one image, file or PDF, and uploads
that attachment to Google Drive in a folder named after the page's database.

Each page outcome is written to migration_YYYYMMDD_HHMMSS.log. Pass that file to
the cleanup command to archive the migrated pages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative, got %d", limit)
			}

			deps, err := cmdcommon.NewCommandDeps("migrate", runlog.PrefixMigration)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Close() }()

			return run(cmd, deps, migratepkg.Options{
				ParentFolderID: deps.Config.Drive.ParentFolderID,
				DryRun:         dryRun,
				Limit:          limit,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Classify pages and list the ones that would be migrated without uploading anything")
	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many pages (0 means all)")

	return cmd
}

func run(cmd *cobra.Command, deps cmdcommon.CommandDeps, opts migratepkg.Options) error {
	ctx := cmd.Context()
	log := deps.Logger
	start := time.Now()

	source, err := cmdcommon.NewNotionClient(deps)
	if err != nil {
		return err
	}

	driverDeps := migratepkg.Deps{
		Source:  source,
		Logger:  log,
		Metrics: deps.Metrics,
	}

	var resolver *folders.Resolver
	if !opts.DryRun {
		driveClient, driveErr := cmdcommon.NewDriveClient(ctx, deps, true, os.Stderr)
		if driveErr != nil {
			return driveErr
		}
		resolver = folders.NewResolver(driveClient)
		driverDeps.Uploader = driveClient
		driverDeps.Folders = resolver
		driverDeps.Fetcher = cmdcommon.NewDownloader(deps)
	}

	log.Info("Starting migration",
		logger.Bool("dry_run", opts.DryRun),
		logger.Int("limit", opts.Limit),
		logger.String("log_file", deps.LogPath),
	)

	stats, runErr := migratepkg.NewDriver(driverDeps).Run(ctx, opts)

	var folderStats folders.Stats
	if resolver != nil {
		folderStats = resolver.Stats()
		deps.Metrics.AddFoldersCreated(folderStats.Created)
	}

	log.Info("Migration finished",
		logger.Int("total", stats.Total),
		logger.Int("eligible", stats.Eligible),
		logger.Int("skipped", stats.Skipped),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Duration("elapsed", time.Since(start)),
	)
	cmdcommon.FinishMetrics(deps)
	report.NewRenderer(cmd.OutOrStdout()).Migration(stats, folderStats, opts.DryRun, deps.LogPath)

	if runErr != nil {
		return fmt.Errorf("migration stopped: %w", runErr)
	}
	return nil
}
