// Package cmd implements the command-line interface for notion-migrator.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mtalcott/notion-file-migration-tool/cmd/check"
	"github.com/mtalcott/notion-file-migration-tool/cmd/cleanup"
	cmdcommon "github.com/mtalcott/notion-file-migration-tool/cmd/common"
	"github.com/mtalcott/notion-file-migration-tool/cmd/migrate"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// rootCmd represents the root command for the notion-migrator CLI.
var rootCmd = &cobra.Command{
	Use:   "notion-migrator",
	Short: "Move single-attachment Notion pages to Google Drive",
	Long: `notion-migrator finds Notion pages whose only content is a single image, file
or PDF, uploads that attachment to Google Drive, and can afterwards archive the
migrated pages using the migration log it wrote.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops a run between pages.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cmdcommon.Flags.ConfigPath,
		"config",
		cmdcommon.Flags.ConfigPath,
		"config file (optional; CONFIG_PATH overrides)",
	)
	rootCmd.PersistentFlags().BoolVar(&cmdcommon.Flags.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notion-migrator version %s\n", Version)
		},
	})

	rootCmd.AddCommand(migrate.Command())
	rootCmd.AddCommand(cleanup.Command())
	rootCmd.AddCommand(check.Command())
}
