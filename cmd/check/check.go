// Package check implements the check command, which verifies configuration
// and credentials before a migration.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cmdcommon "github.com/mtalcott/notion-file-migration-tool/cmd/common"
	"github.com/mtalcott/notion-file-migration-tool/internal/config"
	"github.com/mtalcott/notion-file-migration-tool/internal/report"
)

// ErrCheckFailed is returned when any check fails.
var ErrCheckFailed = errors.New("setup check failed")

// Command returns the check command for use in the root command.
func Command() *cobra.Command {
	var authorize bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, Notion access and Google Drive credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks := runChecks(cmd.Context(), authorize)
			report.NewRenderer(cmd.OutOrStdout()).Checks(checks)

			for _, c := range checks {
				if !c.OK {
					return ErrCheckFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&authorize, "authorize", false,
		"Run the browser consent flow when no Google token is cached")

	return cmd
}

func runChecks(ctx context.Context, authorize bool) []report.Check {
	deps, err := cmdcommon.NewCommandDeps("check", "")
	if err != nil {
		return []report.Check{{Name: "Configuration", Detail: err.Error()}}
	}
	defer func() { _ = deps.Close() }()

	checks := []report.Check{{
		Name:   "Configuration",
		OK:     true,
		Detail: config.PathFromEnv(cmdcommon.Flags.ConfigPath),
	}}

	checks = append(checks, fileCheck("Google credentials file", deps.Config.Drive.CredentialsFile))

	notionCheck := report.Check{Name: "Notion API"}
	if client, clientErr := cmdcommon.NewNotionClient(deps); clientErr != nil {
		notionCheck.Detail = clientErr.Error()
	} else if user, meErr := client.Me(ctx); meErr != nil {
		notionCheck.Detail = meErr.Error()
	} else {
		notionCheck.OK = true
		notionCheck.Detail = fmt.Sprintf("connected as %s", displayName(user.Name, user.ID))
	}
	checks = append(checks, notionCheck)

	driveCheck := report.Check{Name: "Google Drive API"}
	if client, clientErr := cmdcommon.NewDriveClient(ctx, deps, authorize, os.Stderr); clientErr != nil {
		driveCheck.Detail = clientErr.Error()
	} else if account, aboutErr := client.About(ctx); aboutErr != nil {
		driveCheck.Detail = aboutErr.Error()
	} else {
		driveCheck.OK = true
		driveCheck.Detail = fmt.Sprintf("connected as %s", displayName(account.EmailAddress, account.DisplayName))
	}
	checks = append(checks, driveCheck)

	return checks
}

func fileCheck(name, path string) report.Check {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return report.Check{Name: name, Detail: err.Error()}
	case info.IsDir():
		return report.Check{Name: name, Detail: path + " is a directory"}
	default:
		return report.Check{Name: name, OK: true, Detail: path}
	}
}

func displayName(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
