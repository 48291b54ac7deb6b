package report_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mtalcott/notion-file-migration-tool/internal/cleanup"
	"github.com/mtalcott/notion-file-migration-tool/internal/folders"
	"github.com/mtalcott/notion-file-migration-tool/internal/migrate"
	"github.com/mtalcott/notion-file-migration-tool/internal/report"
)

func TestMigration(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stats := migrate.Stats{
		Total: 4, Eligible: 3, Skipped: 1, Succeeded: 2, Failed: 1,
		Failures: []migrate.Failure{{Title: "broken scan", Stage: migrate.StageUpload, Err: errors.New(strings.Repeat("x", 200))}},
	}
	report.NewRenderer(&buf).Migration(stats, folders.Stats{Created: 2}, false, "migration_20240101_000000.log")

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "migration summary")
	assert.Contains(t, out, "migrated")
	assert.Contains(t, out, "migration_20240101_000000.log")
	assert.Contains(t, out, "broken scan")
	assert.Contains(t, out, "upload")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("x", 100))
}

func TestMigration_DryRunHidesUploadRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report.NewRenderer(&buf).Migration(migrate.Stats{Total: 1, Eligible: 1}, folders.Stats{}, true, "m.log")

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "dry run")
	assert.NotContains(t, out, "bytes uploaded")
	assert.NotContains(t, out, "failed pages")
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report.NewRenderer(&buf).Cleanup(cleanup.Summary{
		Found: 3, Archived: 2, Failed: 1, Anomalies: 1,
		Failures: []cleanup.Failure{{PageID: "abc", Title: "Doc", Err: cleanup.ErrArchive}},
	}, false, "c.log")

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "cleanup summary")
	assert.Contains(t, out, "failed archives")
	assert.Contains(t, out, "archive failed")
}

func TestChecks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report.NewRenderer(&buf).Checks([]report.Check{
		{Name: "Configuration", OK: true, Detail: "config.yml"},
		{Name: "Google Drive", OK: false, Detail: "no token"},
	})

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "fail")
	assert.Contains(t, out, "no token")
}
