package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtalcott/notion-file-migration-tool/internal/metrics"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := metrics.New("migrate")
	m.RecordOutcome("success")
	m.RecordOutcome("success")
	m.RecordOutcome("skipped")
	m.RecordFailure("upload")
	m.AddUploadedBytes(2048)
	m.AddFoldersCreated(1)
	m.ObserveDuration(250 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "migrator.prom")
	require.NoError(t, m.WriteTextfile(path, time.Unix(1700000000, 0)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)

	assert.Contains(t, out, `notion_migrator_items_total{command="migrate",outcome="success"} 2`)
	assert.Contains(t, out, `notion_migrator_items_total{command="migrate",outcome="skipped"} 1`)
	assert.Contains(t, out, `notion_migrator_failures_total{command="migrate",stage="upload"} 1`)
	assert.Contains(t, out, `notion_migrator_uploaded_bytes_total 2048`)
	assert.Contains(t, out, `notion_migrator_folders_created_total 1`)
	assert.Contains(t, out, `notion_migrator_last_run_timestamp_seconds{command="migrate"} 1.7e+09`)
	assert.Contains(t, out, `notion_migrator_item_duration_seconds_count 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.RecordOutcome("success")
	m.RecordFailure("download")
	m.AddUploadedBytes(10)
	m.AddAnomalies(1)
	m.ObserveDuration(time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("ignored", time.Now()))
}

func TestWriteTextfile_EmptyPathIsNoop(t *testing.T) {
	t.Parallel()

	m := metrics.New("cleanup")
	assert.NoError(t, m.WriteTextfile("", time.Now()))
}
