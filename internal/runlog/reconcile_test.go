package runlog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtalcott/notion-file-migration-tool/internal/runlog"
)

const (
	idA = "1a2b3c4d5e6f708192a3b4c5d6e7f809"
	idB = "0123456789abcdef0123456789abcdef"
)

func TestExtractSuccesses_ScenarioC(t *testing.T) {
	t.Parallel()

	logText := strings.Join([]string{
		`{"level":"info","msg":"Successfully migrated: Scan -> scan.png | Notion URL: https://www.notion.so/Scan-` + idA + `","outcome":"success","page_url":"https://www.notion.so/Scan-` + idA + `","page_title":"Scan","filename":"scan.png"}`,
		`{"level":"info","msg":"Skipping page","outcome":"skipped","page_url":"https://www.notion.so/Other-` + idB + `"}`,
		`2024-01-01 10:00:00,000 - INFO - Successfully migrated: Receipt -> r.pdf | Notion URL: https://www.notion.so/Receipt-1a2b3c4d-5e6f-7081-92a3-b4c5d6e7f809`,
		`2024-01-01 10:00:01,000 - INFO - Processing page: Other`,
		`{"level":"error","msg":"Upload failed","outcome":"failure","page_url":"https://www.notion.so/` + idB + `"}`,
	}, "\n")

	set := runlog.ExtractSuccesses(logText)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, []string{idA}, set.IDs())
	assert.Equal(t, 0, set.Anomalies)

	target := set.Targets()[0]
	assert.Equal(t, "Scan", target.Title)
	assert.Equal(t, "scan.png", target.Filename)
}

func TestExtractSuccesses_HyphenatedAndCompactCollapse(t *testing.T) {
	t.Parallel()

	logText := "Successfully migrated: A -> a.png | Notion URL: https://www.notion.so/1A2B3C4D-5E6F-7081-92A3-B4C5D6E7F809\n" +
		"Successfully migrated: A -> a.png | Notion URL: https://www.notion.so/workspace/Title-" + idA + "?pvs=4\n" +
		"Successfully migrated: B -> b.png | Notion URL: https://www.notion.so/" + idB + "#frag\n"

	set := runlog.ExtractSuccesses(logText)
	assert.Equal(t, []string{idA, idB}, set.IDs())
	assert.True(t, set.Contains("1a2b3c4d-5e6f-7081-92a3-b4c5d6e7f809"))
	assert.False(t, set.Contains("not-an-id"))
}

func TestExtractSuccesses_AnomaliesAreCounted(t *testing.T) {
	t.Parallel()

	logText := strings.Join([]string{
		`{"outcome":"success","page_url":"https://www.notion.so/too-short"}`,
		`{"outcome":"success"}`,
		`Successfully migrated: X -> x.png | Notion URL: https://www.notion.so/Title-zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz`,
		`{"outcome":"success","page_url":"https://www.notion.so/` + idB + `"}`,
		`{not json`,
	}, "\n")

	set := runlog.ExtractSuccesses(logText)
	assert.Equal(t, []string{idB}, set.IDs())
	assert.Equal(t, 3, set.Anomalies)
}

func TestExtractSuccesses_IsPure(t *testing.T) {
	t.Parallel()

	logText := `{"outcome":"success","page_url":"https://www.notion.so/` + idA + `"}` + "\n"
	first := runlog.ExtractSuccesses(logText)
	second := runlog.ExtractSuccesses(logText)
	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, first.Anomalies, second.Anomalies)
}

func TestExtractSuccesses_Empty(t *testing.T) {
	t.Parallel()

	set := runlog.ExtractSuccesses("")
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.IDs())
}

func TestReadSuccesses(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "migration.log")
	content := `{"outcome":"success","page_url":"https://www.notion.so/Doc-` + idB + `"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	set, err := runlog.ReadSuccesses(path)
	require.NoError(t, err)
	assert.Equal(t, []string{idB}, set.IDs())

	_, err = runlog.ReadSuccesses(filepath.Join(t.TempDir(), "missing.log"))
	require.Error(t, err)
}

func TestReadSuccesses_OversizedLineIsSkipped(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "migration.log")
	content := `{"outcome":"success","page_url":"https://www.notion.so/Doc-` + idA + `"}` + "\n" +
		strings.Repeat("x", 5*1024*1024) + "\n" +
		`{"outcome":"success","page_url":"https://www.notion.so/Doc-` + idB + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	set, err := runlog.ReadSuccesses(path)
	require.NoError(t, err)
	assert.Equal(t, []string{idA, idB}, set.IDs())
}

func TestPageIDFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"slug", "https://www.notion.so/My-Page-" + idA, idA, true},
		{"bare", "https://www.notion.so/" + idA, idA, true},
		{"hyphenated", "https://www.notion.so/1a2b3c4d-5e6f-7081-92a3-b4c5d6e7f809", idA, true},
		{"query", "https://www.notion.so/" + idA + "?v=123", idA, true},
		{"trailing slash", "https://www.notion.so/" + idA + "/", idA, true},
		{"uppercase", "https://www.notion.so/" + strings.ToUpper(idA), idA, true},
		{"short", "https://www.notion.so/abc", "", false},
		{"not hex", "https://www.notion.so/" + strings.Repeat("g", 32), "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := runlog.PageIDFromURL(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "migration_20240305_070809.log", runlog.FileName(runlog.PrefixMigration, now))
	assert.Equal(t, filepath.Join("logs", "cleanup_20240305_070809.log"), runlog.Path("logs", runlog.PrefixCleanup, now))
}

func TestSuccessMessageRoundTrips(t *testing.T) {
	t.Parallel()

	msg := runlog.SuccessMessage("Scan", "scan.png", "https://www.notion.so/Scan-"+idA)
	set := runlog.ExtractSuccesses("2024-01-01 INFO " + msg)
	assert.Equal(t, []string{idA}, set.IDs())
}
