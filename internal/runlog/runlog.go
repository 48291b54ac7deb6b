// Package runlog defines the structured records written to migration and
// cleanup run logs, and reads successful migrations back out of them.
package runlog

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
)

// Outcome tags one record.
type Outcome string

// Migration outcomes.
const (
	OutcomeSuccess  Outcome = "success"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailure  Outcome = "failure"
	OutcomeEligible Outcome = "eligible"
)

// Cleanup outcomes.
const (
	OutcomePreviewed Outcome = "previewed"
	OutcomeArchived  Outcome = "archived"
	OutcomeFailed    Outcome = "failed"
)

// Record field names. The reconciler reads FieldOutcome and FieldPageURL back.
const (
	FieldOutcome   = "outcome"
	FieldRunID     = "run_id"
	FieldPageID    = "page_id"
	FieldPageURL   = "page_url"
	FieldPageTitle = "page_title"
	FieldFilename  = "filename"
	FieldFileID    = "file_id"
	FieldFolder    = "folder"
	FieldFolderID  = "folder_id"
	FieldStage     = "stage"
	FieldReason    = "reason"
	FieldLink      = "web_view_link"
)

// Log file prefixes.
const (
	PrefixMigration = "migration"
	PrefixCleanup   = "cleanup"
)

const timestampLayout = "20060102_150405"

// FileName returns "<prefix>_YYYYMMDD_HHMMSS.log" for now.
func FileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.log", prefix, now.Format(timestampLayout))
}

// Path joins dir and FileName.
func Path(dir, prefix string, now time.Time) string {
	return filepath.Join(dir, FileName(prefix, now))
}

// OutcomeField tags a record.
func OutcomeField(o Outcome) logger.Field {
	return logger.String(FieldOutcome, string(o))
}

// PageFields are the identifying fields of a page record.
func PageFields(id, url, title string) []logger.Field {
	return []logger.Field{
		logger.String(FieldPageID, id),
		logger.String(FieldPageURL, url),
		logger.String(FieldPageTitle, title),
	}
}

// SuccessMessage is the message of a success record. It keeps the plain-text
// form older logs used so that console output can be reconciled too.
func SuccessMessage(title, filename, pageURL string) string {
	return fmt.Sprintf("Successfully migrated: %s -> %s | Notion URL: %s", title, filename, pageURL)
}
