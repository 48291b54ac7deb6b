// Package cleanup archives the source pages a migration log reports as
// migrated.
package cleanup

import (
	"context"
	"errors"
	"fmt"

	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/metrics"
	"github.com/mtalcott/notion-file-migration-tool/internal/runlog"
)

// ErrArchive wraps every failed archive call.
var ErrArchive = errors.New("archive failed")

// Archiver moves a page to the trash.
type Archiver interface {
	ArchivePage(ctx context.Context, pageID string) error
}

// Failure is one page that could not be archived.
type Failure struct {
	PageID string
	Title  string
	Err    error
}

// Summary totals a cleanup run.
type Summary struct {
	Found     int
	Previewed int
	Archived  int
	Failed    int
	Anomalies int
	Failures  []Failure
}

// Driver runs cleanups.
type Driver struct {
	archiver Archiver
	log      logger.Logger
	metrics  *metrics.Metrics
}

// NewDriver creates a Driver. log and m may be nil.
func NewDriver(archiver Archiver, log logger.Logger, m *metrics.Metrics) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{archiver: archiver, log: log, metrics: m}
}

// Run previews or archives every page in set. In dry-run mode no archive call
// is made. Archive failures are recorded and the loop continues; only a
// cancelled context stops it early.
func (d *Driver) Run(ctx context.Context, set *runlog.SuccessSet, dryRun bool) (Summary, error) {
	summary := Summary{Found: set.Len(), Anomalies: set.Anomalies}
	d.metrics.AddAnomalies(set.Anomalies)

	d.log.Info("Found migrated pages",
		logger.Int("count", summary.Found),
		logger.Int("anomalies", summary.Anomalies),
		logger.Bool("dry_run", dryRun),
	)

	for _, target := range set.Targets() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			d.log.Warn("Cleanup interrupted",
				logger.Int("archived", summary.Archived),
				logger.Int("failed", summary.Failed),
			)
			return summary, ctxErr
		}

		fields := []logger.Field{
			logger.String(runlog.FieldPageID, target.PageID),
			logger.String(runlog.FieldPageURL, target.PageURL),
			logger.String(runlog.FieldPageTitle, target.Title),
			logger.String(runlog.FieldFilename, target.Filename),
		}

		if dryRun {
			summary.Previewed++
			d.metrics.RecordOutcome(string(runlog.OutcomePreviewed))
			d.log.Info("Would archive page", append(fields, runlog.OutcomeField(runlog.OutcomePreviewed))...)
			continue
		}

		if err := d.archiver.ArchivePage(ctx, target.PageID); err != nil {
			wrapped := fmt.Errorf("%w: %w", ErrArchive, err)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{PageID: target.PageID, Title: target.Title, Err: wrapped})
			d.metrics.RecordOutcome(string(runlog.OutcomeFailed))
			d.log.Error("Failed to archive page",
				append(fields, runlog.OutcomeField(runlog.OutcomeFailed), logger.Error(wrapped))...,
			)
			continue
		}

		summary.Archived++
		d.metrics.RecordOutcome(string(runlog.OutcomeArchived))
		d.log.Info("Archived page", append(fields, runlog.OutcomeField(runlog.OutcomeArchived))...)
	}

	return summary, nil
}
