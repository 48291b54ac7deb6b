// Package migrate moves single-attachment pages from the workspace into
// destination folders, one page at a time, recording one outcome per page.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mtalcott/notion-file-migration-tool/internal/classifier"
	"github.com/mtalcott/notion-file-migration-tool/internal/download"
	"github.com/mtalcott/notion-file-migration-tool/internal/drive"
	"github.com/mtalcott/notion-file-migration-tool/internal/folders"
	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/metrics"
	"github.com/mtalcott/notion-file-migration-tool/internal/runlog"
	"github.com/mtalcott/notion-file-migration-tool/internal/workspace"
)

// Errors wrapped into per-page failures.
var (
	ErrListBlocks = errors.New("listing page blocks failed")
	ErrUpload     = errors.New("upload failed")
)

// Stage names the step a page failed at.
type Stage string

// Stages.
const (
	StageListBlocks    Stage = "list_blocks"
	StageResolveFolder Stage = "resolve_folder"
	StageDownload      Stage = "download"
	StageUpload        Stage = "upload"
)

// PageSource lists pages and their blocks.
type PageSource interface {
	ListPages(ctx context.Context) ([]workspace.Page, error)
	ListBlocks(ctx context.Context, pageID string) ([]workspace.Block, error)
}

// Fetcher downloads an attachment block.
type Fetcher interface {
	Fetch(ctx context.Context, block workspace.Block) (*download.File, error)
}

// Uploader stores a file in the destination.
type Uploader interface {
	UploadFile(ctx context.Context, u drive.Upload) (*drive.UploadedFile, error)
}

// FolderResolver maps a grouping key to a destination folder id.
type FolderResolver interface {
	Resolve(ctx context.Context, key, parentID string) (string, error)
}

// Options control one run.
type Options struct {
	// ParentFolderID receives the per-group folders. Empty means the root.
	ParentFolderID string
	// DryRun classifies pages and reports eligible ones without touching the
	// destination.
	DryRun bool
	// Limit caps the number of pages processed. Zero means no cap.
	Limit int
}

// Failure describes one page that could not be migrated.
type Failure struct {
	PageID string
	Title  string
	Stage  Stage
	Err    error
}

// Stats summarises a run.
type Stats struct {
	Total     int
	Eligible  int
	Skipped   int
	Succeeded int
	Failed    int
	Bytes     int64
	Failures  []Failure
}

// Driver runs migrations.
type Driver struct {
	source   PageSource
	fetcher  Fetcher
	uploader Uploader
	folders  FolderResolver
	log      logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Deps are the collaborators of a Driver. Metrics may be nil.
type Deps struct {
	Source   PageSource
	Fetcher  Fetcher
	Uploader Uploader
	Folders  FolderResolver
	Logger   logger.Logger
	Metrics  *metrics.Metrics
}

// NewDriver creates a Driver.
func NewDriver(deps Deps) *Driver {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{
		source:   deps.Source,
		fetcher:  deps.Fetcher,
		uploader: deps.Uploader,
		folders:  deps.Folders,
		log:      log,
		metrics:  deps.Metrics,
		now:      time.Now,
	}
}

// Run processes every page the source lists. Per-page failures are recorded
// and never stop the run; only a failure to list pages or a cancelled context
// returns an error.
func (d *Driver) Run(ctx context.Context, opts Options) (Stats, error) {
	var stats Stats

	d.log.Info("Fetching pages from Notion", logger.Bool("dry_run", opts.DryRun))
	pages, err := d.source.ListPages(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list pages: %w", err)
	}
	d.log.Info("Found pages", logger.Int("count", len(pages)))

	if opts.Limit > 0 && len(pages) > opts.Limit {
		pages = pages[:opts.Limit]
	}

	for i := range pages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			d.log.Warn("Migration interrupted", logger.Int("processed", stats.Total))
			return stats, ctxErr
		}

		start := d.now()
		d.processPage(ctx, &pages[i], opts, &stats)
		d.metrics.ObserveDuration(d.now().Sub(start))
	}

	return stats, nil
}

func (d *Driver) processPage(ctx context.Context, page *workspace.Page, opts Options, stats *Stats) {
	stats.Total++
	title := page.DisplayTitle()
	pageFields := runlog.PageFields(page.ID, page.URL, title)

	d.log.Debug("Processing page", pageFields...)

	blocks, err := d.source.ListBlocks(ctx, page.ID)
	if err != nil {
		d.fail(stats, page, title, StageListBlocks, fmt.Errorf("%w: %w", ErrListBlocks, err))
		return
	}

	result := classifier.Classify(blocks)
	if !result.Eligible() {
		stats.Skipped++
		d.metrics.RecordOutcome(string(runlog.OutcomeSkipped))
		d.log.Info("Skipping page",
			append(pageFields,
				runlog.OutcomeField(runlog.OutcomeSkipped),
				logger.String(runlog.FieldReason, result.Reason),
			)...,
		)
		return
	}
	stats.Eligible++

	if opts.DryRun {
		d.metrics.RecordOutcome(string(runlog.OutcomeEligible))
		d.log.Info("Would migrate page",
			append(pageFields,
				runlog.OutcomeField(runlog.OutcomeEligible),
				logger.String(runlog.FieldFolder, page.GroupKey),
				logger.String("block_type", result.Block.Type),
			)...,
		)
		return
	}

	folderName := folders.Sanitize(page.GroupKey)
	folderID, err := d.folders.Resolve(ctx, page.GroupKey, opts.ParentFolderID)
	if err != nil {
		d.fail(stats, page, title, StageResolveFolder, err)
		return
	}

	file, err := d.fetcher.Fetch(ctx, result.Block)
	if err != nil {
		d.fail(stats, page, title, StageDownload, err)
		return
	}

	uploaded, err := d.uploader.UploadFile(ctx, drive.Upload{
		Name:         file.Name,
		MIMEType:     file.MIMEType,
		ParentID:     folderID,
		Description:  "Migrated from Notion page: " + title,
		CreatedTime:  page.CreatedTime,
		ModifiedTime: page.LastEditedAt,
		Data:         file.Data,
	})
	if err != nil {
		d.fail(stats, page, title, StageUpload, fmt.Errorf("%w: %w", ErrUpload, err))
		return
	}

	stats.Succeeded++
	stats.Bytes += int64(file.Size())
	d.metrics.RecordOutcome(string(runlog.OutcomeSuccess))
	d.metrics.AddUploadedBytes(file.Size())

	d.log.Info(runlog.SuccessMessage(title, file.Name, page.URL),
		append(pageFields,
			runlog.OutcomeField(runlog.OutcomeSuccess),
			logger.String(runlog.FieldFilename, file.Name),
			logger.String(runlog.FieldFileID, uploaded.ID),
			logger.String(runlog.FieldFolder, folderName),
			logger.String(runlog.FieldFolderID, folderID),
			logger.String(runlog.FieldLink, uploaded.WebViewLink),
			logger.Int("bytes", file.Size()),
		)...,
	)
}

func (d *Driver) fail(stats *Stats, page *workspace.Page, title string, stage Stage, err error) {
	stats.Failed++
	stats.Failures = append(stats.Failures, Failure{PageID: page.ID, Title: title, Stage: stage, Err: err})
	d.metrics.RecordOutcome(string(runlog.OutcomeFailure))
	d.metrics.RecordFailure(string(stage))

	d.log.Error("Failed to migrate page",
		append(runlog.PageFields(page.ID, page.URL, title),
			runlog.OutcomeField(runlog.OutcomeFailure),
			logger.String(runlog.FieldStage, string(stage)),
			logger.Error(err),
		)...,
	)
}
