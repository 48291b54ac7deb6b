// Package drive wraps the Google Drive v3 API for folder lookup, folder
// creation and file upload.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/retry"
)

// FolderMIMEType identifies folders in Drive.
const FolderMIMEType = "application/vnd.google-apps.folder"

// RootID is Drive's alias for the user's root folder.
const RootID = "root"

// Client is a Drive client.
type Client struct {
	files *drivev3.FilesService
	about *drivev3.AboutService
	retry retry.Config
	log   logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Drive client on top of an authorized HTTP client.
// Extra clientOpts are passed to the API library, mainly for tests.
func NewClient(
	ctx context.Context,
	httpClient *http.Client,
	clientOpts []option.ClientOption,
	opts ...Option,
) (*Client, error) {
	apiOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, clientOpts...)
	svc, err := drivev3.NewService(ctx, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	c := &Client{
		files: svc.Files,
		about: svc.About,
		retry: retry.DefaultConfig(),
		log:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.retry.IsRetryable = IsRetryable
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			c.log.Warn("Retrying Drive request",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(err),
			)
		}
	}
	return c, nil
}

// FindFolder returns the id of a non-trashed folder named name directly under
// parentID, or "" if there is none. An empty parentID means the root folder.
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	query := FolderQuery(name, orRoot(parentID))

	var list *drivev3.FileList
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var listErr error
		list, listErr = c.files.List().
			Q(query).
			Spaces("drive").
			Fields("files(id, name)").
			PageSize(1).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx).
			Do()
		return listErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to search folder %q: %w", name, err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// CreateFolder creates a folder named name under parentID and returns its id.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drivev3.File{
		Name:     name,
		MimeType: FolderMIMEType,
		Parents:  []string{orRoot(parentID)},
	}

	var created *drivev3.File
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var createErr error
		created, createErr = c.files.Create(meta).
			Fields("id, name").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return createErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	c.log.Info("Created Drive folder",
		logger.String("folder", name),
		logger.String("folder_id", created.Id),
	)
	return created.Id, nil
}

// Upload describes one file to store.
type Upload struct {
	Name         string
	MIMEType     string
	ParentID     string
	Description  string
	CreatedTime  time.Time
	ModifiedTime time.Time
	Data         []byte
}

// UploadedFile is the stored file.
type UploadedFile struct {
	ID          string
	Name        string
	WebViewLink string
}

// UploadFile stores u and returns the new file.
func (c *Client) UploadFile(ctx context.Context, u Upload) (*UploadedFile, error) {
	meta := &drivev3.File{
		Name:        u.Name,
		MimeType:    u.MIMEType,
		Parents:     []string{orRoot(u.ParentID)},
		Description: u.Description,
	}
	if !u.CreatedTime.IsZero() {
		meta.CreatedTime = u.CreatedTime.UTC().Format(time.RFC3339)
	}
	if !u.ModifiedTime.IsZero() {
		meta.ModifiedTime = u.ModifiedTime.UTC().Format(time.RFC3339)
	}

	var created *drivev3.File
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var createErr error
		created, createErr = c.files.Create(meta).
			Media(bytes.NewReader(u.Data), googleapi.ContentType(u.MIMEType)).
			Fields("id, name, webViewLink").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %q: %w", u.Name, err)
	}

	return &UploadedFile{
		ID:          created.Id,
		Name:        created.Name,
		WebViewLink: created.WebViewLink,
	}, nil
}

// Account identifies the authorized Drive user.
type Account struct {
	DisplayName  string
	EmailAddress string
}

// About returns the authorized user.
func (c *Client) About(ctx context.Context) (*Account, error) {
	var about *drivev3.About
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var getErr error
		about, getErr = c.about.Get().Fields("user").Context(ctx).Do()
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get drive account: %w", err)
	}
	if about.User == nil {
		return &Account{}, nil
	}
	return &Account{
		DisplayName:  about.User.DisplayName,
		EmailAddress: about.User.EmailAddress,
	}, nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// FolderQuery builds the files.list query for a folder named name under
// parentID.
func FolderQuery(name, parentID string) string {
	return fmt.Sprintf(
		"name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		queryEscaper.Replace(name), FolderMIMEType, queryEscaper.Replace(parentID),
	)
}

// IsRetryable reports whether a Drive error is a rate limit, a server error or
// a transient transport failure.
func IsRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if retry.IsTransientStatus(apiErr.Code) {
			return true
		}
		if apiErr.Code == http.StatusForbidden {
			for _, item := range apiErr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}
		return false
	}
	return retry.IsTransient(err)
}

func orRoot(parentID string) string {
	if parentID == "" {
		return RootID
	}
	return parentID
}
