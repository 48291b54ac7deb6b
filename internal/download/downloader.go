// Package download fetches attachment bytes and works out a file name and MIME
// type for them.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mtalcott/notion-file-migration-tool/internal/httpclient"
	"github.com/mtalcott/notion-file-migration-tool/internal/retry"
	"github.com/mtalcott/notion-file-migration-tool/internal/workspace"
)

// DefaultTimeout bounds one download attempt.
const DefaultTimeout = 60 * time.Second

// Fallback names and extensions.
const (
	fallbackName     = "attachment"
	fallbackImageExt = ".png"
	fallbackPDFExt   = ".pdf"
	octetStream      = "application/octet-stream"
)

// ErrDownload wraps every failure to fetch an attachment.
var ErrDownload = errors.New("attachment download failed")

// ErrNoAttachment is returned for blocks that carry no attachment URL.
var ErrNoAttachment = errors.New("block has no attachment url")

// File is a downloaded attachment.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the number of bytes downloaded.
func (f *File) Size() int {
	return len(f.Data)
}

// StatusError is a non-2xx download response.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Status, e.URL)
}

// StatusCode returns the HTTP status of the response.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// Downloader fetches attachment URLs.
type Downloader struct {
	httpClient *http.Client
	retry      retry.Config
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(d *Downloader) {
		d.retry = cfg
	}
}

// New creates a Downloader whose attempts time out after timeout.
func New(timeout time.Duration, opts ...Option) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Downloader{
		httpClient: httpclient.New(&httpclient.ClientConfig{
			Timeout:               timeout,
			ResponseHeaderTimeout: timeout,
		}),
		retry: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads the attachment of block.
func (d *Downloader) Fetch(ctx context.Context, block workspace.Block) (*File, error) {
	if block.Attachment == nil || block.Attachment.URL == "" {
		return nil, fmt.Errorf("%w: %w", ErrDownload, ErrNoAttachment)
	}
	src := block.Attachment.URL

	var data []byte
	err := retry.Do(ctx, d.retry, func(ctx context.Context) error {
		var getErr error
		data, getErr = d.get(ctx, src)
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	name := FileName(block)
	mimeType := detectMIME(data, name)
	name = ensureExtension(name, block.Kind, mimeType)

	return &File{Name: name, MIMEType: mimeType, Data: data}, nil
}

func (d *Downloader) get(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req) //nolint:gosec // G704: URL from the source workspace
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(urlErr.URL)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Status: resp.StatusCode, URL: redact(src)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

// FileName picks a name for the attachment: the caption, then the name the
// source recorded, then the last segment of the URL path.
func FileName(block workspace.Block) string {
	att := block.Attachment
	if att == nil {
		return fallbackName
	}

	for _, candidate := range []string{att.Caption, att.Name, urlBase(att.URL)} {
		if name := cleanName(candidate); name != "" {
			return name
		}
	}
	return fallbackName
}

func urlBase(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	if unescaped, unescapeErr := url.PathUnescape(base); unescapeErr == nil {
		base = unescaped
	}
	return base
}

func cleanName(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func detectMIME(data []byte, name string) string {
	if mt := mimetype.Detect(data); mt.String() != octetStream {
		return stripParams(mt.String())
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return stripParams(byExt)
	}
	return octetStream
}

func stripParams(mediaType string) string {
	if base, _, err := mime.ParseMediaType(mediaType); err == nil {
		return base
	}
	return mediaType
}

// ensureExtension appends an extension to names that lack one, preferring the
// detected type and falling back to .png for images and .pdf for PDFs.
func ensureExtension(name string, kind workspace.BlockKind, mimeType string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" && mimeType != octetStream {
		return name + mt.Extension()
	}
	switch kind {
	case workspace.KindImage:
		return name + fallbackImageExt
	case workspace.KindPDF:
		return name + fallbackPDFExt
	default:
		return name
	}
}

// redact drops the query string, which carries signing credentials for
// hosted files.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
