// Package notion is a small client for the Notion REST API covering what the
// migrator needs: listing pages and their blocks, database titles, archiving
// pages and identifying the integration.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mtalcott/notion-file-migration-tool/internal/httpclient"
	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/retry"
)

const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultVersion is the Notion-Version header sent with every request.
	DefaultVersion = "2022-06-28"
	// DefaultRequestsPerSecond matches Notion's documented average rate limit.
	DefaultRequestsPerSecond = 3
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second
	// PageSize is the maximum page size Notion accepts.
	PageSize = 100
)

// ErrMissingToken is returned by NewClient when no integration token is set.
var ErrMissingToken = errors.New("notion integration token is required")

// Client talks to the Notion API.
type Client struct {
	baseURL    string
	token      string
	version    string
	databaseID string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.Config
	log        logger.Logger

	mu       sync.Mutex
	dbTitles map[string]string
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API client.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithDatabase restricts ListPages to a single database.
func WithDatabase(databaseID string) Option {
	return func(c *Client) {
		c.databaseID = databaseID
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets the sustained request rate. Zero or negative disables
// limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

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

// NewClient creates a Notion client authenticated with token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	client := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		version: DefaultVersion,
		httpClient: httpclient.New(&httpclient.ClientConfig{
			Timeout: DefaultTimeout,
		}),
		limiter:  rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		retry:    retry.DefaultConfig(),
		log:      logger.NewNop(),
		dbTitles: make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.retry.OnRetry == nil {
		client.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			client.log.Warn("Retrying Notion request",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(err),
			)
		}
	}

	return client, nil
}

// Me returns the bot user the token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

// ArchivePage moves a page to the trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	path := "/pages/" + url.PathEscape(pageID)
	if err := c.do(ctx, http.MethodPatch, path, nil, archiveRequest{Archived: true}, nil); err != nil {
		return fmt.Errorf("failed to archive page %s: %w", pageID, err)
	}
	return nil
}

// DatabaseTitle returns the plain-text title of a database. Titles are cached
// for the lifetime of the client.
func (c *Client) DatabaseTitle(ctx context.Context, databaseID string) (string, error) {
	c.mu.Lock()
	title, ok := c.dbTitles[databaseID]
	c.mu.Unlock()
	if ok {
		return title, nil
	}

	var db apiDatabase
	if err := c.do(ctx, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, nil, &db); err != nil {
		return "", fmt.Errorf("failed to get database %s: %w", databaseID, err)
	}

	title = strings.TrimSpace(joinPlainText(db.Title))
	c.mu.Lock()
	c.dbTitles[databaseID] = title
	c.mu.Unlock()

	return title, nil
}

// do sends one API call through the rate limiter and retry policy and decodes
// the JSON response into result when it is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader = http.NoBody
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Notion-Version", c.version)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		return c.send(req, result)
	})
}

func (c *Client) send(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL from config
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("failed to read response body: %w", readErr)
	}

	const minErrorStatusCode = 400
	if resp.StatusCode >= minErrorStatusCode {
		return decodeAPIError(resp.StatusCode, resp.Header, body)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if unmarshalErr := json.Unmarshal(body, result); unmarshalErr != nil {
		return fmt.Errorf("failed to decode response: %w", unmarshalErr)
	}
	return nil
}
