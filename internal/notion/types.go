package notion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// listResponse is the envelope of every paginated Notion endpoint.
type listResponse[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

func joinPlainText(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}

type parent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
}

type property struct {
	Type  string     `json:"type"`
	Title []richText `json:"title,omitempty"`
}

// apiPage is a page object as returned by query and search.
type apiPage struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	InTrash        bool                `json:"in_trash"`
	Parent         parent              `json:"parent"`
	Properties     map[string]property `json:"properties"`
}

// title returns the plain text of the page's title property.
func (p *apiPage) title() string {
	for _, prop := range p.Properties {
		if prop.Type == "title" {
			return strings.TrimSpace(joinPlainText(prop.Title))
		}
	}
	return ""
}

type apiDatabase struct {
	Object string     `json:"object"`
	ID     string     `json:"id"`
	Title  []richText `json:"title"`
}

type fileRef struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// fileBlock is the payload shared by image, file and pdf blocks.
type fileBlock struct {
	Type     string     `json:"type"`
	File     *fileRef   `json:"file,omitempty"`
	External *fileRef   `json:"external,omitempty"`
	Caption  []richText `json:"caption"`
	Name     string     `json:"name,omitempty"`
}

type textBlock struct {
	RichText []richText `json:"rich_text"`
}

// apiBlock is a block object. Only the payloads the migrator inspects are
// decoded; every other type is identified by Type alone.
type apiBlock struct {
	Object      string     `json:"object"`
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	HasChildren bool       `json:"has_children"`
	Image       *fileBlock `json:"image,omitempty"`
	File        *fileBlock `json:"file,omitempty"`
	PDF         *fileBlock `json:"pdf,omitempty"`
	Paragraph   *textBlock `json:"paragraph,omitempty"`
}

// User is the integration's bot user, returned by Me.
type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

type searchRequest struct {
	Filter      *searchFilter `json:"filter,omitempty"`
	StartCursor string        `json:"start_cursor,omitempty"`
	PageSize    int           `json:"page_size,omitempty"`
}

type searchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

// APIError is a non-2xx Notion response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`

	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion API error (status %d): %s - %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion API error (status %d): %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of the response.
func (e *APIError) StatusCode() int {
	return e.Status
}

// RetryAfter returns the server-requested wait for rate-limited responses.
func (e *APIError) RetryAfter() time.Duration {
	return e.retryAfter
}

// IsNotFound reports whether the object does not exist or is not shared with
// the integration.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

func decodeAPIError(status int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	apiErr.Status = status
	if secs := header.Get("Retry-After"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			apiErr.retryAfter = time.Duration(n) * time.Second
		}
	}
	return apiErr
}
