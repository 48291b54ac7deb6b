package notion_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtalcott/notion-file-migration-tool/internal/notion"
	"github.com/mtalcott/notion-file-migration-tool/internal/retry"
	"github.com/mtalcott/notion-file-migration-tool/internal/workspace"
)

const testToken = "secret_test"

func newTestClient(t *testing.T, handler http.Handler, opts ...notion.Option) *notion.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []notion.Option{
		notion.WithBaseURL(server.URL),
		notion.WithRateLimit(0),
		notion.WithRetry(retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		}),
	}
	client, err := notion.NewClient(testToken, append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	assert.NoError(t, err)
}

func TestNewClient_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := notion.NewClient("  ")
	require.ErrorIs(t, err, notion.ErrMissingToken)
}

func TestListPages_SearchPaginatesAndGroups(t *testing.T) {
	t.Parallel()

	var dbCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		assert.Equal(t, notion.DefaultVersion, r.Header.Get("Notion-Version"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		filter, ok := req["filter"].(map[string]any)
		if assert.True(t, ok) {
			assert.Equal(t, "page", filter["value"])
		}

		if req["start_cursor"] == nil {
			writeJSON(t, w, http.StatusOK, `{
				"object": "list",
				"has_more": true,
				"next_cursor": "c2",
				"results": [
					{"object": "page", "id": "p1", "url": "https://www.notion.so/Scan-p1",
					 "created_time": "2023-01-02T03:04:05.000Z", "last_edited_time": "2023-02-02T03:04:05.000Z",
					 "parent": {"type": "database_id", "database_id": "db1"},
					 "properties": {"Name": {"type": "title", "title": [{"plain_text": "Scan"}]}}},
					{"object": "page", "id": "p2", "url": "https://www.notion.so/Old-p2", "archived": true,
					 "parent": {"type": "workspace", "workspace": true}, "properties": {}}
				]}`)
			return
		}
		assert.Equal(t, "c2", req["start_cursor"])
		writeJSON(t, w, http.StatusOK, `{
			"object": "list", "has_more": false, "next_cursor": null,
			"results": [
				{"object": "page", "id": "p3", "url": "https://www.notion.so/p3",
				 "parent": {"type": "workspace", "workspace": true}, "properties": {}},
				{"object": "page", "id": "p4", "url": "https://www.notion.so/Receipt-p4",
				 "parent": {"type": "database_id", "database_id": "db1"},
				 "properties": {"Title": {"type": "title", "title": [{"plain_text": "Receipt"}]}}}
			]}`)
	})
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, _ *http.Request) {
		dbCalls.Add(1)
		writeJSON(t, w, http.StatusOK, `{"object": "database", "id": "db1", "title": [{"plain_text": "Receipts "}, {"plain_text": "2023"}]}`)
	})

	client := newTestClient(t, mux)
	pages, err := client.ListPages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, "p1", pages[0].ID)
	assert.Equal(t, "Scan", pages[0].Title)
	assert.Equal(t, "Receipts 2023", pages[0].GroupKey)
	assert.Equal(t, workspace.ParentDatabase, pages[0].ParentKind)
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), pages[0].CreatedTime.UTC())

	assert.Equal(t, "p3", pages[1].ID)
	assert.Equal(t, workspace.StandaloneGroup, pages[1].GroupKey)
	assert.Equal(t, "Untitled Page (p3)", pages[1].DisplayTitle())

	assert.Equal(t, "Receipts 2023", pages[2].GroupKey)
	assert.Equal(t, int32(1), dbCalls.Load(), "database title is cached")
}

func TestListPages_DatabaseQuery(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /databases/db9/query", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"object": "list", "has_more": false, "results": [
			{"object": "page", "id": "p1", "url": "https://www.notion.so/p1",
			 "parent": {"type": "database_id", "database_id": "db9"}, "properties": {}}]}`)
	})
	mux.HandleFunc("GET /databases/db9", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, `{"object": "error", "status": 404, "code": "object_not_found", "message": "nope"}`)
	})

	client := newTestClient(t, mux, notion.WithDatabase("db9"))
	pages, err := client.ListPages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "db9", pages[0].GroupKey, "unreadable database title falls back to id")
}

func TestListPages_FailureIsFatal(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, `{"object": "error", "status": 401, "code": "unauthorized", "message": "API token is invalid."}`)
	})

	client := newTestClient(t, handler)
	_, err := client.ListPages(context.Background())
	require.Error(t, err)

	var apiErr *notion.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestListBlocks_PaginatesAndConverts(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /blocks/page-1/children", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		if r.URL.Query().Get("start_cursor") == "" {
			writeJSON(t, w, http.StatusOK, `{"object": "list", "has_more": true, "next_cursor": "n1", "results": [
				{"object": "block", "id": "b1", "type": "paragraph", "paragraph": {"rich_text": []}},
				{"object": "block", "id": "b2", "type": "image", "image": {"type": "file",
					"file": {"url": "https://files.example/a.png?sig=1", "expiry_time": "2030-01-01T00:00:00.000Z"},
					"caption": [{"plain_text": "Front"}]}}
			]}`)
			return
		}
		assert.Equal(t, "n1", r.URL.Query().Get("start_cursor"))
		writeJSON(t, w, http.StatusOK, `{"object": "list", "has_more": false, "results": [
			{"object": "block", "id": "b3", "type": "pdf", "pdf": {"type": "external",
				"external": {"url": "https://example.com/doc.pdf"}, "caption": [], "name": "doc.pdf"}},
			{"object": "block", "id": "b4", "type": "divider", "divider": {}},
			{"object": "block", "id": "b5", "type": "heading_1", "heading_1": {"rich_text": []}},
			{"object": "block", "id": "b6", "type": "unsupported", "unsupported": {}}
		]}`)
	})

	client := newTestClient(t, mux)
	blocks, err := client.ListBlocks(context.Background(), "page-1")
	require.NoError(t, err)
	require.Len(t, blocks, 6)

	assert.Equal(t, workspace.KindParagraph, blocks[0].Kind)
	assert.True(t, blocks[0].IsEmptyText())

	require.NotNil(t, blocks[1].Attachment)
	assert.Equal(t, workspace.KindImage, blocks[1].Kind)
	assert.True(t, blocks[1].Attachment.Hosted)
	assert.Equal(t, "Front", blocks[1].Attachment.Caption)
	assert.Equal(t, "https://files.example/a.png?sig=1", blocks[1].Attachment.URL)

	require.NotNil(t, blocks[2].Attachment)
	assert.Equal(t, workspace.KindPDF, blocks[2].Kind)
	assert.False(t, blocks[2].Attachment.Hosted)
	assert.Equal(t, "doc.pdf", blocks[2].Attachment.Name)

	assert.Equal(t, workspace.KindDivider, blocks[3].Kind)
	assert.Equal(t, workspace.KindOther, blocks[4].Kind)
	assert.Equal(t, "heading_1", blocks[4].Type)
	assert.Equal(t, workspace.KindUnsupported, blocks[5].Kind)
}

func TestDo_RetriesRateLimited(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /pages/abc", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			writeJSON(t, w, http.StatusTooManyRequests, `{"object": "error", "status": 429, "code": "rate_limited", "message": "slow down"}`)
			return
		}
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["archived"])
		writeJSON(t, w, http.StatusOK, `{"object": "page", "id": "abc", "archived": true}`)
	})

	client := newTestClient(t, mux)
	require.NoError(t, client.ArchivePage(context.Background(), "abc"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestArchivePage_PermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusNotFound, `{"object": "error", "status": 404, "code": "object_not_found", "message": "Could not find page"}`)
	})

	client := newTestClient(t, handler)
	err := client.ArchivePage(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *notion.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
	assert.Contains(t, err.Error(), "Could not find page")
}

func TestMe(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"object": "user", "id": "u1", "type": "bot", "name": "Migrator"}`)
	})

	client := newTestClient(t, mux)
	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Migrator", user.Name)
	assert.Equal(t, "bot", user.Type)
}
