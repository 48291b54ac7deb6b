package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
	"github.com/mtalcott/notion-file-migration-tool/internal/workspace"
)

// ListPages returns every page visible to the integration, or every page of
// the configured database. Archived pages are left out.
func (c *Client) ListPages(ctx context.Context) ([]workspace.Page, error) {
	raw, err := c.listRawPages(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]workspace.Page, 0, len(raw))
	for i := range raw {
		p := &raw[i]
		if p.Archived || p.InTrash {
			continue
		}
		pages = append(pages, c.toPage(ctx, p))
	}
	return pages, nil
}

func (c *Client) listRawPages(ctx context.Context) ([]apiPage, error) {
	var (
		all    []apiPage
		cursor string
	)

	for {
		var (
			resp listResponse[apiPage]
			err  error
		)
		if c.databaseID != "" {
			path := "/databases/" + url.PathEscape(c.databaseID) + "/query"
			err = c.do(ctx, http.MethodPost, path, nil, queryRequest{StartCursor: cursor, PageSize: PageSize}, &resp)
		} else {
			req := searchRequest{
				Filter:      &searchFilter{Property: "object", Value: "page"},
				StartCursor: cursor,
				PageSize:    PageSize,
			}
			err = c.do(ctx, http.MethodPost, "/search", nil, req, &resp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list pages: %w", err)
		}

		for _, p := range resp.Results {
			if p.Object == "" || p.Object == "page" {
				all = append(all, p)
			}
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return all, nil
		}
		cursor = *resp.NextCursor
	}
}

// toPage converts a page object, resolving the grouping key from the parent
// database title. A database whose title cannot be read is grouped by its id.
func (c *Client) toPage(ctx context.Context, p *apiPage) workspace.Page {
	page := workspace.Page{
		ID:           p.ID,
		URL:          p.URL,
		Title:        p.title(),
		GroupKey:     workspace.StandaloneGroup,
		CreatedTime:  p.CreatedTime,
		LastEditedAt: p.LastEditedTime,
		Archived:     p.Archived,
	}

	switch p.Parent.Type {
	case "database_id":
		page.ParentKind = workspace.ParentDatabase
		page.ParentID = p.Parent.DatabaseID
		title, err := c.DatabaseTitle(ctx, p.Parent.DatabaseID)
		switch {
		case err != nil:
			c.log.Warn("Could not read database title, grouping by id",
				logger.String("database_id", p.Parent.DatabaseID),
				logger.Error(err),
			)
			page.GroupKey = p.Parent.DatabaseID
		case title != "":
			page.GroupKey = title
		default:
			page.GroupKey = p.Parent.DatabaseID
		}
	case "page_id":
		page.ParentKind = workspace.ParentPage
		page.ParentID = p.Parent.PageID
	case "block_id":
		page.ParentKind = workspace.ParentPage
		page.ParentID = p.Parent.BlockID
	default:
		page.ParentKind = workspace.ParentWorkspace
	}

	return page
}

// ListBlocks returns the top-level blocks of a page in document order.
func (c *Client) ListBlocks(ctx context.Context, pageID string) ([]workspace.Block, error) {
	var (
		blocks []workspace.Block
		cursor string
	)
	path := "/blocks/" + url.PathEscape(pageID) + "/children"

	for {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(PageSize))
		if cursor != "" {
			query.Set("start_cursor", cursor)
		}

		var resp listResponse[apiBlock]
		if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list blocks of %s: %w", pageID, err)
		}

		for i := range resp.Results {
			blocks = append(blocks, toBlock(&resp.Results[i]))
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return blocks, nil
		}
		cursor = *resp.NextCursor
	}
}

func toBlock(b *apiBlock) workspace.Block {
	block := workspace.Block{ID: b.ID, Type: b.Type}

	switch b.Type {
	case "image":
		block.Kind = workspace.KindImage
		block.Attachment = toAttachment(b.Image)
	case "file":
		block.Kind = workspace.KindFile
		block.Attachment = toAttachment(b.File)
	case "pdf":
		block.Kind = workspace.KindPDF
		block.Attachment = toAttachment(b.PDF)
	case "paragraph":
		block.Kind = workspace.KindParagraph
		if b.Paragraph != nil {
			block.Text = joinPlainText(b.Paragraph.RichText)
		}
	case "divider":
		block.Kind = workspace.KindDivider
	case "unsupported":
		block.Kind = workspace.KindUnsupported
	default:
		block.Kind = workspace.KindOther
	}

	return block
}

func toAttachment(f *fileBlock) *workspace.Attachment {
	if f == nil {
		return nil
	}

	att := &workspace.Attachment{
		Name:    f.Name,
		Caption: joinPlainText(f.Caption),
	}
	switch {
	case f.File != nil:
		att.URL = f.File.URL
		att.Hosted = true
		if f.File.ExpiryTime != nil {
			att.Expires = *f.File.ExpiryTime
		}
	case f.External != nil:
		att.URL = f.External.URL
	}
	return att
}
