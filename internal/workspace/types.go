// Package workspace holds the source-side domain types shared by the migration
// and cleanup pipelines: pages, their content blocks and attachments.
package workspace

import (
	"strings"
	"time"
)

// StandaloneGroup is the grouping key for pages that do not live in a database.
const StandaloneGroup = "Standalone"

// BlockKind is the declared type of a content block.
type BlockKind string

// Block kinds the migrator distinguishes. Every other Notion block type maps to
// KindOther and keeps its raw name in Block.Type.
const (
	KindImage       BlockKind = "image"
	KindFile        BlockKind = "file"
	KindPDF         BlockKind = "pdf"
	KindParagraph   BlockKind = "paragraph"
	KindDivider     BlockKind = "divider"
	KindUnsupported BlockKind = "unsupported"
	KindOther       BlockKind = "other"
)

// IsContentBearing reports whether blocks of this kind carry an attachable file.
func (k BlockKind) IsContentBearing() bool {
	switch k {
	case KindImage, KindFile, KindPDF:
		return true
	default:
		return false
	}
}

// Attachment describes where a block's file can be fetched.
type Attachment struct {
	URL string
	// Hosted is true for files stored by Notion (signed, expiring URLs) and false
	// for external links.
	Hosted bool
	// Name is the file name Notion recorded, if any.
	Name    string
	Caption string
	Expires time.Time
}

// Block is one content block of a page.
type Block struct {
	ID   string
	Kind BlockKind
	// Type is the raw block type reported by the source.
	Type string
	// Text is the plain text of text-bearing blocks such as paragraphs.
	Text       string
	Attachment *Attachment
}

// IsEmptyText reports whether the block has no visible text.
func (b Block) IsEmptyText() bool {
	return strings.TrimSpace(b.Text) == ""
}

// ParentKind says where a page lives.
type ParentKind string

// Parent kinds.
const (
	ParentDatabase  ParentKind = "database"
	ParentPage      ParentKind = "page"
	ParentWorkspace ParentKind = "workspace"
)

// Page is one source item.
type Page struct {
	ID    string
	URL   string
	Title string
	// GroupKey names the destination subfolder: the parent database title, or
	// StandaloneGroup.
	GroupKey     string
	ParentKind   ParentKind
	ParentID     string
	CreatedTime  time.Time
	LastEditedAt time.Time
	Archived     bool
}

// DisplayTitle returns the title, falling back to an id-based label.
func (p Page) DisplayTitle() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return "Untitled Page (" + p.ID + ")"
}
