// Package classifier decides whether a page is a single-attachment page: exactly
// one image, file or PDF block and nothing else but filler.
package classifier

import (
	"fmt"

	"github.com/mtalcott/notion-file-migration-tool/internal/workspace"
)

// Verdict is the outcome of classifying a page.
type Verdict int

// Verdicts.
const (
	NotEligible Verdict = iota
	SingleAttachment
)

func (v Verdict) String() string {
	if v == SingleAttachment {
		return "single_attachment"
	}
	return "not_eligible"
}

// Skip reasons reported with NotEligible.
const (
	ReasonNoAttachment        = "no attachment block"
	ReasonMultipleAttachments = "more than one attachment block"
	ReasonDisallowedBlock     = "disallowed block"
	ReasonNonEmptyParagraph   = "paragraph with text"
)

// Result is the classification of one page.
type Result struct {
	Verdict Verdict
	// Block is the single attachment block; set only for SingleAttachment.
	Block workspace.Block
	// Reason explains a NotEligible verdict.
	Reason string
}

// Eligible reports whether the page should be migrated.
func (r Result) Eligible() bool {
	return r.Verdict == SingleAttachment
}

func notEligible(reason string) Result {
	return Result{Verdict: NotEligible, Reason: reason}
}

// Classify scans blocks once. Empty paragraphs, dividers and unsupported blocks
// are ignored; any other non-attachment block, or a second attachment, makes
// the page NotEligible immediately.
func Classify(blocks []workspace.Block) Result {
	var (
		found      workspace.Block
		foundCount int
	)

	for _, b := range blocks {
		switch {
		case b.Kind.IsContentBearing():
			foundCount++
			if foundCount > 1 {
				return notEligible(ReasonMultipleAttachments)
			}
			found = b
		case b.Kind == workspace.KindParagraph:
			if !b.IsEmptyText() {
				return notEligible(ReasonNonEmptyParagraph)
			}
		case b.Kind == workspace.KindDivider, b.Kind == workspace.KindUnsupported:
		default:
			return notEligible(fmt.Sprintf("%s: %s", ReasonDisallowedBlock, blockTypeName(b)))
		}
	}

	if foundCount == 0 {
		return notEligible(ReasonNoAttachment)
	}
	return Result{Verdict: SingleAttachment, Block: found}
}

func blockTypeName(b workspace.Block) string {
	if b.Type != "" {
		return b.Type
	}
	return string(b.Kind)
}
