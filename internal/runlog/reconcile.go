package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Target is one page to clean up.
type Target struct {
	// PageID is 32 lowercase hex characters without hyphens.
	PageID   string
	PageURL  string
	Title    string
	Filename string
}

// SuccessSet is the insertion-ordered, duplicate-free set of pages a
// migration log reports as migrated.
type SuccessSet struct {
	targets []Target
	index   map[string]int
	// Anomalies counts success lines whose URL yielded no valid page id.
	Anomalies int
}

func newSuccessSet() *SuccessSet {
	return &SuccessSet{index: make(map[string]int)}
}

func (s *SuccessSet) add(t Target) {
	if _, ok := s.index[t.PageID]; ok {
		return
	}
	s.index[t.PageID] = len(s.targets)
	s.targets = append(s.targets, t)
}

// Len returns the number of distinct pages.
func (s *SuccessSet) Len() int {
	return len(s.targets)
}

// Targets returns the pages in first-seen order.
func (s *SuccessSet) Targets() []Target {
	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// IDs returns the canonical page ids in first-seen order.
func (s *SuccessSet) IDs() []string {
	ids := make([]string, len(s.targets))
	for i, t := range s.targets {
		ids[i] = t.PageID
	}
	return ids
}

// Contains reports whether id, in any accepted form, is in the set.
func (s *SuccessSet) Contains(id string) bool {
	canonical, ok := CanonicalID(id)
	if !ok {
		return false
	}
	_, found := s.index[canonical]
	return found
}

var legacySuccessLine = regexp.MustCompile(
	`Successfully migrated: (.+?) -> (.+?) \| Notion URL: (https://www\.notion\.so/\S+)`,
)

// ExtractSuccesses scans log text line by line for success records, either
// JSON records with outcome "success" or legacy text lines, and returns the
// distinct page ids they name. It only reads its input.
func ExtractSuccesses(logText string) *SuccessSet {
	set := newSuccessSet()
	for line := range strings.Lines(logText) {
		scanLine(set, line)
	}
	return set
}

// ReadSuccesses runs ExtractSuccesses over the file at path.
func ReadSuccesses(path string) (*SuccessSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration log: %w", err)
	}
	defer f.Close()

	set := newSuccessSet()
	r := bufio.NewReader(f)
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			scanLine(set, line)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read migration log: %w", readErr)
		}
	}
	return set, nil
}

func scanLine(set *SuccessSet, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "{") && gjson.Valid(line) {
		fields := gjson.GetMany(line, FieldOutcome, FieldPageURL, FieldPageTitle, FieldFilename)
		if fields[0].String() != string(OutcomeSuccess) {
			return
		}
		addURL(set, fields[1].String(), fields[2].String(), fields[3].String())
		return
	}

	if m := legacySuccessLine.FindStringSubmatch(line); m != nil {
		addURL(set, m[3], m[1], m[2])
	}
}

func addURL(set *SuccessSet, pageURL, title, filename string) {
	id, ok := PageIDFromURL(pageURL)
	if !ok {
		set.Anomalies++
		return
	}
	set.add(Target{PageID: id, PageURL: pageURL, Title: title, Filename: filename})
}

// PageIDFromURL derives the canonical page id from a Notion page URL. The id
// is the trailing 32 characters of the last path segment once hyphens are
// removed, so both "Title-<id>" slugs and bare hyphenated ids are accepted.
func PageIDFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.TrimRight(path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	return CanonicalID(segment)
}

// CanonicalID normalises an id or id-suffixed slug to 32 lowercase hex
// characters.
func CanonicalID(s string) (string, bool) {
	compact := strings.ReplaceAll(s, "-", "")
	if len(compact) < 32 {
		return "", false
	}
	compact = compact[len(compact)-32:]

	id, err := uuid.Parse(compact)
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(id.String(), "-", ""), true
}
