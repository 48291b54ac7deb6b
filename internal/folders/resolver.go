// Package folders maps grouping keys to destination folders, creating each
// folder at most once per run.
package folders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// RootID is the parent id used when no parent folder is configured.
const RootID = "root"

// UntitledName replaces a key that sanitizes to nothing.
const UntitledName = "Untitled"

// ErrFolderResolution wraps every find or create failure.
var ErrFolderResolution = errors.New("folder resolution failed")

// Store is the destination side of folder resolution.
type Store interface {
	// FindFolder returns the id of a non-trashed folder named name directly
	// under parentID, or "" when none exists.
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	// CreateFolder creates a folder named name under parentID and returns its id.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
}

type cacheKey struct {
	parent string
	name   string
}

// Resolver memoises grouping key to folder id resolution for one run.
type Resolver struct {
	store Store

	mu    sync.Mutex
	cache map[cacheKey]string

	hits    atomic.Int64
	misses  atomic.Int64
	created atomic.Int64
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[cacheKey]string),
	}
}

// Resolve returns the folder id for key under parentID, looking it up or
// creating it on first use. Failures are returned wrapped in
// ErrFolderResolution and are not cached, so a later call retries.
func (r *Resolver) Resolve(ctx context.Context, key, parentID string) (string, error) {
	name := Sanitize(key)
	if parentID == "" {
		parentID = RootID
	}
	ck := cacheKey{parent: parentID, name: name}

	// Held across the store calls so that two concurrent misses for the same
	// key cannot both create a folder.
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.cache[ck]; ok {
		r.hits.Add(1)
		return id, nil
	}
	r.misses.Add(1)

	id, err := r.store.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("%w: find %q: %w", ErrFolderResolution, name, err)
	}

	if id == "" {
		id, err = r.store.CreateFolder(ctx, name, parentID)
		if err != nil {
			return "", fmt.Errorf("%w: create %q: %w", ErrFolderResolution, name, err)
		}
		if id == "" {
			return "", fmt.Errorf("%w: create %q returned no id", ErrFolderResolution, name)
		}
		r.created.Add(1)
	}

	r.cache[ck] = id
	return id, nil
}

// Len returns the number of cached folders.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// Stats is a snapshot of resolver activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Created int64
	Cached  int
}

// Stats returns cache counters for the run summary.
func (r *Resolver) Stats() Stats {
	return Stats{
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
		Created: r.created.Load(),
		Cached:  r.Len(),
	}
}

const forbidden = `/\:*?"<>|`

// Sanitize turns a grouping key into a folder name: it drops path separators,
// wildcard characters and control characters, collapses whitespace runs to a
// single space and trims. An empty result becomes UntitledName.
func Sanitize(key string) string {
	var b strings.Builder
	b.Grow(len(key))

	pendingSpace := false
	for _, r := range key {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case strings.ContainsRune(forbidden, r), unicode.IsControl(r):
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return UntitledName
	}
	return b.String()
}
