package folders_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtalcott/notion-file-migration-tool/internal/folders"
)

type fakeStore struct {
	mu        sync.Mutex
	existing  map[string]string
	finds     int
	creates   int
	findErr   error
	createErr error
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: make(map[string]string)}
}

func (s *fakeStore) FindFolder(_ context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return "", s.findErr
	}
	return s.existing[parentID+"/"+name], nil
}

func (s *fakeStore) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return "", s.createErr
	}
	s.nextID++
	id := fmt.Sprintf("folder-%d", s.nextID)
	s.existing[parentID+"/"+name] = id
	return id, nil
}

func TestResolve_CreatesOnceAndCaches(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := folders.NewResolver(store)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "Receipts", "parent")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "Receipts", "parent")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.finds)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 1, r.Len())

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Created)
}

func TestResolve_ReusesExistingFolder(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.existing["root/Standalone"] = "existing-id"
	r := folders.NewResolver(store)

	id, err := r.Resolve(context.Background(), "Standalone", "")
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.Equal(t, 0, store.creates)
}

func TestResolve_KeysThatSanitizeAlikeShareFolder(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := folders.NewResolver(store)
	ctx := context.Background()

	a, err := r.Resolve(ctx, "Tax / 2023", "p")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, "Tax  2023", "p")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, store.finds)
}

func TestResolve_DistinctParentsAreDistinctFolders(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := folders.NewResolver(store)
	ctx := context.Background()

	a, err := r.Resolve(ctx, "Docs", "p1")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, "Docs", "p2")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestResolve_FailureIsNotCached(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.createErr = errors.New("quota exceeded")
	r := folders.NewResolver(store)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "Receipts", "p")
	require.ErrorIs(t, err, folders.ErrFolderResolution)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 0, r.Len())

	store.createErr = nil
	id, err := r.Resolve(ctx, "Receipts", "p")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2, store.finds)
}

func TestResolve_FindFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.findErr = errors.New("unavailable")
	r := folders.NewResolver(store)

	_, err := r.Resolve(context.Background(), "Receipts", "p")
	require.ErrorIs(t, err, folders.ErrFolderResolution)
	assert.Equal(t, 0, store.creates)
}

func TestResolve_ConcurrentCallersCreateOnce(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := folders.NewResolver(store)

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), "Shared", "p")
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.creates)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Receipts", "Receipts"},
		{"keeps inner spaces", "Tax Documents 2023", "Tax Documents 2023"},
		{"strips forbidden", `a/b\c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"collapses whitespace", "  Tax \t\n  Docs  ", "Tax Docs"},
		{"control characters", "Re\x00ce\x1fipts", "Receipts"},
		{"empty", "", folders.UntitledName},
		{"only forbidden", `/\:*`, folders.UntitledName},
		{"only spaces", "   ", folders.UntitledName},
		{"unicode", "Reçus été", "Reçus été"},
		{"forbidden between spaces", "a / b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := folders.Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, folders.Sanitize(got), "idempotent")
		})
	}
}
