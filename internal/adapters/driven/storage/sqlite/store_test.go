package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store := newTestStore(t)
	assert.FileExists(t, store.Path())
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-apply migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	err = store.StateStore().Ping(context.Background())
	assert.NoError(t, err)
}

func TestStateStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.StateStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStateStore_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	states := store.StateStore()
	ctx := context.Background()

	entry := domain.StateEntry{
		DocumentID:  "doc-1",
		ContentHash: "abc123",
		ProjectID:   "proj-a",
		SourceType:  "filesystem",
		Status:      domain.StatusProcessed,
		LastRunID:   "run-1",
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, states.Upsert(ctx, entry))

	got, err := states.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ContentHash)
	assert.Equal(t, domain.StatusProcessed, got.Status)
	assert.Equal(t, "run-1", got.LastRunID)
}

func TestStateStore_UpsertOverwrites(t *testing.T) {
	store := newTestStore(t)
	states := store.StateStore()
	ctx := context.Background()

	entry := domain.StateEntry{
		DocumentID:  "doc-1",
		ContentHash: "hash-v1",
		ProjectID:   "proj-a",
		SourceType:  "filesystem",
		Status:      domain.StatusProcessed,
		LastRunID:   "run-1",
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, states.Upsert(ctx, entry))

	entry.ContentHash = "hash-v2"
	entry.LastRunID = "run-2"
	require.NoError(t, states.Upsert(ctx, entry))

	got, err := states.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-v2", got.ContentHash)
	assert.Equal(t, "run-2", got.LastRunID)

	// Still a single row.
	entries, err := states.List(ctx, "proj-a", "filesystem")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStateStore_Tombstone(t *testing.T) {
	store := newTestStore(t)
	states := store.StateStore()
	ctx := context.Background()

	entry := domain.StateEntry{
		DocumentID:  "doc-1",
		ContentHash: "abc",
		ProjectID:   "proj-a",
		SourceType:  "filesystem",
		Status:      domain.StatusProcessed,
		LastRunID:   "run-1",
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, states.Upsert(ctx, entry))

	require.NoError(t, states.Tombstone(ctx, "doc-1", "run-2"))

	got, err := states.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTombstoned, got.Status)
	assert.Equal(t, "run-2", got.LastRunID)
}

func TestStateStore_TombstoneMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.StateStore().Tombstone(context.Background(), "missing", "run-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStateStore_ListScopedByProjectAndSource(t *testing.T) {
	store := newTestStore(t)
	states := store.StateStore()
	ctx := context.Background()

	seed := []domain.StateEntry{
		{DocumentID: "a", ContentHash: "h1", ProjectID: "proj-a", SourceType: "filesystem", Status: domain.StatusProcessed},
		{DocumentID: "b", ContentHash: "h2", ProjectID: "proj-a", SourceType: "filesystem", Status: domain.StatusTombstoned},
		{DocumentID: "c", ContentHash: "h3", ProjectID: "proj-a", SourceType: "github", Status: domain.StatusProcessed},
		{DocumentID: "d", ContentHash: "h4", ProjectID: "proj-b", SourceType: "filesystem", Status: domain.StatusProcessed},
	}
	for _, e := range seed {
		e.UpdatedAt = time.Now().UTC()
		require.NoError(t, states.Upsert(ctx, e))
	}

	entries, err := states.List(ctx, "proj-a", "filesystem")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	ids := []string{entries[0].DocumentID, entries[1].DocumentID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestRunStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	runs := store.RunStore()
	ctx := context.Background()

	run := &domain.PipelineRun{
		RunID:         "run-1",
		ProjectFilter: "proj-a",
		Status:        domain.RunRunning,
		StartedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, runs.SaveRun(ctx, run))

	got, err := runs.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, got.Status)
	assert.Equal(t, "proj-a", got.ProjectFilter)
	assert.True(t, got.FinishedAt.IsZero())
}

func TestRunStore_SaveUpdatesExistingRun(t *testing.T) {
	store := newTestStore(t)
	runs := store.RunStore()
	ctx := context.Background()

	run := &domain.PipelineRun{
		RunID:     "run-1",
		Status:    domain.RunRunning,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, runs.SaveRun(ctx, run))

	run.Status = domain.RunCompleted
	run.FinishedAt = time.Now().UTC().Truncate(time.Second)
	run.Counts = domain.RunCounts{Seen: 10, New: 3, Changed: 1, Unchanged: 5, Deleted: 0, Failed: 1}
	run.Failures = []domain.Failure{
		{DocumentID: "doc-9", Stage: "embed", Kind: "rate_limited", Message: "429 from provider"},
	}
	require.NoError(t, runs.SaveRun(ctx, run))

	got, err := runs.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 10, got.Counts.Seen)
	assert.Equal(t, 3, got.Counts.New)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "doc-9", got.Failures[0].DocumentID)
	assert.Equal(t, "embed", got.Failures[0].Stage)
}

func TestRunStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.RunStore().GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	runs := store.RunStore()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := &domain.PipelineRun{
			RunID:     id,
			Status:    domain.RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, runs.SaveRun(ctx, run))
	}

	list, err := runs.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-3", list[0].RunID)
	assert.Equal(t, "run-2", list[1].RunID)
}
