package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestRunStore_SaveAndGet(t *testing.T) {
	s := NewRunStore()
	ctx := context.Background()

	run := &domain.PipelineRun{
		RunID:     "run-1",
		Status:    domain.RunCompleted,
		StartedAt: time.Now().UTC(),
		Counts:    domain.RunCounts{Seen: 5, New: 3, Failed: 1},
		Failures: []domain.Failure{
			{DocumentID: "doc-x", Stage: "embed", Kind: "rate_limited", Message: "quota"},
		},
	}
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 5, got.Counts.Seen)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "doc-x", got.Failures[0].DocumentID)
}

func TestRunStore_SaveUpdatesExisting(t *testing.T) {
	s := NewRunStore()
	ctx := context.Background()

	run := &domain.PipelineRun{RunID: "run-1", Status: domain.RunRunning, StartedAt: time.Now().UTC()}
	require.NoError(t, s.SaveRun(ctx, run))

	run.Status = domain.RunCompleted
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
}

func TestRunStore_GetNotFound(t *testing.T) {
	_, err := NewRunStore().GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	s := NewRunStore()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveRun(ctx, &domain.PipelineRun{
			RunID:     fmt.Sprintf("run-%d", i),
			Status:    domain.RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-4", got[0].RunID)
	assert.Equal(t, "run-3", got[1].RunID)
	assert.Equal(t, "run-2", got[2].RunID)
}

func TestRunStore_ListNoLimit(t *testing.T) {
	s := NewRunStore()
	ctx := context.Background()
	require.NoError(t, s.SaveRun(ctx, &domain.PipelineRun{RunID: "run-1", StartedAt: time.Now()}))

	got, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
