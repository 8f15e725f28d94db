package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetJob(t *testing.T) {
	m := NewManager()

	created, ctx := m.CreateJob("mix-1", "evening", "wav", time.Minute)

	require.NotEmpty(t, created.ID)
	assert.Equal(t, StatusPending, created.Status)
	assert.NoError(t, ctx.Err())

	got, err := m.GetJob(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "mix-1", got.MixID)
	assert.Equal(t, "evening", got.MixName)
	assert.Equal(t, time.Minute, got.Duration)

	got.Status = StatusFailed
	again, _ := m.GetJob(created.ID)
	assert.Equal(t, StatusPending, again.Status, "callers get copies")
}

func TestGetJobNotFound(t *testing.T) {
	_, err := NewManager().GetJob("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobProgressTracking(t *testing.T) {
	m := NewManager()
	created, ctx := m.CreateJob("mix-1", "", "wav", time.Minute)

	require.NoError(t, m.UpdateJobStatus(created.ID, StatusProcessing, "Rendering", nil, ""))
	require.NoError(t, m.UpdateJobProgress(created.ID, 45, "Rendering 50%"))

	got, _ := m.GetJob(created.ID)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 45.0, got.Progress)
	assert.Nil(t, got.EndTime)

	require.NoError(t, m.UpdateJobStatus(created.ID, StatusCompleted, "Done", nil, "renders/x.wav"))

	got, _ = m.GetJob(created.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, float64(ProgressComplete), got.Progress)
	assert.Equal(t, "renders/x.wav", got.Location)
	require.NotNil(t, got.EndTime)
	assert.Error(t, ctx.Err(), "finished jobs release their context")

	require.NoError(t, m.UpdateJobProgress(created.ID, 10, "late"))
	got, _ = m.GetJob(created.ID)
	assert.Equal(t, float64(ProgressComplete), got.Progress, "finished jobs ignore progress")
}

func TestJobProgressEdgeCases(t *testing.T) {
	m := NewManager()
	created, _ := m.CreateJob("mix-1", "", "wav", time.Minute)

	tests := []struct {
		name     string
		progress float64
		want     float64
	}{
		{"negative clamps to zero", -5, 0},
		{"over hundred clamps", 150, 100},
		{"fraction kept", 33.3, 33.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.UpdateJobProgress(created.ID, tt.progress, ""))
			got, _ := m.GetJob(created.ID)
			assert.Equal(t, tt.want, got.Progress)
		})
	}

	assert.ErrorIs(t, m.UpdateJobProgress("missing", 1, ""), ErrNotFound)
	assert.ErrorIs(t, m.UpdateJobStatus("missing", StatusFailed, "", nil, ""), ErrNotFound)
}

func TestFailedJobKeepsError(t *testing.T) {
	m := NewManager()
	created, _ := m.CreateJob("mix-1", "", "mp3", time.Minute)

	require.NoError(t, m.UpdateJobStatus(created.ID, StatusFailed, "Render failed", errors.New("ffmpeg missing"), ""))

	got, _ := m.GetJob(created.ID)
	assert.Equal(t, "ffmpeg missing", got.Error)
	assert.True(t, got.IsFinished())
}

func TestCancelJob(t *testing.T) {
	m := NewManager()
	created, ctx := m.CreateJob("mix-1", "", "wav", time.Minute)

	require.NoError(t, m.CancelJob(created.ID))

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	got, _ := m.GetJob(created.ID)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.EndTime)

	assert.ErrorIs(t, m.CancelJob(created.ID), ErrInvalidState)
	assert.ErrorIs(t, m.CancelJob("missing"), ErrNotFound)

	require.NoError(t, m.UpdateJobStatus(created.ID, StatusFailed, "late failure", context.Canceled, ""))
	got, _ = m.GetJob(created.ID)
	assert.Equal(t, StatusCancelled, got.Status, "a cancelled job stays cancelled")
}

func TestListJobsPagination(t *testing.T) {
	m := NewManager()
	for i := 0; i < 5; i++ {
		m.CreateJob("mix", "", "wav", time.Minute)
	}

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantLen   int
		wantPage  int
		wantSize  int
		wantPages int
	}{
		{"first page", 1, 2, 2, 1, 2, 3},
		{"last partial page", 3, 2, 1, 3, 2, 3},
		{"past the end", 4, 2, 0, 4, 2, 3},
		{"invalid page defaults to first", 0, 2, 2, 1, 2, 3},
		{"invalid size defaults", 1, 0, 5, 1, DefaultPageSize, 1},
		{"oversized defaults", 1, MaxPageSize + 1, 5, 1, DefaultPageSize, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := m.ListJobs(tt.page, tt.pageSize)
			assert.Len(t, resp.Jobs, tt.wantLen)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Equal(t, tt.wantSize, resp.PageSize)
			assert.Equal(t, 5, resp.TotalJobs)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
		})
	}
}

func TestListJobsNewestFirst(t *testing.T) {
	m := NewManager()
	first, _ := m.CreateJob("a", "", "wav", time.Minute)
	time.Sleep(2 * time.Millisecond)
	second, _ := m.CreateJob("b", "", "wav", time.Minute)

	resp := m.ListJobs(1, 10)

	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, second.ID, resp.Jobs[0].ID)
	assert.Equal(t, first.ID, resp.Jobs[1].ID)
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
		wantErr bool
	}{
		{"zero", 0, 0, true},
		{"negative", -1, 0, true},
		{"one minute", 60, time.Minute, false},
		{"at limit", int(MaxRenderDuration / time.Second), MaxRenderDuration, false},
		{"over limit", int(MaxRenderDuration/time.Second) + 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDuration(tt.seconds)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPruneRemovesOldFinishedJobs(t *testing.T) {
	m := NewManager()
	done, _ := m.CreateJob("a", "", "wav", time.Minute)
	running, _ := m.CreateJob("b", "", "wav", time.Minute)
	require.NoError(t, m.UpdateJobStatus(done.ID, StatusCompleted, "Done", nil, "x.wav"))

	assert.Equal(t, 0, m.Prune(time.Now().Add(-time.Hour)), "recent jobs are kept")
	assert.Equal(t, 1, m.Prune(time.Now().Add(time.Second)))

	_, err := m.GetJob(done.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetJob(running.ID)
	assert.NoError(t, err, "unfinished jobs are never pruned")
}
