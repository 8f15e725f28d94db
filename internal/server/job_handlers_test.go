package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/ambient-mixer/internal/job"
)

func (s *testServer) waitForJob(t *testing.T, id string, status string) job.Status {
	t.Helper()
	var got job.Status
	require.Eventually(t, func() bool {
		got = decode[job.Status](t, s.do(t, http.MethodGet, "/api/v1/renders/"+id, nil))
		return got.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestRenderCurrentMix(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/mix/tracks", gin.H{"id": "rain"})

	rr := s.do(t, http.MethodPost, "/api/v1/renders", gin.H{"durationSeconds": 60})

	require.Equal(t, http.StatusAccepted, rr.Code)
	resp := decode[RenderResponse](t, rr)
	require.NotEmpty(t, resp.JobID)

	done := s.waitForJob(t, resp.JobID, job.StatusCompleted)
	assert.Equal(t, float64(job.ProgressComplete), done.Progress)
	assert.Equal(t, "wav", done.Format)
	assert.Equal(t, time.Minute, done.Duration)
	assert.Equal(t, "renders/"+done.MixID+".wav", done.Location)
	assert.NotNil(t, done.EndTime)
}

func TestRenderSavedMix(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/mix/tracks", gin.H{"id": "rain"})
	s.do(t, http.MethodPost, "/api/v1/mixes/night", nil)
	s.do(t, http.MethodDelete, "/api/v1/mix", nil)

	rr := s.do(t, http.MethodPost, "/api/v1/renders", gin.H{"mix": "night", "durationSeconds": 5, "format": "MP3"})

	require.Equal(t, http.StatusAccepted, rr.Code)
	done := s.waitForJob(t, decode[RenderResponse](t, rr).JobID, job.StatusCompleted)
	assert.Equal(t, "night", done.MixName)
	assert.Equal(t, "mp3", done.Format)
	assert.Empty(t, s.player.ActiveSounds(), "rendering a saved mix does not play it")
}

func TestRenderValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"missing duration", gin.H{}, http.StatusBadRequest},
		{"empty current mix", gin.H{"durationSeconds": 10}, http.StatusUnprocessableEntity},
		{"unknown saved mix", gin.H{"mix": "missing", "durationSeconds": 10}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, s.do(t, http.MethodPost, "/api/v1/renders", tt.body).Code)
		})
	}

	s.do(t, http.MethodPost, "/api/v1/mix/tracks", gin.H{"id": "rain"})

	more := []struct {
		name string
		body any
	}{
		{"negative duration", gin.H{"durationSeconds": -5}},
		{"too long", gin.H{"durationSeconds": int(job.MaxRenderDuration/time.Second) + 1}},
		{"unsupported format", gin.H{"durationSeconds": 10, "format": "ogg"}},
	}

	for _, tt := range more {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/renders", tt.body).Code)
		})
	}
}

func TestRenderFailureIsRecorded(t *testing.T) {
	s := newTestServer(t)
	s.renderer.err = errors.New("encoder exploded")
	s.do(t, http.MethodPost, "/api/v1/mix/tracks", gin.H{"id": "rain"})

	rr := s.do(t, http.MethodPost, "/api/v1/renders", gin.H{"durationSeconds": 10})

	failed := s.waitForJob(t, decode[RenderResponse](t, rr).JobID, job.StatusFailed)
	assert.Equal(t, "encoder exploded", failed.Error)
}

func TestCancelRender(t *testing.T) {
	s := newTestServer(t)
	s.renderer.release = make(chan struct{})
	s.do(t, http.MethodPost, "/api/v1/mix/tracks", gin.H{"id": "rain"})

	id := decode[RenderResponse](t, s.do(t, http.MethodPost, "/api/v1/renders", gin.H{"durationSeconds": 10})).JobID
	s.waitForJob(t, id, job.StatusProcessing)

	rr := s.do(t, http.MethodDelete, "/api/v1/renders/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	cancelled := s.waitForJob(t, id, job.StatusCancelled)
	assert.NotNil(t, cancelled.EndTime)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/v1/renders/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/renders/missing", nil).Code)
}

func TestRendersWaitForASlot(t *testing.T) {
	s := newTestServer(t)
	s.renderer.release = make(chan struct{})
	s.do(t, http.MethodPost, "/api/v1/mix/tracks", gin.H{"id": "rain"})

	first := decode[RenderResponse](t, s.do(t, http.MethodPost, "/api/v1/renders", gin.H{"durationSeconds": 10})).JobID
	s.waitForJob(t, first, job.StatusProcessing)
	second := decode[RenderResponse](t, s.do(t, http.MethodPost, "/api/v1/renders", gin.H{"durationSeconds": 10})).JobID

	time.Sleep(20 * time.Millisecond)
	queued := decode[job.Status](t, s.do(t, http.MethodGet, "/api/v1/renders/"+second, nil))
	assert.Equal(t, job.StatusPending, queued.Status)

	close(s.renderer.release)
	s.waitForJob(t, first, job.StatusCompleted)
	s.waitForJob(t, second, job.StatusCompleted)
}

func TestGetUnknownRender(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/v1/renders/missing", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListRenders(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.jobManager.CreateJob("mix", "", "wav", time.Minute)
	}

	tests := []struct {
		name     string
		query    string
		wantLen  int
		wantSize int
	}{
		{"defaults", "", 3, job.DefaultPageSize},
		{"paged", "?page=2&pageSize=2", 1, 2},
		{"invalid values fall back", "?page=abc&pageSize=1000", 3, job.DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodGet, "/api/v1/renders"+tt.query, nil)
			require.Equal(t, http.StatusOK, rr.Code)
			resp := decode[job.Response](t, rr)
			assert.Len(t, resp.Jobs, tt.wantLen)
			assert.Equal(t, tt.wantSize, resp.PageSize)
			assert.Equal(t, 3, resp.TotalJobs)
		})
	}
}
