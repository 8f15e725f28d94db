package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/engine"
	"github.com/jaki95/ambient-mixer/internal/job"
)

// startRender godoc
// @Summary Render a mix to an audio file
// @Description Renders the current mix, or a saved one, offline in the background.
// @Tags Renders
// @Accept json
// @Produce json
// @Param request body job.Request true "Render parameters"
// @Success 202 {object} RenderResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/renders [post]
func (s *Server) startRender(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	duration, err := job.ValidateDuration(req.DurationSeconds)
	if err != nil {
		writeError(c, err)
		return
	}

	req.Format = strings.ToLower(strings.TrimPrefix(req.Format, "."))
	if req.Format == "" {
		req.Format = job.DefaultFormat
	}
	if !engine.IsSupportedFormat(req.Format) {
		writeError(c, fmt.Errorf("%w: unsupported format %s", job.ErrInvalidRequest, req.Format))
		return
	}

	var mix *domain.Mix
	if req.Mix == "" {
		mix = s.mixes.Current()
	} else if mix, err = s.mixes.Saved(req.Mix); err != nil {
		writeError(c, err)
		return
	}
	if err := mix.EnsureNotEmpty(); err != nil {
		writeError(c, err)
		return
	}

	jobStatus, ctx := s.jobManager.CreateJob(mix.ID(), req.Mix, req.Format, duration)
	go s.renderInBackground(ctx, jobStatus.ID, mix, duration, req.Format)

	c.JSON(http.StatusAccepted, RenderResponse{
		Message: "Render started",
		JobID:   jobStatus.ID,
	})
}

// getJobStatus godoc
// @Summary Get render status
// @Tags Renders
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} job.Status
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/renders/{id} [get]
func (s *Server) getJobStatus(c *gin.Context) {
	jobStatus, err := s.jobManager.GetJob(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobStatus)
}

// cancelJob godoc
// @Summary Cancel a render
// @Tags Renders
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Job cannot be cancelled (invalid state)"
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/renders/{id} [delete]
func (s *Server) cancelJob(c *gin.Context) {
	jobID := c.Param("id")

	if err := s.jobManager.CancelJob(jobID); err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound), errors.Is(err, job.ErrInvalidState):
			writeError(c, err)
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Job cancelled"})
}

// listJobs godoc
// @Summary List renders
// @Tags Renders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of jobs per page (max 100)" default(10)
// @Success 200 {object} job.Response
// @Router /api/v1/renders [get]
func (s *Server) listJobs(c *gin.Context) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}

	c.JSON(http.StatusOK, s.jobManager.ListJobs(page, pageSize))
}
