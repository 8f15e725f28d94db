package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/job"
)

// renderTimeout bounds a render job; rendering runs faster than real time,
// so the allowance grows with the requested length.
func renderTimeout(d time.Duration) time.Duration {
	return 15*time.Minute + d
}

// renderInBackground waits for a render slot, renders mix and records the
// outcome on the job.
func (s *Server) renderInBackground(ctx context.Context, jobID string, mix *domain.Mix, d time.Duration, format string) {
	slog.Info("Render queued", "jobId", jobID, "mixId", mix.ID(), "duration", d, "format", format)

	select {
	case s.renderSlots <- struct{}{}:
		defer func() { <-s.renderSlots }()
	case <-ctx.Done():
		slog.Warn("Render cancelled while queued", "jobId", jobID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, renderTimeout(d))
	defer cancel()

	s.updateJobStatus(jobID, job.StatusProcessing, "Rendering mix", nil, "")

	lastPercent := -1
	progress := func(done, total int) {
		percent := done * 100 / total
		if percent == lastPercent {
			return
		}
		lastPercent = percent
		p := float64(job.ProgressRenderStart) + float64(job.ProgressRenderEnd-job.ProgressRenderStart)*float64(done)/float64(total)
		if err := s.jobManager.UpdateJobProgress(jobID, p, fmt.Sprintf("Rendered %d%%", percent)); err != nil {
			slog.Debug("Progress update dropped", "jobId", jobID, "error", err)
		}
	}

	location, err := s.renderer.Render(ctx, mix, d, format, progress)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			slog.Warn("Render cancelled", "jobId", jobID)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			slog.Error("Render timed out", "jobId", jobID, "error", err)
			s.updateJobStatus(jobID, job.StatusFailed, "Render timed out", err, "")
		default:
			slog.Error("Render failed", "jobId", jobID, "error", err)
			s.updateJobStatus(jobID, job.StatusFailed, "Render failed", err, "")
		}
		return
	}

	s.updateJobStatus(jobID, job.StatusCompleted, "Render completed successfully", nil, location)
	slog.Info("Render completed", "jobId", jobID, "location", location)
}

func (s *Server) updateJobStatus(jobID, status, message string, err error, location string) {
	if updateErr := s.jobManager.UpdateJobStatus(jobID, status, message, err, location); updateErr != nil {
		slog.Error("Failed to update job", "jobId", jobID, "status", status, "error", updateErr)
	}
}
