package server

import (
	"log/slog"
	"time"
)

const (
	// Finished render jobs are forgotten after this long
	DefaultJobTTL = 24 * time.Hour

	// Cleanup interval for old jobs
	CleanupInterval = 2 * time.Hour
)

// StartCleanupWorker starts a background worker that prunes old render jobs.
// It stops when stop is closed.
func (s *Server) StartCleanupWorker(stop <-chan struct{}) {
	ticker := time.NewTicker(CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cleanupOldJobs(time.Now())
			case <-stop:
				return
			}
		}
	}()
	slog.Info("Job cleanup worker started", "interval", CleanupInterval)
}

func (s *Server) cleanupOldJobs(now time.Time) int {
	removed := s.jobManager.Prune(now.Add(-DefaultJobTTL))
	if removed > 0 {
		slog.Info("Cleanup completed", "jobs_removed", removed)
	}
	return removed
}
