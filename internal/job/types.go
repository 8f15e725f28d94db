package job

import (
	"context"
	"fmt"
	"time"
)

// Status represents the current state of a render job
type Status struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	Progress  float64       `json:"progress"`
	Message   string        `json:"message"`
	Error     string        `json:"error,omitempty"`
	MixID     string        `json:"mixId"`
	MixName   string        `json:"mixName,omitempty"`
	Format    string        `json:"format"`
	Duration  time.Duration `json:"duration"`
	Location  string        `json:"location,omitempty"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`

	cancelFunc context.CancelFunc
}

// Request represents the request body for starting a render. An empty Mix
// renders the mix that is currently playing.
type Request struct {
	Mix             string `json:"mix"`
	DurationSeconds int    `json:"durationSeconds" binding:"required"`
	Format          string `json:"format"`
}

// Response represents a page of jobs
type Response struct {
	Jobs       []*Status `json:"jobs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalJobs  int       `json:"totalJobs"`
	TotalPages int       `json:"totalPages"`
}

// Constants for job status
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Constants for progress percentages
const (
	ProgressRenderStart = 0
	ProgressRenderEnd   = 90
	ProgressEncodeEnd   = 99
	ProgressComplete    = 100
)

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const (
	DefaultFormat     = "wav"
	MaxRenderDuration = 8 * time.Hour
)

// ValidateDuration converts a requested length in seconds into a duration,
// rejecting lengths that are not positive or exceed MaxRenderDuration.
func ValidateDuration(seconds int) (time.Duration, error) {
	if seconds <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	d := time.Duration(seconds) * time.Second
	if d > MaxRenderDuration {
		return 0, fmt.Errorf("%w: duration exceeds %s", ErrInvalidRequest, MaxRenderDuration)
	}
	return d, nil
}

// IsFinished reports whether the job reached a terminal state.
func (s *Status) IsFinished() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
