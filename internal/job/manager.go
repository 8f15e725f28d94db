package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager keeps render jobs in memory. Callers get copies of the stored
// status; updates go through the Update methods.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Status
}

// NewManager creates a new job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Status),
	}
}

// CreateJob registers a pending job and returns it together with the
// context the render must observe.
func (m *Manager) CreateJob(mixID, mixName, format string, duration time.Duration) (*Status, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &Status{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		Progress:   ProgressRenderStart,
		Message:    "Job created",
		MixID:      mixID,
		MixName:    mixName,
		Format:     format,
		Duration:   duration,
		StartTime:  time.Now(),
		cancelFunc: cancel,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	snapshot := *job
	return &snapshot, ctx
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	snapshot := *job
	return &snapshot, nil
}

// CancelJob cancels a pending or processing job
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	if job.IsFinished() {
		return fmt.Errorf("%w: %s", ErrInvalidState, job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	job.Message = "Job cancelled by user"
	endTime := time.Now()
	job.EndTime = &endTime

	return nil
}

// UpdateJobProgress records progress of a running job. Finished jobs are
// left untouched.
func (m *Manager) UpdateJobProgress(jobID string, progress float64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if job.IsFinished() {
		return nil
	}

	job.Progress = min(max(progress, 0), ProgressComplete)
	job.Message = message
	return nil
}

// UpdateJobStatus moves a job to status. Terminal states set the end time;
// a cancelled job keeps its state.
func (m *Manager) UpdateJobStatus(jobID, status, message string, jobErr error, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if job.Status == StatusCancelled {
		return nil
	}

	job.Status = status
	job.Message = message
	if jobErr != nil {
		job.Error = jobErr.Error()
	}
	if location != "" {
		job.Location = location
	}
	if status == StatusCompleted {
		job.Progress = ProgressComplete
	}
	if job.IsFinished() {
		endTime := time.Now()
		job.EndTime = &endTime
		job.cancelFunc()
	}
	return nil
}

// ListJobs lists jobs newest first with pagination
func (m *Manager) ListJobs(page, pageSize int) *Response {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	m.mu.RLock()
	jobs := make([]*Status, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].StartTime.Equal(jobs[j].StartTime) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	totalPages := (len(jobs) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start >= len(jobs) {
		return &Response{
			Jobs:       []*Status{},
			Page:       page,
			PageSize:   pageSize,
			TotalJobs:  len(jobs),
			TotalPages: totalPages,
		}
	}
	end := min(start+pageSize, len(jobs))

	return &Response{
		Jobs:       jobs[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  len(jobs),
		TotalPages: totalPages,
	}
}

// Prune forgets finished jobs that ended before cutoff and returns how many
// were removed.
func (m *Manager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if job.IsFinished() && job.EndTime != nil && job.EndTime.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
