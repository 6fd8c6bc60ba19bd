package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobType represents the type of job
type JobType string

const (
	JobTypePrefetch   JobType = "prefetch"
	JobTypeCacheClear JobType = "cache_clear"
)

// Job represents a background job or operation
type Job struct {
	ID          ulid.ULID  `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`         // 0-100
	CurrentStep string     `json:"currentStep"`      // Human-readable current step
	TotalSteps  int        `json:"totalSteps"`       // Total number of steps
	Message     string     `json:"message"`          // Status message
	Error       string     `json:"error,omitempty"`  // Error message if failed
	Result      string     `json:"result,omitempty"` // JSON result data
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CreateJob creates a new job in the database
func (b *BunDB) CreateJob(jobType JobType, message string) (*Job, error) {
	now := time.Now()
	jobID, err := CalculateULID(now)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        jobID,
		Type:      jobType,
		Status:    JobStatusPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = b.db.NewInsert().
		Model(FromJob(job)).
		Exec(context.Background())
	if err != nil {
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID
func (b *BunDB) GetJob(id ulid.ULID) (*Job, error) {
	bunJob := new(BunJob)
	err := b.db.NewSelect().
		Model(bunJob).
		Where("id = ?", id.String()).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return bunJob.ToJob()
}

// GetRecentJobs retrieves the most recent jobs with pagination
func (b *BunDB) GetRecentJobs(limit, offset int) ([]Job, error) {
	var bunJobs []BunJob
	err := b.db.NewSelect().
		Model(&bunJobs).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return toJobs(bunJobs)
}

// GetActiveJobs retrieves all running or pending jobs
func (b *BunDB) GetActiveJobs() ([]Job, error) {
	var bunJobs []BunJob
	err := b.db.NewSelect().
		Model(&bunJobs).
		Where("status IN (?, ?)", string(JobStatusPending), string(JobStatusRunning)).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return toJobs(bunJobs)
}

// UpdateJobStatus updates the status of a job
func (b *BunDB) UpdateJobStatus(id ulid.ULID, status JobStatus, message string) error {
	now := time.Now()

	query := b.db.NewUpdate().
		Model((*BunJob)(nil)).
		Set("status = ?", string(status)).
		Set("message = ?", message).
		Set("updated_at = ?", now).
		Where("id = ?", id.String())

	if status == JobStatusRunning {
		query = query.Set("started_at = COALESCE(started_at, ?)", now)
	}
	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		query = query.Set("completed_at = ?", now)
	}

	_, err := query.Exec(context.Background())
	return err
}

// UpdateJobProgress updates the progress of a job
func (b *BunDB) UpdateJobProgress(id ulid.ULID, progress int, currentStep string) error {
	_, err := b.db.NewUpdate().
		Model((*BunJob)(nil)).
		Set("progress = ?", progress).
		Set("current_step = ?", currentStep).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id.String()).
		Exec(context.Background())
	return err
}

// UpdateJobError marks a job as failed with an error message
func (b *BunDB) UpdateJobError(id ulid.ULID, errorMsg string) error {
	now := time.Now()
	_, err := b.db.NewUpdate().
		Model((*BunJob)(nil)).
		Set("status = ?", string(JobStatusFailed)).
		Set("error = ?", errorMsg).
		Set("updated_at = ?", now).
		Set("completed_at = ?", now).
		Where("id = ?", id.String()).
		Exec(context.Background())
	return err
}

// CompleteJob marks a job as completed with optional result data
func (b *BunDB) CompleteJob(id ulid.ULID, result string) error {
	now := time.Now()
	_, err := b.db.NewUpdate().
		Model((*BunJob)(nil)).
		Set("status = ?", string(JobStatusCompleted)).
		Set("progress = ?", 100).
		Set("result = ?", result).
		Set("updated_at = ?", now).
		Set("completed_at = ?", now).
		Where("id = ?", id.String()).
		Exec(context.Background())
	return err
}

func toJobs(bunJobs []BunJob) ([]Job, error) {
	jobs := make([]Job, 0, len(bunJobs))
	for i := range bunJobs {
		job, err := bunJobs[i].ToJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
