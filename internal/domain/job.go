package domain

import "time"

// JobType names the kind of work a queued job carries.
type JobType string

const (
	// JobTypeOrderProcess runs the four step order pipeline over an imported payload.
	JobTypeOrderProcess JobType = "order.process"
)

// JobStatus describes the lifecycle of a queued job.
type JobStatus string

const (
	// JobStatusQueued — the job is enqueued and waits for the worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusActive — the worker picked the job up.
	JobStatusActive JobStatus = "active"
	// JobStatusCompleted — the pipeline finished all steps.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed — the queue gave up redelivering the job.
	JobStatusFailed JobStatus = "failed"
)

// Valid reports whether the status is one of the supported values.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusActive, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the job will not be picked up again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the persisted record of one queued unit of work. The queue itself is
// external; this record is where its per-job progress reporting lands and what
// the jobs API serves.
type Job struct {
	ID      string
	Type    JobType
	Payload []byte
	Status  JobStatus
	// Progress in percent, 0 to 100, advanced by the pipeline after each step.
	Progress int
	Attempts int
	// MaxAttempts mirrors the queue redelivery limit for visibility.
	MaxAttempts int
	LastError   string
	// OrderID is filled once the pipeline created the order.
	OrderID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	// ExpiresAt is when the cleanup worker may prune a finished record.
	ExpiresAt time.Time
}

// ValidateInvariants checks the job fields and returns every violation found.
func (j *Job) ValidateInvariants() []error {
	var errs []error

	if j.Type == "" {
		errs = append(errs, ErrJobTypeRequired)
	}
	if len(j.Payload) == 0 {
		errs = append(errs, ErrJobPayloadRequired)
	}
	if j.Status != "" && !j.Status.Valid() {
		errs = append(errs, ErrJobStatusInvalid)
	}
	if j.Progress < 0 || j.Progress > 100 {
		errs = append(errs, ErrJobProgressInvalid)
	}

	return errs
}
