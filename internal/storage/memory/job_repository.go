package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pedidohub/backoffice/internal/domain"
)

type jobRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Job
	ttl   time.Duration
}

// NewJobRepository returns an in-memory JobRepository. Finished records expire
// after ttl; zero means 24 hours.
func NewJobRepository(ttl time.Duration) domain.JobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &jobRepositoryInMemory{
		items: make(map[string]domain.Job),
		ttl:   ttl,
	}
}

func (r *jobRepositoryInMemory) Enqueue(job domain.Job) (domain.Job, error) {
	if errs := job.ValidateInvariants(); len(errs) > 0 {
		return domain.Job{}, errs[0]
	}

	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = domain.JobStatusQueued
	job.Progress = 0
	job.CreatedAt = now
	job.UpdatedAt = now
	job.ExpiresAt = now.Add(r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[job.ID] = cloneJob(job)
	return cloneJob(job), nil
}

func (r *jobRepositoryInMemory) Get(id string) (domain.Job, error) {
	id = strings.TrimSpace(id)

	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.items[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (r *jobRepositoryInMemory) MarkActive(id string, attempt int) error {
	return r.update(id, func(job *domain.Job) {
		job.Status = domain.JobStatusActive
		if attempt > job.Attempts {
			job.Attempts = attempt
		}
	})
}

func (r *jobRepositoryInMemory) SetProgress(id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return r.update(id, func(job *domain.Job) {
		job.Progress = progress
	})
}

func (r *jobRepositoryInMemory) SetOrderID(id, orderID string) error {
	return r.update(id, func(job *domain.Job) {
		job.OrderID = orderID
	})
}

func (r *jobRepositoryInMemory) MarkCompleted(id string) error {
	return r.update(id, func(job *domain.Job) {
		job.Status = domain.JobStatusCompleted
		job.Progress = 100
		job.LastError = ""
	})
}

func (r *jobRepositoryInMemory) MarkFailed(id string, lastError string) error {
	return r.update(id, func(job *domain.Job) {
		job.Status = domain.JobStatusFailed
		job.LastError = lastError
	})
}

func (r *jobRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.items {
		if !job.Status.Terminal() {
			continue
		}
		if job.ExpiresAt.After(before) {
			continue
		}

		delete(r.items, id)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

func (r *jobRepositoryInMemory) CountByStatus() (map[domain.JobStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.JobStatus]int64)
	for _, job := range r.items {
		counts[job.Status]++
	}
	return counts, nil
}

func (r *jobRepositoryInMemory) update(id string, apply func(*domain.Job)) error {
	id = strings.TrimSpace(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.items[id]
	if !ok {
		return domain.ErrJobNotFound
	}

	apply(&job)
	job.UpdatedAt = time.Now().UTC()
	r.items[id] = job
	return nil
}

func cloneJob(src domain.Job) domain.Job {
	dst := src
	dst.Payload = append([]byte(nil), src.Payload...)
	return dst
}

var _ domain.JobRepository = (*jobRepositoryInMemory)(nil)
