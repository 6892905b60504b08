package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pedidohub/backoffice/internal/domain"
)

type jobRepository struct {
	db  *sql.DB
	ttl time.Duration
}

// NewJobRepository returns the PostgreSQL JobRepository. Finished records
// expire after ttl; zero means 24 hours.
func NewJobRepository(store *Store, ttl time.Duration) domain.JobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &jobRepository{db: store.DB(), ttl: ttl}
}

func (r *jobRepository) Enqueue(job domain.Job) (domain.Job, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, type, payload, status, progress, attempts, max_attempts,
			last_error, order_id, created_at, updated_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		job.ID, string(job.Type), job.Payload, string(job.Status), job.Progress,
		job.Attempts, job.MaxAttempts, job.LastError, nullString(job.OrderID),
		job.CreatedAt, job.UpdatedAt, job.ExpiresAt,
	)
	if err != nil {
		return domain.Job{}, fmt.Errorf("insert job: %w", err)
	}

	return job, nil
}

func (r *jobRepository) Get(id string) (domain.Job, error) {
	id = strings.TrimSpace(id)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		job     domain.Job
		jobType string
		status  string
		orderID sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, type, payload, status, progress, attempts, max_attempts,
		       last_error, order_id, created_at, updated_at, expires_at
		FROM jobs
		WHERE id = $1
	`, id).Scan(
		&job.ID, &jobType, &job.Payload, &status, &job.Progress,
		&job.Attempts, &job.MaxAttempts, &job.LastError, &orderID,
		&job.CreatedAt, &job.UpdatedAt, &job.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrJobNotFound
		}
		return domain.Job{}, fmt.Errorf("select job: %w", err)
	}

	job.Type = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	if !job.Status.Valid() {
		return domain.Job{}, fmt.Errorf("invalid job status %q for job %s", status, id)
	}
	if orderID.Valid {
		job.OrderID = orderID.String
	}

	return job, nil
}

func (r *jobRepository) MarkActive(id string, attempt int) error {
	return r.exec(id, `
		UPDATE jobs
		SET status = $2,
		    attempts = GREATEST(attempts, $3),
		    updated_at = $4
		WHERE id = $1
	`, string(domain.JobStatusActive), attempt, time.Now().UTC())
}

func (r *jobRepository) SetProgress(id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return r.exec(id, `
		UPDATE jobs
		SET progress = $2,
		    updated_at = $3
		WHERE id = $1
	`, progress, time.Now().UTC())
}

func (r *jobRepository) SetOrderID(id, orderID string) error {
	return r.exec(id, `
		UPDATE jobs
		SET order_id = $2,
		    updated_at = $3
		WHERE id = $1
	`, orderID, time.Now().UTC())
}

func (r *jobRepository) MarkCompleted(id string) error {
	return r.exec(id, `
		UPDATE jobs
		SET status = $2,
		    progress = 100,
		    last_error = '',
		    updated_at = $3
		WHERE id = $1
	`, string(domain.JobStatusCompleted), time.Now().UTC())
}

func (r *jobRepository) MarkFailed(id string, lastError string) error {
	return r.exec(id, `
		UPDATE jobs
		SET status = $2,
		    last_error = $3,
		    updated_at = $4
		WHERE id = $1
	`, string(domain.JobStatusFailed), lastError, time.Now().UTC())
}

func (r *jobRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)

	// Only finished records are pruned; a stuck active job stays visible.
	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM jobs
			WHERE id IN (
				SELECT id
				FROM jobs
				WHERE expires_at <= $1
				  AND status IN ($2, $3)
				ORDER BY expires_at ASC
				LIMIT $4
			)
		`, before, string(domain.JobStatusCompleted), string(domain.JobStatusFailed), limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM jobs
			WHERE expires_at <= $1
			  AND status IN ($2, $3)
		`, before, string(domain.JobStatusCompleted), string(domain.JobStatusFailed))
	}
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("job rows affected: %w", err)
	}

	return int(affected), nil
}

func (r *jobRepository) CountByStatus() (map[domain.JobStatus]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM jobs
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job status count: %w", err)
		}
		counts[domain.JobStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job status counts: %w", err)
	}

	return counts, nil
}

func (r *jobRepository) exec(id, query string, args ...any) error {
	id = strings.TrimSpace(id)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("job rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}

var _ domain.JobRepository = (*jobRepository)(nil)
