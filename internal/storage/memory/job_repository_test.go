package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/storage/memory"
)

func newJob() domain.Job {
	return domain.Job{
		Type:        domain.JobTypeOrderProcess,
		Payload:     []byte(`{"shopify_order_id":"shopify-1001"}`),
		MaxAttempts: 3,
	}
}

func TestJobRepository_EnqueueAndGet(t *testing.T) {
	repo := memory.NewJobRepository(time.Hour)

	created, err := repo.Enqueue(newJob())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Status != domain.JobStatusQueued {
		t.Fatalf("expected status %s, got %s", domain.JobStatusQueued, created.Status)
	}
	if created.ExpiresAt.IsZero() {
		t.Fatal("expected expiry to be set")
	}

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Progress != 0 {
		t.Fatalf("expected progress 0, got %d", got.Progress)
	}
}

func TestJobRepository_EnqueueRejectsInvalid(t *testing.T) {
	repo := memory.NewJobRepository(time.Hour)

	if _, err := repo.Enqueue(domain.Job{Type: domain.JobTypeOrderProcess}); !errors.Is(err, domain.ErrJobPayloadRequired) {
		t.Fatalf("expected ErrJobPayloadRequired, got %v", err)
	}
}

func TestJobRepository_Lifecycle(t *testing.T) {
	repo := memory.NewJobRepository(time.Hour)

	created, err := repo.Enqueue(newJob())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkActive(created.ID, 1); err != nil {
		t.Fatalf("mark active failed: %v", err)
	}
	if err := repo.SetProgress(created.ID, 50); err != nil {
		t.Fatalf("set progress failed: %v", err)
	}
	if err := repo.SetOrderID(created.ID, "order-1"); err != nil {
		t.Fatalf("set order failed: %v", err)
	}

	active, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if active.Status != domain.JobStatusActive {
		t.Fatalf("expected status %s, got %s", domain.JobStatusActive, active.Status)
	}
	if active.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", active.Attempts)
	}
	if active.Progress != 50 {
		t.Fatalf("expected progress 50, got %d", active.Progress)
	}
	if active.OrderID != "order-1" {
		t.Fatalf("expected order-1, got %s", active.OrderID)
	}

	if err := repo.MarkCompleted(created.ID); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}
	done, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("expected status %s, got %s", domain.JobStatusCompleted, done.Status)
	}
	if done.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", done.Progress)
	}
}

func TestJobRepository_MarkFailedKeepsError(t *testing.T) {
	repo := memory.NewJobRepository(time.Hour)

	created, err := repo.Enqueue(newJob())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkFailed(created.ID, "no supplier available"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	failed, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if failed.Status != domain.JobStatusFailed {
		t.Fatalf("expected status %s, got %s", domain.JobStatusFailed, failed.Status)
	}
	if failed.LastError != "no supplier available" {
		t.Fatalf("expected last error, got %q", failed.LastError)
	}

	if err := repo.MarkFailed("missing", "x"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobRepository_DeleteExpired(t *testing.T) {
	repo := memory.NewJobRepository(time.Millisecond)

	done, err := repo.Enqueue(newJob())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := repo.MarkCompleted(done.ID); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	// Still running jobs are never pruned, expired or not.
	running, err := repo.Enqueue(newJob())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := repo.MarkActive(running.ID, 1); err != nil {
		t.Fatalf("mark active failed: %v", err)
	}

	removed, err := repo.DeleteExpired(time.Now().UTC().Add(time.Second), 10)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected removed=1, got %d", removed)
	}

	if _, err := repo.Get(done.ID); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected finished job to be deleted, got %v", err)
	}
	if _, err := repo.Get(running.ID); err != nil {
		t.Fatalf("expected running job to survive, got %v", err)
	}
}

func TestJobRepository_CountByStatus(t *testing.T) {
	repo := memory.NewJobRepository(time.Hour)

	first, err := repo.Enqueue(newJob())
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := repo.Enqueue(newJob()); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := repo.MarkCompleted(first.ID); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts[domain.JobStatusQueued] != 1 {
		t.Fatalf("expected 1 queued, got %d", counts[domain.JobStatusQueued])
	}
	if counts[domain.JobStatusCompleted] != 1 {
		t.Fatalf("expected 1 completed, got %d", counts[domain.JobStatusCompleted])
	}
}
