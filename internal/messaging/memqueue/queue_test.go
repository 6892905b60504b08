package memqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
)

type deliveryRecord struct {
	jobID   string
	attempt int
	final   bool
}

func collectDeliveries(t *testing.T, calls <-chan deliveryRecord, want int) []deliveryRecord {
	t.Helper()
	records := make([]deliveryRecord, 0, want)
	for len(records) < want {
		select {
		case record := <-calls:
			records = append(records, record)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", len(records)+1, want)
		}
	}
	return records
}

func TestNewRequiresHandler(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestQueueDeliversJob(t *testing.T) {
	calls := make(chan deliveryRecord, 4)
	handler := func(_ context.Context, jobID string, attempt int, final bool) error {
		calls <- deliveryRecord{jobID: jobID, attempt: attempt, final: final}
		return nil
	}

	queue, err := New(handler, WithRetryDelay(0))
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := queue.Enqueue(domain.Job{ID: "job-1"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	records := collectDeliveries(t, calls, 1)
	if records[0].jobID != "job-1" || records[0].attempt != 1 || records[0].final {
		t.Fatalf("unexpected delivery: %+v", records[0])
	}

	if err := queue.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	calls := make(chan deliveryRecord, 8)
	handler := func(_ context.Context, jobID string, attempt int, final bool) error {
		calls <- deliveryRecord{jobID: jobID, attempt: attempt, final: final}
		if attempt < 3 {
			return errors.New("temporary")
		}
		return nil
	}

	queue, err := New(handler, WithMaxAttempts(3), WithRetryDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := queue.Enqueue(domain.Job{ID: "job-2"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	records := collectDeliveries(t, calls, 3)
	for i, record := range records {
		if record.attempt != i+1 {
			t.Fatalf("delivery %d carried attempt %d", i, record.attempt)
		}
	}
	if records[0].final || records[1].final {
		t.Fatal("early attempts must not be final")
	}
	if !records[2].final {
		t.Fatal("attempt 3 of 3 must be final")
	}

	if err := queue.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestQueueDropsJobAfterFinalAttempt(t *testing.T) {
	calls := make(chan deliveryRecord, 8)
	handler := func(_ context.Context, jobID string, attempt int, final bool) error {
		calls <- deliveryRecord{jobID: jobID, attempt: attempt, final: final}
		return errors.New("permanent")
	}

	queue, err := New(handler, WithMaxAttempts(2), WithRetryDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := queue.Enqueue(domain.Job{ID: "job-3"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.Enqueue(domain.Job{ID: "job-4"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	records := collectDeliveries(t, calls, 4)
	if records[0].jobID != "job-3" || records[1].jobID != "job-3" {
		t.Fatalf("expected two deliveries of job-3, got %+v", records[:2])
	}
	if records[2].jobID != "job-4" {
		t.Fatalf("job-4 should be delivered after job-3 is dropped, got %+v", records[2])
	}

	if err := queue.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestQueueEnqueueWhenFull(t *testing.T) {
	handler := func(context.Context, string, int, bool) error { return nil }
	queue, err := New(handler, WithBufferSize(1))
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	// Not started: nothing drains the buffer.
	if err := queue.Enqueue(domain.Job{ID: "job-1"}); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := queue.Enqueue(domain.Job{ID: "job-2"}); err == nil {
		t.Fatal("expected error when the buffer is full")
	}
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	handler := func(context.Context, string, int, bool) error { return nil }
	queue, err := New(handler)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := queue.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := queue.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := queue.Stop(); err != nil {
		t.Fatalf("second stop must be a no-op: %v", err)
	}

	if err := queue.Enqueue(domain.Job{ID: "job-1"}); err == nil {
		t.Fatal("expected error after stop")
	}
}

func TestQueueStopsBackoffOnContextCancel(t *testing.T) {
	delivered := make(chan struct{}, 1)
	handler := func(context.Context, string, int, bool) error {
		select {
		case delivered <- struct{}{}:
		default:
		}
		return errors.New("always failing")
	}

	queue, err := New(handler, WithMaxAttempts(5), WithRetryDelay(10*time.Second))
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := queue.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := queue.Enqueue(domain.Job{ID: "job-1"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first delivery")
	}

	cancel()

	done := make(chan struct{})
	go func() {
		_ = queue.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after context cancellation")
	}
}
