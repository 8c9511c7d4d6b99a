package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

type fakeReleaser struct {
	released []string
	err      error
	calls    int
}

func (f *fakeReleaser) AutoReleaseExpired(context.Context) ([]string, error) {
	f.calls++
	return f.released, f.err
}

func TestEscrowReleaseJob(t *testing.T) {
	releaser := &fakeReleaser{released: []string{"ORD-1", "ORD-2"}}
	job, err := NewEscrowReleaseJob(EscrowReleaseJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Escrow: releaser,
	})
	if err != nil {
		t.Fatalf("NewEscrowReleaseJob: %v", err)
	}
	if job.Name() != "escrow-auto-release" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if releaser.calls != 1 {
		t.Fatalf("expected one auto-release call, got %d", releaser.calls)
	}

	releaser.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error to propagate")
	}
}

type fakeStaleReader struct {
	cutoff time.Time
	rows   []models.Order
}

func (f *fakeStaleReader) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.cutoff = cutoff
	return f.rows, nil
}

type fakeCanceller struct {
	errs      map[string]error
	cancelled []string
}

func (f *fakeCanceller) CancelOrder(ctx context.Context, userID, orderNumber string) (*orders.CancellationResult, error) {
	if err := f.errs[orderNumber]; err != nil {
		return nil, err
	}
	f.cancelled = append(f.cancelled, orderNumber)
	return &orders.CancellationResult{OrderNumber: orderNumber}, nil
}

func staleOrder(number string) models.Order {
	return models.Order{ID: uuid.New(), OrderNumber: number, UserID: "user-1"}
}

func TestStaleOrderJobCancelsAndAggregatesFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	reader := &fakeStaleReader{rows: []models.Order{
		staleOrder("ORD-a"),
		staleOrder("ORD-paid"),
		staleOrder("ORD-broken"),
		staleOrder("ORD-b"),
	}}
	canceller := &fakeCanceller{errs: map[string]error{
		"ORD-paid":   pkgerrors.New(pkgerrors.CodeNotCancellable, "shipped"),
		"ORD-broken": errors.New("deadlock"),
	}}
	jobIface, err := NewStaleOrderJob(StaleOrderJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Reader:     reader,
		Orders:     canceller,
		PendingTTL: 48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewStaleOrderJob: %v", err)
	}
	job := jobIface.(*staleOrderJob)
	job.now = func() time.Time { return now }

	err = job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error for the failed cancellation")
	}
	if !reader.cutoff.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", reader.cutoff)
	}
	if len(canceller.cancelled) != 2 || canceller.cancelled[0] != "ORD-a" || canceller.cancelled[1] != "ORD-b" {
		t.Fatalf("expected ORD-a and ORD-b cancelled, got %v", canceller.cancelled)
	}
}

func TestJobConstructorsValidateDeps(t *testing.T) {
	if _, err := NewEscrowReleaseJob(EscrowReleaseJobParams{}); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewStaleOrderJob(StaleOrderJobParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatalf("expected error without reader")
	}
	if _, err := NewInboxRetentionJob(InboxRetentionJobParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatalf("expected error without notification service")
	}
}

type fakePurger struct {
	cutoffs []time.Time
	err     error
}

func (f *fakePurger) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func TestInboxRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	job, err := NewInboxRetentionJob(InboxRetentionJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Notifications: purger,
		RetentionDays: 7,
	})
	if err != nil {
		t.Fatalf("NewInboxRetentionJob: %v", err)
	}
	job.(*inboxRetentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.AddDate(0, 0, -7); len(purger.cutoffs) != 1 || !purger.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %v", want, purger.cutoffs)
	}

	purger.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected purge error to propagate")
	}
}

func TestInboxRetentionJobDefaultsToThirtyDays(t *testing.T) {
	job, err := NewInboxRetentionJob(InboxRetentionJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Notifications: &fakePurger{},
	})
	if err != nil {
		t.Fatalf("NewInboxRetentionJob: %v", err)
	}
	if got := job.(*inboxRetentionJob).keep; got != 30*24*time.Hour {
		t.Fatalf("unexpected default retention %s", got)
	}
}
