package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

const (
	defaultPendingTTL = 72 * time.Hour
	staleOrderBatch   = 200
)

type staleOrderReader interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	CancelOrder(ctx context.Context, userID, orderNumber string) (*orders.CancellationResult, error)
}

// StaleOrderJobParams configure the unpaid order expiry job.
type StaleOrderJobParams struct {
	Logger     *logger.Logger
	Reader     staleOrderReader
	Orders     orderCanceller
	PendingTTL time.Duration
}

// NewStaleOrderJob builds the job that cancels orders left unpaid past the
// pending TTL, returning their reserved stock.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &staleOrderJob{
		logg:   params.Logger,
		reader: params.Reader,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type staleOrderJob struct {
	logg   *logger.Logger
	reader staleOrderReader
	orders orderCanceller
	ttl    time.Duration
	now    func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-order-expiry" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.reader.FindStalePending(ctx, cutoff, staleOrderBatch)
	if err != nil {
		return fmt.Errorf("query stale orders: %w", err)
	}

	var errs error
	cancelled := 0
	for _, order := range stale {
		_, err := j.orders.CancelOrder(ctx, order.UserID, order.OrderNumber)
		switch {
		case err == nil:
			cancelled++
		case pkgerrors.Is(err, pkgerrors.CodeAlreadyCancelled), pkgerrors.Is(err, pkgerrors.CodeNotCancellable):
			// paid or cancelled since the scan
		default:
			errs = multierr.Append(errs, fmt.Errorf("cancel %s: %w", order.OrderNumber, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"scanned":   len(stale),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "stale order expiry complete")
	return errs
}
