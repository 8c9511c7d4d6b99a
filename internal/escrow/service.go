package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/internal/ledger"
	"github.com/angelmondragon/settlement-engine/internal/notifications"
	"github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

const DefaultHoldDays = 7

// Release triggers recorded on escrow_released ledger events.
const (
	TriggerManual      = "manual"
	TriggerAutoRelease = "auto_release"
	TriggerDisputeWon  = "dispute_won"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error)
}

type notifier interface {
	Record(ctx context.Context, tx *gorm.DB, notice notifications.Notice) (*models.Notification, error)
	Notify(ctx context.Context, notice notifications.Notice)
}

// Record is the escrow view of an order.
type Record struct {
	OrderNumber string             `json:"order_number"`
	Status      enums.EscrowStatus `json:"escrow_status"`
	HoldUntil   *time.Time         `json:"hold_until,omitempty"`
	ReleasedAt  *time.Time         `json:"released_at,omitempty"`
	OrderStatus enums.OrderStatus  `json:"order_status"`
}

// Service holds captured order payments and releases them manually or once
// the hold period lapses.
type Service interface {
	Hold(ctx context.Context, orderNumber string, holdDays int) (*Record, error)
	// HoldTx holds escrow on an order already locked in tx.
	HoldTx(ctx context.Context, tx *gorm.DB, order *models.Order, holdDays int) (*Record, error)
	Release(ctx context.Context, orderNumber string) (*Record, error)
	// ReleaseTx releases a held escrow on an order already locked in tx,
	// skipping the dispute guard. Dispute resolution uses it.
	ReleaseTx(ctx context.Context, tx *gorm.DB, order *models.Order, trigger string) (*Record, error)
	AutoReleaseExpired(ctx context.Context) ([]string, error)
}

type ServiceParams struct {
	Orders          orders.Repository
	Tx              txRunner
	Ledger          ledgerRecorder
	Notifications   notifier
	Logger          *logger.Logger
	DefaultHoldDays int
	Now             func() time.Time
}

type service struct {
	orders        orders.Repository
	tx            txRunner
	ledger        ledgerRecorder
	notifications notifier
	logg          *logger.Logger
	holdDays      int
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	holdDays := params.DefaultHoldDays
	if holdDays <= 0 {
		holdDays = DefaultHoldDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:        params.Orders,
		tx:            params.Tx,
		ledger:        params.Ledger,
		notifications: params.Notifications,
		logg:          params.Logger,
		holdDays:      holdDays,
		now:           now,
	}, nil
}

func (s *service) Hold(ctx context.Context, orderNumber string, holdDays int) (*Record, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	var record *Record
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).LockByNumber(ctx, orderNumber)
		if err != nil {
			return notFound(err)
		}
		record, err = s.HoldTx(ctx, tx, order, holdDays)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) HoldTx(ctx context.Context, tx *gorm.DB, order *models.Order, holdDays int) (*Record, error) {
	switch order.EscrowStatus {
	case enums.EscrowStatusHeld:
		return recordOf(order), nil
	case enums.EscrowStatusReleased:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow already released")
	case enums.EscrowStatusNone:
	}
	if !order.PaymentStatus.IsCaptured() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot hold escrow for payment status %s", order.PaymentStatus))
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot hold escrow for a %s order", order.Status))
	}
	if holdDays <= 0 {
		holdDays = s.holdDays
	}

	holdUntil := s.now().UTC().Add(time.Duration(holdDays) * 24 * time.Hour)
	updates := map[string]any{
		"escrow_status":     enums.EscrowStatusHeld,
		"escrow_hold_until": holdUntil,
	}
	// only orders that have not shipped move to pending_delivery
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusProcessing:
		updates["status"] = enums.OrderStatusPendingDelivery
		order.Status = enums.OrderStatusPendingDelivery
	case enums.OrderStatusPendingDelivery, enums.OrderStatusShipped, enums.OrderStatusDelivered,
		enums.OrderStatusCompleted, enums.OrderStatusCancelled, enums.OrderStatusRefunded:
	}
	if err := s.orders.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hold escrow")
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.LedgerEventTypeEscrowHeld,
		AmountCents: order.RefundableCents(),
		Metadata:    map[string]any{"hold_until": holdUntil.Format(time.RFC3339), "hold_days": holdDays},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record escrow hold")
	}

	order.EscrowStatus = enums.EscrowStatusHeld
	order.EscrowHoldUntil = &holdUntil
	return recordOf(order), nil
}

func (s *service) Release(ctx context.Context, orderNumber string) (*Record, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	var (
		record *Record
		order  *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.orders.WithTx(tx).LockByNumber(ctx, orderNumber)
		if err != nil {
			return notFound(err)
		}
		if order.DisputeStatus == enums.OrderDisputeStatusDisputed {
			return pkgerrors.New(pkgerrors.CodeDisputeBlocksRelease, "order has an open dispute")
		}
		record, err = s.ReleaseTx(ctx, tx, order, TriggerManual)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Notify(ctx, notifications.EscrowReleased(order.UserID, order.OrderNumber))
	s.logg.Info(s.logg.WithOrderNumber(ctx, orderNumber), "escrow released")
	return record, nil
}

func (s *service) ReleaseTx(ctx context.Context, tx *gorm.DB, order *models.Order, trigger string) (*Record, error) {
	switch order.EscrowStatus {
	case enums.EscrowStatusHeld:
	case enums.EscrowStatusNone, enums.EscrowStatusReleased:
		return nil, pkgerrors.New(pkgerrors.CodeNotHeld, fmt.Sprintf("escrow is %s", order.EscrowStatus))
	}
	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot release escrow for a %s order", order.Status))
	case enums.OrderStatusPending, enums.OrderStatusProcessing, enums.OrderStatusPendingDelivery,
		enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCompleted:
	}

	releasedAt := s.now().UTC()
	if err := s.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"escrow_status":      enums.EscrowStatusReleased,
		"escrow_released_at": releasedAt,
		"status":             enums.OrderStatusCompleted,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release escrow")
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.LedgerEventTypeEscrowReleased,
		AmountCents: order.RefundableCents(),
		Metadata:    map[string]any{"trigger": trigger},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record escrow release")
	}
	if _, err := s.notifications.Record(ctx, tx, notifications.EscrowReleased(order.UserID, order.OrderNumber)); err != nil {
		return nil, err
	}

	order.EscrowStatus = enums.EscrowStatusReleased
	order.EscrowReleasedAt = &releasedAt
	order.Status = enums.OrderStatusCompleted
	return recordOf(order), nil
}

type releasedRow struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      string
	TotalCents  int64
	RefundCents int64
}

// AutoReleaseExpired releases every held escrow whose hold lapsed in a single
// UPDATE, so overlapping runs and manual releases cannot release an order twice.
func (s *service) AutoReleaseExpired(ctx context.Context) ([]string, error) {
	now := s.now().UTC()
	var rows []releasedRow
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).Raw(`
			UPDATE orders
			SET escrow_status = ?,
				escrow_released_at = ?,
				status = ?,
				updated_at = ?
			WHERE escrow_status = ?
				AND escrow_hold_until < ?
				AND dispute_status <> ?
				AND status NOT IN (?, ?)
			RETURNING id, order_number, user_id, total_cents, refund_amount_cents AS refund_cents
		`,
			enums.EscrowStatusReleased, now, enums.OrderStatusCompleted, now,
			enums.EscrowStatusHeld, now, enums.OrderDisputeStatusDisputed,
			enums.OrderStatusCancelled, enums.OrderStatusRefunded,
		).Scan(&rows).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "auto release escrow")
		}

		for _, row := range rows {
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
				OrderID:     row.ID,
				UserID:      row.UserID,
				Type:        enums.LedgerEventTypeEscrowReleased,
				AmountCents: max(row.TotalCents-row.RefundCents, 0),
				Metadata:    map[string]any{"trigger": TriggerAutoRelease},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record escrow release")
			}
			if _, err := s.notifications.Record(ctx, tx, notifications.EscrowReleased(row.UserID, row.OrderNumber)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	released := make([]string, 0, len(rows))
	for _, row := range rows {
		released = append(released, row.OrderNumber)
		s.notifications.Notify(ctx, notifications.EscrowReleased(row.UserID, row.OrderNumber))
	}
	if len(released) > 0 {
		s.logg.Info(s.logg.WithField(ctx, "released_count", len(released)), "escrow auto release completed")
	}
	return released, nil
}

func recordOf(order *models.Order) *Record {
	return &Record{
		OrderNumber: order.OrderNumber,
		Status:      order.EscrowStatus,
		HoldUntil:   order.EscrowHoldUntil,
		ReleasedAt:  order.EscrowReleasedAt,
		OrderStatus: order.Status,
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}
