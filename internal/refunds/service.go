package refunds

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
	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	pkgstripe "github.com/angelmondragon/settlement-engine/pkg/stripe"
)

const paymentIntentSucceeded = "succeeded"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	CreateRefund(ctx context.Context, input pkgstripe.RefundInput) (*pkgstripe.RefundResult, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*pkgstripe.PaymentIntentInfo, error)
	SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence pkgstripe.DisputeEvidence) error
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error)
}

type notifier interface {
	Record(ctx context.Context, tx *gorm.DB, notice notifications.Notice) (*models.Notification, error)
	Notify(ctx context.Context, notice notifications.Notice)
}

// RefundResult summarises a refund and the order state it left behind.
type RefundResult struct {
	RefundID           string             `json:"refund_id"`
	OrderNumber        string             `json:"order_number"`
	Kind               enums.RefundKind   `json:"kind"`
	AmountCents        int64              `json:"amount_cents"`
	TotalRefundedCents int64              `json:"total_refunded_cents"`
	RefundStatus       enums.RefundStatus `json:"refund_status"`
	OrderStatus        enums.OrderStatus  `json:"order_status"`
}

// Service issues gateway refunds and exposes dispute bookkeeping.
type Service interface {
	CreateFullRefund(ctx context.Context, orderNumber, reason string) (*RefundResult, error)
	CreatePartialRefund(ctx context.Context, orderNumber string, amountCents int64, reason string) (*RefundResult, error)
	ListRefunds(ctx context.Context, orderNumber string) ([]models.Refund, error)
	GetDisputeInfo(ctx context.Context, orderNumber string) (*models.Dispute, error)
	SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence pkgstripe.DisputeEvidence) (*models.Dispute, error)
}

type ServiceParams struct {
	Orders        orders.Repository
	Payments      payments.Repository
	Refunds       RefundRepository
	Disputes      DisputeRepository
	Tx            txRunner
	Gateway       gateway
	Ledger        ledgerRecorder
	Notifications notifier
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	orders        orders.Repository
	payments      payments.Repository
	refunds       RefundRepository
	disputes      DisputeRepository
	tx            txRunner
	gateway       gateway
	ledger        ledgerRecorder
	notifications notifier
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Refunds == nil:
		return nil, fmt.Errorf("refunds repository required")
	case params.Disputes == nil:
		return nil, fmt.Errorf("disputes repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Notifications == nil:
		return nil, fmt.Errorf("notifications service required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:        params.Orders,
		payments:      params.Payments,
		refunds:       params.Refunds,
		disputes:      params.Disputes,
		tx:            params.Tx,
		gateway:       params.Gateway,
		ledger:        params.Ledger,
		notifications: params.Notifications,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) CreateFullRefund(ctx context.Context, orderNumber, reason string) (*RefundResult, error) {
	order, intent, err := s.refundable(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, order, intent, enums.RefundKindFull, order.RefundableCents(), reason)
}

func (s *service) CreatePartialRefund(ctx context.Context, orderNumber string, amountCents int64, reason string) (*RefundResult, error) {
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "refund amount must be positive")
	}
	order, intent, err := s.refundable(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := checkWithinTotal(order, amountCents); err != nil {
		return nil, err
	}
	return s.issue(ctx, order, intent, enums.RefundKindPartial, amountCents, reason)
}

// refundable loads the order and its captured payment intent, rejecting
// orders with nothing left to refund.
func (s *service) refundable(ctx context.Context, orderNumber string) (*models.Order, string, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, "", notFound(err, "order not found")
	}
	if err := checkNotRefunded(order); err != nil {
		return nil, "", err
	}

	payment, err := s.payments.FindCompletedByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil || payment.StripePaymentIntent == nil || *payment.StripePaymentIntent == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeNoPaymentIntent, "order has no completed payment")
	}
	return order, *payment.StripePaymentIntent, nil
}

// issue calls the gateway first and only then commits local state, so a
// gateway failure leaves the order untouched. The gateway call is keyed on
// the refunded balance, so retrying after a lost response cannot refund twice.
func (s *service) issue(ctx context.Context, order *models.Order, intent string, kind enums.RefundKind, amount int64, reason string) (*RefundResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "requested_by_customer"
	}
	if err := s.checkSettled(ctx, intent); err != nil {
		return nil, err
	}

	gw, err := s.gateway.CreateRefund(ctx, pkgstripe.RefundInput{
		PaymentIntentID: intent,
		AmountCents:     amount,
		Reason:          reason,
		Metadata:        map[string]string{"order_number": order.OrderNumber, "kind": string(kind)},
		IdempotencyKey:  pkgstripe.RefundKey(order.OrderNumber, string(kind), amount, order.RefundAmountCents),
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "create refund")
	}

	var (
		result *RefundResult
		notice notifications.Notice
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.orders.WithTx(tx).LockByNumber(ctx, order.OrderNumber)
		if err != nil {
			return notFound(err, "order not found")
		}
		if err := checkNotRefunded(locked); err != nil {
			return err
		}
		if err := checkWithinTotal(locked, amount); err != nil {
			return err
		}

		if err := s.refunds.WithTx(tx).Create(ctx, &models.Refund{
			ID:             uuid.New(),
			OrderID:        locked.ID,
			StripeRefundID: gw.ID,
			AmountCents:    amount,
			Reason:         reason,
			Kind:           kind,
			Status:         enums.RefundRecordStatusFromGateway(gw.Status),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refund")
		}

		now := s.now().UTC()
		refunded := locked.RefundAmountCents + amount
		updates := map[string]any{
			"refund_amount_cents": refunded,
			"refund_reason":       reason,
		}
		refundStatus := enums.RefundStatusPartiallyRefunded
		orderStatus := locked.Status
		if refunded == locked.TotalCents {
			refundStatus = enums.RefundStatusRefunded
			if locked.Status != enums.OrderStatusCancelled {
				orderStatus = enums.OrderStatusRefunded
				updates["status"] = orderStatus
			}
			updates["payment_status"] = enums.OrderPaymentStatusRefunded
			updates["refunded_at"] = now
		}
		updates["refund_status"] = refundStatus
		if err := s.orders.WithTx(tx).Update(ctx, locked.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order refund")
		}

		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			OrderID:     locked.ID,
			UserID:      locked.UserID,
			Type:        enums.LedgerEventTypeRefundIssued,
			AmountCents: amount,
			Metadata:    map[string]any{"stripe_refund_id": gw.ID, "kind": string(kind), "reason": reason},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record refund")
		}

		notice = notifications.RefundIssued(locked.UserID, locked.OrderNumber, amount, refundStatus == enums.RefundStatusRefunded)
		if _, err := s.notifications.Record(ctx, tx, notice); err != nil {
			return err
		}

		result = &RefundResult{
			RefundID:           gw.ID,
			OrderNumber:        locked.OrderNumber,
			Kind:               kind,
			AmountCents:        amount,
			TotalRefundedCents: refunded,
			RefundStatus:       refundStatus,
			OrderStatus:        orderStatus,
		}
		return nil
	})
	if err != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderNumber(ctx, order.OrderNumber), map[string]any{
			"stripe_refund_id": gw.ID,
			"amount_cents":     amount,
		})
		s.logg.Error(logCtx, "gateway refund succeeded but order was not updated", err)
		return nil, err
	}

	s.notifications.Notify(ctx, notice)
	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "refund issued")
	return result, nil
}

// ListRefunds returns every refund issued against the order, oldest first.
func (s *service) ListRefunds(ctx context.Context, orderNumber string) ([]models.Refund, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	rows, err := s.refunds.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list refunds")
	}
	return rows, nil
}

func (s *service) GetDisputeInfo(ctx context.Context, orderNumber string) (*models.Dispute, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	dispute, err := s.disputes.FindLatestByOrder(ctx, order.ID)
	if err != nil {
		return nil, notFound(err, "no dispute for order")
	}
	return dispute, nil
}

// SubmitDisputeEvidence forwards evidence to the gateway. Dispute status and
// order status only change when the gateway reports back through webhooks.
func (s *service) SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence pkgstripe.DisputeEvidence) (*models.Dispute, error) {
	if strings.TrimSpace(disputeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	dispute, err := s.disputes.FindByStripeID(ctx, disputeID)
	if err != nil {
		return nil, notFound(err, "dispute not found")
	}
	if dispute.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("dispute already %s", dispute.Status))
	}

	if err := s.gateway.SubmitDisputeEvidence(ctx, disputeID, evidence); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "submit dispute evidence")
	}

	now := s.now().UTC()
	if err := s.disputes.Update(ctx, dispute.ID, map[string]any{
		"evidence_submitted":    true,
		"evidence_submitted_at": now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark evidence submitted")
	}
	dispute.EvidenceSubmitted = true
	dispute.EvidenceSubmittedAt = &now
	return dispute, nil
}

// checkSettled asks the gateway whether the charge behind intent actually
// succeeded; a local completed payment can outlive a reversed charge.
func (s *service) checkSettled(ctx context.Context, intent string) error {
	pi, err := s.gateway.RetrievePaymentIntent(ctx, intent)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "retrieve payment intent")
	}
	if pi.Status != paymentIntentSucceeded {
		return pkgerrors.New(pkgerrors.CodeNoPaymentIntent, "payment is not settled on the gateway").WithDetails(map[string]any{
			"payment_intent": intent,
			"status":         pi.Status,
		})
	}
	return nil
}

func checkNotRefunded(order *models.Order) error {
	if order.RefundStatus == enums.RefundStatusRefunded || order.PaymentStatus == enums.OrderPaymentStatusRefunded {
		return pkgerrors.New(pkgerrors.CodeAlreadyRefunded, "order already refunded")
	}
	if order.RefundableCents() == 0 {
		return pkgerrors.New(pkgerrors.CodeAlreadyRefunded, "nothing left to refund")
	}
	return nil
}

func checkWithinTotal(order *models.Order, amount int64) error {
	if amount <= 0 || order.RefundAmountCents+amount > order.TotalCents {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "refund exceeds order total").WithDetails(map[string]any{
			"requested_cents": amount,
			"refunded_cents":  order.RefundAmountCents,
			"remaining_cents": order.RefundableCents(),
		})
	}
	return nil
}

func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
