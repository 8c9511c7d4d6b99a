package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/internal/escrow"
	"github.com/angelmondragon/settlement-engine/internal/ledger"
	"github.com/angelmondragon/settlement-engine/internal/notifications"
	"github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/internal/refunds"
	"github.com/angelmondragon/settlement-engine/internal/wallet"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/metrics"
)

// Outcome describes what happened to a delivered event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type escrowManager interface {
	HoldTx(ctx context.Context, tx *gorm.DB, order *models.Order, holdDays int) (*escrow.Record, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, order *models.Order, trigger string) (*escrow.Record, error)
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error)
	ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.LedgerEvent, error)
}

type walletReclaimer interface {
	Reclaim(ctx context.Context, tx *gorm.DB, entry wallet.Entry) (int64, error)
}

type notifier interface {
	Record(ctx context.Context, tx *gorm.DB, notice notifications.Notice) (*models.Notification, error)
	Notify(ctx context.Context, notice notifications.Notice)
}

// ServiceFulfiller activates generic service purchases once their payment
// is captured. It runs inside the capture transaction.
type ServiceFulfiller interface {
	Fulfill(ctx context.Context, tx *gorm.DB, payment *models.Payment, meta payments.ServicePaymentMetadata) error
}

type ServiceParams struct {
	Orders        orders.Repository
	Payments      payments.Repository
	Refunds       refunds.RefundRepository
	Disputes      refunds.DisputeRepository
	Escrow        escrowManager
	Ledger        ledgerRecorder
	Wallet        walletReclaimer
	Notifications notifier
	Tx            txRunner
	Verifier      eventVerifier
	Guard         EventGuard
	Fulfiller     ServiceFulfiller
	Metrics       *metrics.WebhookMetrics
	HoldOnCapture bool
	HoldDays      int
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service applies gateway events to local payment, order and dispute state.
// Every handler is idempotent against the stored state, so redelivery after
// a lost guard key is harmless.
type Service struct {
	orders        orders.Repository
	payments      payments.Repository
	refunds       refunds.RefundRepository
	disputes      refunds.DisputeRepository
	escrow        escrowManager
	ledger        ledgerRecorder
	wallet        walletReclaimer
	notifications notifier
	tx            txRunner
	verifier      eventVerifier
	guard         EventGuard
	fulfiller     ServiceFulfiller
	metrics       *metrics.WebhookMetrics
	holdOnCapture bool
	holdDays      int
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	case params.Payments == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	case params.Refunds == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds repo required")
	case params.Disputes == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "disputes repo required")
	case params.Escrow == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "escrow service required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	case params.Wallet == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
	case params.Notifications == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Verifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event verifier required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		orders:        params.Orders,
		payments:      params.Payments,
		refunds:       params.Refunds,
		disputes:      params.Disputes,
		escrow:        params.Escrow,
		ledger:        params.Ledger,
		wallet:        params.Wallet,
		notifications: params.Notifications,
		tx:            params.Tx,
		verifier:      params.Verifier,
		guard:         params.Guard,
		fulfiller:     params.Fulfiller,
		metrics:       params.Metrics,
		holdOnCapture: params.HoldOnCapture,
		holdDays:      params.HoldDays,
		logg:          params.Logger,
		now:           now,
	}, nil
}

// Process verifies a raw delivery, claims its event id and handles it. The
// claim is dropped when handling fails so the gateway's retry gets through.
func (s *Service) Process(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		s.metrics.Observe("unverified", string(OutcomeFailed))
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook signature")
	}
	ctx = s.logg.WithEvent(ctx, event.ID, string(event.Type))

	if s.guard != nil && event.ID != "" {
		claimed, err := s.guard.Claim(ctx, event.ID)
		switch {
		case err != nil:
			// stored state still deduplicates, so a redis outage only costs a redundant pass
			s.logg.Error(ctx, "webhook idempotency guard unavailable", err)
		case !claimed:
			s.metrics.Observe(string(event.Type), string(OutcomeDuplicate))
			s.logg.Info(ctx, "duplicate webhook event skipped")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.dispatch(ctx, &event)
	if err != nil {
		if s.guard != nil && event.ID != "" {
			if ferr := s.guard.Forget(ctx, event.ID); ferr != nil {
				s.logg.Error(ctx, "release webhook idempotency key", ferr)
			}
		}
		s.metrics.Observe(string(event.Type), string(OutcomeFailed))
		s.logg.Error(ctx, "webhook event failed", err)
		return OutcomeFailed, err
	}
	s.metrics.Observe(string(event.Type), string(outcome))
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.checkoutCompleted(ctx, &session)
	case stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.checkoutExpired(ctx, &session)
	case stripe.EventTypeChargeDisputeCreated:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode dispute")
		}
		return s.disputeCreated(ctx, &dispute)
	case stripe.EventTypeChargeDisputeUpdated,
		stripe.EventTypeChargeDisputeClosed,
		stripe.EventTypeChargeDisputeFundsWithdrawn,
		stripe.EventTypeChargeDisputeFundsReinstated:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode dispute")
		}
		return s.disputeUpdated(ctx, &dispute)
	case stripe.EventTypeChargeRefundUpdated:
		var refund stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode refund")
		}
		return s.refundUpdated(ctx, &refund)
	default:
		s.logg.Info(ctx, "unhandled webhook event type")
		return OutcomeIgnored, nil
	}
}

func (s *Service) checkoutCompleted(ctx context.Context, session *stripe.CheckoutSession) (Outcome, error) {
	if session.ID == "" {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	intent := ""
	if session.PaymentIntent != nil {
		intent = session.PaymentIntent.ID
	}

	outcome := OutcomeProcessed
	var notices []notifications.Notice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.WithTx(tx).LockBySessionID(ctx, session.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = OutcomeIgnored
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}
		switch payment.Status {
		case enums.PaymentStatusCompleted:
			outcome = OutcomeDuplicate
			return nil
		case enums.PaymentStatusPending, enums.PaymentStatusExpired, enums.PaymentStatusFailed:
		}

		meta, err := metadataOf(payment, session.Metadata)
		if err != nil {
			return err
		}

		switch m := meta.(type) {
		case payments.OrderPaymentMetadata:
			captured, err := s.captureOrder(ctx, tx, payment, m, intent)
			if err != nil {
				return err
			}
			if captured == nil {
				outcome = OutcomeIgnored
				return nil
			}
			notices = append(notices, *captured)
		case payments.ServicePaymentMetadata:
			if err := s.markCompleted(ctx, tx, payment, intent); err != nil {
				return err
			}
			if s.fulfiller != nil {
				if err := s.fulfiller.Fulfill(ctx, tx, payment, m); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fulfill service purchase")
				}
			}
			notice := notifications.PaymentReceipt(m.UserID, m.ServiceName, "", intent, payment.AmountCents)
			if _, err := s.notifications.Record(ctx, tx, notice); err != nil {
				return err
			}
			notices = append(notices, notice)
		default:
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported payment metadata %T", meta))
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	logCtx := s.logg.WithField(ctx, "stripe_session_id", session.ID)
	switch outcome {
	case OutcomeIgnored:
		s.logg.Warn(logCtx, "checkout completion not applied")
	case OutcomeDuplicate:
		s.logg.Info(logCtx, "checkout session already completed")
	case OutcomeProcessed, OutcomeFailed:
		s.logg.Info(logCtx, "checkout session completed")
	}
	for _, notice := range notices {
		s.notifications.Notify(ctx, notice)
	}
	return outcome, nil
}

// captureOrder applies a captured payment to its order. A nil notice means
// the order did not accept the payment. A closed order that was never paid
// still gets the payment marked completed so an operator can refund it.
func (s *Service) captureOrder(ctx context.Context, tx *gorm.DB, payment *models.Payment, meta payments.OrderPaymentMetadata, intent string) (*notifications.Notice, error) {
	repo := s.orders.WithTx(tx)
	order, err := repo.LockByNumber(ctx, meta.OrderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order for payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderNumber(ctx, order.OrderNumber), map[string]any{
		"stripe_session_id": payment.StripeSessionID,
		"payment_intent":    intent,
	})
	if order.PaymentStatus.IsCaptured() || order.PaymentStatus == enums.OrderPaymentStatusRefunded {
		s.logg.Error(logCtx, "second payment captured for order; refund it manually", pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "order already paid"))
		return nil, nil
	}
	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		if err := s.captureForClosedOrder(ctx, tx, order, payment, intent); err != nil {
			return nil, err
		}
		s.logg.Error(logCtx, "payment captured for closed order; refund it manually", pkgerrors.New(pkgerrors.CodeInvalidTransition, string(order.Status)))
		return nil, nil
	case enums.OrderStatusPending, enums.OrderStatusProcessing, enums.OrderStatusPendingDelivery,
		enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCompleted:
	}

	if err := s.markCompleted(ctx, tx, payment, intent); err != nil {
		return nil, err
	}

	updates := map[string]any{"payment_status": enums.OrderPaymentStatusPaid}
	if order.Status == enums.OrderStatusPending {
		updates["status"] = enums.OrderStatusProcessing
		order.Status = enums.OrderStatusProcessing
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}
	order.PaymentStatus = enums.OrderPaymentStatusPaid

	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.LedgerEventTypePaymentCaptured,
		AmountCents: payment.AmountCents,
		Metadata:    map[string]any{"stripe_session_id": payment.StripeSessionID, "payment_intent": intent},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment capture")
	}

	if s.holdOnCapture {
		if _, err := s.escrow.HoldTx(ctx, tx, order, s.holdDays); err != nil {
			return nil, err
		}
	}

	notice := notifications.PaymentReceipt(order.UserID, "your order", order.OrderNumber, intent, payment.AmountCents)
	if _, err := s.notifications.Record(ctx, tx, notice); err != nil {
		return nil, err
	}
	return &notice, nil
}

// captureForClosedOrder keeps the intent of a payment that landed after its
// order closed. Only one completed payment may exist per order, so a later
// capture for the same order stays pending.
func (s *Service) captureForClosedOrder(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, intent string) error {
	_, err := s.payments.WithTx(tx).FindCompletedByOrder(ctx, order.ID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load completed payment")
	}
	if err := s.markCompleted(ctx, tx, payment, intent); err != nil {
		return err
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.LedgerEventTypePaymentCaptured,
		AmountCents: payment.AmountCents,
		Metadata: map[string]any{
			"stripe_session_id": payment.StripeSessionID,
			"payment_intent":    intent,
			"order_status":      string(order.Status),
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment capture")
	}
	return nil
}

func (s *Service) markCompleted(ctx context.Context, tx *gorm.DB, payment *models.Payment, intent string) error {
	paidAt := s.now().UTC()
	updates := map[string]any{
		"status":  enums.PaymentStatusCompleted,
		"paid_at": paidAt,
	}
	if intent != "" {
		updates["stripe_payment_intent"] = intent
		payment.StripePaymentIntent = &intent
	}
	if err := s.payments.WithTx(tx).Update(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment completed")
	}
	payment.Status = enums.PaymentStatusCompleted
	payment.PaidAt = &paidAt
	return nil
}

func (s *Service) checkoutExpired(ctx context.Context, session *stripe.CheckoutSession) (Outcome, error) {
	if session.ID == "" {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	outcome := OutcomeProcessed
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		payment, err := repo.LockBySessionID(ctx, session.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = OutcomeIgnored
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}
		switch payment.Status {
		case enums.PaymentStatusPending:
		case enums.PaymentStatusCompleted, enums.PaymentStatusExpired, enums.PaymentStatusFailed:
			outcome = OutcomeDuplicate
			return nil
		}
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":    enums.PaymentStatusExpired,
			"failed_at": s.now().UTC(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire payment")
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (s *Service) disputeCreated(ctx context.Context, gw *stripe.Dispute) (Outcome, error) {
	if gw.ID == "" {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "dispute id missing")
	}
	outcome := OutcomeProcessed
	var notices []notifications.Notice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.disputes.WithTx(tx).LockByStripeID(ctx, gw.ID)
		switch {
		case err == nil:
			outcome = OutcomeDuplicate
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dispute")
		}
		var opened bool
		notices, opened, err = s.openDispute(ctx, tx, gw)
		if err != nil {
			return err
		}
		if !opened {
			outcome = OutcomeIgnored
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	for _, notice := range notices {
		s.notifications.Notify(ctx, notice)
	}
	return outcome, nil
}

// openDispute stores a dispute the processor has not seen yet and applies
// its status to the order. It reports false when no order matches.
func (s *Service) openDispute(ctx context.Context, tx *gorm.DB, gw *stripe.Dispute) ([]notifications.Notice, bool, error) {
	intent := disputeIntent(gw)
	if intent == "" {
		s.logg.Warn(s.logg.WithField(ctx, "stripe_dispute_id", gw.ID), "dispute has no payment intent")
		return nil, false, nil
	}
	payment, err := s.payments.WithTx(tx).FindByPaymentIntent(ctx, intent)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && payment.OrderID == nil) {
		s.logg.Warn(s.logg.WithField(ctx, "payment_intent", intent), "dispute does not match an order payment")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment by intent")
	}

	order, err := s.orders.WithTx(tx).LockByID(ctx, *payment.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "order for dispute not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
	}

	status := disputeStatusOf(gw)
	dispute := &models.Dispute{
		ID:              uuid.New(),
		OrderID:         order.ID,
		StripeDisputeID: gw.ID,
		AmountCents:     gw.Amount,
		Reason:          string(gw.Reason),
		Status:          status,
		EvidenceDueBy:   evidenceDueBy(gw),
	}
	if err := s.disputes.WithTx(tx).Create(ctx, dispute); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store dispute")
	}

	opened := notifications.DisputeOpened(order.UserID, order.OrderNumber, gw.Amount)
	if _, err := s.notifications.Record(ctx, tx, opened); err != nil {
		return nil, false, err
	}
	notices, err := s.applyDispute(ctx, tx, order, dispute, status)
	if err != nil {
		return nil, false, err
	}
	return append([]notifications.Notice{opened}, notices...), true, nil
}

func (s *Service) disputeUpdated(ctx context.Context, gw *stripe.Dispute) (Outcome, error) {
	if gw.ID == "" {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "dispute id missing")
	}
	status := disputeStatusOf(gw)
	outcome := OutcomeProcessed
	var notices []notifications.Notice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.disputes.WithTx(tx)
		dispute, err := repo.LockByStripeID(ctx, gw.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// the created event was lost; the update carries everything needed
			var opened bool
			notices, opened, err = s.openDispute(ctx, tx, gw)
			if err == nil && !opened {
				outcome = OutcomeIgnored
			}
			return err
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dispute")
		}
		if dispute.Status == status || dispute.Status.IsTerminal() {
			outcome = OutcomeDuplicate
			return nil
		}

		updates := map[string]any{"status": status}
		if due := evidenceDueBy(gw); due != nil {
			updates["evidence_due_by"] = *due
		}
		if err := repo.Update(ctx, dispute.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update dispute")
		}
		dispute.Status = status

		order, err := s.orders.WithTx(tx).LockByID(ctx, dispute.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock disputed order")
		}
		notices, err = s.applyDispute(ctx, tx, order, dispute, status)
		return err
	})
	if err != nil {
		return OutcomeFailed, err
	}
	for _, notice := range notices {
		s.notifications.Notify(ctx, notice)
	}
	return outcome, nil
}

// applyDispute moves the order to match the dispute status. The returned
// notices were recorded in tx and still need a post-commit Notify.
func (s *Service) applyDispute(ctx context.Context, tx *gorm.DB, order *models.Order, dispute *models.Dispute, status enums.DisputeStatus) ([]notifications.Notice, error) {
	repo := s.orders.WithTx(tx)
	switch status {
	case enums.DisputeStatusNeedsResponse, enums.DisputeStatusUnderReview:
		if order.DisputeStatus == enums.OrderDisputeStatusDisputed {
			return nil, nil
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"dispute_status": enums.OrderDisputeStatusDisputed}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order disputed")
		}
		order.DisputeStatus = enums.OrderDisputeStatusDisputed
		return nil, nil

	case enums.DisputeStatusWon:
		var notices []notifications.Notice
		if err := repo.Update(ctx, order.ID, map[string]any{"dispute_status": enums.OrderDisputeStatusNone}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear order dispute")
		}
		order.DisputeStatus = enums.OrderDisputeStatusNone
		switch order.Status {
		case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		case enums.OrderStatusPending, enums.OrderStatusProcessing, enums.OrderStatusPendingDelivery,
			enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCompleted:
			if order.EscrowStatus == enums.EscrowStatusHeld {
				if _, err := s.escrow.ReleaseTx(ctx, tx, order, escrow.TriggerDisputeWon); err != nil {
					return nil, err
				}
				notices = append(notices, notifications.EscrowReleased(order.UserID, order.OrderNumber))
			} else if order.Status != enums.OrderStatusCompleted {
				if err := repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusCompleted}); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete order")
				}
				order.Status = enums.OrderStatusCompleted
			}
		}
		resolved := notifications.DisputeResolved(order.UserID, order.OrderNumber, status)
		if _, err := s.notifications.Record(ctx, tx, resolved); err != nil {
			return nil, err
		}
		return append(notices, resolved), nil

	case enums.DisputeStatusLost:
		now := s.now().UTC()
		updates := map[string]any{
			"dispute_status":      enums.OrderDisputeStatusLost,
			"refund_status":       enums.RefundStatusRefunded,
			"refund_amount_cents": order.TotalCents,
			"payment_status":      enums.OrderPaymentStatusRefunded,
			"refunded_at":         now,
		}
		// a cancelled order stays cancelled; the chargeback only settles its money
		if order.Status != enums.OrderStatusCancelled {
			updates["status"] = enums.OrderStatusRefunded
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark dispute lost")
		}
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			OrderID:     order.ID,
			UserID:      order.UserID,
			Type:        enums.LedgerEventTypeDisputeLost,
			AmountCents: dispute.AmountCents,
			Metadata:    map[string]any{"stripe_dispute_id": dispute.StripeDisputeID, "reason": dispute.Reason},
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record dispute loss")
		}
		if err := s.reverseWalletCredit(ctx, tx, order, dispute); err != nil {
			return nil, err
		}
		order.DisputeStatus = enums.OrderDisputeStatusLost
		order.RefundStatus = enums.RefundStatusRefunded
		order.RefundAmountCents = order.TotalCents
		if order.Status != enums.OrderStatusCancelled {
			order.Status = enums.OrderStatusRefunded
		}
		order.PaymentStatus = enums.OrderPaymentStatusRefunded

		resolved := notifications.DisputeResolved(order.UserID, order.OrderNumber, status)
		if _, err := s.notifications.Record(ctx, tx, resolved); err != nil {
			return nil, err
		}
		return []notifications.Notice{resolved}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unhandled dispute status %q", status))
}

// reverseWalletCredit takes back store credit issued for the order once the
// customer has recovered the same money through a chargeback. Credit the
// customer already spent cannot be taken back; the gap is written to the
// ledger event's shortfall_cents for finance to recover.
func (s *Service) reverseWalletCredit(ctx context.Context, tx *gorm.DB, order *models.Order, dispute *models.Dispute) error {
	events, err := s.ledger.ListByOrder(ctx, tx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order ledger")
	}
	credited := ledger.NetAmount(events, enums.LedgerEventTypeWalletCredited, enums.LedgerEventTypeWalletDebited)
	if credited <= 0 {
		return nil
	}

	reclaimed, err := s.wallet.Reclaim(ctx, tx, wallet.Entry{
		UserID:        order.UserID,
		AmountCents:   credited,
		Description:   fmt.Sprintf("Chargeback on order %s", order.OrderNumber),
		ReferenceType: "dispute",
		ReferenceID:   dispute.StripeDisputeID,
	})
	if err != nil {
		return err
	}
	shortfall := credited - reclaimed
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Type:        enums.LedgerEventTypeWalletDebited,
		AmountCents: reclaimed,
		Metadata: map[string]any{
			"reason":            "dispute_lost",
			"stripe_dispute_id": dispute.StripeDisputeID,
			"credited_cents":    credited,
			"shortfall_cents":   shortfall,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet reversal")
	}
	if shortfall > 0 {
		logCtx := s.logg.WithFields(s.logg.WithOrderNumber(ctx, order.OrderNumber), map[string]any{
			"stripe_dispute_id": dispute.StripeDisputeID,
			"shortfall_cents":   shortfall,
		})
		s.logg.Error(logCtx, "wallet credit already spent before chargeback; recover manually", pkgerrors.New(pkgerrors.CodeInvalidAmount, "wallet shortfall"))
	}
	return nil
}

func (s *Service) refundUpdated(ctx context.Context, gw *stripe.Refund) (Outcome, error) {
	if gw.ID == "" {
		return OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "refund id missing")
	}
	row, err := s.refunds.FindByStripeID(ctx, gw.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load refund")
	}
	status := enums.RefundRecordStatusFromGateway(string(gw.Status))
	if row.Status == status {
		return OutcomeDuplicate, nil
	}
	if err := s.refunds.UpdateStatus(ctx, row.ID, status); err != nil {
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update refund status")
	}
	if status == enums.RefundRecordStatusFailed {
		logCtx := s.logg.WithFields(ctx, map[string]any{"stripe_refund_id": gw.ID, "amount_cents": row.AmountCents})
		s.logg.Warn(logCtx, "gateway reported refund failure")
	}
	return OutcomeProcessed, nil
}
