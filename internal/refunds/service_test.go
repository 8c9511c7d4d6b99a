package refunds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/internal/settlementtest"
	"github.com/angelmondragon/settlement-engine/pkg/db/dbtest"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	pkgstripe "github.com/angelmondragon/settlement-engine/pkg/stripe"
	"github.com/angelmondragon/settlement-engine/pkg/stripe/stripetest"
)

func newTestService(t *testing.T) (Service, *stripetest.Gateway, settlementtest.Deps) {
	t.Helper()
	deps := settlementtest.New(t)
	gateway := stripetest.New()
	svc, err := NewService(ServiceParams{
		Orders:        orders.NewRepository(deps.Conn),
		Payments:      payments.NewRepository(deps.Conn),
		Refunds:       NewRefundRepository(deps.Conn),
		Disputes:      NewDisputeRepository(deps.Conn),
		Tx:            deps.Client,
		Gateway:       gateway,
		Ledger:        deps.Ledger,
		Notifications: deps.Notifications,
		Logger:        deps.Logger,
		Now:           deps.Now,
	})
	require.NoError(t, err)
	return svc, gateway, deps
}

func paidOrder(t *testing.T, deps settlementtest.Deps, totalCents int64) models.Order {
	t.Helper()
	order := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{
		TotalCents:    totalCents,
		Status:        enums.OrderStatusProcessing,
		PaymentStatus: enums.OrderPaymentStatusPaid,
	})
	dbtest.SeedPayment(t, deps.Conn, order, "cs_"+uuid.NewString(), enums.PaymentStatusCompleted, "pi_"+order.OrderNumber)
	return order
}

func refundSum(t *testing.T, svc Service, orderNumber string) int64 {
	t.Helper()
	rows, err := svc.ListRefunds(context.Background(), orderNumber)
	require.NoError(t, err)
	var sum int64
	for _, r := range rows {
		sum += r.AmountCents
	}
	return sum
}

func TestCreateFullRefund(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 2500)

	result, err := svc.CreateFullRefund(ctx, order.OrderNumber, "damaged")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), result.AmountCents)
	assert.Equal(t, enums.RefundStatusRefunded, result.RefundStatus)
	assert.Equal(t, enums.OrderStatusRefunded, result.OrderStatus)

	require.Len(t, gateway.Refunds, 1)
	assert.Equal(t, "pi_"+order.OrderNumber, gateway.Refunds[0].PaymentIntentID)
	assert.Equal(t, int64(2500), gateway.Refunds[0].AmountCents)

	stored := dbtest.ReloadOrder(t, deps.Conn, order.OrderNumber)
	assert.Equal(t, enums.RefundStatusRefunded, stored.RefundStatus)
	assert.Equal(t, int64(2500), stored.RefundAmountCents)
	assert.Equal(t, enums.OrderStatusRefunded, stored.Status)
	assert.NotNil(t, stored.RefundedAt)
	assert.Equal(t, int64(2500), refundSum(t, svc, order.OrderNumber))

	_, err = svc.CreateFullRefund(ctx, order.OrderNumber, "again")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeAlreadyRefunded))
	assert.Equal(t, pkgerrors.OutcomeAlreadyProcessed, pkgerrors.OutcomeOf(err))
	assert.Equal(t, 1, gateway.RefundCount())
}

// Two $20 partial refunds on a $50 order succeed and a third is rejected.
func TestPartialRefundsAccumulateUpToTotal(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 5000)

	first, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 2000, "late")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusPartiallyRefunded, first.RefundStatus)

	second, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 2000, "late")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), second.TotalRefundedCents)
	assert.Equal(t, enums.OrderStatusProcessing, second.OrderStatus)

	_, err = svc.CreatePartialRefund(ctx, order.OrderNumber, 2000, "late")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))

	stored := dbtest.ReloadOrder(t, deps.Conn, order.OrderNumber)
	assert.Equal(t, enums.RefundStatusPartiallyRefunded, stored.RefundStatus)
	assert.Equal(t, int64(4000), stored.RefundAmountCents)
	assert.Equal(t, 2, gateway.RefundCount())
	assert.LessOrEqual(t, refundSum(t, svc, order.OrderNumber), stored.TotalCents)

	// the remaining balance closes out the order
	last, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 1000, "late")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRefunded, last.RefundStatus)
	assert.Equal(t, enums.OrderStatusRefunded, last.OrderStatus)
	assert.Equal(t, int64(5000), refundSum(t, svc, order.OrderNumber))
}

func TestFullRefundAfterPartialRefundsRemainder(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 3000)

	_, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 1000, "")
	require.NoError(t, err)
	result, err := svc.CreateFullRefund(ctx, order.OrderNumber, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.AmountCents)
	assert.Equal(t, int64(2000), gateway.Refunds[1].AmountCents)
	assert.Equal(t, int64(3000), dbtest.ReloadOrder(t, deps.Conn, order.OrderNumber).RefundAmountCents)
}

func TestRefundRejections(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	unpaid := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{TotalCents: 1000})
	paid := paidOrder(t, deps, 1000)

	_, err := svc.CreateFullRefund(ctx, unpaid.OrderNumber, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNoPaymentIntent))

	_, err = svc.CreatePartialRefund(ctx, paid.OrderNumber, 0, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))
	_, err = svc.CreatePartialRefund(ctx, paid.OrderNumber, 1001, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))

	_, err = svc.CreateFullRefund(ctx, "ORD-missing", "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	assert.Zero(t, gateway.RefundCount())
}

func TestRefundGatewayFailureLeavesOrderUntouched(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 2500)
	gateway.RefundErr = errors.New("timeout")

	_, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 500, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeGatewayUnavailable))

	stored := dbtest.ReloadOrder(t, deps.Conn, order.OrderNumber)
	assert.Equal(t, enums.RefundStatusNone, stored.RefundStatus)
	assert.Zero(t, stored.RefundAmountCents)
	assert.Zero(t, refundSum(t, svc, order.OrderNumber))
}

func TestRefundRetryAfterLostResponseRefundsOnce(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 5000)
	gateway.LoseRefundResponse = true

	_, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 2000, "late")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeGatewayUnavailable))
	assert.Equal(t, 1, gateway.RefundCount())
	assert.Zero(t, refundSum(t, svc, order.OrderNumber))

	result, err := svc.CreatePartialRefund(ctx, order.OrderNumber, 2000, "late")
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.RefundCount())
	assert.Equal(t, int64(2000), result.TotalRefundedCents)
	assert.Equal(t, int64(2000), refundSum(t, svc, order.OrderNumber))
	assert.Equal(t, pkgstripe.RefundKey(order.OrderNumber, string(enums.RefundKindPartial), 2000, 0), gateway.Refunds[0].IdempotencyKey)

	_, err = svc.CreatePartialRefund(ctx, order.OrderNumber, 2000, "late")
	require.NoError(t, err)
	assert.Equal(t, 2, gateway.RefundCount())
	assert.Equal(t, int64(4000), refundSum(t, svc, order.OrderNumber))
}

func TestRefundRequiresSettledIntent(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 2500)
	intent := "pi_" + order.OrderNumber
	gateway.Intents[intent] = &pkgstripe.PaymentIntentInfo{ID: intent, Status: "requires_payment_method"}

	_, err := svc.CreateFullRefund(ctx, order.OrderNumber, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNoPaymentIntent))
	assert.Zero(t, gateway.RefundCount())

	gateway.Intents[intent].Status = "succeeded"
	gateway.IntentErr = errors.New("connection reset")
	_, err = svc.CreateFullRefund(ctx, order.OrderNumber, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeGatewayUnavailable))
	assert.Zero(t, gateway.RefundCount())
}

func seedDispute(t *testing.T, deps settlementtest.Deps, order models.Order, stripeID string, status enums.DisputeStatus, createdAt time.Time) models.Dispute {
	t.Helper()
	dispute := models.Dispute{
		ID:              uuid.New(),
		OrderID:         order.ID,
		StripeDisputeID: stripeID,
		AmountCents:     order.TotalCents,
		Reason:          "fraudulent",
		Status:          status,
		CreatedAt:       createdAt,
	}
	require.NoError(t, deps.Conn.Create(&dispute).Error)
	return dispute
}

func TestGetDisputeInfoReturnsLatest(t *testing.T) {
	svc, _, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 2500)

	_, err := svc.GetDisputeInfo(ctx, order.OrderNumber)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	seedDispute(t, deps, order, "dp_old", enums.DisputeStatusWon, settlementtest.Clock.Add(-48*time.Hour))
	seedDispute(t, deps, order, "dp_new", enums.DisputeStatusNeedsResponse, settlementtest.Clock)

	dispute, err := svc.GetDisputeInfo(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "dp_new", dispute.StripeDisputeID)
}

func TestSubmitDisputeEvidence(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := paidOrder(t, deps, 2500)
	seedDispute(t, deps, order, "dp_1", enums.DisputeStatusNeedsResponse, settlementtest.Clock)
	seedDispute(t, deps, order, "dp_closed", enums.DisputeStatusLost, settlementtest.Clock.Add(-time.Hour))

	evidence := pkgstripe.DisputeEvidence{ShippingTrackingNumber: "1Z999", ShippingCarrier: "UPS", Submit: true}
	dispute, err := svc.SubmitDisputeEvidence(ctx, "dp_1", evidence)
	require.NoError(t, err)
	assert.True(t, dispute.EvidenceSubmitted)
	assert.Equal(t, evidence, gateway.Evidence["dp_1"])

	stored, err := NewDisputeRepository(deps.Conn).FindByStripeID(ctx, "dp_1")
	require.NoError(t, err)
	assert.True(t, stored.EvidenceSubmitted)
	assert.NotNil(t, stored.EvidenceSubmittedAt)
	assert.Equal(t, enums.DisputeStatusNeedsResponse, stored.Status)
	assert.Equal(t, enums.OrderStatusProcessing, dbtest.ReloadOrder(t, deps.Conn, order.OrderNumber).Status)

	_, err = svc.SubmitDisputeEvidence(ctx, "dp_closed", evidence)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidTransition))
	_, err = svc.SubmitDisputeEvidence(ctx, "dp_missing", evidence)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestSubmitDisputeEvidenceGatewayFailure(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	order := paidOrder(t, deps, 2500)
	seedDispute(t, deps, order, "dp_1", enums.DisputeStatusNeedsResponse, settlementtest.Clock)
	gateway.EvidenceErr = errors.New("503")

	_, err := svc.SubmitDisputeEvidence(context.Background(), "dp_1", pkgstripe.DisputeEvidence{UncategorizedText: "receipt"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeGatewayUnavailable))

	stored, err := NewDisputeRepository(deps.Conn).FindByStripeID(context.Background(), "dp_1")
	require.NoError(t, err)
	assert.False(t, stored.EvidenceSubmitted)
}

func TestListRefundsUnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ListRefunds(context.Background(), "ORD-missing")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.ListRefunds(context.Background(), " ")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
