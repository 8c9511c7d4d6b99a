package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/settlement-engine/internal/orders"
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
		Repo:       NewRepository(deps.Conn),
		Orders:     orders.NewRepository(deps.Conn),
		Gateway:    gateway,
		Currency:   "USD",
		SuccessURL: "https://shop.test/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://shop.test/payment/cancel",
		Logger:     deps.Logger,
	})
	require.NoError(t, err)
	return svc, gateway, deps
}

func countPayments(t *testing.T, deps settlementtest.Deps) int64 {
	t.Helper()
	var n int64
	require.NoError(t, deps.Conn.Model(&models.Payment{}).Count(&n).Error)
	return n
}

func TestCreateCheckoutSessionForOrderWritesPendingPayment(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{UserID: "user-1", TotalCents: 2500})

	session, err := svc.CreateCheckoutSession(ctx, CheckoutRequest{
		AmountCents: 2500,
		Metadata:    OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.URL)

	require.Len(t, gateway.Sessions, 1)
	sent := gateway.Sessions[0]
	assert.Equal(t, "usd", sent.Currency)
	assert.Equal(t, int64(2500), sent.AmountCents)
	assert.Equal(t, "order", sent.Metadata["flow"])
	assert.Equal(t, order.OrderNumber, sent.Metadata["order_number"])
	assert.Equal(t, order.OrderNumber, sent.ClientReferenceID)

	payment, err := NewRepository(deps.Conn).FindBySessionID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Equal(t, enums.ServiceTypeShopping, payment.ServiceType)
	require.NotNil(t, payment.OrderID)
	assert.Equal(t, order.ID, *payment.OrderID)

	meta, err := DecodeMetadata(payment.Metadata)
	require.NoError(t, err)
	assert.Equal(t, OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber}, meta)

	// issuing a session never touches the order
	stored := dbtest.ReloadOrder(t, deps.Conn, order.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	assert.Equal(t, enums.OrderPaymentStatusPending, stored.PaymentStatus)
}

func TestCreateCheckoutSessionForService(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateCheckoutSession(ctx, CheckoutRequest{
		AmountCents: 1999,
		Metadata: ServicePaymentMetadata{
			UserID:      "user-9",
			ServiceType: enums.ServiceTypeIPTV,
			ServiceName: "IPTV",
			PackageTier: "premium",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "IPTV (premium)", gateway.Sessions[0].ProductName)

	payment, err := NewRepository(deps.Conn).FindBySessionID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Nil(t, payment.OrderID)
	assert.Equal(t, enums.ServiceTypeIPTV, payment.ServiceType)
}

func TestCreateCheckoutSessionRejections(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{UserID: "user-1", TotalCents: 2500})
	paid := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{
		UserID: "user-1", TotalCents: 2500,
		Status: enums.OrderStatusProcessing, PaymentStatus: enums.OrderPaymentStatusPaid,
	})

	cases := []struct {
		name string
		req  CheckoutRequest
		code pkgerrors.Code
	}{
		{"zero amount", CheckoutRequest{AmountCents: 0, Metadata: OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber}}, pkgerrors.CodeInvalidAmount},
		{"negative amount", CheckoutRequest{AmountCents: -5, Metadata: OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber}}, pkgerrors.CodeInvalidAmount},
		{"missing metadata", CheckoutRequest{AmountCents: 100}, pkgerrors.CodeValidation},
		{"amount mismatch", CheckoutRequest{AmountCents: 100, Metadata: OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber}}, pkgerrors.CodeInvalidAmount},
		{"other user", CheckoutRequest{AmountCents: 2500, Metadata: OrderPaymentMetadata{UserID: "user-2", OrderNumber: order.OrderNumber}}, pkgerrors.CodeNotFound},
		{"already paid", CheckoutRequest{AmountCents: 2500, Metadata: OrderPaymentMetadata{UserID: "user-1", OrderNumber: paid.OrderNumber}}, pkgerrors.CodeInvalidTransition},
		{"shopping as service", CheckoutRequest{AmountCents: 100, Metadata: ServicePaymentMetadata{UserID: "u", ServiceType: enums.ServiceTypeShopping, ServiceName: "x"}}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCheckoutSession(ctx, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}
	assert.Empty(t, gateway.Sessions)
	assert.Zero(t, countPayments(t, deps))
}

func TestCreateCheckoutSessionGatewayFailurePersistsNothing(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	order := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{UserID: "user-1", TotalCents: 2500})
	gateway.SessionErr = errors.New("connection reset")

	_, err := svc.CreateCheckoutSession(context.Background(), CheckoutRequest{
		AmountCents: 2500,
		Metadata:    OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeGatewayUnavailable))
	assert.Equal(t, pkgerrors.OutcomeRetry, pkgerrors.OutcomeOf(err))
	assert.Zero(t, countPayments(t, deps))
}

func TestCreateCheckoutSessionRetryReusesSession(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, deps.Conn, dbtest.OrderFixture{UserID: "user-1", TotalCents: 2500})
	req := CheckoutRequest{
		AmountCents: 2500,
		Metadata:    OrderPaymentMetadata{UserID: "user-1", OrderNumber: order.OrderNumber},
	}

	first, err := svc.CreateCheckoutSession(ctx, req)
	require.NoError(t, err)
	second, err := svc.CreateCheckoutSession(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	require.Len(t, gateway.Sessions, 1)
	assert.Equal(t, pkgstripe.CheckoutKey("order", order.OrderNumber, "2500", ""), gateway.Sessions[0].IdempotencyKey)
	assert.Equal(t, int64(1), countPayments(t, deps))
}

func TestCreateCheckoutSessionForServiceKeysOnRequest(t *testing.T) {
	svc, gateway, deps := newTestService(t)
	ctx := context.Background()
	meta := ServicePaymentMetadata{UserID: "user-9", ServiceType: enums.ServiceTypeIPTV, ServiceName: "IPTV"}

	_, err := svc.CreateCheckoutSession(ctx, CheckoutRequest{AmountCents: 1999, Metadata: meta})
	require.NoError(t, err)
	_, err = svc.CreateCheckoutSession(ctx, CheckoutRequest{AmountCents: 1999, Metadata: meta, IdempotencyKey: "req-1"})
	require.NoError(t, err)
	_, err = svc.CreateCheckoutSession(ctx, CheckoutRequest{AmountCents: 1999, Metadata: meta, IdempotencyKey: "req-1"})
	require.NoError(t, err)

	require.Len(t, gateway.Sessions, 2)
	assert.Empty(t, gateway.Sessions[0].IdempotencyKey)
	assert.Equal(t, pkgstripe.CheckoutKey("service", "user-9", "req-1"), gateway.Sessions[1].IdempotencyKey)
	assert.Equal(t, int64(2), countPayments(t, deps))
}
