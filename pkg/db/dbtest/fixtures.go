package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

// SeedProduct inserts an active product with the given price and stock.
func SeedProduct(t *testing.T, conn *gorm.DB, name string, priceCents int64, stock int) models.Product {
	t.Helper()
	p := models.Product{
		ID:            uuid.New(),
		Name:          name,
		PriceCents:    priceCents,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, conn.Create(&p).Error)
	return p
}

// Stock reads the current stock_quantity of a product.
func Stock(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, conn.Where("id = ?", productID).First(&p).Error)
	return p.StockQuantity
}

// OrderFixture describes an order inserted directly, bypassing creation rules.
type OrderFixture struct {
	UserID        string
	TotalCents    int64
	Status        enums.OrderStatus
	PaymentStatus enums.OrderPaymentStatus
	EscrowStatus  enums.EscrowStatus
	HoldUntil     *time.Time
	DisputeStatus enums.OrderDisputeStatus
	RefundedCents int64
	Lines         []models.OrderLineItem
}

// SeedOrder inserts an order whose subtotal equals its total.
func SeedOrder(t *testing.T, conn *gorm.DB, f OrderFixture) models.Order {
	t.Helper()
	if f.UserID == "" {
		f.UserID = "user-1"
	}
	if f.Status == "" {
		f.Status = enums.OrderStatusPending
	}
	if f.PaymentStatus == "" {
		f.PaymentStatus = enums.OrderPaymentStatusPending
	}
	if f.EscrowStatus == "" {
		f.EscrowStatus = enums.EscrowStatusNone
	}
	if f.DisputeStatus == "" {
		f.DisputeStatus = enums.OrderDisputeStatusNone
	}
	refundStatus := enums.RefundStatusNone
	switch {
	case f.RefundedCents > 0 && f.RefundedCents >= f.TotalCents:
		refundStatus = enums.RefundStatusRefunded
	case f.RefundedCents > 0:
		refundStatus = enums.RefundStatusPartiallyRefunded
	}

	order := models.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-" + uuid.NewString()[:13],
		UserID:            f.UserID,
		SubtotalCents:     f.TotalCents,
		TotalCents:        f.TotalCents,
		Status:            f.Status,
		PaymentStatus:     f.PaymentStatus,
		FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
		EscrowStatus:      f.EscrowStatus,
		EscrowHoldUntil:   f.HoldUntil,
		RefundStatus:      refundStatus,
		RefundAmountCents: f.RefundedCents,
		DisputeStatus:     f.DisputeStatus,
	}
	require.NoError(t, conn.Omit("LineItems").Create(&order).Error)
	for i := range f.Lines {
		line := f.Lines[i]
		line.ID = uuid.New()
		line.OrderID = order.ID
		require.NoError(t, conn.Create(&line).Error)
		order.LineItems = append(order.LineItems, line)
	}
	return order
}

// SeedPayment inserts a payment row for an order.
func SeedPayment(t *testing.T, conn *gorm.DB, order models.Order, sessionID string, status enums.PaymentStatus, intent string) models.Payment {
	t.Helper()
	orderID := order.ID
	payment := models.Payment{
		ID:              uuid.New(),
		UserID:          order.UserID,
		OrderID:         &orderID,
		ServiceType:     enums.ServiceTypeShopping,
		StripeSessionID: sessionID,
		AmountCents:     order.TotalCents,
		Currency:        "usd",
		Status:          status,
	}
	if intent != "" {
		payment.StripePaymentIntent = &intent
	}
	require.NoError(t, conn.Create(&payment).Error)
	return payment
}

// ReloadOrder fetches the order row by number.
func ReloadOrder(t *testing.T, conn *gorm.DB, orderNumber string) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, conn.Where("order_number = ?", orderNumber).First(&order).Error)
	return order
}
