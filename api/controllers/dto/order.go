package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/money"
	"github.com/angelmondragon/settlement-engine/pkg/types"
)

// Order is the API view of an order. Amounts are cents; Total is a display string.
type Order struct {
	ID                uuid.UUID                `json:"id"`
	OrderNumber       string                   `json:"order_number"`
	UserID            string                   `json:"user_id"`
	SubtotalCents     int64                    `json:"subtotal_cents"`
	ShippingCents     int64                    `json:"shipping_cents"`
	TaxCents          int64                    `json:"tax_cents"`
	DiscountCents     int64                    `json:"discount_cents"`
	TotalCents        int64                    `json:"total_cents"`
	Total             string                   `json:"total"`
	ShippingAddress   *types.ShippingAddress   `json:"shipping_address,omitempty"`
	PaymentMethodHint *string                  `json:"payment_method_hint,omitempty"`
	Status            enums.OrderStatus        `json:"status"`
	PaymentStatus     enums.OrderPaymentStatus `json:"payment_status"`
	FulfillmentStatus enums.FulfillmentStatus  `json:"fulfillment_status"`
	Tracking          *Tracking                `json:"tracking,omitempty"`
	ShippedAt         *time.Time               `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time               `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time               `json:"cancelled_at,omitempty"`
	Escrow            Escrow                   `json:"escrow"`
	Refund            RefundSummary            `json:"refund"`
	DisputeStatus     enums.OrderDisputeStatus `json:"dispute_status"`
	Items             []LineItem               `json:"items,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

type Tracking struct {
	Number  *string `json:"number,omitempty"`
	Carrier *string `json:"carrier,omitempty"`
	URL     *string `json:"url,omitempty"`
}

type Escrow struct {
	Status     enums.EscrowStatus `json:"status"`
	HoldUntil  *time.Time         `json:"hold_until,omitempty"`
	ReleasedAt *time.Time         `json:"released_at,omitempty"`
}

type RefundSummary struct {
	Status      enums.RefundStatus `json:"status"`
	AmountCents int64              `json:"amount_cents"`
	Reason      *string            `json:"reason,omitempty"`
	RefundedAt  *time.Time         `json:"refunded_at,omitempty"`
}

type LineItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// OrderList is a page of orders.
type OrderList struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// NewOrder maps a persisted order to its API view.
func NewOrder(o *models.Order) Order {
	if o == nil {
		return Order{}
	}
	out := Order{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		SubtotalCents:     o.SubtotalCents,
		ShippingCents:     o.ShippingCents,
		TaxCents:          o.TaxCents,
		DiscountCents:     o.DiscountCents,
		TotalCents:        o.TotalCents,
		Total:             money.Format(o.TotalCents),
		PaymentMethodHint: o.PaymentMethodHint,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		Escrow: Escrow{
			Status:     o.EscrowStatus,
			HoldUntil:  o.EscrowHoldUntil,
			ReleasedAt: o.EscrowReleasedAt,
		},
		Refund: RefundSummary{
			Status:      o.RefundStatus,
			AmountCents: o.RefundAmountCents,
			Reason:      o.RefundReason,
			RefundedAt:  o.RefundedAt,
		},
		DisputeStatus: o.DisputeStatus,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if !o.ShippingAddress.IsZero() {
		addr := o.ShippingAddress
		out.ShippingAddress = &addr
	}
	if o.TrackingNumber != nil || o.Carrier != nil || o.TrackingURL != nil {
		out.Tracking = &Tracking{Number: o.TrackingNumber, Carrier: o.Carrier, URL: o.TrackingURL}
	}
	for _, item := range o.LineItems {
		out.Items = append(out.Items, LineItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return out
}

// NewOrderList maps a page of orders.
func NewOrderList(orders []models.Order, nextCursor string) OrderList {
	out := OrderList{Orders: make([]Order, 0, len(orders)), NextCursor: nextCursor}
	for i := range orders {
		out.Orders = append(out.Orders, NewOrder(&orders[i]))
	}
	return out
}
