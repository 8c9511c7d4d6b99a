package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/types"
)

// Order is the settlement aggregate. Escrow, refund and dispute state live on
// the row so every transition can be guarded by a single row lock.
type Order struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string                   `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            string                   `gorm:"column:user_id;not null"`
	SubtotalCents     int64                    `gorm:"column:subtotal_cents;not null"`
	ShippingCents     int64                    `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents          int64                    `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents     int64                    `gorm:"column:discount_cents;not null;default:0"`
	TotalCents        int64                    `gorm:"column:total_cents;not null"`
	ShippingAddress   types.ShippingAddress    `gorm:"column:shipping_address;type:jsonb"`
	PaymentMethodHint *string                  `gorm:"column:payment_method_hint"`
	Status            enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus     enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'pending'"`
	FulfillmentStatus enums.FulfillmentStatus  `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'unfulfilled'"`
	TrackingNumber    *string                  `gorm:"column:tracking_number"`
	Carrier           *string                  `gorm:"column:carrier"`
	TrackingURL       *string                  `gorm:"column:tracking_url"`
	ShippedAt         *time.Time               `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time               `gorm:"column:delivered_at"`
	CancelledAt       *time.Time               `gorm:"column:cancelled_at"`
	EscrowStatus      enums.EscrowStatus       `gorm:"column:escrow_status;type:escrow_status;not null;default:'none'"`
	EscrowHoldUntil   *time.Time               `gorm:"column:escrow_hold_until"`
	EscrowReleasedAt  *time.Time               `gorm:"column:escrow_released_at"`
	RefundStatus      enums.RefundStatus       `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	RefundAmountCents int64                    `gorm:"column:refund_amount_cents;not null;default:0"`
	RefundReason      *string                  `gorm:"column:refund_reason"`
	RefundedAt        *time.Time               `gorm:"column:refunded_at"`
	DisputeStatus     enums.OrderDisputeStatus `gorm:"column:dispute_status;type:order_dispute_status;not null;default:'none'"`
	LineItems         []OrderLineItem          `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// RefundableCents is the captured amount not yet returned to the customer.
func (o Order) RefundableCents() int64 {
	remaining := o.TotalCents - o.RefundAmountCents
	if remaining < 0 {
		return 0
	}
	return remaining
}
