package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/types"
)

// CartLine is one product/quantity pair of the cart being checked out.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput carries the cart snapshot the router collected. When Items
// is empty the user's persisted cart is used.
type CreateOrderInput struct {
	UserID            string
	Items             []CartLine
	ShippingAddress   types.ShippingAddress
	ShippingCents     int64
	TaxCents          int64
	DiscountCents     int64
	PaymentMethodHint string
}

// CancellationResult reports what a cancellation undid.
type CancellationResult struct {
	OrderNumber         string            `json:"order_number"`
	Status              enums.OrderStatus `json:"status"`
	WalletCreditedCents int64             `json:"wallet_credited_cents"`
	RestoredItems       int               `json:"restored_items"`
}

// TrackingInput sets carrier details on a shipped order.
type TrackingInput struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
	Carrier        string `json:"carrier" validate:"required"`
	TrackingURL    string `json:"tracking_url,omitempty" validate:"omitempty,url"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
