package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

// Payment is one checkout session attempt. OrderID is nil for generic service purchases.
type Payment struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              string              `gorm:"column:user_id;not null"`
	OrderID             *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	ServiceType         enums.ServiceType   `gorm:"column:service_type;type:service_type;not null"`
	StripeSessionID     string              `gorm:"column:stripe_session_id;not null;uniqueIndex"`
	StripePaymentIntent *string             `gorm:"column:stripe_payment_intent"`
	AmountCents         int64               `gorm:"column:amount_cents;not null"`
	Currency            string              `gorm:"column:currency;not null;default:'usd'"`
	Status              enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Metadata            json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	PaidAt              *time.Time          `gorm:"column:paid_at"`
	FailedAt            *time.Time          `gorm:"column:failed_at"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string { return "payments" }
