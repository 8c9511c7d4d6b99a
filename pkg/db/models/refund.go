package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type Refund struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID                `gorm:"column:order_id;type:uuid;not null"`
	StripeRefundID string                   `gorm:"column:stripe_refund_id;not null;uniqueIndex"`
	AmountCents    int64                    `gorm:"column:amount_cents;not null"`
	Reason         string                   `gorm:"column:reason;not null"`
	Kind           enums.RefundKind         `gorm:"column:kind;type:refund_kind;not null"`
	Status         enums.RefundRecordStatus `gorm:"column:status;type:refund_record_status;not null"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Refund) TableName() string { return "refunds" }
