package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type Dispute struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	StripeDisputeID     string              `gorm:"column:stripe_dispute_id;not null;uniqueIndex"`
	AmountCents         int64               `gorm:"column:amount_cents;not null"`
	Reason              string              `gorm:"column:reason;not null"`
	Status              enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null"`
	EvidenceDueBy       *time.Time          `gorm:"column:evidence_due_by"`
	EvidenceSubmitted   bool                `gorm:"column:evidence_submitted;not null;default:false"`
	EvidenceSubmittedAt *time.Time          `gorm:"column:evidence_submitted_at"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Dispute) TableName() string { return "disputes" }
