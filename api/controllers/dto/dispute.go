package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type Dispute struct {
	ID                  uuid.UUID           `json:"id"`
	OrderID             uuid.UUID           `json:"order_id"`
	StripeDisputeID     string              `json:"stripe_dispute_id"`
	AmountCents         int64               `json:"amount_cents"`
	Reason              string              `json:"reason"`
	Status              enums.DisputeStatus `json:"status"`
	EvidenceDueBy       *time.Time          `json:"evidence_due_by,omitempty"`
	EvidenceSubmitted   bool                `json:"evidence_submitted"`
	EvidenceSubmittedAt *time.Time          `json:"evidence_submitted_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func NewDispute(d *models.Dispute) Dispute {
	if d == nil {
		return Dispute{}
	}
	return Dispute{
		ID:                  d.ID,
		OrderID:             d.OrderID,
		StripeDisputeID:     d.StripeDisputeID,
		AmountCents:         d.AmountCents,
		Reason:              d.Reason,
		Status:              d.Status,
		EvidenceDueBy:       d.EvidenceDueBy,
		EvidenceSubmitted:   d.EvidenceSubmitted,
		EvidenceSubmittedAt: d.EvidenceSubmittedAt,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}
