package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type Refund struct {
	ID             uuid.UUID                `json:"id"`
	StripeRefundID string                   `json:"stripe_refund_id"`
	AmountCents    int64                    `json:"amount_cents"`
	Reason         string                   `json:"reason"`
	Kind           enums.RefundKind         `json:"kind"`
	Status         enums.RefundRecordStatus `json:"status"`
	CreatedAt      time.Time                `json:"created_at"`
}

func NewRefunds(rows []models.Refund) []Refund {
	out := make([]Refund, 0, len(rows))
	for _, r := range rows {
		out = append(out, Refund{
			ID:             r.ID,
			StripeRefundID: r.StripeRefundID,
			AmountCents:    r.AmountCents,
			Reason:         r.Reason,
			Kind:           r.Kind,
			Status:         r.Status,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}
