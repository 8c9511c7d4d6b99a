package stripewebhook

import (
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

// metadataOf prefers the metadata stored at session issuance and falls back
// to what the gateway echoed back on the session.
func metadataOf(payment *models.Payment, fields map[string]string) (payments.Metadata, error) {
	if len(payment.Metadata) > 0 {
		meta, err := payments.DecodeMetadata(payment.Metadata)
		if err == nil {
			return meta, nil
		}
	}
	meta, err := payments.ParseGatewayMetadata(fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment metadata unreadable")
	}
	return meta, nil
}

func disputeIntent(d *stripe.Dispute) string {
	if d.PaymentIntent != nil && d.PaymentIntent.ID != "" {
		return d.PaymentIntent.ID
	}
	if d.Charge != nil && d.Charge.PaymentIntent != nil {
		return d.Charge.PaymentIntent.ID
	}
	return ""
}

// disputeStatusOf treats statuses the gateway adds later as still open.
func disputeStatusOf(d *stripe.Dispute) enums.DisputeStatus {
	status, err := enums.DisputeStatusFromGateway(string(d.Status))
	if err != nil {
		return enums.DisputeStatusNeedsResponse
	}
	return status
}

func evidenceDueBy(d *stripe.Dispute) *time.Time {
	if d.EvidenceDetails == nil || d.EvidenceDetails.DueBy == 0 {
		return nil
	}
	due := time.Unix(d.EvidenceDetails.DueBy, 0).UTC()
	return &due
}
