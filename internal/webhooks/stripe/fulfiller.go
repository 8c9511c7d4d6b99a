package stripewebhook

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

// LogFulfiller logs each service activation. Services are provisioned by
// whoever consumes the payment receipt on the messaging channel.
type LogFulfiller struct {
	Logger *logger.Logger
}

func (f LogFulfiller) Fulfill(ctx context.Context, _ *gorm.DB, payment *models.Payment, meta payments.ServicePaymentMetadata) error {
	logCtx := f.Logger.WithFields(ctx, map[string]any{
		"payment_id":   payment.ID.String(),
		"user_id":      meta.UserID,
		"service_type": string(meta.ServiceType),
		"service_name": meta.ServiceName,
		"package_tier": meta.PackageTier,
		"amount_cents": payment.AmountCents,
	})
	f.Logger.Info(logCtx, "service purchase activated")
	return nil
}
