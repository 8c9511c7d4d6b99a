package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/settlement-engine/api/responses"
	stripewebhook "github.com/angelmondragon/settlement-engine/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

const maxPayloadBytes = 1 << 20

type eventProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (stripewebhook.Outcome, error)
}

type webhookAck struct {
	Received bool                  `json:"received"`
	Outcome  stripewebhook.Outcome `json:"outcome"`
}

// StripeWebhook verifies and applies gateway events. Any non-2xx response
// makes the gateway redeliver the event later.
func StripeWebhook(svc eventProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		outcome, err := svc.Process(ctx, payload, sigHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, webhookAck{Received: true, Outcome: outcome})
	}
}
