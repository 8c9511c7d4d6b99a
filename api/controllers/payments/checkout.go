package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/settlement-engine/api/middleware"
	"github.com/angelmondragon/settlement-engine/api/responses"
	"github.com/angelmondragon/settlement-engine/api/validators"
	internalpayments "github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/money"
)

const (
	maxServiceNameRunes = 200
	maxPackageTierRunes = 64
)

type checkoutIssuer interface {
	CreateCheckoutSession(ctx context.Context, req internalpayments.CheckoutRequest) (*internalpayments.CheckoutSession, error)
}

// serviceCheckoutRequest takes the price as a decimal string in major units
// ("49.99") so chat clients can forward what they showed the customer.
type serviceCheckoutRequest struct {
	ServiceType   string `json:"service_type" validate:"required,service_type"`
	ServiceName   string `json:"service_name" validate:"required,max=200"`
	PackageTier   string `json:"package_tier,omitempty" validate:"omitempty,max=64"`
	Amount        string `json:"amount" validate:"required,money"`
	CustomerEmail string `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// ServiceCheckout issues a checkout session for a non-order service package.
func ServiceCheckout(issuer checkoutIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var req serviceCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serviceType, err := enums.ParseServiceType(strings.ToLower(strings.TrimSpace(req.ServiceType)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type").
				WithDetails(map[string]any{"service_type": req.ServiceType}))
			return
		}

		amountCents, err := money.ParseCents(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, "invalid amount").
				WithDetails(map[string]any{"amount": req.Amount}))
			return
		}

		session, err := issuer.CreateCheckoutSession(r.Context(), internalpayments.CheckoutRequest{
			AmountCents:    amountCents,
			CustomerEmail:  req.CustomerEmail,
			IdempotencyKey: strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader)),
			Metadata: internalpayments.ServicePaymentMetadata{
				UserID:      userID,
				ServiceType: serviceType,
				ServiceName: validators.CleanText(req.ServiceName, maxServiceNameRunes),
				PackageTier: validators.CleanText(req.PackageTier, maxPackageTierRunes),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}
