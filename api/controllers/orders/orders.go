package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/settlement-engine/api/controllers/dto"
	"github.com/angelmondragon/settlement-engine/api/middleware"
	"github.com/angelmondragon/settlement-engine/api/responses"
	"github.com/angelmondragon/settlement-engine/api/validators"
	internalorders "github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/pagination"
	"github.com/angelmondragon/settlement-engine/pkg/types"
)

type checkoutIssuer interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
}

type createOrderRequest struct {
	Items             []internalorders.CartLine `json:"items" validate:"omitempty,dive"`
	ShippingAddress   *types.ShippingAddress    `json:"shipping_address,omitempty" validate:"omitempty"`
	ShippingCents     int64                     `json:"shipping_cents" validate:"gte=0"`
	TaxCents          int64                     `json:"tax_cents" validate:"gte=0"`
	DiscountCents     int64                     `json:"discount_cents" validate:"gte=0"`
	PaymentMethodHint string                    `json:"payment_method_hint,omitempty" validate:"omitempty,max=64"`
}

type checkoutRequest struct {
	CustomerEmail string `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// Create converts the caller's cart into a pending order.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			UserID:            userID,
			Items:             req.Items,
			ShippingCents:     req.ShippingCents,
			TaxCents:          req.TaxCents,
			DiscountCents:     req.DiscountCents,
			PaymentMethodHint: strings.TrimSpace(req.PaymentMethodHint),
		}
		if req.ShippingAddress != nil {
			input.ShippingAddress = *req.ShippingAddress
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto.NewOrder(order))
	}
}

// List returns the caller's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.ListOrders(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrderList(list.Orders, list.NextCursor))
	}
}

// Detail returns one of the caller's orders.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		orderNumber, err := OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), userID, orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(order))
	}
}

// Cancel cancels one of the caller's orders, restocking and crediting the
// wallet when it was already paid.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		orderNumber, err := OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CancelOrder(r.Context(), userID, orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Checkout issues a hosted payment session for the order total.
func Checkout(svc internalorders.Service, issuer checkoutIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		orderNumber, err := OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var order *models.Order
		if order, err = svc.GetOrder(r.Context(), userID, orderNumber); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := issuer.CreateCheckoutSession(r.Context(), payments.CheckoutRequest{
			AmountCents:   order.TotalCents,
			CustomerEmail: req.CustomerEmail,
			Metadata: payments.OrderPaymentMetadata{
				UserID:      userID,
				OrderNumber: order.OrderNumber,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// OrderNumberParam reads the {orderNumber} path segment.
func OrderNumberParam(r *http.Request) (string, error) {
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	return orderNumber, nil
}

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return "", false
	}
	return userID, true
}
