package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/settlement-engine/api/controllers/dto"
	ordercontrollers "github.com/angelmondragon/settlement-engine/api/controllers/orders"
	"github.com/angelmondragon/settlement-engine/api/responses"
	"github.com/angelmondragon/settlement-engine/api/validators"
	"github.com/angelmondragon/settlement-engine/internal/cron"
	"github.com/angelmondragon/settlement-engine/internal/escrow"
	internalorders "github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/internal/refunds"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	pkgstripe "github.com/angelmondragon/settlement-engine/pkg/stripe"
)

type orderAdmin interface {
	UpdateStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error)
	AddTracking(ctx context.Context, orderNumber string, input internalorders.TrackingInput) (*models.Order, error)
	Lookup(ctx context.Context, orderNumber string) (*models.Order, error)
}

type escrowAdmin interface {
	Hold(ctx context.Context, orderNumber string, holdDays int) (*escrow.Record, error)
	Release(ctx context.Context, orderNumber string) (*escrow.Record, error)
	AutoReleaseExpired(ctx context.Context) ([]string, error)
}

type refundAdmin interface {
	CreateFullRefund(ctx context.Context, orderNumber, reason string) (*refunds.RefundResult, error)
	CreatePartialRefund(ctx context.Context, orderNumber string, amountCents int64, reason string) (*refunds.RefundResult, error)
	ListRefunds(ctx context.Context, orderNumber string) ([]models.Refund, error)
	GetDisputeInfo(ctx context.Context, orderNumber string) (*models.Dispute, error)
	SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence pkgstripe.DisputeEvidence) (*models.Dispute, error)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

type holdRequest struct {
	HoldDays int `json:"hold_days" validate:"gte=0,lte=90"`
}

// refundRequest issues a full refund when AmountCents is omitted.
type refundRequest struct {
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

type autoReleaseResult struct {
	Ran      bool     `json:"ran"`
	Released []string `json:"released"`
}

// Order returns any order by number.
func Order(svc orderAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Lookup(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(order))
	}
}

// UpdateStatus moves an order forward through the fulfilment lifecycle.
func UpdateStatus(svc orderAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderNumber, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(order))
	}
}

// UpdateTracking records carrier details.
func UpdateTracking(svc orderAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req internalorders.TrackingInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AddTracking(r.Context(), orderNumber, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(order))
	}
}

// HoldEscrow places a captured payment in escrow; hold_days 0 uses the default.
func HoldEscrow(svc escrowAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req holdRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		record, err := svc.Hold(r.Context(), orderNumber, req.HoldDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ReleaseEscrow releases a held payment to the seller.
func ReleaseEscrow(svc escrowAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Release(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// AutoRelease runs the expiry sweep on demand. It shares the scheduler's
// lock, so a sweep already in progress is reported as not run.
func AutoRelease(svc escrowAdmin, lock cron.Lock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := autoReleaseResult{Released: []string{}}
		run := func(ctx context.Context) error {
			released, err := svc.AutoReleaseExpired(ctx)
			if err != nil {
				return err
			}
			result.Released = append(result.Released, released...)
			return nil
		}

		var err error
		if lock == nil {
			result.Ran, err = true, run(r.Context())
		} else {
			result.Ran, err = cron.WithLock(r.Context(), lock, run)
		}
		if err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto release")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Refund issues a full or partial refund through the gateway.
func Refund(svc refundAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason := validators.CleanText(req.Reason, 500)
		var result *refunds.RefundResult
		if req.AmountCents == nil {
			result, err = svc.CreateFullRefund(r.Context(), orderNumber, reason)
		} else {
			result, err = svc.CreatePartialRefund(r.Context(), orderNumber, *req.AmountCents, reason)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Refunds lists the gateway refunds issued against an order.
func Refunds(svc refundAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListRefunds(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewRefunds(rows))
	}
}

// Dispute returns the latest dispute on an order.
func Dispute(svc refundAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber, err := ordercontrollers.OrderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.GetDisputeInfo(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewDispute(dispute))
	}
}

// SubmitEvidence forwards dispute evidence to the gateway.
func SubmitEvidence(svc refundAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		disputeID := strings.TrimSpace(chi.URLParam(r, "disputeID"))
		if disputeID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "dispute id is required"))
			return
		}
		var req pkgstripe.DisputeEvidence
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.SubmitDisputeEvidence(r.Context(), disputeID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewDispute(dispute))
	}
}
