package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	pkgstripe "github.com/angelmondragon/settlement-engine/pkg/stripe"
)

type orderReader interface {
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, input pkgstripe.CheckoutSessionInput) (*pkgstripe.CheckoutSessionResult, error)
}

// CheckoutRequest asks for a hosted checkout session for an amount in cents.
type CheckoutRequest struct {
	AmountCents   int64
	Metadata      Metadata
	CustomerEmail string
	// IdempotencyKey is the caller's retry key for service checkouts. Order
	// checkouts key on the order itself.
	IdempotencyKey string
}

// CheckoutSession is returned to the router to hand the customer a payment link.
type CheckoutSession struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	PaymentID uuid.UUID `json:"payment_id"`
}

// Service issues gateway checkout sessions.
type Service interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

type ServiceParams struct {
	Repo       Repository
	Orders     orderReader
	Gateway    sessionCreator
	Currency   string
	SuccessURL string
	CancelURL  string
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	orders     orderReader
	gateway    sessionCreator
	currency   string
	successURL string
	cancelURL  string
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.SuccessURL == "" || params.CancelURL == "" {
		return nil, fmt.Errorf("checkout success and cancel urls required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &service{
		repo:       params.Repo,
		orders:     params.Orders,
		gateway:    params.Gateway,
		currency:   currency,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
		logg:       params.Logger,
	}, nil
}

// CreateCheckoutSession validates the reference, calls the gateway and writes
// the pending payment row before returning so an early webhook can find it.
func (s *service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}
	if req.Metadata == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout metadata required")
	}
	if err := req.Metadata.validate(); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:          uuid.New(),
		UserID:      req.Metadata.User(),
		AmountCents: req.AmountCents,
		Currency:    s.currency,
		Status:      enums.PaymentStatusPending,
	}
	clientRef := req.Metadata.User()
	var idemKey string

	switch meta := req.Metadata.(type) {
	case OrderPaymentMetadata:
		order, err := s.payableOrder(ctx, meta, req.AmountCents)
		if err != nil {
			return nil, err
		}
		payment.OrderID = &order.ID
		payment.ServiceType = enums.ServiceTypeShopping
		clientRef = order.OrderNumber
		idemKey = pkgstripe.CheckoutKey("order", order.OrderNumber, strconv.FormatInt(req.AmountCents, 10), req.CustomerEmail)
	case ServicePaymentMetadata:
		payment.ServiceType = meta.ServiceType
		if req.IdempotencyKey != "" {
			idemKey = pkgstripe.CheckoutKey("service", meta.UserID, req.IdempotencyKey)
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported checkout metadata %T", req.Metadata))
	}

	encoded, err := EncodeMetadata(req.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment metadata")
	}
	payment.Metadata = encoded

	result, err := s.gateway.CreateCheckoutSession(ctx, pkgstripe.CheckoutSessionInput{
		AmountCents:       req.AmountCents,
		Currency:          s.currency,
		ProductName:       req.Metadata.description(),
		SuccessURL:        s.successURL,
		CancelURL:         s.cancelURL,
		ClientReferenceID: clientRef,
		CustomerEmail:     req.CustomerEmail,
		Metadata:          req.Metadata.gatewayFields(),
		IdempotencyKey:    idemKey,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "create checkout session")
	}

	// a replayed key hands back a session whose row was already written
	existing, err := s.repo.FindBySessionID(ctx, result.ID)
	switch {
	case err == nil:
		return &CheckoutSession{URL: result.URL, SessionID: result.ID, PaymentID: existing.ID}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}

	payment.StripeSessionID = result.ID
	if err := s.repo.Create(ctx, payment); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"session_id": result.ID, "user_id": payment.UserID})
		s.logg.Error(logCtx, "checkout session created but payment row not stored", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id": result.ID,
		"user_id":    payment.UserID,
		"flow":       string(req.Metadata.Kind()),
	})
	s.logg.Info(logCtx, "checkout session issued")

	return &CheckoutSession{URL: result.URL, SessionID: result.ID, PaymentID: payment.ID}, nil
}

func (s *service) payableOrder(ctx context.Context, meta OrderPaymentMetadata, amount int64) (*models.Order, error) {
	order, err := s.orders.FindByNumber(ctx, meta.OrderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != meta.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.OrderPaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not awaiting payment")
	}
	if amount != order.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount does not match order total").
			WithDetails(map[string]any{"order_total_cents": order.TotalCents, "amount_cents": amount})
	}
	return order, nil
}
