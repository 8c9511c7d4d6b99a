package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/dispute"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

// Gateway is the payment capability the settlement engine consumes.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSessionResult, error)
	CreateRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntentInfo, error)
	SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence DisputeEvidence) error
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

var _ Gateway = (*Client)(nil)

type CheckoutSessionInput struct {
	AmountCents       int64
	Currency          string
	ProductName       string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	CustomerEmail     string
	Metadata          map[string]string
	// IdempotencyKey makes a retried call return the first call's session.
	IdempotencyKey string
}

type CheckoutSessionResult struct {
	ID  string
	URL string
}

// RefundInput refunds the whole remaining charge when AmountCents is zero.
// Calls sharing an IdempotencyKey create at most one refund.
type RefundInput struct {
	PaymentIntentID string
	AmountCents     int64
	Reason          string
	Metadata        map[string]string
	IdempotencyKey  string
}

type RefundResult struct {
	ID          string
	Status      string
	AmountCents int64
}

type PaymentIntentInfo struct {
	ID                  string
	Status              string
	AmountCents         int64
	AmountReceivedCents int64
}

type DisputeEvidence struct {
	ProductDescription     string `json:"product_description,omitempty"`
	CustomerName           string `json:"customer_name,omitempty"`
	CustomerEmailAddress   string `json:"customer_email_address,omitempty"`
	ShippingTrackingNumber string `json:"shipping_tracking_number,omitempty"`
	ShippingCarrier        string `json:"shipping_carrier,omitempty"`
	ShippingAddress        string `json:"shipping_address,omitempty"`
	UncategorizedText      string `json:"uncategorized_text,omitempty"`
	Submit                 bool   `json:"submit"`
}

// Stripe accepts only a fixed set of refund reasons; free text travels in metadata.
const stripeRefundReason = "requested_by_customer"

func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSessionResult, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "checkout amount must be positive")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(input.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(input.ProductName),
					},
					UnitAmount: stripe.Int64(input.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		Metadata:   input.Metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: input.Metadata,
		},
	}
	if input.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(input.ClientReferenceID)
	}
	if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, gatewayError(err, "create checkout session")
	}
	return &CheckoutSessionResult{ID: sess.ID, URL: sess.URL}, nil
}

func (c *Client) CreateRefund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoPaymentIntent, "payment intent required for refund")
	}
	if input.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "refund amount must not be negative")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(input.PaymentIntentID),
		Reason:        stripe.String(stripeRefundReason),
	}
	if input.AmountCents > 0 {
		params.Amount = stripe.Int64(input.AmountCents)
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	if input.Reason != "" {
		params.AddMetadata("reason", input.Reason)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		return nil, gatewayError(err, "create refund")
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status), AmountCents: r.Amount}, nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntentInfo, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoPaymentIntent, "payment intent id required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, gatewayError(err, "retrieve payment intent")
	}
	return &PaymentIntentInfo{
		ID:                  pi.ID,
		Status:              string(pi.Status),
		AmountCents:         pi.Amount,
		AmountReceivedCents: pi.AmountReceived,
	}, nil
}

func (c *Client) SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence DisputeEvidence) error {
	if disputeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}

	ev := &stripe.DisputeEvidenceParams{}
	setIfPresent(&ev.ProductDescription, evidence.ProductDescription)
	setIfPresent(&ev.CustomerName, evidence.CustomerName)
	setIfPresent(&ev.CustomerEmailAddress, evidence.CustomerEmailAddress)
	setIfPresent(&ev.ShippingTrackingNumber, evidence.ShippingTrackingNumber)
	setIfPresent(&ev.ShippingCarrier, evidence.ShippingCarrier)
	setIfPresent(&ev.ShippingAddress, evidence.ShippingAddress)
	setIfPresent(&ev.UncategorizedText, evidence.UncategorizedText)

	params := &stripe.DisputeParams{
		Evidence: ev,
		Submit:   stripe.Bool(evidence.Submit),
	}
	params.Context = ctx

	if _, err := dispute.Update(disputeID, params); err != nil {
		return gatewayError(err, "submit dispute evidence")
	}
	return nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func setIfPresent(dst **string, value string) {
	if value != "" {
		*dst = stripe.String(value)
	}
}

// gatewayError maps every failure talking to Stripe onto GatewayUnavailable so
// callers can retry; the Stripe error code rides along as details.
func gatewayError(err error, op string) error {
	details := map[string]any{"operation": op}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		details["stripe_code"] = string(stripeErr.Code)
		details["stripe_type"] = string(stripeErr.Type)
		details["http_status"] = strconv.Itoa(stripeErr.HTTPStatusCode)
	}
	return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, fmt.Sprintf("stripe: %s", op)).WithDetails(details)
}
