// Package stripetest provides an in-memory Gateway for service tests.
package stripetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	pkgstripe "github.com/angelmondragon/settlement-engine/pkg/stripe"
)

// Gateway records every call and returns canned results. Setting one of the
// Err fields makes the matching call fail with GatewayUnavailable. Calls that
// repeat an idempotency key replay the first result, as Stripe does.
type Gateway struct {
	mu sync.Mutex

	SessionErr  error
	RefundErr   error
	IntentErr   error
	EvidenceErr error
	// LoseRefundResponse applies the next refund and then reports a timeout.
	LoseRefundResponse bool

	Sessions []pkgstripe.CheckoutSessionInput
	Refunds  []pkgstripe.RefundInput
	Evidence map[string]pkgstripe.DisputeEvidence
	Intents  map[string]*pkgstripe.PaymentIntentInfo
	seq      int

	sessionsByKey map[string]*pkgstripe.CheckoutSessionResult
	refundsByKey  map[string]*pkgstripe.RefundResult
}

var _ pkgstripe.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		Evidence: map[string]pkgstripe.DisputeEvidence{},
		Intents:  map[string]*pkgstripe.PaymentIntentInfo{},

		sessionsByKey: map[string]*pkgstripe.CheckoutSessionResult{},
		refundsByKey:  map[string]*pkgstripe.RefundResult{},
	}
}

func (g *Gateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_test_%d", prefix, g.seq)
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, input pkgstripe.CheckoutSessionInput) (*pkgstripe.CheckoutSessionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SessionErr != nil {
		return nil, unavailable(g.SessionErr)
	}
	if prior, ok := g.sessionsByKey[input.IdempotencyKey]; ok && input.IdempotencyKey != "" {
		return prior, nil
	}
	g.Sessions = append(g.Sessions, input)
	id := g.next("cs")
	result := &pkgstripe.CheckoutSessionResult{ID: id, URL: "https://checkout.stripe.test/" + id}
	if input.IdempotencyKey != "" {
		g.sessionsByKey[input.IdempotencyKey] = result
	}
	return result, nil
}

func (g *Gateway) CreateRefund(ctx context.Context, input pkgstripe.RefundInput) (*pkgstripe.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return nil, unavailable(g.RefundErr)
	}
	if prior, ok := g.refundsByKey[input.IdempotencyKey]; ok && input.IdempotencyKey != "" {
		return prior, nil
	}
	g.Refunds = append(g.Refunds, input)
	result := &pkgstripe.RefundResult{ID: g.next("re"), Status: "succeeded", AmountCents: input.AmountCents}
	if input.IdempotencyKey != "" {
		g.refundsByKey[input.IdempotencyKey] = result
	}
	if g.LoseRefundResponse {
		g.LoseRefundResponse = false
		return nil, unavailable(fmt.Errorf("read refund response: timeout"))
	}
	return result, nil
}

func (g *Gateway) RetrievePaymentIntent(ctx context.Context, id string) (*pkgstripe.PaymentIntentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.IntentErr != nil {
		return nil, unavailable(g.IntentErr)
	}
	if pi, ok := g.Intents[id]; ok {
		return pi, nil
	}
	return &pkgstripe.PaymentIntentInfo{ID: id, Status: "succeeded"}, nil
}

func (g *Gateway) SubmitDisputeEvidence(ctx context.Context, disputeID string, evidence pkgstripe.DisputeEvidence) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.EvidenceErr != nil {
		return unavailable(g.EvidenceErr)
	}
	g.Evidence[disputeID] = evidence
	return nil
}

// ConstructEvent skips signature checks and decodes the payload as-is.
func (g *Gateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

func (g *Gateway) RefundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Refunds)
}

func unavailable(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "stripe unavailable")
}
