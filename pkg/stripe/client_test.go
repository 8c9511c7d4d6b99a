package stripe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/settlement-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

func TestModeOf(t *testing.T) {
	cases := map[string]Mode{
		"sk_test_123": ModeTest,
		"rk_test_123": ModeTest,
		"sk_live_123": ModeLive,
		"rk_live_abc": ModeLive,
	}
	for key, want := range cases {
		got, err := modeOf(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got)
	}

	_, err := modeOf("pk_test_123")
	assert.ErrorIs(t, err, errUnknownKey)
	_, err = modeOf("sk_prod_123")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec_1", Env: "test"}, nil)
	assert.ErrorContains(t, err, "live-mode key")

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec_1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec_1", client.SigningSecret())
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	client := &Client{mode: ModeTest, signingSecret: "whsec_test"}
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := client.ConstructEvent(payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", string(event.Type))

	_, err = client.ConstructEvent(payload, "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestInputValidationNeverReachesStripe(t *testing.T) {
	client := &Client{mode: ModeTest, signingSecret: "whsec_test"}
	ctx := context.Background()

	_, err := client.CreateCheckoutSession(ctx, CheckoutSessionInput{AmountCents: 0})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))

	_, err = client.CreateRefund(ctx, RefundInput{AmountCents: 100})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNoPaymentIntent))

	err = client.SubmitDisputeEvidence(ctx, "", DisputeEvidence{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestRefundKey(t *testing.T) {
	first := RefundKey("ORD-1", "partial", 2000, 0)
	assert.Equal(t, "refund:ORD-1:partial:2000:0", first)
	assert.Equal(t, first, RefundKey("ORD-1", "partial", 2000, 0))
	assert.NotEqual(t, first, RefundKey("ORD-1", "partial", 2000, 2000))
	assert.NotEqual(t, first, RefundKey("ORD-1", "full", 2000, 0))
}

func TestCheckoutKey(t *testing.T) {
	assert.Equal(t, "checkout:order:ORD-1:2500", CheckoutKey("order", "ORD-1", "2500"))
	assert.Equal(t, "checkout:service:u-1::req-9", CheckoutKey("service", "u-1", " ", "req-9"))
}
