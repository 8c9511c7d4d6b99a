package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	stripewebhook "github.com/angelmondragon/settlement-engine/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

type fakeProcessor struct {
	outcome   stripewebhook.Outcome
	err       error
	payload   []byte
	signature string
	calls     int
}

func (f *fakeProcessor) Process(_ context.Context, payload []byte, signature string) (stripewebhook.Outcome, error) {
	f.calls++
	f.payload = payload
	f.signature = signature
	return f.outcome, f.err
}

func webhookRequest(signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{"id":"evt_1"}`)))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	return req
}

func TestStripeWebhookProcessed(t *testing.T) {
	svc := &fakeProcessor{outcome: stripewebhook.OutcomeProcessed}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(rec, webhookRequest("t=1,v1=abc"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.signature != "t=1,v1=abc" || string(svc.payload) != `{"id":"evt_1"}` {
		t.Fatalf("unexpected processor input %q %q", svc.signature, svc.payload)
	}
	var envelope struct {
		Data webhookAck `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.Received || envelope.Data.Outcome != stripewebhook.OutcomeProcessed {
		t.Fatalf("unexpected ack %+v", envelope.Data)
	}
}

func TestStripeWebhookDuplicateIsAcknowledged(t *testing.T) {
	svc := &fakeProcessor{outcome: stripewebhook.OutcomeDuplicate}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(rec, webhookRequest("t=1,v1=abc"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec.Code)
	}
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	svc := &fakeProcessor{}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(rec, webhookRequest(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatal("processor should not run without a signature")
	}
}

func TestStripeWebhookFailuresAreNon2xx(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeValidation:         http.StatusBadRequest,
		pkgerrors.CodeNotFound:           http.StatusNotFound,
		pkgerrors.CodeGatewayUnavailable: http.StatusServiceUnavailable,
		pkgerrors.CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		t.Run(string(code), func(t *testing.T) {
			svc := &fakeProcessor{outcome: stripewebhook.OutcomeFailed, err: pkgerrors.New(code, "failed")}
			rec := httptest.NewRecorder()
			StripeWebhook(svc, nil).ServeHTTP(rec, webhookRequest("t=1,v1=abc"))
			if rec.Code != status {
				t.Fatalf("expected %d, got %d", status, rec.Code)
			}
		})
	}
}
