package enums

import "testing"

func TestParseRoundTripsKnownValues(t *testing.T) {
	for _, status := range orderStatuses.values {
		got, err := ParseOrderStatus(status.String())
		if err != nil || got != status {
			t.Fatalf("ParseOrderStatus(%q) = %q, %v", status, got, err)
		}
	}
	if _, err := ParseOrderStatus("archived"); err == nil {
		t.Fatal("expected unknown order status to fail")
	}
	if EscrowStatus("frozen").IsValid() {
		t.Fatal("expected frozen to be an invalid escrow status")
	}
}

func TestOrderStatusIsCancellable(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:         true,
		OrderStatusProcessing:      true,
		OrderStatusPendingDelivery: true,
		OrderStatusShipped:         false,
		OrderStatusDelivered:       false,
		OrderStatusCompleted:       false,
		OrderStatusCancelled:       false,
		OrderStatusRefunded:        false,
	}
	for status, want := range cases {
		if got := status.IsCancellable(); got != want {
			t.Fatalf("%s.IsCancellable() = %v, want %v", status, got, want)
		}
	}
}

func TestOrderPaymentStatusIsCaptured(t *testing.T) {
	if !OrderPaymentStatusPaid.IsCaptured() || !OrderPaymentStatusCompleted.IsCaptured() {
		t.Fatal("paid and completed must count as captured")
	}
	if OrderPaymentStatusPending.IsCaptured() || OrderPaymentStatusRefunded.IsCaptured() {
		t.Fatal("pending and refunded must not count as captured")
	}
}

func TestDisputeStatusFromGateway(t *testing.T) {
	cases := map[string]DisputeStatus{
		"warning_needs_response": DisputeStatusNeedsResponse,
		"needs_response":         DisputeStatusNeedsResponse,
		"under_review":           DisputeStatusUnderReview,
		"won":                    DisputeStatusWon,
		"lost":                   DisputeStatusLost,
	}
	for raw, want := range cases {
		got, err := DisputeStatusFromGateway(raw)
		if err != nil || got != want {
			t.Fatalf("DisputeStatusFromGateway(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := DisputeStatusFromGateway("mystery"); err == nil {
		t.Fatal("expected unknown gateway status to fail")
	}
	if !DisputeStatusLost.IsTerminal() || DisputeStatusUnderReview.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestRefundRecordStatusFromGateway(t *testing.T) {
	cases := map[string]RefundRecordStatus{
		"succeeded":       RefundRecordStatusSucceeded,
		"pending":         RefundRecordStatusPending,
		"requires_action": RefundRecordStatusPending,
		"failed":          RefundRecordStatusFailed,
		"canceled":        RefundRecordStatusFailed,
	}
	for raw, want := range cases {
		if got := RefundRecordStatusFromGateway(raw); got != want {
			t.Fatalf("RefundRecordStatusFromGateway(%q) = %q, want %q", raw, got, want)
		}
	}
}
