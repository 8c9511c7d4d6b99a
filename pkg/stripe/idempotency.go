package stripe

import (
	"strconv"
	"strings"
)

// RefundKey identifies one refund attempt against an order. A retry after a
// lost response reuses the key because the local refunded balance has not
// moved, while the next refund on the same order gets a fresh one.
func RefundKey(orderNumber, kind string, amountCents, refundedCents int64) string {
	return joinKey("refund", orderNumber, kind, strconv.FormatInt(amountCents, 10), strconv.FormatInt(refundedCents, 10))
}

// CheckoutKey identifies a checkout session request. Blank parts are kept so
// positions stay stable.
func CheckoutKey(parts ...string) string {
	return joinKey("checkout", parts...)
}

func joinKey(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(p))
	}
	return b.String()
}
