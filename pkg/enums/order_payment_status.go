package enums

// OrderPaymentStatus tracks whether funds for an order were captured.
type OrderPaymentStatus string

const (
	OrderPaymentStatusPending   OrderPaymentStatus = "pending"
	OrderPaymentStatusPaid      OrderPaymentStatus = "paid"
	OrderPaymentStatusCompleted OrderPaymentStatus = "completed"
	OrderPaymentStatusRefunded  OrderPaymentStatus = "refunded"
	OrderPaymentStatusFailed    OrderPaymentStatus = "failed"
)

var orderPaymentStatuses = newSet("order payment status",
	OrderPaymentStatusPending,
	OrderPaymentStatusPaid,
	OrderPaymentStatusCompleted,
	OrderPaymentStatusRefunded,
	OrderPaymentStatusFailed,
)

func (v OrderPaymentStatus) String() string { return string(v) }

func (v OrderPaymentStatus) IsValid() bool { return orderPaymentStatuses.has(v) }

func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) { return orderPaymentStatuses.parse(value) }

// IsCaptured reports whether the gateway has captured funds for the order.
func (v OrderPaymentStatus) IsCaptured() bool {
	switch v {
	case OrderPaymentStatusPaid, OrderPaymentStatusCompleted:
		return true
	case OrderPaymentStatusPending, OrderPaymentStatusRefunded, OrderPaymentStatusFailed:
		return false
	}
	return false
}
