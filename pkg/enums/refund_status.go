package enums

// RefundStatus is the order-level refund aggregate.
type RefundStatus string

const (
	RefundStatusNone              RefundStatus = "none"
	RefundStatusPartiallyRefunded RefundStatus = "partially_refunded"
	RefundStatusRefunded          RefundStatus = "refunded"
)

var refundStatuses = newSet("refund status",
	RefundStatusNone,
	RefundStatusPartiallyRefunded,
	RefundStatusRefunded,
)

func (v RefundStatus) String() string { return string(v) }

func (v RefundStatus) IsValid() bool { return refundStatuses.has(v) }

func ParseRefundStatus(value string) (RefundStatus, error) { return refundStatuses.parse(value) }
