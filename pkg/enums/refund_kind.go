package enums

// RefundKind distinguishes full from partial refunds.
type RefundKind string

const (
	RefundKindFull    RefundKind = "full"
	RefundKindPartial RefundKind = "partial"
)

var refundKinds = newSet("refund kind",
	RefundKindFull,
	RefundKindPartial,
)

func (v RefundKind) String() string { return string(v) }

func (v RefundKind) IsValid() bool { return refundKinds.has(v) }

func ParseRefundKind(value string) (RefundKind, error) { return refundKinds.parse(value) }
