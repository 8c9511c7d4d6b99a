package enums

// RefundRecordStatus mirrors the gateway state of a single refund.
type RefundRecordStatus string

const (
	RefundRecordStatusPending   RefundRecordStatus = "pending"
	RefundRecordStatusSucceeded RefundRecordStatus = "succeeded"
	RefundRecordStatusFailed    RefundRecordStatus = "failed"
)

var refundRecordStatuses = newSet("refund record status",
	RefundRecordStatusPending,
	RefundRecordStatusSucceeded,
	RefundRecordStatusFailed,
)

func (v RefundRecordStatus) String() string { return string(v) }

func (v RefundRecordStatus) IsValid() bool { return refundRecordStatuses.has(v) }

func ParseRefundRecordStatus(value string) (RefundRecordStatus, error) { return refundRecordStatuses.parse(value) }

// RefundRecordStatusFromGateway maps Stripe refund statuses onto the stored set.
func RefundRecordStatusFromGateway(value string) RefundRecordStatus {
	switch value {
	case "succeeded":
		return RefundRecordStatusSucceeded
	case "failed", "canceled":
		return RefundRecordStatusFailed
	default:
		return RefundRecordStatusPending
	}
}
