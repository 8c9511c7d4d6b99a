package enums

// PaymentStatus tracks a single checkout session attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var paymentStatuses = newSet("payment status",
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusExpired,
	PaymentStatusFailed,
)

func (v PaymentStatus) String() string { return string(v) }

func (v PaymentStatus) IsValid() bool { return paymentStatuses.has(v) }

func ParsePaymentStatus(value string) (PaymentStatus, error) { return paymentStatuses.parse(value) }
