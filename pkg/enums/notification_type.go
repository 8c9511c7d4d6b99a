package enums

// NotificationType categorises user-facing notifications.
type NotificationType string

const (
	NotificationTypeOrderUpdate    NotificationType = "order_update"
	NotificationTypePaymentReceipt NotificationType = "payment_receipt"
	NotificationTypeRefund         NotificationType = "refund"
	NotificationTypeDispute        NotificationType = "dispute"
	NotificationTypeEscrowRelease  NotificationType = "escrow_release"
)

var notificationTypes = newSet("notification type",
	NotificationTypeOrderUpdate,
	NotificationTypePaymentReceipt,
	NotificationTypeRefund,
	NotificationTypeDispute,
	NotificationTypeEscrowRelease,
)

func (v NotificationType) String() string { return string(v) }

func (v NotificationType) IsValid() bool { return notificationTypes.has(v) }

func ParseNotificationType(value string) (NotificationType, error) { return notificationTypes.parse(value) }
