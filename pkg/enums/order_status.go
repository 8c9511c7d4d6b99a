package enums

// OrderStatus is the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusPendingDelivery OrderStatus = "pending_delivery"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefunded        OrderStatus = "refunded"
)

var orderStatuses = newSet("order status",
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPendingDelivery,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
)

func (v OrderStatus) String() string { return string(v) }

func (v OrderStatus) IsValid() bool { return orderStatuses.has(v) }

func ParseOrderStatus(value string) (OrderStatus, error) { return orderStatuses.parse(value) }

// IsCancellable reports whether cancelOrder may still act on the order.
func (v OrderStatus) IsCancellable() bool {
	switch v {
	case OrderStatusPending, OrderStatusPendingDelivery, OrderStatusProcessing:
		return true
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return false
	}
	return false
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (v OrderStatus) IsTerminal() bool {
	switch v {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	case OrderStatusPending, OrderStatusProcessing, OrderStatusPendingDelivery, OrderStatusShipped, OrderStatusDelivered:
		return false
	}
	return false
}
