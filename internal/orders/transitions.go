package orders

import "github.com/angelmondragon/settlement-engine/pkg/enums"

// canTransition encodes the forward-only fulfilment lattice:
// pending -> processing -> (pending_delivery ->) shipped -> delivered -> completed,
// with shipped -> completed allowed. Cancelled and refunded are reached only
// through CancelOrder and the refund/dispute flows.
func canTransition(from, to enums.OrderStatus) bool {
	switch from {
	case enums.OrderStatusPending:
		return to == enums.OrderStatusProcessing
	case enums.OrderStatusProcessing:
		return to == enums.OrderStatusPendingDelivery || to == enums.OrderStatusShipped
	case enums.OrderStatusPendingDelivery:
		return to == enums.OrderStatusShipped
	case enums.OrderStatusShipped:
		return to == enums.OrderStatusDelivered || to == enums.OrderStatusCompleted
	case enums.OrderStatusDelivered:
		return to == enums.OrderStatusCompleted
	case enums.OrderStatusCompleted, enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return false
	}
	return false
}
