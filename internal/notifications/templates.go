package notifications

import (
	"fmt"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/money"
)

func OrderCancelled(userID, orderNumber string, refundedCents int64) Notice {
	msg := fmt.Sprintf("Your order %s has been cancelled.", orderNumber)
	if refundedCents > 0 {
		msg += fmt.Sprintf(" %s has been credited to your wallet.", money.Format(refundedCents))
	}
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypeOrderUpdate,
		Title:       "Order Cancelled",
		Message:     msg,
		OrderNumber: orderNumber,
	}
}

func PaymentReceipt(userID, serviceName, orderNumber, transactionID string, amountCents int64) Notice {
	msg := fmt.Sprintf("Payment of %s for %s received.", money.Format(amountCents), serviceName)
	if orderNumber != "" {
		msg += fmt.Sprintf(" Order #: %s.", orderNumber)
	}
	if transactionID != "" {
		msg += fmt.Sprintf(" Transaction ID: %s.", transactionID)
	}
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypePaymentReceipt,
		Title:       "Payment Successful",
		Message:     msg,
		OrderNumber: orderNumber,
	}
}

func RefundIssued(userID, orderNumber string, amountCents int64, full bool) Notice {
	title := "Partial Refund Issued"
	if full {
		title = "Refund Issued"
	}
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypeRefund,
		Title:       title,
		Message:     fmt.Sprintf("%s has been refunded for order %s.", money.Format(amountCents), orderNumber),
		OrderNumber: orderNumber,
	}
}

func EscrowReleased(userID, orderNumber string) Notice {
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypeEscrowRelease,
		Title:       "Order Completed",
		Message:     fmt.Sprintf("Order %s is complete. Thank you for shopping with us.", orderNumber),
		OrderNumber: orderNumber,
	}
}

func DisputeResolved(userID, orderNumber string, status enums.DisputeStatus) Notice {
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypeDispute,
		Title:       "Dispute Update",
		Message:     fmt.Sprintf("The dispute on order %s is now %s.", orderNumber, status),
		OrderNumber: orderNumber,
	}
}

func OrderStatusChanged(userID, orderNumber string, status enums.OrderStatus) Notice {
	var msg string
	switch status {
	case enums.OrderStatusShipped:
		msg = fmt.Sprintf("Your order %s has shipped.", orderNumber)
	case enums.OrderStatusDelivered:
		msg = fmt.Sprintf("Your order %s has been delivered.", orderNumber)
	default:
		msg = fmt.Sprintf("Your order %s is now %s.", orderNumber, status)
	}
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypeOrderUpdate,
		Title:       "Order Update",
		Message:     msg,
		OrderNumber: orderNumber,
	}
}

func DisputeOpened(userID, orderNumber string, amountCents int64) Notice {
	return Notice{
		UserID:      userID,
		Type:        enums.NotificationTypeDispute,
		Title:       "Payment Disputed",
		Message:     fmt.Sprintf("A dispute of %s was opened on order %s. We will keep you posted.", money.Format(amountCents), orderNumber),
		OrderNumber: orderNumber,
	}
}
