package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/internal/inventory"
	"github.com/angelmondragon/settlement-engine/internal/ledger"
	"github.com/angelmondragon/settlement-engine/internal/notifications"
	"github.com/angelmondragon/settlement-engine/internal/wallet"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/pagination"
)

const orderNumberAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, entry wallet.Entry) (*models.WalletTransaction, error)
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error)
}

type notifier interface {
	Record(ctx context.Context, tx *gorm.DB, notice notifications.Notice) (*models.Notification, error)
	Notify(ctx context.Context, notice notifications.Notice)
}

// Service owns order creation and the order status lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	CancelOrder(ctx context.Context, userID, orderNumber string) (*CancellationResult, error)
	UpdateStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error)
	AddTracking(ctx context.Context, orderNumber string, input TrackingInput) (*models.Order, error)
	// GetOrder returns the order only when it belongs to userID.
	GetOrder(ctx context.Context, userID, orderNumber string) (*models.Order, error)
	// Lookup returns the order regardless of owner, for admin surfaces.
	Lookup(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, params pagination.Params) (*OrderList, error)
}

type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Inventory     inventory.Adjuster
	Wallet        walletCreditor
	Ledger        ledgerRecorder
	Notifications notifier
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo          Repository
	tx            txRunner
	inventory     inventory.Adjuster
	wallet        walletCreditor
	ledger        ledgerRecorder
	notifications notifier
	logg          *logger.Logger
	now           func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		inventory:     params.Inventory,
		wallet:        params.Wallet,
		ledger:        params.Ledger,
		notifications: params.Notifications,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ShippingCents < 0 || input.TaxCents < 0 || input.DiscountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "shipping, tax and discount must not be negative")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		lines := input.Items
		if len(lines) == 0 {
			cart, err := repo.ListCart(ctx, userID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
			}
			for _, item := range cart {
				lines = append(lines, CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
			}
		}
		merged, err := mergeLines(lines)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(merged))
		for _, line := range merged {
			ids = append(ids, line.ProductID)
		}
		products, err := repo.LockProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock products")
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		var (
			shortfalls []inventory.Shortfall
			items      = make([]models.OrderLineItem, 0, len(merged))
			stock      = make([]inventory.Line, 0, len(merged))
			subtotal   int64
		)
		for _, line := range merged {
			product, ok := byID[line.ProductID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
			if line.Quantity > product.StockQuantity {
				shortfalls = append(shortfalls, inventory.Shortfall{
					ProductID: product.ID,
					Requested: line.Quantity,
					Available: product.StockQuantity,
				})
				continue
			}
			lineTotal := product.PriceCents * int64(line.Quantity)
			subtotal += lineTotal
			items = append(items, models.OrderLineItem{
				ID:             uuid.New(),
				ProductID:      product.ID,
				Name:           product.Name,
				UnitPriceCents: product.PriceCents,
				Quantity:       line.Quantity,
				LineTotalCents: lineTotal,
			})
			stock = append(stock, inventory.Line{ProductID: product.ID, Quantity: line.Quantity})
		}
		if len(shortfalls) > 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").WithDetails(shortfalls)
		}

		total := subtotal + input.ShippingCents + input.TaxCents - input.DiscountCents
		if total <= 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidAmount, "order total must be positive")
		}

		orderNumber, err := s.allocateOrderNumber(ctx, repo)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:                uuid.New(),
			OrderNumber:       orderNumber,
			UserID:            userID,
			SubtotalCents:     subtotal,
			ShippingCents:     input.ShippingCents,
			TaxCents:          input.TaxCents,
			DiscountCents:     input.DiscountCents,
			TotalCents:        total,
			ShippingAddress:   input.ShippingAddress,
			Status:            enums.OrderStatusPending,
			PaymentStatus:     enums.OrderPaymentStatusPending,
			FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
			EscrowStatus:      enums.EscrowStatusNone,
			RefundStatus:      enums.RefundStatusNone,
			DisputeStatus:     enums.OrderDisputeStatusNone,
		}
		if hint := strings.TrimSpace(input.PaymentMethodHint); hint != "" {
			order.PaymentMethodHint = &hint
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order line items")
		}
		if err := s.inventory.Decrement(ctx, tx, stock); err != nil {
			return err
		}
		if _, err := repo.ClearCart(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		order.LineItems = items
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderNumber(s.logg.WithUserID(ctx, userID), created.OrderNumber)
	s.logg.Info(logCtx, "order created")
	return created, nil
}

func (s *service) CancelOrder(ctx context.Context, userID, orderNumber string) (*CancellationResult, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order number required")
	}

	var (
		result *CancellationResult
		notice notifications.Notice
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByNumber(ctx, orderNumber)
		if err != nil {
			return notFound(err, "order not found")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "order already cancelled")
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeNotCancellable, fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
		}

		items, err := repo.FindLineItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order line items")
		}
		if err := s.inventory.Restore(ctx, tx, stockLines(items)); err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}

		var credited int64
		if order.PaymentStatus.IsCaptured() {
			credited = order.RefundableCents()
			if credited > 0 {
				if _, err := s.wallet.Credit(ctx, tx, wallet.Entry{
					UserID:        order.UserID,
					AmountCents:   credited,
					Description:   fmt.Sprintf("Refund for cancelled order %s", order.OrderNumber),
					ReferenceType: "order",
					ReferenceID:   order.OrderNumber,
				}); err != nil {
					return err
				}
				if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
					OrderID:     order.ID,
					UserID:      order.UserID,
					Type:        enums.LedgerEventTypeWalletCredited,
					AmountCents: credited,
					Metadata:    map[string]any{"reason": "order_cancelled"},
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet credit")
				}
			}
			updates["payment_status"] = enums.OrderPaymentStatusRefunded
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}

		notice = notifications.OrderCancelled(order.UserID, order.OrderNumber, credited)
		if _, err := s.notifications.Record(ctx, tx, notice); err != nil {
			return err
		}

		result = &CancellationResult{
			OrderNumber:         order.OrderNumber,
			Status:              enums.OrderStatusCancelled,
			WalletCreditedCents: credited,
			RestoredItems:       len(items),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, notice)
	s.logg.Info(s.logg.WithOrderNumber(ctx, orderNumber), "order cancelled")
	return result, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderNumber string, status enums.OrderStatus) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	if status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "orders are cancelled through the cancel operation")
	}

	var (
		updated *models.Order
		notice  *notifications.Notice
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByNumber(ctx, orderNumber)
		if err != nil {
			return notFound(err, "order not found")
		}
		if !canTransition(order.Status, status) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, status)).
				WithDetails(map[string]any{"from": order.Status, "to": status})
		}

		now := s.now().UTC()
		updates := map[string]any{"status": status}
		switch status {
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
			updates["fulfillment_status"] = enums.FulfillmentStatusFulfilled
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusProcessing, enums.OrderStatusPendingDelivery, enums.OrderStatusCompleted:
		case enums.OrderStatusPending, enums.OrderStatusCancelled, enums.OrderStatusRefunded:
			// unreachable: canTransition never targets these
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}

		if status == enums.OrderStatusShipped || status == enums.OrderStatusDelivered {
			n := notifications.OrderStatusChanged(order.UserID, order.OrderNumber, status)
			if _, err := s.notifications.Record(ctx, tx, n); err != nil {
				return err
			}
			notice = &n
		}

		updated, err = repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notice != nil {
		s.notifications.Notify(ctx, *notice)
	}
	return updated, nil
}

func (s *service) AddTracking(ctx context.Context, orderNumber string, input TrackingInput) (*models.Order, error) {
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	carrier := strings.TrimSpace(input.Carrier)
	if strings.TrimSpace(orderNumber) == "" || trackingNumber == "" || carrier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number, tracking number and carrier required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByNumber(ctx, orderNumber)
		if err != nil {
			return notFound(err, "order not found")
		}
		switch order.Status {
		case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot add tracking to a %s order", order.Status))
		case enums.OrderStatusPending, enums.OrderStatusProcessing, enums.OrderStatusPendingDelivery,
			enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCompleted:
		}

		updates := map[string]any{
			"tracking_number": trackingNumber,
			"carrier":         carrier,
		}
		if url := strings.TrimSpace(input.TrackingURL); url != "" {
			updates["tracking_url"] = url
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update tracking")
		}
		updated, err = repo.FindByNumber(ctx, orderNumber)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderNumber string) (*models.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	order, err := s.Lookup(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) Lookup(ctx context.Context, orderNumber string) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID string, params pagination.Params) (*OrderList, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) allocateOrderNumber(ctx context.Context, repo Repository) (string, error) {
	for range orderNumberAttempts {
		candidate := newOrderNumber(s.now())
		exists, err := repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate order number")
}

// mergeLines folds repeated products and orders lines by product id so row
// locks are always taken in the same order.
func mergeLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID, "quantity": line.Quantity})
		}
		totals[line.ProductID] += line.Quantity
	}
	merged := make([]CartLine, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, CartLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func stockLines(items []models.OrderLineItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
