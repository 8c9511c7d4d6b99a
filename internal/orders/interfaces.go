package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/pagination"
)

// Repository defines persistence operations for orders and the catalog/cart
// rows order creation reads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// LockByNumber and LockByID select the order row FOR UPDATE. They must be
	// called on a transaction-bound repository.
	LockByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListByUser(ctx context.Context, userID string, params pagination.Params) (*OrderList, error)
	// FindStalePending returns unpaid pending orders created before cutoff, oldest first.
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	LockProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListCart(ctx context.Context, userID string) ([]models.CartItem, error)
	ClearCart(ctx context.Context, userID string) (int64, error)
}
