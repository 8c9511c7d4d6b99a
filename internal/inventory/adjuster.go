package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

// Line is a stock movement for one product.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Shortfall describes a product that cannot cover the requested quantity.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Adjuster moves stock in the caller's transaction. It never opens its own so
// stock can only change together with the order row that caused it.
type Adjuster interface {
	Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error
	Restore(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type adjuster struct{}

// NewAdjuster returns the products-table backed adjuster.
func NewAdjuster() Adjuster {
	return adjuster{}
}

func (adjuster) Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock decrement")
	}
	merged, err := merge(lines)
	if err != nil {
		return err
	}

	var shortfalls []Shortfall
	for _, line := range merged {
		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock_quantity = stock_quantity - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock_quantity >= ?
		`, line.Quantity, line.ProductID, line.Quantity)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			available, err := currentStock(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			shortfalls = append(shortfalls, Shortfall{ProductID: line.ProductID, Requested: line.Quantity, Available: available})
		}
	}
	if len(shortfalls) > 0 {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").WithDetails(shortfalls)
	}
	return nil
}

func (adjuster) Restore(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock restore")
	}
	merged, err := merge(lines)
	if err != nil {
		return err
	}

	for _, line := range merged {
		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock_quantity = stock_quantity + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, line.Quantity, line.ProductID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restore stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}
	return nil
}

// merge folds repeated products together and orders them by id so concurrent
// transactions touch rows in the same sequence.
func merge(lines []Line) ([]Line, error) {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		totals[line.ProductID] += line.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func currentStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var stock []int
	if err := tx.WithContext(ctx).Table("products").Where("id = ?", productID).Pluck("stock_quantity", &stock).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock")
	}
	if len(stock) == 0 {
		return 0, nil
	}
	return stock[0], nil
}
