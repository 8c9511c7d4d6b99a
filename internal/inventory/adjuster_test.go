package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/dbtest"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

func seedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	p := models.Product{ID: uuid.New(), Name: "Mug", PriceCents: 1250, StockQuantity: stock, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func TestDecrementAndRestoreAreInverse(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	adj := NewAdjuster()
	a := seedProduct(t, db, 5)
	b := seedProduct(t, db, 3)

	lines := []Line{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 1}, {ProductID: a, Quantity: 1}}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return adj.Decrement(ctx, tx, lines)
	}))
	assert.Equal(t, 2, stockOf(t, db, a))
	assert.Equal(t, 2, stockOf(t, db, b))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return adj.Restore(ctx, tx, lines)
	}))
	assert.Equal(t, 5, stockOf(t, db, a))
	assert.Equal(t, 3, stockOf(t, db, b))
}

func TestDecrementOutOfStockRollsBack(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	adj := NewAdjuster()
	a := seedProduct(t, db, 5)
	b := seedProduct(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return adj.Decrement(ctx, tx, []Line{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 4}})
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOutOfStock, typed.Code())

	shortfalls, ok := typed.Details().([]Shortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, b, shortfalls[0].ProductID)
	assert.Equal(t, 1, shortfalls[0].Available)

	assert.Equal(t, 5, stockOf(t, db, a), "partial decrement must roll back")
	assert.Equal(t, 1, stockOf(t, db, b))
}

func TestAdjusterRejectsInvalidInput(t *testing.T) {
	adj := NewAdjuster()
	ctx := context.Background()

	err := adj.Decrement(ctx, nil, []Line{{ProductID: uuid.New(), Quantity: 1}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))

	db := dbtest.Open(t)
	err = adj.Decrement(ctx, db, []Line{{ProductID: uuid.New(), Quantity: 0}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	err = adj.Restore(ctx, db, []Line{{ProductID: uuid.New(), Quantity: 1}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
