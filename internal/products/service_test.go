package product

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/internal/movement"
	"github.com/verdantpos/greenledger-backend/pkg/config"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, movement.Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	movements, err := movement.NewService(movement.NewRepository(conn), config.MovementConfig{
		SaveRetryAttempts:  3,
		SaveRetryBaseDelay: time.Millisecond,
		SlowSaveThreshold:  500 * time.Millisecond,
		LargeBatchSize:     50,
	}, logg, nil)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), movements, logg)
	require.NoError(t, err)
	return svc, movements, conn
}

func TestCreateProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		SKU:          "KUSH-35",
		Name:         "OG Kush 3.5g",
		CostPrice:    decimal.RequireFromString("60.00"),
		SellingPrice: decimal.RequireFromString("120.00"),
		ReorderLevel: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	// SKU collisions surface as conflicts, not raw driver errors.
	_, err = svc.Create(ctx, CreateInput{SKU: "KUSH-35", Name: "Duplicate"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.Create(ctx, CreateInput{SKU: "", Name: "No SKU"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateInput{SKU: "NEG-1", Name: "Negative", CostPrice: decimal.RequireFromString("-1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{SKU: "KUSH-35", Name: "OG Kush 3.5g"})
	require.NoError(t, err)

	newName := "OG Kush Premium 3.5g"
	newPrice := decimal.RequireFromString("130.00")
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Name: &newName, SellingPrice: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.True(t, updated.SellingPrice.Equal(newPrice))
	assert.Equal(t, "KUSH-35", updated.SKU, "sku is immutable")

	empty := ""
	_, err = svc.Update(ctx, created.ID, UpdateInput{Name: &empty})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Name: &newName})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListWithStockDerivesFromLedger(t *testing.T) {
	svc, movements, _ := newTestService(t)
	ctx := context.Background()

	stocked, err := svc.Create(ctx, CreateInput{SKU: "KUSH-35", Name: "OG Kush 3.5g"})
	require.NoError(t, err)
	unstocked, err := svc.Create(ctx, CreateInput{SKU: "ROLL-1", Name: "Preroll Single"})
	require.NoError(t, err)

	_, err = movements.CreateMovement(ctx, movement.CreateInput{
		TransactionType: enums.TransactionTypeGRV,
		HeaderID:        uuid.New(),
		ProductID:       stocked.ID,
		ProductSKU:      stocked.SKU,
		ProductName:     stocked.Name,
		Quantity:        decimal.RequireFromString("24"),
		Reason:          "intake",
		UserID:          "receiver@site1",
	})
	require.NoError(t, err)

	result, err := svc.List(ctx, ListInput{WithStock: true, Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, result.Products, 2)

	byID := map[uuid.UUID]ProductWithStock{}
	for _, row := range result.Products {
		byID[row.ID] = row
	}
	require.NotNil(t, byID[stocked.ID].StockOnHand)
	assert.True(t, byID[stocked.ID].StockOnHand.Equal(decimal.RequireFromString("24")))
	require.NotNil(t, byID[unstocked.ID].StockOnHand)
	assert.True(t, byID[unstocked.ID].StockOnHand.IsZero(), "products without ledger rows report zero")

	plain, err := svc.List(ctx, ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	for _, row := range plain.Products {
		assert.Nil(t, row.StockOnHand, "stock is only joined on request")
	}
}

func TestDeactivateProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{SKU: "KUSH-35", Name: "OG Kush 3.5g"})
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	// Deactivating twice is a no-op.
	again, err := svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)

	_, err = svc.Deactivate(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
