package adjustments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/internal/movement"
	product "github.com/verdantpos/greenledger-backend/internal/products"
	"github.com/verdantpos/greenledger-backend/pkg/config"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
)

type fixture struct {
	svc       Service
	movements movement.Service
	kush      *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:adjustments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, conn.AutoMigrate(&models.Movement{}, &models.Product{}), "migrate tables")

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	movements, err := movement.NewService(movement.NewRepository(conn), config.MovementConfig{
		SaveRetryAttempts:  3,
		SaveRetryBaseDelay: time.Millisecond,
		SlowSaveThreshold:  500 * time.Millisecond,
		LargeBatchSize:     50,
	}, logg, nil)
	require.NoError(t, err)

	products := product.NewRepository(conn)
	kush := &models.Product{ID: uuid.New(), SKU: "KUSH-35", Name: "OG Kush 3.5g", IsActive: true}
	require.NoError(t, products.Create(context.Background(), kush))

	svc, err := NewService(products, movements, logg)
	require.NoError(t, err)
	return &fixture{svc: svc, movements: movements, kush: kush}
}

func (f *fixture) soh(t *testing.T) decimal.Decimal {
	t.Helper()
	soh, err := f.movements.CalculateSOH(context.Background(), movement.SOHFilter{ProductID: f.kush.ID})
	require.NoError(t, err)
	return soh
}

func TestApplyMovesStockBothWays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, err := f.svc.Apply(ctx, ApplyInput{
		ProductID: f.kush.ID,
		Direction: enums.MovementDirectionIn,
		Quantity:  decimal.RequireFromString("10"),
		Reason:    "found during cycle count",
		Actor:     "ops@site1",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeAdjustmentIn, in.TransactionType)
	assert.Equal(t, "KUSH-35", in.ProductSKU)
	assert.True(t, f.soh(t).Equal(decimal.RequireFromString("10")))

	out, err := f.svc.Apply(ctx, ApplyInput{
		ProductID: f.kush.ID,
		Direction: enums.MovementDirectionOut,
		Quantity:  decimal.RequireFromString("3"),
		Reason:    "damaged in storage",
		Actor:     "ops@site1",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeAdjustmentOut, out.TransactionType)
	assert.True(t, f.soh(t).Equal(decimal.RequireFromString("7")))
}

func TestApplyCarriesBatchAndSite(t *testing.T) {
	f := newFixture(t)
	batch := "0101202512100001"
	site := 4

	row, err := f.svc.Apply(context.Background(), ApplyInput{
		ProductID:   f.kush.ID,
		Direction:   enums.MovementDirectionIn,
		Quantity:    decimal.New(5, 0),
		BatchNumber: &batch,
		SiteID:      &site,
		Reason:      "recount",
		Actor:       "ops@site4",
	})
	require.NoError(t, err)
	require.NotNil(t, row.BatchNumber)
	assert.Equal(t, batch, *row.BatchNumber)
	require.NotNil(t, row.LocationID)
	assert.Equal(t, site, *row.LocationID)

	batchSOH, err := f.movements.CalculateBatchSOH(context.Background(), f.kush.ID, batch)
	require.NoError(t, err)
	assert.True(t, batchSOH.Equal(decimal.New(5, 0)))
}

func TestRecordStocktakeVarianceWritesOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, ApplyInput{
		ProductID: f.kush.ID,
		Direction: enums.MovementDirectionIn,
		Quantity:  decimal.New(20, 0),
		Reason:    "opening balance",
		Actor:     "ops@site1",
	})
	require.NoError(t, err)

	row, err := f.svc.RecordStocktakeVariance(ctx, VarianceInput{
		ProductID: f.kush.ID,
		Shortfall: decimal.New(2, 0),
		Reason:    "quarterly stocktake shortfall",
		Actor:     "auditor@hq",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeStocktakeVariance, row.TransactionType)
	assert.Equal(t, enums.MovementDirectionOut, row.Direction)
	assert.True(t, f.soh(t).Equal(decimal.New(18, 0)))
}

func TestApplyValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]ApplyInput{
		"no direction":      {ProductID: f.kush.ID, Quantity: decimal.New(1, 0), Reason: "x", Actor: "y"},
		"bad direction":     {ProductID: f.kush.ID, Direction: "sideways", Quantity: decimal.New(1, 0), Reason: "x", Actor: "y"},
		"zero quantity":     {ProductID: f.kush.ID, Direction: enums.MovementDirectionIn, Reason: "x", Actor: "y"},
		"negative quantity": {ProductID: f.kush.ID, Direction: enums.MovementDirectionIn, Quantity: decimal.New(-1, 0), Reason: "x", Actor: "y"},
		"no reason":         {ProductID: f.kush.ID, Direction: enums.MovementDirectionIn, Quantity: decimal.New(1, 0), Actor: "y"},
		"no actor":          {ProductID: f.kush.ID, Direction: enums.MovementDirectionIn, Quantity: decimal.New(1, 0), Reason: "x"},
		"nil product":       {Direction: enums.MovementDirectionIn, Quantity: decimal.New(1, 0), Reason: "x", Actor: "y"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Apply(ctx, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := f.svc.Apply(ctx, ApplyInput{
		ProductID: uuid.New(),
		Direction: enums.MovementDirectionIn,
		Quantity:  decimal.New(1, 0),
		Reason:    "x",
		Actor:     "y",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
