package transfers

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
	products  product.Repository
	kush      *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:transfers_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, conn.AutoMigrate(
		&models.StockTransfer{},
		&models.TransactionDetail{},
		&models.Movement{},
		&models.Product{},
	), "migrate tables")

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

	svc, err := NewService(NewRepository(conn), products, movements, logg)
	require.NoError(t, err)
	return &fixture{svc: svc, movements: movements, products: products, kush: kush}
}

func (f *fixture) siteSOH(t *testing.T, siteID int) decimal.Decimal {
	t.Helper()
	soh, err := f.movements.CalculateSOH(context.Background(), movement.SOHFilter{ProductID: f.kush.ID, LocationID: &siteID})
	require.NoError(t, err)
	return soh
}

func draft(f *fixture, t *testing.T) *models.StockTransfer {
	t.Helper()
	batch := "0101202512100001"
	row, err := f.svc.CreateDraft(context.Background(), CreateInput{
		FromSiteID:  1,
		ToSiteID:    2,
		ProductID:   f.kush.ID,
		Quantity:    decimal.RequireFromString("6"),
		BatchNumber: &batch,
		Reason:      "rebalancing",
		CreatedBy:   "ops@hq",
	})
	require.NoError(t, err)
	return row
}

func TestTransferLifecycleMovesStockBetweenSites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	row := draft(f, t)
	assert.Equal(t, enums.TransferStatusDraft, row.Status)

	// Drafts carry no stock.
	assert.True(t, f.siteSOH(t, 1).IsZero())
	assert.True(t, f.siteSOH(t, 2).IsZero())

	approved, err := f.svc.Approve(ctx, row.ID, "manager@site1")
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusApproved, approved.Status)
	assert.True(t, f.siteSOH(t, 1).Equal(decimal.RequireFromString("-6")), "stock leaves the source on approval")
	assert.True(t, f.siteSOH(t, 2).IsZero(), "in transit: destination has nothing yet")

	completed, err := f.svc.Complete(ctx, row.ID, "receiver@site2")
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusCompleted, completed.Status)
	assert.True(t, f.siteSOH(t, 2).Equal(decimal.RequireFromString("6")), "stock arrives on completion")

	// Both legs reference the same header and batch.
	outRows, err := f.movements.ListByTransaction(ctx, enums.TransactionTypeTransferOut, row.ID)
	require.NoError(t, err)
	inRows, err := f.movements.ListByTransaction(ctx, enums.TransactionTypeTransferIn, row.ID)
	require.NoError(t, err)
	require.Len(t, outRows, 1)
	require.Len(t, inRows, 1)
	require.NotNil(t, outRows[0].BatchNumber)
	assert.Equal(t, *outRows[0].BatchNumber, *inRows[0].BatchNumber)

	// Completed is terminal.
	_, err = f.svc.Cancel(ctx, row.ID, "too late", "manager@site1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestTransferStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	row := draft(f, t)

	// A draft cannot complete without approval.
	_, err := f.svc.Complete(ctx, row.ID, "receiver@site2")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Approve(ctx, row.ID, "manager@site1")
	require.NoError(t, err)

	// Approving twice is rejected before any ledger write.
	_, err = f.svc.Approve(ctx, row.ID, "manager@site1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.True(t, f.siteSOH(t, 1).Equal(decimal.RequireFromString("-6")), "double approval must not double-book")
}

func TestCancelApprovedReturnsStockToSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	row := draft(f, t)

	_, err := f.svc.Approve(ctx, row.ID, "manager@site1")
	require.NoError(t, err)
	require.True(t, f.siteSOH(t, 1).Equal(decimal.RequireFromString("-6")))

	cancelled, err := f.svc.Cancel(ctx, row.ID, "truck broke down", "manager@site1")
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusCancelled, cancelled.Status)
	assert.True(t, f.siteSOH(t, 1).IsZero(), "cancellation returns the outbound stock")
	assert.True(t, f.siteSOH(t, 2).IsZero())
}

func TestCancelDraftTouchesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	row := draft(f, t)

	cancelled, err := f.svc.Cancel(ctx, row.ID, "not needed", "ops@hq")
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusCancelled, cancelled.Status)
	assert.True(t, f.siteSOH(t, 1).IsZero())
}

func TestCreateDraftValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]CreateInput{
		"same site":     {FromSiteID: 1, ToSiteID: 1, ProductID: f.kush.ID, Quantity: decimal.New(1, 0), Reason: "x", CreatedBy: "y"},
		"zero quantity": {FromSiteID: 1, ToSiteID: 2, ProductID: f.kush.ID, Quantity: decimal.Zero, Reason: "x", CreatedBy: "y"},
		"nil product":   {FromSiteID: 1, ToSiteID: 2, Quantity: decimal.New(1, 0), Reason: "x", CreatedBy: "y"},
		"no reason":     {FromSiteID: 1, ToSiteID: 2, ProductID: f.kush.ID, Quantity: decimal.New(1, 0), CreatedBy: "y"},
		"no creator":    {FromSiteID: 1, ToSiteID: 2, ProductID: f.kush.ID, Quantity: decimal.New(1, 0), Reason: "x"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateDraft(ctx, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := f.svc.CreateDraft(ctx, CreateInput{FromSiteID: 1, ToSiteID: 2, ProductID: uuid.New(), Quantity: decimal.New(1, 0), Reason: "x", CreatedBy: "y"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListBySite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	row := draft(f, t)

	forSource, err := f.svc.ListBySite(ctx, 1)
	require.NoError(t, err)
	require.Len(t, forSource, 1)
	assert.Equal(t, row.ID, forSource[0].ID)

	forDestination, err := f.svc.ListBySite(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, forDestination, 1)

	elsewhere, err := f.svc.ListBySite(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, elsewhere)

	_, err = f.svc.ListBySite(ctx, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
