package grv

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

	"github.com/verdantpos/greenledger-backend/internal/batchnumber"
	"github.com/verdantpos/greenledger-backend/internal/movement"
	product "github.com/verdantpos/greenledger-backend/internal/products"
	"github.com/verdantpos/greenledger-backend/internal/sequence"
	"github.com/verdantpos/greenledger-backend/pkg/config"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
)

type fixture struct {
	svc       Service
	movements movement.Service
	products  product.Repository
	conn      *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:grv_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, conn.AutoMigrate(
		&models.GoodsReceivedVoucher{},
		&models.TransactionDetail{},
		&models.Movement{},
		&models.Product{},
		&models.BatchNumberSequence{},
		&models.SerialNumberSequence{},
	), "migrate tables")

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	store, err := sequence.NewStore(conn, config.SequenceConfig{BatchMax: 9999, UnitMax: 99999, DailyMax: 99999}, nil)
	require.NoError(t, err)
	batches, err := batchnumber.NewService(store, logg)
	require.NoError(t, err)

	movements, err := movement.NewService(movement.NewRepository(conn), config.MovementConfig{
		SaveRetryAttempts:  3,
		SaveRetryBaseDelay: time.Millisecond,
		SlowSaveThreshold:  500 * time.Millisecond,
		LargeBatchSize:     50,
	}, logg, nil)
	require.NoError(t, err)

	products := product.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), products, batches, movements, db.FromConn(conn), logg)
	require.NoError(t, err)

	return &fixture{svc: svc, movements: movements, products: products, conn: conn}
}

func (f *fixture) seedProduct(t *testing.T, sku, name string) *models.Product {
	t.Helper()
	row := &models.Product{ID: uuid.New(), SKU: sku, Name: name, IsActive: true}
	require.NoError(t, f.products.Create(context.Background(), row))
	return row
}

func draftInput(f *fixture, t *testing.T) CreateInput {
	kush := f.seedProduct(t, "KUSH-35", "OG Kush 3.5g")
	roll := f.seedProduct(t, "ROLL-1", "Preroll Single")
	received := time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC)
	return CreateInput{
		SiteID:       1,
		SupplierName: "Green Valley Farms",
		Reference:    "PO-1042",
		ReceivedDate: &received,
		CreatedBy:    "receiver@site1",
		Lines: []LineInput{
			{ProductID: kush.ID, Quantity: decimal.RequireFromString("24"), UnitPrice: decimal.RequireFromString("60.00"), WeightGrams: decimal.RequireFromString("84")},
			{ProductID: roll.ID, Quantity: decimal.RequireFromString("100"), UnitPrice: decimal.RequireFromString("8.00")},
		},
	}
}

func TestCreateDraftAssignsBatchNumbersWithoutStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateDraft(ctx, draftInput(f, t))
	require.NoError(t, err)
	assert.Equal(t, enums.GRVStatusDraft, result.GRV.Status)
	require.Len(t, result.Details, 2)

	// Each line gets its own sequential GRV batch for the received day.
	require.NotNil(t, result.Details[0].BatchNumber)
	require.NotNil(t, result.Details[1].BatchNumber)
	assert.Equal(t, "0102202512100001", *result.Details[0].BatchNumber)
	assert.Equal(t, "0102202512100002", *result.Details[1].BatchNumber)
	assert.True(t, result.Details[0].LineTotal.Equal(decimal.RequireFromString("1440.00")))

	// Drafts must not move stock.
	soh, err := f.movements.CalculateSOH(ctx, movement.SOHFilter{ProductID: result.Details[0].ProductID})
	require.NoError(t, err)
	assert.True(t, soh.IsZero())
}

func TestCreateDraftValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := draftInput(f, t)

	mutate := func(change func(*CreateInput)) CreateInput {
		input := valid
		input.Lines = append([]LineInput(nil), valid.Lines...)
		change(&input)
		return input
	}

	cases := map[string]CreateInput{
		"missing site":     mutate(func(i *CreateInput) { i.SiteID = 0 }),
		"missing supplier": mutate(func(i *CreateInput) { i.SupplierName = "" }),
		"missing ref":      mutate(func(i *CreateInput) { i.Reference = "" }),
		"no lines":         mutate(func(i *CreateInput) { i.Lines = nil }),
		"missing creator":  mutate(func(i *CreateInput) { i.CreatedBy = "" }),
		"zero quantity":    mutate(func(i *CreateInput) { i.Lines[0].Quantity = decimal.Zero }),
		"negative price":   mutate(func(i *CreateInput) { i.Lines[0].UnitPrice = decimal.RequireFromString("-1") }),
		"nil product":      mutate(func(i *CreateInput) { i.Lines[0].ProductID = uuid.Nil }),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateDraft(ctx, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	unknown := mutate(func(i *CreateInput) { i.Lines[0].ProductID = uuid.New() })
	_, err := f.svc.CreateDraft(ctx, unknown)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApproveBooksStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateDraft(ctx, draftInput(f, t))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, result.GRV.ID, "manager@site1")
	require.NoError(t, err)
	assert.Equal(t, enums.GRVStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "manager@site1", *approved.ApprovedBy)

	soh, err := f.movements.CalculateSOH(ctx, movement.SOHFilter{ProductID: result.Details[0].ProductID})
	require.NoError(t, err)
	assert.True(t, soh.Equal(decimal.RequireFromString("24")))

	// Movements carry the batch and the received date.
	rows, err := f.movements.ListByTransaction(ctx, enums.TransactionTypeGRV, result.GRV.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.MovementDirectionIn, row.Direction)
		require.NotNil(t, row.BatchNumber)
		require.NotNil(t, row.LocationID)
		assert.Equal(t, 1, *row.LocationID)
	}

	// Approving twice is a state conflict before it ever reaches the ledger.
	_, err = f.svc.Approve(ctx, result.GRV.ID, "manager@site1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestCancelDraftLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateDraft(ctx, draftInput(f, t))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, result.GRV.ID, "wrong supplier", "manager@site1")
	require.NoError(t, err)
	assert.Equal(t, enums.GRVStatusCancelled, cancelled.Status)

	rows, err := f.movements.ListByTransaction(ctx, enums.TransactionTypeGRV, result.GRV.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Cancelled is terminal.
	_, err = f.svc.Approve(ctx, result.GRV.ID, "manager@site1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancelApprovedReversesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateDraft(ctx, draftInput(f, t))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, result.GRV.ID, "manager@site1")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, result.GRV.ID, "recall", "manager@site1")
	require.NoError(t, err)

	for _, detail := range result.Details {
		soh, err := f.movements.CalculateSOH(ctx, movement.SOHFilter{ProductID: detail.ProductID})
		require.NoError(t, err)
		assert.True(t, soh.IsZero(), "reversal must zero the intake for %s", detail.ProductSKU)
	}

	_, err = f.svc.Cancel(ctx, result.GRV.ID, "again", "manager@site1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetReturnsHeaderWithLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateDraft(ctx, draftInput(f, t))
	require.NoError(t, err)

	loaded, err := f.svc.Get(ctx, result.GRV.ID)
	require.NoError(t, err)
	assert.Equal(t, result.GRV.ID, loaded.GRV.ID)
	assert.Len(t, loaded.Details, 2)

	_, err = f.svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
