package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/internal/repo"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// SOHFilter scopes a stock-on-hand aggregation. ProductID is required; the
// rest narrow the ledger slice being summed.
type SOHFilter struct {
	ProductID   uuid.UUID
	LocationID  *int
	BatchNumber *string
	AsOf        *time.Time
}

// DirectionSums carries the two aggregate legs of the ledger for one product.
type DirectionSums struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

// Net is total in minus total out.
func (s DirectionSums) Net() decimal.Decimal {
	return s.In.Sub(s.Out)
}

// HistoryFilter scopes a movement history listing.
type HistoryFilter struct {
	ProductID   *uuid.UUID
	BatchNumber *string
	LocationID  *int
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// Repository persists and aggregates ledger entries. Inserted rows are never
// updated; reversal only flips the soft-delete fields.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.Movement) error
	CreateBatch(ctx context.Context, movements []*models.Movement) error
	SumByDirection(ctx context.Context, filter SOHFilter) (DirectionSums, error)
	SumByDirectionBatch(ctx context.Context, productIDs []uuid.UUID, locationID *int, asOf *time.Time) (map[uuid.UUID]DirectionSums, error)
	List(ctx context.Context, filter HistoryFilter) ([]models.Movement, error)
	ListByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.Movement, error)
	CountActiveByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) (int64, error)
	SoftDeleteByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID, reason, deletedBy string) (int64, error)
	ListDetails(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.TransactionDetail, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the ledger repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, movement *models.Movement) error {
	return r.DB(ctx).Create(movement).Error
}

func (r *repository) CreateBatch(ctx context.Context, movements []*models.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.DB(ctx).Create(movements).Error
}

type directionSumRow struct {
	Direction enums.MovementDirection
	Total     decimal.Decimal
}

func (r *repository) SumByDirection(ctx context.Context, filter SOHFilter) (DirectionSums, error) {
	query := r.DB(ctx).Model(&models.Movement{}).
		Select("direction, COALESCE(SUM(quantity), 0) AS total").
		Where("product_id = ? AND is_deleted = ?", filter.ProductID, false).
		Group("direction")
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.BatchNumber != nil {
		query = query.Where("batch_number = ?", *filter.BatchNumber)
	}
	if filter.AsOf != nil {
		query = query.Where("transaction_date <= ?", *filter.AsOf)
	}

	var rows []directionSumRow
	if err := query.Scan(&rows).Error; err != nil {
		return DirectionSums{}, fmt.Errorf("summing movements: %w", err)
	}

	sums := DirectionSums{In: decimal.Zero, Out: decimal.Zero}
	for _, row := range rows {
		switch row.Direction {
		case enums.MovementDirectionIn:
			sums.In = row.Total
		case enums.MovementDirectionOut:
			sums.Out = row.Total
		}
	}
	return sums, nil
}

type productDirectionSumRow struct {
	ProductID uuid.UUID
	Direction enums.MovementDirection
	Total     decimal.Decimal
}

// SumByDirectionBatch aggregates many products in one query. Products with no
// ledger rows are still present in the result with zero sums.
func (r *repository) SumByDirectionBatch(ctx context.Context, productIDs []uuid.UUID, locationID *int, asOf *time.Time) (map[uuid.UUID]DirectionSums, error) {
	result := make(map[uuid.UUID]DirectionSums, len(productIDs))
	for _, id := range productIDs {
		result[id] = DirectionSums{In: decimal.Zero, Out: decimal.Zero}
	}
	if len(productIDs) == 0 {
		return result, nil
	}

	query := r.DB(ctx).Model(&models.Movement{}).
		Select("product_id, direction, COALESCE(SUM(quantity), 0) AS total").
		Where("product_id IN ? AND is_deleted = ?", productIDs, false).
		Group("product_id, direction")
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}
	if asOf != nil {
		query = query.Where("transaction_date <= ?", *asOf)
	}

	var rows []productDirectionSumRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("summing movements by product: %w", err)
	}
	for _, row := range rows {
		sums := result[row.ProductID]
		switch row.Direction {
		case enums.MovementDirectionIn:
			sums.In = row.Total
		case enums.MovementDirectionOut:
			sums.Out = row.Total
		}
		result[row.ProductID] = sums
	}
	return result, nil
}

// List returns active ledger entries, newest first. Ties on transaction date
// break on id so pagination stays stable.
func (r *repository) List(ctx context.Context, filter HistoryFilter) ([]models.Movement, error) {
	query := r.DB(ctx).Model(&models.Movement{}).
		Where("is_deleted = ?", false).
		Order("transaction_date DESC, id DESC")
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.BatchNumber != nil {
		query = query.Where("batch_number = ?", *filter.BatchNumber)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.From != nil {
		query = query.Where("transaction_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("transaction_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.Movement
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.Movement, error) {
	var rows []models.Movement
	err := r.DB(ctx).
		Where("transaction_type = ? AND header_id = ? AND is_deleted = ?", txType, headerID, false).
		Order("transaction_date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountActiveByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Movement{}).
		Where("transaction_type = ? AND header_id = ? AND is_deleted = ?", txType, headerID, false).
		Count(&count).Error
	return count, err
}

// SoftDeleteByTransaction reverses a transaction's active ledger entries. The
// original reason is preserved with the reversal note appended; quantities
// and dates are untouched.
func (r *repository) SoftDeleteByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID, reason, deletedBy string) (int64, error) {
	now := time.Now().UTC()
	result := r.DB(ctx).Model(&models.Movement{}).
		Where("transaction_type = ? AND header_id = ? AND is_deleted = ?", txType, headerID, false).
		Updates(map[string]any{
			"is_deleted":      true,
			"deleted_at":      now,
			"deleted_by":      deletedBy,
			"movement_reason": gorm.Expr("movement_reason || ?", " [REVERSED: "+reason+"]"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) ListDetails(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.TransactionDetail, error) {
	var rows []models.TransactionDetail
	err := r.DB(ctx).
		Where("transaction_type = ? AND header_id = ? AND is_deleted = ?", txType, headerID, false).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
