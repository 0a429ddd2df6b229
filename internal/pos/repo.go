package pos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/internal/repo"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
)

// Repository persists POS transaction headers and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, header *models.SaleTransaction, details []*models.TransactionDetail) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SaleTransaction, error)
	ListDetails(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.TransactionDetail, error)
	ListRefundsOf(ctx context.Context, originalSaleID uuid.UUID) ([]models.SaleTransaction, error)
	SetCancelled(ctx context.Context, id uuid.UUID, cancelledBy string, at time.Time) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the POS repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, header *models.SaleTransaction, details []*models.TransactionDetail) error {
	if err := r.DB(ctx).Create(header).Error; err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	return r.DB(ctx).Create(details).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SaleTransaction, error) {
	var row models.SaleTransaction
	err := r.DB(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "transaction %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
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

func (r *repository) ListRefundsOf(ctx context.Context, originalSaleID uuid.UUID) ([]models.SaleTransaction, error) {
	var rows []models.SaleTransaction
	err := r.DB(ctx).
		Where("transaction_type = ? AND original_sale_id = ? AND is_cancelled = ?", enums.TransactionTypeRefund, originalSaleID, false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetCancelled(ctx context.Context, id uuid.UUID, cancelledBy string, at time.Time) error {
	result := r.DB(ctx).Model(&models.SaleTransaction{}).
		Where("id = ? AND is_cancelled = ?", id, false).
		Updates(map[string]any{
			"is_cancelled": true,
			"cancelled_at": at,
			"cancelled_by": cancelledBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "transaction %s is already cancelled or missing", id)
	}
	return nil
}
