package grv

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

// Repository persists goods received vouchers and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, header *models.GoodsReceivedVoucher, details []*models.TransactionDetail) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GoodsReceivedVoucher, error)
	ListDetails(ctx context.Context, id uuid.UUID) ([]models.TransactionDetail, error)
	SetApproved(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error
	SetCancelled(ctx context.Context, id uuid.UUID, cancelledBy string, at time.Time) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the GRV repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, header *models.GoodsReceivedVoucher, details []*models.TransactionDetail) error {
	if err := r.DB(ctx).Create(header).Error; err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	return r.DB(ctx).Create(details).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GoodsReceivedVoucher, error) {
	var row models.GoodsReceivedVoucher
	err := r.DB(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "grv %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListDetails(ctx context.Context, id uuid.UUID) ([]models.TransactionDetail, error) {
	var rows []models.TransactionDetail
	err := r.DB(ctx).
		Where("transaction_type = ? AND header_id = ? AND is_deleted = ?", enums.TransactionTypeGRV, id, false).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetApproved(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":      enums.GRVStatusApproved,
		"approved_at": at,
		"approved_by": approvedBy,
	})
}

func (r *repository) SetCancelled(ctx context.Context, id uuid.UUID, cancelledBy string, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":       enums.GRVStatusCancelled,
		"cancelled_at": at,
		"cancelled_by": cancelledBy,
	})
}

func (r *repository) updateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.DB(ctx).Model(&models.GoodsReceivedVoucher{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "grv %s not found", id)
	}
	return nil
}
