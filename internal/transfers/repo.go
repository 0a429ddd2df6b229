package transfers

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

// Repository persists inter-site stock transfers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transfer *models.StockTransfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error)
	ListBySite(ctx context.Context, siteID int) ([]models.StockTransfer, error)
	SetApproved(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error
	SetCompleted(ctx context.Context, id uuid.UUID, completedBy string, at time.Time) error
	SetCancelled(ctx context.Context, id uuid.UUID, cancelledBy string, at time.Time) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the transfer repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, transfer *models.StockTransfer) error {
	return r.DB(ctx).Create(transfer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	var row models.StockTransfer
	err := r.DB(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "transfer %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListBySite returns transfers touching the site on either side, newest first.
func (r *repository) ListBySite(ctx context.Context, siteID int) ([]models.StockTransfer, error) {
	var rows []models.StockTransfer
	err := r.DB(ctx).
		Where("from_site_id = ? OR to_site_id = ?", siteID, siteID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetApproved(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":      enums.TransferStatusApproved,
		"approved_at": at,
		"approved_by": approvedBy,
	})
}

func (r *repository) SetCompleted(ctx context.Context, id uuid.UUID, completedBy string, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":       enums.TransferStatusCompleted,
		"completed_at": at,
		"completed_by": completedBy,
	})
}

func (r *repository) SetCancelled(ctx context.Context, id uuid.UUID, cancelledBy string, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]any{
		"status":       enums.TransferStatusCancelled,
		"cancelled_at": at,
		"cancelled_by": cancelledBy,
	})
}

func (r *repository) updateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.DB(ctx).Model(&models.StockTransfer{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "transfer %s not found", id)
	}
	return nil
}
