package serialnumber

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

// Repository persists serial custody records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, serial *models.SerialNumber) error
	FindBySerial(ctx context.Context, serial string) (*models.SerialNumber, error)
	FindByShortCode(ctx context.Context, shortCode string) (*models.SerialNumber, error)
	ListByParentBatch(ctx context.Context, parentBatchNumber string) ([]models.SerialNumber, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SerialStatus, changedBy string, soldTransactionID *uuid.UUID) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the serial custody repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, serial *models.SerialNumber) error {
	return r.DB(ctx).Create(serial).Error
}

func (r *repository) FindBySerial(ctx context.Context, serial string) (*models.SerialNumber, error) {
	var row models.SerialNumber
	err := r.DB(ctx).Where("serial = ?", serial).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "serial number %s not found", serial)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByShortCode(ctx context.Context, shortCode string) (*models.SerialNumber, error) {
	var row models.SerialNumber
	err := r.DB(ctx).Where("short_code = ?", shortCode).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "short code %s not found", shortCode)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByParentBatch(ctx context.Context, parentBatchNumber string) ([]models.SerialNumber, error) {
	var rows []models.SerialNumber
	err := r.DB(ctx).
		Where("parent_batch_number = ?", parentBatchNumber).
		Order("serial ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SerialStatus, changedBy string, soldTransactionID *uuid.UUID) error {
	updates := map[string]any{
		"status":              status,
		"status_changed_at":   time.Now().UTC(),
		"status_changed_by":   changedBy,
		"sold_transaction_id": soldTransactionID,
	}
	result := r.DB(ctx).Model(&models.SerialNumber{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "serial number %s not found", id)
	}
	return nil
}
