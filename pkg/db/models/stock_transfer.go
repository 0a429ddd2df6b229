package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// StockTransfer moves stock between two sites. Approval books the outbound
// movement at the source; completion books the inbound movement at the
// destination.
type StockTransfer struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FromSiteID  int                  `gorm:"column:from_site_id;not null"`
	ToSiteID    int                  `gorm:"column:to_site_id;not null"`
	ProductID   uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	ProductSKU  string               `gorm:"column:product_sku;not null"`
	ProductName string               `gorm:"column:product_name;not null"`
	Quantity    decimal.Decimal      `gorm:"column:quantity;type:numeric(14,3);not null"`
	BatchNumber *string              `gorm:"column:batch_number"`
	Reason      string               `gorm:"column:reason;not null"`
	Status      enums.TransferStatus `gorm:"column:status;not null"`
	CreatedBy   string               `gorm:"column:created_by;not null"`
	ApprovedAt  *time.Time           `gorm:"column:approved_at"`
	ApprovedBy  *string              `gorm:"column:approved_by"`
	CompletedAt *time.Time           `gorm:"column:completed_at"`
	CompletedBy *string              `gorm:"column:completed_by"`
	CancelledAt *time.Time           `gorm:"column:cancelled_at"`
	CancelledBy *string              `gorm:"column:cancelled_by"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
