package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// GoodsReceivedVoucher is the intake-side transaction header. Its line items
// live in transaction_details keyed by (ID, grv).
type GoodsReceivedVoucher struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SiteID       int             `gorm:"column:site_id;not null"`
	SupplierName string          `gorm:"column:supplier_name;not null"`
	Reference    string          `gorm:"column:reference;not null"`
	Status       enums.GRVStatus `gorm:"column:status;not null"`
	ReceivedDate time.Time       `gorm:"column:received_date;not null"`
	CreatedBy    string          `gorm:"column:created_by;not null"`
	ApprovedAt   *time.Time      `gorm:"column:approved_at"`
	ApprovedBy   *string         `gorm:"column:approved_by"`
	CancelledAt  *time.Time      `gorm:"column:cancelled_at"`
	CancelledBy  *string         `gorm:"column:cancelled_by"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
