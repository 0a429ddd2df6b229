package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// SerialNumber tracks custody of one serialized physical unit. The serial
// string itself is immutable; only Status and its audit trail move.
type SerialNumber struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Serial            string             `gorm:"column:serial;not null;uniqueIndex"`
	ShortCode         string             `gorm:"column:short_code;not null;index"`
	ParentBatchNumber string             `gorm:"column:parent_batch_number;not null;index"`
	SiteID            int                `gorm:"column:site_id;not null"`
	SerialType        enums.SerialType   `gorm:"column:serial_type;not null"`
	StrainCode        string             `gorm:"column:strain_code;not null"`
	ProductID         *uuid.UUID         `gorm:"column:product_id;type:uuid"`
	WeightGrams       decimal.Decimal    `gorm:"column:weight_grams;type:numeric(6,1);not null;default:0"`
	PackQty           int                `gorm:"column:pack_qty;not null;default:1"`
	Status            enums.SerialStatus `gorm:"column:status;not null"`
	SoldTransactionID *uuid.UUID         `gorm:"column:sold_transaction_id;type:uuid"`
	CreatedBy         string             `gorm:"column:created_by;not null"`
	StatusChangedAt   time.Time          `gorm:"column:status_changed_at;not null"`
	StatusChangedBy   string             `gorm:"column:status_changed_by;not null"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
