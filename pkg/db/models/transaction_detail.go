package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// TransactionDetail is one line item of a business transaction (sale, GRV,
// refund, ...). The movement orchestrator reads these; it never writes them.
type TransactionDetail struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HeaderID        uuid.UUID             `gorm:"column:header_id;type:uuid;not null;index:idx_txn_details_header"`
	TransactionType enums.TransactionType `gorm:"column:transaction_type;not null;index:idx_txn_details_header"`

	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductSKU  string    `gorm:"column:product_sku;not null"`
	ProductName string    `gorm:"column:product_name;not null"`

	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null;default:0"`
	WeightGrams decimal.Decimal `gorm:"column:weight_grams;type:numeric(12,3);not null;default:0"`

	BatchNumber  *string `gorm:"column:batch_number"`
	SerialNumber *string `gorm:"column:serial_number"`

	CreatedBy string     `gorm:"column:created_by;not null"`
	IsDeleted bool       `gorm:"column:is_deleted;not null;default:false"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
