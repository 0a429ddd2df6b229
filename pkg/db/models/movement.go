package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// Movement is one immutable inventory ledger entry. Rows are never updated
// after insert; reversal flips the soft-delete fields and nothing else.
// Stock on hand is always derived by aggregating these rows.
type Movement struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	ProductSKU  string    `gorm:"column:product_sku;not null"`
	ProductName string    `gorm:"column:product_name;not null"`

	MovementType string                  `gorm:"column:movement_type;not null"`
	Direction    enums.MovementDirection `gorm:"column:direction;not null"`

	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	MassGrams decimal.Decimal `gorm:"column:mass_grams;type:numeric(12,3);not null;default:0"`
	Value     decimal.Decimal `gorm:"column:value;type:numeric(14,2);not null;default:0"`

	BatchNumber  *string `gorm:"column:batch_number;index"`
	SerialNumber *string `gorm:"column:serial_number;index"`

	TransactionType enums.TransactionType `gorm:"column:transaction_type;not null;index:idx_movements_txn"`
	HeaderID        uuid.UUID             `gorm:"column:header_id;type:uuid;not null;index:idx_movements_txn"`
	DetailID        *uuid.UUID            `gorm:"column:detail_id;type:uuid"`

	MovementReason  string    `gorm:"column:movement_reason;not null"`
	TransactionDate time.Time `gorm:"column:transaction_date;not null;index"`
	UserID          string    `gorm:"column:user_id;not null"`
	LocationID      *int      `gorm:"column:location_id"`

	IsDeleted bool       `gorm:"column:is_deleted;not null;default:false"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
	DeletedBy *string    `gorm:"column:deleted_by"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SignedQuantity applies the direction to the stored magnitude.
func (m Movement) SignedQuantity() decimal.Decimal {
	if m.Direction == enums.MovementDirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
