package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// SaleTransaction is the POS checkout header. Line items live in
// transaction_details keyed by (ID, sale) or (ID, refund).
type SaleTransaction struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SiteID          int                   `gorm:"column:site_id;not null"`
	TransactionType enums.TransactionType `gorm:"column:transaction_type;not null"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	OriginalSaleID  *uuid.UUID            `gorm:"column:original_sale_id;type:uuid"`
	TransactionDate time.Time             `gorm:"column:transaction_date;not null"`
	CashierID       string                `gorm:"column:cashier_id;not null"`
	IsCancelled     bool                  `gorm:"column:is_cancelled;not null;default:false"`
	CancelledAt     *time.Time            `gorm:"column:cancelled_at"`
	CancelledBy     *string               `gorm:"column:cancelled_by"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
