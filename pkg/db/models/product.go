package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is retail master data. Ledger rows denormalize SKU and name at
// write time, so renames here never rewrite history.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU          string          `gorm:"column:sku;not null;uniqueIndex"`
	Name         string          `gorm:"column:name;not null"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null;default:0"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null;default:0"`
	ReorderLevel decimal.Decimal `gorm:"column:reorder_level;type:numeric(14,3);not null;default:0"`
	ExpiryDate   *time.Time      `gorm:"column:expiry_date"`
	THCPercent   *float64        `gorm:"column:thc_percent;type:numeric(5,2)"`
	CBDPercent   *float64        `gorm:"column:cbd_percent;type:numeric(5,2)"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
