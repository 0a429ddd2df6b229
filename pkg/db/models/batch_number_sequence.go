package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// BatchNumberSequence is the persisted counter behind batch number generation.
// One row per (site, batch type, bucket date), created lazily on first use.
// CurrentSequence only moves forward and never passes MaxSequence.
type BatchNumberSequence struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SiteID          int             `gorm:"column:site_id;not null;uniqueIndex:idx_batch_seq_key"`
	BatchType       enums.BatchType `gorm:"column:batch_type;not null;uniqueIndex:idx_batch_seq_key"`
	BucketDate      time.Time       `gorm:"column:bucket_date;not null;uniqueIndex:idx_batch_seq_key"`
	CurrentSequence int64           `gorm:"column:current_sequence;not null;default:0"`
	MaxSequence     int64           `gorm:"column:max_sequence;not null"`
	LastGeneratedAt *time.Time      `gorm:"column:last_generated_at"`
	LastGeneratedBy *string         `gorm:"column:last_generated_by"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
