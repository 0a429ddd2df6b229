package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdantpos/greenledger-backend/pkg/enums"
)

// SerialNumberSequence is the persisted counter behind serial generation.
// Two counter kinds share the table: "unit" counters scoped to a parent batch
// ordinal and "daily" counters scoped to (site, production date). Key fields
// that do not apply to a kind are stored zeroed.
type SerialNumberSequence struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SiteID          int                `gorm:"column:site_id;not null;uniqueIndex:idx_serial_seq_key"`
	SequenceType    enums.SequenceType `gorm:"column:sequence_type;not null;uniqueIndex:idx_serial_seq_key"`
	BatchType       string             `gorm:"column:batch_type;not null;default:'';uniqueIndex:idx_serial_seq_key"`
	ProductionDate  time.Time          `gorm:"column:production_date;not null;uniqueIndex:idx_serial_seq_key"`
	BatchSequence   int64              `gorm:"column:batch_sequence;not null;default:0;uniqueIndex:idx_serial_seq_key"`
	CurrentSequence int64              `gorm:"column:current_sequence;not null;default:0"`
	MaxSequence     int64              `gorm:"column:max_sequence;not null"`
	LastGeneratedAt *time.Time         `gorm:"column:last_generated_at"`
	LastGeneratedBy *string            `gorm:"column:last_generated_by"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
