package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/pkg/config"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/metrics"
)

// BatchKey identifies one batch-number counter.
type BatchKey struct {
	SiteID     int
	BatchType  enums.BatchType
	BucketDate time.Time
}

func (k BatchKey) String() string {
	return fmt.Sprintf("site %02d type %s bucket %s", k.SiteID, k.BatchType, k.BucketDate.Format("2006-01-02"))
}

// SerialKey identifies one serial-number counter. BatchType and BatchSequence
// are zeroed for daily counters.
type SerialKey struct {
	SiteID         int
	SequenceType   enums.SequenceType
	BatchType      enums.BatchType
	ProductionDate time.Time
	BatchSequence  int64
}

func (k SerialKey) String() string {
	if k.SequenceType == enums.SequenceTypeDaily {
		return fmt.Sprintf("site %02d daily %s", k.SiteID, k.ProductionDate.Format("2006-01-02"))
	}
	return fmt.Sprintf("site %02d unit %s/%s batch %04d", k.SiteID, k.BatchType, k.ProductionDate.Format("2006-01-02"), k.BatchSequence)
}

// Store allocates monotonically increasing ordinals from persisted counters.
// Each allocation is a transactional read-increment-write keyed to one row,
// so two concurrent callers for the same key can never receive the same
// value. Gaps from rolled-back callers are tolerated.
type Store interface {
	NextBatch(ctx context.Context, key BatchKey, requestedBy string) (int64, error)
	CurrentBatch(ctx context.Context, key BatchKey) (int64, error)
	NextSerial(ctx context.Context, key SerialKey, requestedBy string) (int64, error)
	CurrentSerial(ctx context.Context, key SerialKey) (int64, error)
}

type store struct {
	db      *gorm.DB
	limits  config.SequenceConfig
	metrics *metrics.MovementMetrics
}

// NewStore builds a sequence store over the shared database.
func NewStore(db *gorm.DB, limits config.SequenceConfig, m *metrics.MovementMetrics) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if limits.BatchMax <= 0 || limits.UnitMax <= 0 || limits.DailyMax <= 0 {
		return nil, fmt.Errorf("sequence limits must be positive")
	}
	return &store{db: db, limits: limits, metrics: m}, nil
}

// NormalizeDate truncates a timestamp to its UTC calendar date, the bucket
// granularity for every counter.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ensureBatchRow lazily creates the counter row. It runs outside the claim
// transaction: two first users of a brand-new key can race the insert, and the
// loser's duplicate-key error must not poison a surrounding transaction. The
// loser simply proceeds against the winner's row.
func (s *store) ensureBatchRow(ctx context.Context, key BatchKey) error {
	row := models.BatchNumberSequence{
		SiteID:      key.SiteID,
		BatchType:   key.BatchType,
		BucketDate:  key.BucketDate,
		MaxSequence: s.limits.BatchMax,
	}
	err := s.db.WithContext(ctx).Where(models.BatchNumberSequence{
		SiteID:     key.SiteID,
		BatchType:  key.BatchType,
		BucketDate: key.BucketDate,
	}).FirstOrCreate(&row).Error
	if err != nil && !db.IsUniqueViolation(err, "") {
		return fmt.Errorf("ensuring batch sequence row: %w", err)
	}
	return nil
}

func (s *store) NextBatch(ctx context.Context, key BatchKey, requestedBy string) (int64, error) {
	key.BucketDate = NormalizeDate(key.BucketDate)
	if err := s.ensureBatchRow(ctx, key); err != nil {
		return 0, err
	}
	var allocated int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		// Guarded atomic claim. The WHERE clause both serializes concurrent
		// increments (row lock until commit) and enforces the ceiling.
		claim := tx.Model(&models.BatchNumberSequence{}).
			Where("site_id = ? AND batch_type = ? AND bucket_date = ? AND current_sequence < max_sequence",
				key.SiteID, key.BatchType, key.BucketDate).
			Updates(map[string]any{
				"current_sequence":  gorm.Expr("current_sequence + 1"),
				"last_generated_at": now,
				"last_generated_by": requestedBy,
			})
		if claim.Error != nil {
			return fmt.Errorf("incrementing batch sequence: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			if s.metrics != nil {
				s.metrics.IncSequenceExhaustion("batch")
			}
			return pkgerrors.Newf(pkgerrors.CodeCapacity, "batch number sequence exhausted for %s", key)
		}

		var current models.BatchNumberSequence
		if err := tx.Where(models.BatchNumberSequence{
			SiteID:     key.SiteID,
			BatchType:  key.BatchType,
			BucketDate: key.BucketDate,
		}).First(&current).Error; err != nil {
			return fmt.Errorf("reading batch sequence: %w", err)
		}
		allocated = current.CurrentSequence
		return nil
	})
	if err != nil {
		return 0, err
	}
	return allocated, nil
}

func (s *store) CurrentBatch(ctx context.Context, key BatchKey) (int64, error) {
	key.BucketDate = NormalizeDate(key.BucketDate)
	var row models.BatchNumberSequence
	err := s.db.WithContext(ctx).Where(models.BatchNumberSequence{
		SiteID:     key.SiteID,
		BatchType:  key.BatchType,
		BucketDate: key.BucketDate,
	}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.CurrentSequence, nil
}

// ensureSerialRow mirrors ensureBatchRow for the serial counter table.
func (s *store) ensureSerialRow(ctx context.Context, key SerialKey, max int64) error {
	row := models.SerialNumberSequence{
		SiteID:         key.SiteID,
		SequenceType:   key.SequenceType,
		BatchType:      string(key.BatchType),
		ProductionDate: key.ProductionDate,
		BatchSequence:  key.BatchSequence,
		MaxSequence:    max,
	}
	err := s.db.WithContext(ctx).Where(map[string]any{
		"site_id":         key.SiteID,
		"sequence_type":   key.SequenceType,
		"batch_type":      string(key.BatchType),
		"production_date": key.ProductionDate,
		"batch_sequence":  key.BatchSequence,
	}).FirstOrCreate(&row).Error
	if err != nil && !db.IsUniqueViolation(err, "") {
		return fmt.Errorf("ensuring serial sequence row: %w", err)
	}
	return nil
}

func (s *store) NextSerial(ctx context.Context, key SerialKey, requestedBy string) (int64, error) {
	key.ProductionDate = NormalizeDate(key.ProductionDate)
	if !key.SequenceType.IsValid() {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid sequence type %q", key.SequenceType)
	}

	max := s.limits.UnitMax
	if key.SequenceType == enums.SequenceTypeDaily {
		max = s.limits.DailyMax
		key.BatchType = ""
		key.BatchSequence = 0
	}

	if err := s.ensureSerialRow(ctx, key, max); err != nil {
		return 0, err
	}

	var allocated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		claim := tx.Model(&models.SerialNumberSequence{}).
			Where("site_id = ? AND sequence_type = ? AND batch_type = ? AND production_date = ? AND batch_sequence = ? AND current_sequence < max_sequence",
				key.SiteID, key.SequenceType, string(key.BatchType), key.ProductionDate, key.BatchSequence).
			Updates(map[string]any{
				"current_sequence":  gorm.Expr("current_sequence + 1"),
				"last_generated_at": now,
				"last_generated_by": requestedBy,
			})
		if claim.Error != nil {
			return fmt.Errorf("incrementing serial sequence: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			if s.metrics != nil {
				s.metrics.IncSequenceExhaustion(string(key.SequenceType))
			}
			return pkgerrors.Newf(pkgerrors.CodeCapacity, "serial number sequence exhausted for %s", key)
		}

		var current models.SerialNumberSequence
		if err := tx.Where(map[string]any{
			"site_id":         key.SiteID,
			"sequence_type":   key.SequenceType,
			"batch_type":      string(key.BatchType),
			"production_date": key.ProductionDate,
			"batch_sequence":  key.BatchSequence,
		}).First(&current).Error; err != nil {
			return fmt.Errorf("reading serial sequence: %w", err)
		}
		allocated = current.CurrentSequence
		return nil
	})
	if err != nil {
		return 0, err
	}
	return allocated, nil
}

func (s *store) CurrentSerial(ctx context.Context, key SerialKey) (int64, error) {
	key.ProductionDate = NormalizeDate(key.ProductionDate)
	if key.SequenceType == enums.SequenceTypeDaily {
		key.BatchType = ""
		key.BatchSequence = 0
	}
	var row models.SerialNumberSequence
	err := s.db.WithContext(ctx).Where(map[string]any{
		"site_id":         key.SiteID,
		"sequence_type":   key.SequenceType,
		"batch_type":      string(key.BatchType),
		"production_date": key.ProductionDate,
		"batch_sequence":  key.BatchSequence,
	}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.CurrentSequence, nil
}
