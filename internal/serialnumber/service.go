package serialnumber

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/internal/batchnumber"
	"github.com/verdantpos/greenledger-backend/internal/sequence"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

// maxBulkCount caps one BulkGenerate request.
const maxBulkCount = 10000

// Service issues serial numbers and tracks custody of the units behind them.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*Result, error)
	BulkGenerate(ctx context.Context, input GenerateInput, count int) ([]Result, error)
	Lookup(ctx context.Context, code string) (*models.SerialNumber, error)
	Assign(ctx context.Context, serial string, actor string) (*models.SerialNumber, error)
	MarkSold(ctx context.Context, serial string, transactionID uuid.UUID, actor string) (*models.SerialNumber, error)
	Destroy(ctx context.Context, serial string, actor string) (*models.SerialNumber, error)
}

// GenerateInput captures a serial number request. ProductionDate defaults to
// the parent batch's embedded date and must match it when supplied, so the
// parent batch number stays derivable from the serial alone.
type GenerateInput struct {
	SiteID            int              `json:"site_id" validate:"required,min=1,max=99"`
	StrainCode        string           `json:"strain_code" validate:"required,len=3,numeric"`
	SerialType        enums.SerialType `json:"serial_type" validate:"required"`
	ParentBatchNumber string           `json:"parent_batch_number" validate:"required"`
	ProductID         *uuid.UUID       `json:"product_id"`
	ProductionDate    *time.Time       `json:"production_date"`
	WeightGrams       decimal.Decimal  `json:"weight_grams"`
	PackQty           int              `json:"pack_qty" validate:"omitempty,min=1,max=9"`
	RequestedBy       string           `json:"requested_by" validate:"required"`
}

// Result pairs the issued identifiers with their decoded components and the
// persisted custody record.
type Result struct {
	SerialNumber string
	ShortCode    string
	Components   Components
	Record       *models.SerialNumber
}

type service struct {
	serials   Repository
	sequences sequence.Store
	logg      *logger.Logger
}

// NewService wires the serial number service.
func NewService(serials Repository, sequences sequence.Store, logg *logger.Logger) (Service, error) {
	if serials == nil {
		return nil, fmt.Errorf("serial repository required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{serials: serials, sequences: sequences, logg: logg}, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.SerialType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid serial type %q", input.SerialType)
	}

	parent, err := batchnumber.Parse(input.ParentBatchNumber)
	if err != nil {
		return nil, err
	}
	if parent.SiteID != input.SiteID {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "parent batch belongs to site %d, not %d", parent.SiteID, input.SiteID)
	}
	if input.ProductionDate != nil && !sequence.NormalizeDate(*input.ProductionDate).Equal(parent.BatchDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "production date must match the parent batch date")
	}
	productionDate := parent.BatchDate

	weightTenths, err := weightToTenths(input.WeightGrams)
	if err != nil {
		return nil, err
	}
	packQty := input.PackQty
	if packQty == 0 {
		packQty = 1
	}

	unitSeq, err := s.sequences.NextSerial(ctx, sequence.SerialKey{
		SiteID:         input.SiteID,
		SequenceType:   enums.SequenceTypeUnit,
		BatchType:      parent.BatchType,
		ProductionDate: productionDate,
		BatchSequence:  parent.Sequence,
	}, input.RequestedBy)
	if err != nil {
		return nil, err
	}

	dailySeq, err := s.sequences.NextSerial(ctx, sequence.SerialKey{
		SiteID:         input.SiteID,
		SequenceType:   enums.SequenceTypeDaily,
		ProductionDate: productionDate,
	}, input.RequestedBy)
	if err != nil {
		return nil, err
	}

	components := Components{
		SiteID:         input.SiteID,
		StrainCode:     input.StrainCode,
		SerialType:     input.SerialType,
		ProductionDate: productionDate,
		BatchSequence:  parent.Sequence,
		UnitSequence:   unitSeq,
		WeightTenths:   weightTenths,
		PackQty:        packQty,
	}
	serial, err := Format(components)
	if err != nil {
		return nil, err
	}
	shortCode := FormatShort(ShortComponents{
		SiteID:         input.SiteID,
		ProductionDate: productionDate,
		DailySequence:  dailySeq,
	})

	now := time.Now().UTC()
	record := &models.SerialNumber{
		ID:                uuid.New(),
		Serial:            serial,
		ShortCode:         shortCode,
		ParentBatchNumber: input.ParentBatchNumber,
		SiteID:            input.SiteID,
		SerialType:        input.SerialType,
		StrainCode:        input.StrainCode,
		ProductID:         input.ProductID,
		WeightGrams:       components.WeightGrams(),
		PackQty:           packQty,
		Status:            enums.SerialStatusCreated,
		CreatedBy:         input.RequestedBy,
		StatusChangedAt:   now,
		StatusChangedBy:   input.RequestedBy,
	}
	if err := s.serials.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrapf(pkgerrors.CodeConflict, err, "serial number %s already exists", serial)
		}
		return nil, err
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"serial":       serial,
		"short_code":   shortCode,
		"parent_batch": input.ParentBatchNumber,
	}), "serial number generated")

	return &Result{SerialNumber: serial, ShortCode: shortCode, Components: components, Record: record}, nil
}

// BulkGenerate issues count serials as independent single allocations. Each
// issued serial is committed on its own, so a mid-run failure leaves the
// earlier serials valid; the error names the failing position.
func (s *service) BulkGenerate(ctx context.Context, input GenerateInput, count int) ([]Result, error) {
	if count < 1 || count > maxBulkCount {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "count must be between 1 and %d, got %d", maxBulkCount, count)
	}
	results := make([]Result, 0, count)
	for i := 0; i < count; i++ {
		result, err := s.Generate(ctx, input)
		if err != nil {
			return results, pkgerrors.Wrapf(pkgerrors.CodeOf(err), err, "generating serial %d of %d", i+1, count)
		}
		results = append(results, *result)
	}
	return results, nil
}

// Lookup resolves a custody record from either the full serial or the short
// barcode form, dispatching on length.
func (s *service) Lookup(ctx context.Context, code string) (*models.SerialNumber, error) {
	switch len(code) {
	case Length:
		if _, err := Parse(code); err != nil {
			return nil, err
		}
		return s.serials.FindBySerial(ctx, code)
	case ShortLength:
		if _, err := ParseShort(code); err != nil {
			return nil, err
		}
		return s.serials.FindByShortCode(ctx, code)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "code must be %d or %d digits, got %d", Length, ShortLength, len(code))
	}
}

func (s *service) Assign(ctx context.Context, serial string, actor string) (*models.SerialNumber, error) {
	return s.transition(ctx, serial, enums.SerialStatusAssigned, actor, nil)
}

func (s *service) MarkSold(ctx context.Context, serial string, transactionID uuid.UUID, actor string) (*models.SerialNumber, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required to mark a serial sold")
	}
	return s.transition(ctx, serial, enums.SerialStatusSold, actor, &transactionID)
}

func (s *service) Destroy(ctx context.Context, serial string, actor string) (*models.SerialNumber, error) {
	return s.transition(ctx, serial, enums.SerialStatusDestroyed, actor, nil)
}

func (s *service) transition(ctx context.Context, serial string, next enums.SerialStatus, actor string, soldTransactionID *uuid.UUID) (*models.SerialNumber, error) {
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "acting user required for custody changes")
	}
	record, err := s.serials.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if !record.Status.CanTransitionTo(next) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "serial %s cannot move from %s to %s", serial, record.Status, next)
	}
	if soldTransactionID == nil {
		soldTransactionID = record.SoldTransactionID
	}
	if err := s.serials.UpdateStatus(ctx, record.ID, next, actor, soldTransactionID); err != nil {
		return nil, err
	}

	record.Status = next
	record.StatusChangedAt = time.Now().UTC()
	record.StatusChangedBy = actor
	record.SoldTransactionID = soldTransactionID

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"serial": serial,
		"status": next.String(),
	}), "serial custody changed")
	return record, nil
}

// weightToTenths converts grams to the serial's tenths field, truncating finer
// precision. Weights at or above 1000.0g do not fit the four-digit field and
// are rejected rather than silently clamped.
func weightToTenths(weight decimal.Decimal) (int64, error) {
	if weight.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "weight cannot be negative")
	}
	tenths := weight.Mul(decimal.NewFromInt(10)).Truncate(0).IntPart()
	if tenths > maxWeightTenths {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "weight %sg exceeds the maximum representable 999.9g", weight.String())
	}
	return tenths, nil
}
