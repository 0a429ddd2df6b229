package batchnumber

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantpos/greenledger-backend/internal/sequence"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

// Service issues and checks batch numbers backed by the sequence store.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*Result, error)
	Exists(ctx context.Context, batchNumber string) (bool, error)
}

// GenerateInput captures a batch number request.
type GenerateInput struct {
	SiteID      int             `json:"site_id" validate:"required,min=1,max=99"`
	BatchType   enums.BatchType `json:"batch_type" validate:"required"`
	BatchDate   *time.Time      `json:"batch_date"`
	RequestedBy string          `json:"requested_by" validate:"required"`
}

// Result pairs the formatted identifier with its decoded components.
type Result struct {
	BatchNumber string
	Components  Components
}

type service struct {
	sequences sequence.Store
	logg      *logger.Logger
}

// NewService wires a batch number service with its sequence store.
func NewService(sequences sequence.Store, logg *logger.Logger) (Service, error) {
	if sequences == nil {
		return nil, fmt.Errorf("sequence store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{sequences: sequences, logg: logg}, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.BatchType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid batch type %q", input.BatchType)
	}

	batchDate := time.Now().UTC()
	if input.BatchDate != nil {
		batchDate = *input.BatchDate
	}
	batchDate = sequence.NormalizeDate(batchDate)

	seq, err := s.sequences.NextBatch(ctx, sequence.BatchKey{
		SiteID:     input.SiteID,
		BatchType:  input.BatchType,
		BucketDate: batchDate,
	}, input.RequestedBy)
	if err != nil {
		return nil, err
	}

	components := Components{
		SiteID:    input.SiteID,
		BatchType: input.BatchType,
		BatchDate: batchDate,
		Sequence:  seq,
	}
	batchNumber := Format(components)

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"batch_number": batchNumber,
		"site_id":      input.SiteID,
		"batch_type":   input.BatchType.String(),
	}), "batch number generated")

	return &Result{BatchNumber: batchNumber, Components: components}, nil
}

// Exists reports whether the given batch number was ever issued. Existence is
// inferred from the stored high-water mark: a parsed ordinal at or below the
// key's current sequence has been handed out.
func (s *service) Exists(ctx context.Context, batchNumber string) (bool, error) {
	components, err := Parse(batchNumber)
	if err != nil {
		return false, err
	}
	current, err := s.sequences.CurrentBatch(ctx, sequence.BatchKey{
		SiteID:     components.SiteID,
		BatchType:  components.BatchType,
		BucketDate: components.BatchDate,
	})
	if err != nil {
		return false, err
	}
	return components.Sequence <= current, nil
}
