package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/pkg/config"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/metrics"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

// Service owns the ledger write path and all stock-on-hand derivation. Stock
// levels are never cached; every read aggregates the ledger.
type Service interface {
	GenerateMovements(ctx context.Context, input GenerateInput) ([]models.Movement, error)
	CreateMovement(ctx context.Context, input CreateInput) (*models.Movement, error)
	ReverseMovements(ctx context.Context, input ReverseInput) (int64, error)

	CalculateSOH(ctx context.Context, filter SOHFilter) (decimal.Decimal, error)
	CalculateBatchSOH(ctx context.Context, productID uuid.UUID, batchNumber string) (decimal.Decimal, error)
	CalculateSOHBatch(ctx context.Context, productIDs []uuid.UUID, locationID *int, asOf *time.Time) (map[uuid.UUID]decimal.Decimal, error)

	History(ctx context.Context, filter HistoryFilter) ([]models.Movement, error)
	ListByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.Movement, error)
}

// GenerateInput asks for ledger entries covering every line item of one
// business transaction.
type GenerateInput struct {
	TransactionType enums.TransactionType `json:"transaction_type" validate:"required"`
	HeaderID        uuid.UUID             `json:"header_id"`
	TransactionDate *time.Time            `json:"transaction_date"`
	Reason          string                `json:"reason"`
	UserID          string                `json:"user_id" validate:"required"`
	LocationID      *int                  `json:"location_id"`
}

// CreateInput describes one manually assembled ledger entry.
type CreateInput struct {
	TransactionType enums.TransactionType `json:"transaction_type" validate:"required"`
	HeaderID        uuid.UUID             `json:"header_id"`
	DetailID        *uuid.UUID            `json:"detail_id"`
	ProductID       uuid.UUID             `json:"product_id"`
	ProductSKU      string                `json:"product_sku" validate:"required"`
	ProductName     string                `json:"product_name" validate:"required"`
	Quantity        decimal.Decimal       `json:"quantity"`
	MassGrams       decimal.Decimal       `json:"mass_grams"`
	Value           decimal.Decimal       `json:"value"`
	BatchNumber     *string               `json:"batch_number"`
	SerialNumber    *string               `json:"serial_number"`
	Reason          string                `json:"reason" validate:"required"`
	TransactionDate *time.Time            `json:"transaction_date"`
	UserID          string                `json:"user_id" validate:"required"`
	LocationID      *int                  `json:"location_id"`
}

// ReverseInput soft-deletes every active entry of one transaction.
type ReverseInput struct {
	TransactionType enums.TransactionType `json:"transaction_type" validate:"required"`
	HeaderID        uuid.UUID             `json:"header_id"`
	Reason          string                `json:"reason" validate:"required"`
	RequestedBy     string                `json:"requested_by" validate:"required"`
}

type service struct {
	movements Repository
	cfg       config.MovementConfig
	logg      *logger.Logger
	metrics   *metrics.MovementMetrics
}

// NewService wires the ledger service. Metrics may be nil.
func NewService(movements Repository, cfg config.MovementConfig, logg *logger.Logger, m *metrics.MovementMetrics) (Service, error) {
	if movements == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.SaveRetryAttempts < 1 {
		return nil, fmt.Errorf("save retry attempts must be at least 1")
	}
	if cfg.SaveRetryBaseDelay <= 0 {
		return nil, fmt.Errorf("save retry base delay must be positive")
	}
	return &service{movements: movements, cfg: cfg, logg: logg, metrics: m}, nil
}

// GenerateMovements derives one ledger entry per active line item of the
// transaction. Non-stock-affecting types produce nothing. A transaction that
// already has active entries is rejected; reverse it first.
func (s *service) GenerateMovements(ctx context.Context, input GenerateInput) ([]models.Movement, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.HeaderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "header id required")
	}
	profile, err := input.TransactionType.Profile()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown transaction type")
	}

	ctx = s.logg.WithTransaction(ctx, input.TransactionType.String(), input.HeaderID.String())

	if !profile.StockAffecting {
		s.logg.Debug(ctx, "transaction type is not stock affecting, no movements generated")
		return nil, nil
	}

	active, err := s.movements.CountActiveByTransaction(ctx, input.TransactionType, input.HeaderID)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict,
			"transaction %s/%s already has %d active movements", input.TransactionType, input.HeaderID, active)
	}

	details, err := s.movements.ListDetails(ctx, input.TransactionType, input.HeaderID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		s.logg.Warn(ctx, "transaction has no active line items, no movements generated")
		return nil, nil
	}

	transactionDate := time.Now().UTC()
	if input.TransactionDate != nil {
		transactionDate = input.TransactionDate.UTC()
	}
	reason := input.Reason
	if reason == "" {
		reason = profile.Label
	}

	rows := make([]*models.Movement, 0, len(details))
	for _, detail := range details {
		if detail.ProductID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line item %s has no product", detail.ID)
		}
		if !detail.Quantity.IsPositive() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line item %s quantity must be positive, got %s", detail.ID, detail.Quantity)
		}
		detailID := detail.ID
		rows = append(rows, &models.Movement{
			ID:              uuid.New(),
			ProductID:       detail.ProductID,
			ProductSKU:      detail.ProductSKU,
			ProductName:     detail.ProductName,
			MovementType:    profile.Label,
			Direction:       profile.Direction,
			Quantity:        detail.Quantity,
			MassGrams:       detail.WeightGrams,
			Value:           detail.LineTotal,
			BatchNumber:     detail.BatchNumber,
			SerialNumber:    detail.SerialNumber,
			TransactionType: input.TransactionType,
			HeaderID:        input.HeaderID,
			DetailID:        &detailID,
			MovementReason:  reason,
			TransactionDate: transactionDate,
			UserID:          input.UserID,
			LocationID:      input.LocationID,
		})
	}

	if err := s.persistBatch(ctx, input.TransactionType, rows); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "movements", len(rows)), "movements generated")

	result := make([]models.Movement, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	return result, nil
}

func (s *service) CreateMovement(ctx context.Context, input CreateInput) (*models.Movement, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.HeaderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "header id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive, got %s", input.Quantity)
	}
	profile, err := input.TransactionType.Profile()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown transaction type")
	}
	if !profile.StockAffecting {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s transactions do not touch stock", input.TransactionType)
	}

	transactionDate := time.Now().UTC()
	if input.TransactionDate != nil {
		transactionDate = input.TransactionDate.UTC()
	}

	row := &models.Movement{
		ID:              uuid.New(),
		ProductID:       input.ProductID,
		ProductSKU:      input.ProductSKU,
		ProductName:     input.ProductName,
		MovementType:    profile.Label,
		Direction:       profile.Direction,
		Quantity:        input.Quantity,
		MassGrams:       input.MassGrams,
		Value:           input.Value,
		BatchNumber:     input.BatchNumber,
		SerialNumber:    input.SerialNumber,
		TransactionType: input.TransactionType,
		HeaderID:        input.HeaderID,
		DetailID:        input.DetailID,
		MovementReason:  input.Reason,
		TransactionDate: transactionDate,
		UserID:          input.UserID,
		LocationID:      input.LocationID,
	}
	if err := s.persistBatch(ctx, input.TransactionType, []*models.Movement{row}); err != nil {
		return nil, err
	}
	return row, nil
}

// ReverseMovements is idempotent: reversing a transaction with no active
// entries is a no-op, not an error.
func (s *service) ReverseMovements(ctx context.Context, input ReverseInput) (int64, error) {
	if err := validate.Struct(input); err != nil {
		return 0, err
	}
	if input.HeaderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "header id required")
	}
	if !input.TransactionType.IsValid() {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", input.TransactionType)
	}

	ctx = s.logg.WithTransaction(ctx, input.TransactionType.String(), input.HeaderID.String())

	reversed, err := s.movements.SoftDeleteByTransaction(ctx, input.TransactionType, input.HeaderID, input.Reason, input.RequestedBy)
	if err != nil {
		return 0, err
	}
	if reversed == 0 {
		s.logg.Warn(ctx, "reversal found no active movements")
		return 0, nil
	}

	s.logg.Info(s.logg.WithField(ctx, "movements", reversed), "movements reversed")
	return reversed, nil
}

func (s *service) CalculateSOH(ctx context.Context, filter SOHFilter) (decimal.Decimal, error) {
	if filter.ProductID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	sums, err := s.movements.SumByDirection(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}
	return sums.Net(), nil
}

func (s *service) CalculateBatchSOH(ctx context.Context, productID uuid.UUID, batchNumber string) (decimal.Decimal, error) {
	if batchNumber == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "batch number required")
	}
	return s.CalculateSOH(ctx, SOHFilter{ProductID: productID, BatchNumber: &batchNumber})
}

func (s *service) CalculateSOHBatch(ctx context.Context, productIDs []uuid.UUID, locationID *int, asOf *time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	for _, id := range productIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
	}
	sums, err := s.movements.SumByDirectionBatch(ctx, productIDs, locationID, asOf)
	if err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]decimal.Decimal, len(sums))
	for id, sum := range sums {
		result[id] = sum.Net()
	}
	return result, nil
}

func (s *service) History(ctx context.Context, filter HistoryFilter) ([]models.Movement, error) {
	return s.movements.List(ctx, filter)
}

func (s *service) ListByTransaction(ctx context.Context, txType enums.TransactionType, headerID uuid.UUID) ([]models.Movement, error) {
	if !txType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", txType)
	}
	return s.movements.ListByTransaction(ctx, txType, headerID)
}

// persistBatch writes the rows with bounded retries on transient persistence
// failures. Validation and constraint errors propagate immediately.
func (s *service) persistBatch(ctx context.Context, txType enums.TransactionType, rows []*models.Movement) error {
	backoff := retry.WithMaxRetries(uint64(s.cfg.SaveRetryAttempts-1), retry.NewExponential(s.cfg.SaveRetryBaseDelay))
	attempt := 0
	start := time.Now()

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		saveErr := s.movements.CreateBatch(ctx, rows)
		if saveErr == nil {
			return nil
		}
		if db.IsTransient(saveErr) {
			s.metrics.IncSaveRetry(txType.String())
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "transient failure saving movements, retrying")
			return retry.RetryableError(saveErr)
		}
		return saveErr
	})
	elapsed := time.Since(start)
	s.metrics.ObserveSaveDuration(txType.String(), elapsed)

	if err != nil {
		s.logg.Error(ctx, "saving movements failed", err)
		return err
	}

	if elapsed > s.cfg.SlowSaveThreshold {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"elapsed":   elapsed.String(),
			"movements": len(rows),
		}), "movement save exceeded slow threshold")
	}
	if s.cfg.LargeBatchSize > 0 && len(rows) > s.cfg.LargeBatchSize {
		s.metrics.IncLargeBatch(txType.String())
		s.logg.Warn(s.logg.WithField(ctx, "movements", len(rows)), "movement batch exceeded large batch threshold")
	}
	return nil
}
