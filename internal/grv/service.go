package grv

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/internal/batchnumber"
	"github.com/verdantpos/greenledger-backend/internal/movement"
	product "github.com/verdantpos/greenledger-backend/internal/products"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

// Service runs the goods-received intake flow. Drafts carry no stock; only
// approval writes ledger entries, and cancellation reverses them.
type Service interface {
	CreateDraft(ctx context.Context, input CreateInput) (*Result, error)
	Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*models.GoodsReceivedVoucher, error)
	Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*models.GoodsReceivedVoucher, error)
	Get(ctx context.Context, id uuid.UUID) (*Result, error)
}

// LineInput is one received lot. Every line gets its own GRV batch number.
type LineInput struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
}

// CreateInput captures a new intake draft.
type CreateInput struct {
	SiteID       int         `json:"site_id" validate:"required,min=1,max=99"`
	SupplierName string      `json:"supplier_name" validate:"required"`
	Reference    string      `json:"reference" validate:"required"`
	ReceivedDate *time.Time  `json:"received_date"`
	Lines        []LineInput `json:"lines" validate:"required,min=1"`
	CreatedBy    string      `json:"created_by" validate:"required"`
}

// Result pairs the header with its line items.
type Result struct {
	GRV     *models.GoodsReceivedVoucher
	Details []models.TransactionDetail
}

type service struct {
	grvs      Repository
	products  product.Repository
	batches   batchnumber.Service
	movements movement.Service
	client    *db.Client
	logg      *logger.Logger
}

// NewService wires the GRV service.
func NewService(grvs Repository, products product.Repository, batches batchnumber.Service, movements movement.Service, client *db.Client, logg *logger.Logger) (Service, error) {
	if grvs == nil || products == nil || batches == nil || movements == nil {
		return nil, fmt.Errorf("grv service dependencies incomplete")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{grvs: grvs, products: products, batches: batches, movements: movements, client: client, logg: logg}, nil
}

func (s *service) CreateDraft(ctx context.Context, input CreateInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	receivedDate := time.Now().UTC()
	if input.ReceivedDate != nil {
		receivedDate = input.ReceivedDate.UTC()
	}

	headerID := uuid.New()
	details := make([]*models.TransactionDetail, 0, len(input.Lines))
	for i, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d has no product", i+1)
		}
		if !line.Quantity.IsPositive() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d quantity must be positive, got %s", i+1, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d unit price cannot be negative", i+1)
		}

		prod, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		// Each received lot becomes its own traceable batch. A rolled-back
		// draft leaves a gap in the batch sequence, which is tolerated.
		batch, err := s.batches.Generate(ctx, batchnumber.GenerateInput{
			SiteID:      input.SiteID,
			BatchType:   enums.BatchTypeGRV,
			BatchDate:   &receivedDate,
			RequestedBy: input.CreatedBy,
		})
		if err != nil {
			return nil, err
		}
		batchNumber := batch.BatchNumber

		details = append(details, &models.TransactionDetail{
			ID:              uuid.New(),
			HeaderID:        headerID,
			TransactionType: enums.TransactionTypeGRV,
			ProductID:       prod.ID,
			ProductSKU:      prod.SKU,
			ProductName:     prod.Name,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       line.UnitPrice.Mul(line.Quantity),
			WeightGrams:     line.WeightGrams,
			BatchNumber:     &batchNumber,
			CreatedBy:       input.CreatedBy,
		})
	}

	header := &models.GoodsReceivedVoucher{
		ID:           headerID,
		SiteID:       input.SiteID,
		SupplierName: input.SupplierName,
		Reference:    input.Reference,
		Status:       enums.GRVStatusDraft,
		ReceivedDate: receivedDate,
		CreatedBy:    input.CreatedBy,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.grvs.WithTx(tx).Create(ctx, header, details)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"grv_id":   header.ID.String(),
		"site_id":  input.SiteID,
		"supplier": input.SupplierName,
		"lines":    len(details),
	}), "grv draft created")

	result := &Result{GRV: header, Details: make([]models.TransactionDetail, 0, len(details))}
	for _, detail := range details {
		result.Details = append(result.Details, *detail)
	}
	return result, nil
}

// Approve books the intake into the ledger. The movements are written first;
// if stamping the header then fails they are reversed so stock stays honest.
func (s *service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*models.GoodsReceivedVoucher, error) {
	if approvedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approving user required")
	}
	header, err := s.grvs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !header.Status.CanTransitionTo(enums.GRVStatusApproved) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "grv %s cannot move from %s to approved", id, header.Status)
	}

	receivedDate := header.ReceivedDate
	_, err = s.movements.GenerateMovements(ctx, movement.GenerateInput{
		TransactionType: enums.TransactionTypeGRV,
		HeaderID:        header.ID,
		TransactionDate: &receivedDate,
		Reason:          fmt.Sprintf("GRV %s from %s", header.Reference, header.SupplierName),
		UserID:          approvedBy,
		LocationID:      &header.SiteID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.grvs.SetApproved(ctx, id, approvedBy, now); err != nil {
		if _, revErr := s.movements.ReverseMovements(ctx, movement.ReverseInput{
			TransactionType: enums.TransactionTypeGRV,
			HeaderID:        header.ID,
			Reason:          "approval failed",
			RequestedBy:     approvedBy,
		}); revErr != nil {
			s.logg.Error(ctx, "unwinding failed grv approval", revErr)
		}
		return nil, err
	}

	header.Status = enums.GRVStatusApproved
	header.ApprovedAt = &now
	header.ApprovedBy = &approvedBy

	s.logg.Info(s.logg.WithField(ctx, "grv_id", id.String()), "grv approved")
	return header, nil
}

// Cancel voids the voucher. Cancelling an approved GRV reverses its ledger
// entries; a draft just changes status.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*models.GoodsReceivedVoucher, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	if cancelledBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancelling user required")
	}
	header, err := s.grvs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !header.Status.CanTransitionTo(enums.GRVStatusCancelled) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "grv %s cannot move from %s to cancelled", id, header.Status)
	}

	if header.Status == enums.GRVStatusApproved {
		if _, err := s.movements.ReverseMovements(ctx, movement.ReverseInput{
			TransactionType: enums.TransactionTypeGRV,
			HeaderID:        header.ID,
			Reason:          reason,
			RequestedBy:     cancelledBy,
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := s.grvs.SetCancelled(ctx, id, cancelledBy, now); err != nil {
		return nil, err
	}

	header.Status = enums.GRVStatusCancelled
	header.CancelledAt = &now
	header.CancelledBy = &cancelledBy

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"grv_id": id.String(),
		"reason": reason,
	}), "grv cancelled")
	return header, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	header, err := s.grvs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.grvs.ListDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{GRV: header, Details: details}, nil
}
