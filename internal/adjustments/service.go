// Package adjustments records ad-hoc stock corrections. Every adjustment is
// a single ledger movement with a mandatory reason, so the audit trail always
// explains why stock changed outside a business transaction.
package adjustments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/internal/movement"
	product "github.com/verdantpos/greenledger-backend/internal/products"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.Movement, error)
	RecordStocktakeVariance(ctx context.Context, input VarianceInput) (*models.Movement, error)
}

// ApplyInput describes a manual stock correction.
type ApplyInput struct {
	ProductID   uuid.UUID               `json:"product_id"`
	Direction   enums.MovementDirection `json:"direction" validate:"required,oneof=in out"`
	Quantity    decimal.Decimal         `json:"quantity"`
	BatchNumber *string                 `json:"batch_number"`
	SiteID      *int                    `json:"site_id" validate:"omitempty,min=1,max=99"`
	Reason      string                  `json:"reason" validate:"required"`
	Actor       string                  `json:"actor" validate:"required"`
}

// VarianceInput books a stocktake shortfall. Counted gains go through Apply
// with direction in instead; variance rows only ever write stock off.
type VarianceInput struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Shortfall   decimal.Decimal `json:"shortfall"`
	BatchNumber *string         `json:"batch_number"`
	SiteID      *int            `json:"site_id" validate:"omitempty,min=1,max=99"`
	Reason      string          `json:"reason" validate:"required"`
	Actor       string          `json:"actor" validate:"required"`
}

type service struct {
	products  product.Repository
	movements movement.Service
	logg      *logger.Logger
}

func NewService(products product.Repository, movements movement.Service, logg *logger.Logger) (Service, error) {
	if products == nil || movements == nil {
		return nil, fmt.Errorf("adjustment service dependencies incomplete")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{products: products, movements: movements, logg: logg}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.Movement, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	txType := enums.TransactionTypeAdjustmentIn
	if input.Direction == enums.MovementDirectionOut {
		txType = enums.TransactionTypeAdjustmentOut
	}
	return s.book(ctx, txType, input.ProductID, input.Quantity, input.BatchNumber, input.SiteID, input.Reason, input.Actor)
}

func (s *service) RecordStocktakeVariance(ctx context.Context, input VarianceInput) (*models.Movement, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	return s.book(ctx, enums.TransactionTypeStocktakeVariance, input.ProductID, input.Shortfall, input.BatchNumber, input.SiteID, input.Reason, input.Actor)
}

func (s *service) book(ctx context.Context, txType enums.TransactionType, productID uuid.UUID, qty decimal.Decimal, batchNumber *string, siteID *int, reason, actor string) (*models.Movement, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !qty.IsPositive() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive, got %s", qty)
	}

	prod, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	row, err := s.movements.CreateMovement(ctx, movement.CreateInput{
		TransactionType: txType,
		HeaderID:        uuid.New(),
		ProductID:       prod.ID,
		ProductSKU:      prod.SKU,
		ProductName:     prod.Name,
		Quantity:        qty,
		BatchNumber:     batchNumber,
		Reason:          reason,
		UserID:          actor,
		LocationID:      siteID,
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"movement_id":      row.ID.String(),
		"transaction_type": string(txType),
		"product_sku":      prod.SKU,
		"quantity":         qty.String(),
	}), "stock adjustment booked")
	return row, nil
}
