package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantpos/greenledger-backend/internal/movement"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/pagination"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

// Service manages product master data. Stock levels are never stored here;
// they are derived from the ledger on demand.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CreateInput captures a new product.
type CreateInput struct {
	SKU          string          `json:"sku" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	THCPercent   *float64        `json:"thc_percent" validate:"omitempty,min=0,max=100"`
	CBDPercent   *float64        `json:"cbd_percent" validate:"omitempty,min=0,max=100"`
}

// UpdateInput carries the mutable product fields. Nil pointers leave the
// stored value untouched; SKU is immutable once issued.
type UpdateInput struct {
	Name         *string          `json:"name"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	ReorderLevel *decimal.Decimal `json:"reorder_level"`
	ExpiryDate   *time.Time       `json:"expiry_date"`
	THCPercent   *float64         `json:"thc_percent" validate:"omitempty,min=0,max=100"`
	CBDPercent   *float64         `json:"cbd_percent" validate:"omitempty,min=0,max=100"`
}

// ListInput scopes a paged listing. WithStock joins derived stock on hand
// onto every returned row.
type ListInput struct {
	Query      string
	ActiveOnly bool
	WithStock  bool
	Pagination pagination.Params
}

// ProductWithStock pairs a product with its current derived stock level.
type ProductWithStock struct {
	models.Product
	StockOnHand *decimal.Decimal
}

// ListResult is one page of products plus the cursor for the next page.
type ListResult struct {
	Products   []ProductWithStock
	NextCursor string
}

type service struct {
	products  Repository
	movements movement.Service
	logg      *logger.Logger
}

// NewService wires the product service. The movement service supplies derived
// stock levels for listings.
func NewService(products Repository, movements movement.Service, logg *logger.Logger) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if movements == nil {
		return nil, fmt.Errorf("movement service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{products: products, movements: movements, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.CostPrice.IsNegative() || input.SellingPrice.IsNegative() || input.ReorderLevel.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices and reorder level cannot be negative")
	}

	row := &models.Product{
		ID:           uuid.New(),
		SKU:          input.SKU,
		Name:         input.Name,
		CostPrice:    input.CostPrice,
		SellingPrice: input.SellingPrice,
		ReorderLevel: input.ReorderLevel,
		ExpiryDate:   input.ExpiryDate,
		THCPercent:   input.THCPercent,
		CBDPercent:   input.CBDPercent,
		IsActive:     true,
	}
	if err := s.products.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrapf(pkgerrors.CodeConflict, err, "sku %s already exists", input.SKU)
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "sku", input.SKU), "product created")
	return row, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	row, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = *input.Name
	}
	if input.CostPrice != nil {
		if input.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
		}
		row.CostPrice = *input.CostPrice
	}
	if input.SellingPrice != nil {
		if input.SellingPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling price cannot be negative")
		}
		row.SellingPrice = *input.SellingPrice
	}
	if input.ReorderLevel != nil {
		if input.ReorderLevel.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
		}
		row.ReorderLevel = *input.ReorderLevel
	}
	if input.ExpiryDate != nil {
		row.ExpiryDate = input.ExpiryDate
	}
	if input.THCPercent != nil {
		row.THCPercent = input.THCPercent
	}
	if input.CBDPercent != nil {
		row.CBDPercent = input.CBDPercent
	}

	if err := s.products.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *service) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	return s.products.FindBySKU(ctx, sku)
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	rows, next, err := s.products.List(ctx, input.Query, input.ActiveOnly, input.Pagination)
	if err != nil {
		return nil, err
	}

	result := &ListResult{NextCursor: next, Products: make([]ProductWithStock, 0, len(rows))}
	if !input.WithStock {
		for _, row := range rows {
			result.Products = append(result.Products, ProductWithStock{Product: row})
		}
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	levels, err := s.movements.CalculateSOHBatch(ctx, ids, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		level := levels[row.ID]
		result.Products = append(result.Products, ProductWithStock{Product: row, StockOnHand: &level})
	}
	return result, nil
}

// Deactivate retires a product from sale. Its ledger history stays intact.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.IsActive {
		return row, nil
	}
	row.IsActive = false
	if err := s.products.Update(ctx, row); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "sku", row.SKU), "product deactivated")
	return row, nil
}
