package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/verdantpos/greenledger-backend/internal/movement"
	product "github.com/verdantpos/greenledger-backend/internal/products"
	"github.com/verdantpos/greenledger-backend/internal/serialnumber"
	"github.com/verdantpos/greenledger-backend/pkg/db"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/enums"
	pkgerrors "github.com/verdantpos/greenledger-backend/pkg/errors"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
	"github.com/verdantpos/greenledger-backend/pkg/validate"
)

// Service runs the point-of-sale flows. Every checkout and refund books
// ledger entries immediately; cancellation reverses them.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*Result, error)
	Refund(ctx context.Context, input RefundInput) (*Result, error)
	Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*models.SaleTransaction, error)
	Get(ctx context.Context, id uuid.UUID) (*Result, error)
}

// LineInput is one till line. A serialized unit names its serial; the serial
// must be in assigned custody and is marked sold at checkout.
type LineInput struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	SerialNumber *string         `json:"serial_number"`
}

// CheckoutInput captures one sale at the till.
type CheckoutInput struct {
	SiteID    int         `json:"site_id" validate:"required,min=1,max=99"`
	CashierID string      `json:"cashier_id" validate:"required"`
	Lines     []LineInput `json:"lines" validate:"required,min=1"`
}

// RefundInput returns goods against an earlier sale.
type RefundInput struct {
	OriginalSaleID uuid.UUID   `json:"original_sale_id"`
	SiteID         int         `json:"site_id" validate:"required,min=1,max=99"`
	CashierID      string      `json:"cashier_id" validate:"required"`
	Lines          []LineInput `json:"lines" validate:"required,min=1"`
}

// Result pairs the header with its line items.
type Result struct {
	Transaction *models.SaleTransaction
	Details     []models.TransactionDetail
}

type service struct {
	sales     Repository
	products  product.Repository
	serials   serialnumber.Service
	movements movement.Service
	client    *db.Client
	logg      *logger.Logger
}

// NewService wires the POS service.
func NewService(sales Repository, products product.Repository, serials serialnumber.Service, movements movement.Service, client *db.Client, logg *logger.Logger) (Service, error) {
	if sales == nil || products == nil || serials == nil || movements == nil {
		return nil, fmt.Errorf("pos service dependencies incomplete")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{sales: sales, products: products, serials: serials, movements: movements, client: client, logg: logg}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	headerID := uuid.New()
	transactionDate := time.Now().UTC()

	details, total, err := s.buildDetails(ctx, headerID, enums.TransactionTypeSale, input.Lines, input.CashierID)
	if err != nil {
		return nil, err
	}

	// Serial custody is checked up front so a mis-scanned unit aborts the
	// checkout before anything is written.
	for _, line := range input.Lines {
		if line.SerialNumber == nil {
			continue
		}
		record, err := s.serials.Lookup(ctx, *line.SerialNumber)
		if err != nil {
			return nil, err
		}
		if record.Status != enums.SerialStatusAssigned {
			return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "serial %s is %s, not assigned for sale", record.Serial, record.Status)
		}
	}

	header := &models.SaleTransaction{
		ID:              headerID,
		SiteID:          input.SiteID,
		TransactionType: enums.TransactionTypeSale,
		Total:           total,
		TransactionDate: transactionDate,
		CashierID:       input.CashierID,
	}
	if err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.sales.WithTx(tx).Create(ctx, header, details)
	}); err != nil {
		return nil, err
	}

	if _, err := s.movements.GenerateMovements(ctx, movement.GenerateInput{
		TransactionType: enums.TransactionTypeSale,
		HeaderID:        headerID,
		TransactionDate: &transactionDate,
		UserID:          input.CashierID,
		LocationID:      &input.SiteID,
	}); err != nil {
		return nil, err
	}

	for _, detail := range details {
		if detail.SerialNumber == nil {
			continue
		}
		if _, err := s.serials.MarkSold(ctx, *detail.SerialNumber, headerID, input.CashierID); err != nil {
			return nil, err
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"sale_id": headerID.String(),
		"site_id": input.SiteID,
		"total":   total.String(),
		"lines":   len(details),
	}), "sale completed")

	return buildResult(header, details), nil
}

// Refund books returned goods back into stock against the original sale. The
// refunded quantity per product can never exceed what the sale moved out,
// counting earlier refunds. Sold serials stay sold; a returned serialized
// unit re-enters stock as unserialized quantity.
func (s *service) Refund(ctx context.Context, input RefundInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.OriginalSaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original sale id required")
	}

	original, err := s.sales.FindByID(ctx, input.OriginalSaleID)
	if err != nil {
		return nil, err
	}
	if original.TransactionType != enums.TransactionTypeSale {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "transaction %s is not a sale", input.OriginalSaleID)
	}
	if original.IsCancelled {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "sale %s is cancelled", input.OriginalSaleID)
	}

	refundable, err := s.refundableQuantities(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	for i, line := range input.Lines {
		remaining, ok := refundable[line.ProductID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d product was not on the original sale", i+1)
		}
		if line.Quantity.GreaterThan(remaining) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation,
				"line %d refunds %s but only %s remains refundable", i+1, line.Quantity, remaining)
		}
		refundable[line.ProductID] = remaining.Sub(line.Quantity)
	}

	headerID := uuid.New()
	transactionDate := time.Now().UTC()
	details, total, err := s.buildDetails(ctx, headerID, enums.TransactionTypeRefund, input.Lines, input.CashierID)
	if err != nil {
		return nil, err
	}

	header := &models.SaleTransaction{
		ID:              headerID,
		SiteID:          input.SiteID,
		TransactionType: enums.TransactionTypeRefund,
		Total:           total,
		OriginalSaleID:  &original.ID,
		TransactionDate: transactionDate,
		CashierID:       input.CashierID,
	}
	if err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.sales.WithTx(tx).Create(ctx, header, details)
	}); err != nil {
		return nil, err
	}

	if _, err := s.movements.GenerateMovements(ctx, movement.GenerateInput{
		TransactionType: enums.TransactionTypeRefund,
		HeaderID:        headerID,
		TransactionDate: &transactionDate,
		Reason:          fmt.Sprintf("Refund of sale %s", original.ID),
		UserID:          input.CashierID,
		LocationID:      &input.SiteID,
	}); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"refund_id": headerID.String(),
		"sale_id":   original.ID.String(),
		"total":     total.String(),
	}), "refund completed")

	return buildResult(header, details), nil
}

// Cancel voids a sale or refund outright and reverses its ledger entries.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*models.SaleTransaction, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	if cancelledBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancelling user required")
	}
	header, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if header.IsCancelled {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transaction %s is already cancelled", id)
	}

	if _, err := s.movements.ReverseMovements(ctx, movement.ReverseInput{
		TransactionType: header.TransactionType,
		HeaderID:        header.ID,
		Reason:          reason,
		RequestedBy:     cancelledBy,
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.sales.SetCancelled(ctx, id, cancelledBy, now); err != nil {
		return nil, err
	}

	header.IsCancelled = true
	header.CancelledAt = &now
	header.CancelledBy = &cancelledBy

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": id.String(),
		"reason":         reason,
	}), "transaction cancelled")
	return header, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	header, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.sales.ListDetails(ctx, header.TransactionType, id)
	if err != nil {
		return nil, err
	}
	return &Result{Transaction: header, Details: details}, nil
}

func (s *service) buildDetails(ctx context.Context, headerID uuid.UUID, txType enums.TransactionType, lines []LineInput, createdBy string) ([]*models.TransactionDetail, decimal.Decimal, error) {
	details := make([]*models.TransactionDetail, 0, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d has no product", i+1)
		}
		if !line.Quantity.IsPositive() {
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d quantity must be positive, got %s", i+1, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d unit price cannot be negative", i+1)
		}

		prod, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if txType == enums.TransactionTypeSale && !prod.IsActive {
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s is not for sale", prod.SKU)
		}

		lineTotal := line.UnitPrice.Mul(line.Quantity)
		total = total.Add(lineTotal)
		details = append(details, &models.TransactionDetail{
			ID:              uuid.New(),
			HeaderID:        headerID,
			TransactionType: txType,
			ProductID:       prod.ID,
			ProductSKU:      prod.SKU,
			ProductName:     prod.Name,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       lineTotal,
			SerialNumber:    line.SerialNumber,
			CreatedBy:       createdBy,
		})
	}
	return details, total, nil
}

// refundableQuantities computes, per product, what the original sale moved
// out minus what earlier refunds already brought back.
func (s *service) refundableQuantities(ctx context.Context, saleID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sold, err := s.sales.ListDetails(ctx, enums.TransactionTypeSale, saleID)
	if err != nil {
		return nil, err
	}
	remaining := make(map[uuid.UUID]decimal.Decimal, len(sold))
	for _, detail := range sold {
		remaining[detail.ProductID] = remaining[detail.ProductID].Add(detail.Quantity)
	}

	refunds, err := s.sales.ListRefundsOf(ctx, saleID)
	if err != nil {
		return nil, err
	}
	for _, refund := range refunds {
		details, err := s.sales.ListDetails(ctx, enums.TransactionTypeRefund, refund.ID)
		if err != nil {
			return nil, err
		}
		for _, detail := range details {
			remaining[detail.ProductID] = remaining[detail.ProductID].Sub(detail.Quantity)
		}
	}
	return remaining, nil
}

func buildResult(header *models.SaleTransaction, details []*models.TransactionDetail) *Result {
	result := &Result{Transaction: header, Details: make([]models.TransactionDetail, 0, len(details))}
	for _, detail := range details {
		result.Details = append(result.Details, *detail)
	}
	return result
}
