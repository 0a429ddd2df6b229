package transfers

import (
	"context"
	"fmt"
	"time"

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

// Service runs inter-site transfers. Stock leaves the source on approval and
// arrives at the destination on completion, so goods in transit are visible
// as the gap between the two ledger entries.
type Service interface {
	CreateDraft(ctx context.Context, input CreateInput) (*models.StockTransfer, error)
	Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*models.StockTransfer, error)
	Complete(ctx context.Context, id uuid.UUID, completedBy string) (*models.StockTransfer, error)
	Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*models.StockTransfer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error)
	ListBySite(ctx context.Context, siteID int) ([]models.StockTransfer, error)
}

// CreateInput captures a transfer request between two sites.
type CreateInput struct {
	FromSiteID  int             `json:"from_site_id" validate:"required,min=1,max=99"`
	ToSiteID    int             `json:"to_site_id" validate:"required,min=1,max=99"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	BatchNumber *string         `json:"batch_number"`
	Reason      string          `json:"reason" validate:"required"`
	CreatedBy   string          `json:"created_by" validate:"required"`
}

type service struct {
	transfers Repository
	products  product.Repository
	movements movement.Service
	logg      *logger.Logger
}

// NewService wires the transfer service.
func NewService(transfers Repository, products product.Repository, movements movement.Service, logg *logger.Logger) (Service, error) {
	if transfers == nil || products == nil || movements == nil {
		return nil, fmt.Errorf("transfer service dependencies incomplete")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{transfers: transfers, products: products, movements: movements, logg: logg}, nil
}

func (s *service) CreateDraft(ctx context.Context, input CreateInput) (*models.StockTransfer, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.FromSiteID == input.ToSiteID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination sites must differ")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive, got %s", input.Quantity)
	}

	prod, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	row := &models.StockTransfer{
		ID:          uuid.New(),
		FromSiteID:  input.FromSiteID,
		ToSiteID:    input.ToSiteID,
		ProductID:   prod.ID,
		ProductSKU:  prod.SKU,
		ProductName: prod.Name,
		Quantity:    input.Quantity,
		BatchNumber: input.BatchNumber,
		Reason:      input.Reason,
		Status:      enums.TransferStatusDraft,
		CreatedBy:   input.CreatedBy,
	}
	if err := s.transfers.Create(ctx, row); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transfer_id": row.ID.String(),
		"from_site":   input.FromSiteID,
		"to_site":     input.ToSiteID,
	}), "transfer draft created")
	return row, nil
}

// Approve books the outbound leg at the source site.
func (s *service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*models.StockTransfer, error) {
	if approvedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approving user required")
	}
	row, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.TransferStatusApproved) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transfer %s cannot move from %s to approved", id, row.Status)
	}

	if _, err := s.movements.CreateMovement(ctx, movement.CreateInput{
		TransactionType: enums.TransactionTypeTransferOut,
		HeaderID:        row.ID,
		ProductID:       row.ProductID,
		ProductSKU:      row.ProductSKU,
		ProductName:     row.ProductName,
		Quantity:        row.Quantity,
		BatchNumber:     row.BatchNumber,
		Reason:          fmt.Sprintf("Transfer to site %d: %s", row.ToSiteID, row.Reason),
		UserID:          approvedBy,
		LocationID:      &row.FromSiteID,
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.transfers.SetApproved(ctx, id, approvedBy, now); err != nil {
		if _, revErr := s.movements.ReverseMovements(ctx, movement.ReverseInput{
			TransactionType: enums.TransactionTypeTransferOut,
			HeaderID:        row.ID,
			Reason:          "approval failed",
			RequestedBy:     approvedBy,
		}); revErr != nil {
			s.logg.Error(ctx, "unwinding failed transfer approval", revErr)
		}
		return nil, err
	}

	row.Status = enums.TransferStatusApproved
	row.ApprovedAt = &now
	row.ApprovedBy = &approvedBy

	s.logg.Info(s.logg.WithField(ctx, "transfer_id", id.String()), "transfer approved, stock left source site")
	return row, nil
}

// Complete books the inbound leg at the destination site.
func (s *service) Complete(ctx context.Context, id uuid.UUID, completedBy string) (*models.StockTransfer, error) {
	if completedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "completing user required")
	}
	row, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.TransferStatusCompleted) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transfer %s cannot move from %s to completed", id, row.Status)
	}

	if _, err := s.movements.CreateMovement(ctx, movement.CreateInput{
		TransactionType: enums.TransactionTypeTransferIn,
		HeaderID:        row.ID,
		ProductID:       row.ProductID,
		ProductSKU:      row.ProductSKU,
		ProductName:     row.ProductName,
		Quantity:        row.Quantity,
		BatchNumber:     row.BatchNumber,
		Reason:          fmt.Sprintf("Transfer from site %d: %s", row.FromSiteID, row.Reason),
		UserID:          completedBy,
		LocationID:      &row.ToSiteID,
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.transfers.SetCompleted(ctx, id, completedBy, now); err != nil {
		if _, revErr := s.movements.ReverseMovements(ctx, movement.ReverseInput{
			TransactionType: enums.TransactionTypeTransferIn,
			HeaderID:        row.ID,
			Reason:          "completion failed",
			RequestedBy:     completedBy,
		}); revErr != nil {
			s.logg.Error(ctx, "unwinding failed transfer completion", revErr)
		}
		return nil, err
	}

	row.Status = enums.TransferStatusCompleted
	row.CompletedAt = &now
	row.CompletedBy = &completedBy

	s.logg.Info(s.logg.WithField(ctx, "transfer_id", id.String()), "transfer completed, stock arrived at destination")
	return row, nil
}

// Cancel voids a transfer. Cancelling an approved transfer returns the
// outbound stock to the source; completed transfers are final.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*models.StockTransfer, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	if cancelledBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancelling user required")
	}
	row, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Status.CanTransitionTo(enums.TransferStatusCancelled) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transfer %s cannot move from %s to cancelled", id, row.Status)
	}

	if row.Status == enums.TransferStatusApproved {
		if _, err := s.movements.ReverseMovements(ctx, movement.ReverseInput{
			TransactionType: enums.TransactionTypeTransferOut,
			HeaderID:        row.ID,
			Reason:          reason,
			RequestedBy:     cancelledBy,
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := s.transfers.SetCancelled(ctx, id, cancelledBy, now); err != nil {
		return nil, err
	}

	row.Status = enums.TransferStatusCancelled
	row.CancelledAt = &now
	row.CancelledBy = &cancelledBy

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transfer_id": id.String(),
		"reason":      reason,
	}), "transfer cancelled")
	return row, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	return s.transfers.FindByID(ctx, id)
}

func (s *service) ListBySite(ctx context.Context, siteID int) ([]models.StockTransfer, error) {
	if siteID < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "site id required")
	}
	return s.transfers.ListBySite(ctx, siteID)
}
