// Package alerts runs request-time stock scans. Nothing here is cached or
// scheduled; every call derives its answer from the ledger and product master
// data at the moment it is asked.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/verdantpos/greenledger-backend/internal/movement"
	product "github.com/verdantpos/greenledger-backend/internal/products"
	"github.com/verdantpos/greenledger-backend/pkg/config"
	"github.com/verdantpos/greenledger-backend/pkg/db/models"
	"github.com/verdantpos/greenledger-backend/pkg/logger"
)

type Service interface {
	LowStock(ctx context.Context, locationID *int) ([]LowStockAlert, error)
	ExpiringProducts(ctx context.Context) ([]ExpiryAlert, error)
	Scan(ctx context.Context, locationID *int) (*Report, error)
}

// LowStockAlert flags a product whose derived stock fell below its reorder
// level. Products with a zero reorder level never alert.
type LowStockAlert struct {
	Product      models.Product  `json:"product"`
	StockOnHand  decimal.Decimal `json:"stock_on_hand"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// ExpiryAlert flags a product expiring within the configured horizon,
// including stock that already expired.
type ExpiryAlert struct {
	Product   models.Product `json:"product"`
	ExpiresAt time.Time      `json:"expires_at"`
	Expired   bool           `json:"expired"`
}

// Report bundles both scans for reporting callers. A scan that partially
// failed still carries the sections that succeeded.
type Report struct {
	LowStock  []LowStockAlert `json:"low_stock"`
	Expiring  []ExpiryAlert   `json:"expiring"`
	ScannedAt time.Time       `json:"scanned_at"`
}

type service struct {
	products  product.Repository
	movements movement.Service
	cfg       config.AlertsConfig
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(products product.Repository, movements movement.Service, cfg config.AlertsConfig, logg *logger.Logger) (Service, error) {
	if products == nil || movements == nil {
		return nil, fmt.Errorf("alert service dependencies incomplete")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ExpiryHorizon <= 0 {
		return nil, fmt.Errorf("expiry horizon must be positive, got %s", cfg.ExpiryHorizon)
	}
	return &service{products: products, movements: movements, cfg: cfg, logg: logg, now: time.Now}, nil
}

func (s *service) LowStock(ctx context.Context, locationID *int) ([]LowStockAlert, error) {
	active, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(active))
	for _, p := range active {
		ids = append(ids, p.ID)
	}
	levels, err := s.movements.CalculateSOHBatch(ctx, ids, locationID, nil)
	if err != nil {
		return nil, err
	}

	var alerts []LowStockAlert
	for _, p := range active {
		if !p.ReorderLevel.IsPositive() {
			continue
		}
		soh := levels[p.ID]
		if soh.LessThan(p.ReorderLevel) {
			alerts = append(alerts, LowStockAlert{Product: p, StockOnHand: soh, ReorderLevel: p.ReorderLevel})
		}
	}
	return alerts, nil
}

func (s *service) ExpiringProducts(ctx context.Context) ([]ExpiryAlert, error) {
	active, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cutoff := now.Add(s.cfg.ExpiryHorizon)
	var alerts []ExpiryAlert
	for _, p := range active {
		if p.ExpiryDate == nil || p.ExpiryDate.After(cutoff) {
			continue
		}
		alerts = append(alerts, ExpiryAlert{
			Product:   p,
			ExpiresAt: *p.ExpiryDate,
			Expired:   p.ExpiryDate.Before(now),
		})
	}
	return alerts, nil
}

// Scan runs both checks and rolls failures up into one error while keeping
// whatever sections succeeded.
func (s *service) Scan(ctx context.Context, locationID *int) (*Report, error) {
	report := &Report{ScannedAt: s.now().UTC()}

	var errs error
	lowStock, err := s.LowStock(ctx, locationID)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("low stock scan: %w", err))
	} else {
		report.LowStock = lowStock
	}

	expiring, err := s.ExpiringProducts(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expiry scan: %w", err))
	} else {
		report.Expiring = expiring
	}

	if errs != nil {
		s.logg.Error(ctx, "alert scan partially failed", errs)
		return report, errs
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"low_stock": len(report.LowStock),
		"expiring":  len(report.Expiring),
	}), "alert scan complete")
	return report, nil
}
