package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/domain"
	"github.com/juani-castore/mozo-prototipo/internal/metrics"
	"github.com/juani-castore/mozo-prototipo/internal/repo"
)

// InventoryService applies best-effort stock decrements after admission.
// Failures are logged, never propagated: the order is valid and final whether
// or not stock bookkeeping catches up.
type InventoryService interface {
	Decrement(ctx context.Context, items []domain.LineItem)
}

type inventoryService struct {
	productRepo repo.ProductRepo
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewInventoryService(productRepo repo.ProductRepo, m *metrics.Metrics, logger *zap.Logger) InventoryService {
	return &inventoryService{
		productRepo: productRepo,
		metrics:     m,
		logger:      logger.Named("inventory"),
	}
}

// Decrement adjusts each product independently; one failing row must not
// block the rest. The repo clamps stock at zero.
func (s *inventoryService) Decrement(ctx context.Context, items []domain.LineItem) {
	for _, item := range items {
		if err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Warn("stock_decrement_failed",
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			s.metrics.StockDecrement("failed")
			continue
		}
		s.metrics.StockDecrement("applied")
	}
}
