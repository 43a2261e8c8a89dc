// File: internal/jobs/low_stock.go
package jobs

import (
	"context"
	"fmt"

	"ordena_backend/internal/notification"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LowStockFinder interface {
	FindLowStock(ctx context.Context, loc shared.LocationFilter) ([]product.Product, error)
}

type LowStockNotifier interface {
	HasUnread(ctx context.Context, topic string, productID uuid.UUID) (bool, error)
	NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg notification.Message) error
	NotifyBranch(ctx context.Context, branchID uuid.UUID, msg notification.Message) error
}

// LowStockJob warns a location's staff about products at or under their
// minimum. A product that still has an unread warning is not warned again.
type LowStockJob struct {
	products LowStockFinder
	notifier LowStockNotifier
	logger   *zap.Logger
}

func NewLowStockJob(products LowStockFinder, notifier LowStockNotifier, logger *zap.Logger) *LowStockJob {
	return &LowStockJob{products: products, notifier: notifier, logger: logger.Named("LowStockJob")}
}

func (j *LowStockJob) Name() string { return "low_stock" }

func (j *LowStockJob) Run(ctx context.Context) error {
	products, err := j.products.FindLowStock(ctx, shared.LocationFilter{})
	if err != nil {
		return err
	}
	sent := 0
	for i := range products {
		p := &products[i]
		has, err := j.notifier.HasUnread(ctx, notification.TopicLowStock, p.ID)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		msg := notification.Message{
			Title:     "Stock bajo",
			Body:      fmt.Sprintf("%s (%s) tiene %d unidades; el mínimo es %d.", p.Name, p.InternalCode, p.Stock, p.MinStock),
			Type:      notification.TypeWarning,
			Topic:     notification.TopicLowStock,
			ProductID: &p.ID,
		}
		switch {
		case p.WarehouseID != nil:
			err = j.notifier.NotifyWarehouse(ctx, *p.WarehouseID, msg)
		case p.BranchID != nil:
			err = j.notifier.NotifyBranch(ctx, *p.BranchID, msg)
		default:
			continue
		}
		if err != nil {
			j.logger.Warn("Failed to send low stock warning", zap.String("product_id", p.ID.String()), zap.Error(err))
			continue
		}
		sent++
	}
	j.logger.Info("Low stock check finished", zap.Int("low_stock", len(products)), zap.Int("warned", sent))
	return nil
}
