// File: internal/inventory/ledger.go
package inventory

import (
	"context"
	"fmt"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger applies stock changes and records the movements that explain them.
// It joins the caller's transaction when there is one, so dispatch, receipt
// and intake move stock atomically with their own writes.
type Ledger struct {
	repo     Repository
	products product.Repository
	tx       *database.Transactor
	metrics  metrics.Recorder
	logger   *zap.Logger
}

// NewLedger creates a Ledger. rec may be nil.
func NewLedger(repo Repository, products product.Repository, tx *database.Transactor, rec metrics.Recorder, logger *zap.Logger) *Ledger {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Ledger{repo: repo, products: products, tx: tx, metrics: rec, logger: logger}
}

// delta returns the signed stock change for ch against the current stock.
func (ch Change) delta(current int) (int, error) {
	switch ch.Type {
	case TypeEntrada:
		if ch.Quantity <= 0 {
			return 0, common.ErrBadRequest.WithDetails("Quantity must be greater than zero.")
		}
		return ch.Quantity, nil
	case TypeSalida:
		if ch.Quantity <= 0 {
			return 0, common.ErrBadRequest.WithDetails("Quantity must be greater than zero.")
		}
		return -ch.Quantity, nil
	case TypeAjuste:
		if ch.Target < 0 {
			return 0, common.ErrBadRequest.WithDetails("Stock cannot be negative.")
		}
		return ch.Target - current, nil
	}
	return 0, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown movement type %q.", ch.Type))
}

// Apply locks the product, changes its stock and writes the movement. A
// salida larger than the available stock fails with ErrConflict. An ajuste
// that does not change the stock writes nothing and returns nil.
func (l *Ledger) Apply(ctx context.Context, ch Change) (*Movement, error) {
	var mv *Movement
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := l.products.FindByIDForUpdate(ctx, ch.ProductID)
		if err != nil {
			return err
		}
		delta, err := ch.delta(p.Stock)
		if err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		next := p.Stock + delta
		if next < 0 {
			return common.ErrConflict.WithDetails(fmt.Sprintf(
				"Insufficient stock for %s: %d available, %d requested.", p.InternalCode, p.Stock, -delta))
		}
		if err := l.products.UpdateStock(ctx, p.ID, next); err != nil {
			return err
		}
		mv = &Movement{
			ID:         uuid.New(),
			ProductID:  p.ID,
			UserID:     ch.UserID,
			Type:       ch.Type,
			Quantity:   delta,
			StockAfter: next,
			Reason:     ch.Reason,
			OrderID:    ch.OrderID,
			CreatedAt:  time.Now().UTC(),
		}
		if ch.Type != TypeAjuste {
			mv.Quantity = ch.Quantity
		}
		return l.repo.Create(ctx, mv)
	})
	if err != nil {
		return nil, err
	}
	if mv != nil {
		l.metrics.RecordStockMovement(string(mv.Type), float64(abs(mv.Quantity)))
		l.logger.Debug("Stock movement applied",
			zap.String("productID", mv.ProductID.String()),
			zap.String("type", string(mv.Type)),
			zap.Int("quantity", mv.Quantity),
			zap.Int("stockAfter", mv.StockAfter))
	}
	return mv, nil
}

// RecordInitialStock writes the entrada for the stock a product was created
// with. The product row already holds that stock.
func (l *Ledger) RecordInitialStock(ctx context.Context, p *product.Product, userID uuid.UUID, reason string) error {
	if p.Stock <= 0 {
		return nil
	}
	mv := &Movement{
		ProductID:  p.ID,
		UserID:     userID,
		Type:       TypeEntrada,
		Quantity:   p.Stock,
		StockAfter: p.Stock,
		Reason:     reason,
	}
	if err := l.repo.Create(ctx, mv); err != nil {
		return err
	}
	l.metrics.RecordStockMovement(string(TypeEntrada), float64(p.Stock))
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
