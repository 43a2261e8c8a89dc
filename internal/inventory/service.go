// File: internal/inventory/service.go
package inventory

import (
	"context"
	"math"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultActivityDays = 7
	maxActivityDays     = 365
	recentPerProduct    = 5
)

// ProductReader is the part of the product service inventory reads through.
// Get applies the actor's location rules.
type ProductReader interface {
	Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*product.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]product.Product, error)
}

// Service defines the inventory operations exposed over HTTP.
type Service interface {
	Adjust(ctx context.Context, actor shared.Actor, productID uuid.UUID, req AdjustStockRequest) (*AdjustResult, error)
	History(ctx context.Context, actor shared.Actor, productID uuid.UUID) (*History, error)
	Movements(ctx context.Context, actor shared.Actor, q MovementQuery) ([]Movement, int64, *Statistics, error)
	RecentActivity(ctx context.Context, actor shared.Actor, days int, loc shared.LocationFilter) ([]ProductActivity, error)
	LowStock(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]product.Product, error)
}

type service struct {
	repo        Repository
	ledger      *Ledger
	products    ProductReader
	productRepo product.Repository
	guard       *location.Guard
	tx          *database.Transactor
	logger      *zap.Logger
}

// NewService creates a new inventory service.
func NewService(
	repo Repository,
	ledger *Ledger,
	products ProductReader,
	productRepo product.Repository,
	branches location.BranchFinder,
	tx *database.Transactor,
	logger *zap.Logger,
) Service {
	return &service{
		repo:        repo,
		ledger:      ledger,
		products:    products,
		productRepo: productRepo,
		guard:       location.NewGuard(branches),
		tx:          tx,
		logger:      logger,
	}
}

func (s *service) Adjust(ctx context.Context, actor shared.Actor, productID uuid.UUID, req AdjustStockRequest) (*AdjustResult, error) {
	p, err := s.products.Get(ctx, actor, productID)
	if err != nil {
		return nil, err
	}
	stock := *req.Stock
	minStock, maxStock := p.MinStock, p.MaxStock
	if req.MinStock != nil {
		minStock = *req.MinStock
	}
	if req.MaxStock != nil {
		maxStock = *req.MaxStock
	}
	if stock == p.Stock && minStock == p.MinStock && maxStock == p.MaxStock {
		return nil, common.ErrUnprocessableEntity.WithDetails("The adjustment does not change the product.")
	}

	errs := map[string]string{}
	if maxStock > 0 {
		if minStock > maxStock {
			errs["min_stock"] = "Minimum stock cannot exceed maximum stock."
		}
		if stock > maxStock {
			errs["stock"] = "Stock cannot exceed maximum stock."
		}
	}
	if len(errs) > 0 {
		return nil, common.NewValidationAPIError(errs)
	}

	result := &AdjustResult{}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if minStock != p.MinStock || maxStock != p.MaxStock {
			if err := s.productRepo.UpdateLimits(ctx, p.ID, minStock, maxStock); err != nil {
				return err
			}
		}
		mv, err := s.ledger.Apply(ctx, Change{
			ProductID: p.ID,
			UserID:    actor.UserID,
			Type:      TypeAjuste,
			Target:    stock,
			Reason:    req.Reason,
		})
		result.Movement = mv
		return err
	})
	if err != nil {
		s.logger.Error("Failed to adjust stock", zap.Error(err), zap.String("productID", productID.String()))
		return nil, err
	}
	s.logger.Info("Stock adjusted",
		zap.String("productID", productID.String()),
		zap.Int("from", p.Stock), zap.Int("to", stock),
		zap.String("userID", actor.UserID.String()))

	if result.Product, err = s.productRepo.FindByID(ctx, p.ID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) History(ctx context.Context, actor shared.Actor, productID uuid.UUID) (*History, error) {
	p, err := s.products.Get(ctx, actor, productID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.repo.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &History{
		Product: HistoryProduct{
			ID:           p.ID,
			Name:         p.Name,
			InternalCode: p.InternalCode,
			Brand:        p.BrandName(),
			Category:     p.CategoryName(),
			Location:     locationOf(p),
			Stock:        p.Stock,
			MinStock:     p.MinStock,
			MaxStock:     p.MaxStock,
			Active:       p.Active,
		},
		Timeline:   timeline,
		Statistics: summarize(timeline, time.Now()),
	}, nil
}

func (s *service) Movements(ctx context.Context, actor shared.Actor, q MovementQuery) ([]Movement, int64, *Statistics, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, 0, nil, common.ErrBadRequest.WithDetails("type must be entrada, salida or ajuste.")
	}
	if q.ProductID != nil {
		p, err := s.products.Get(ctx, actor, *q.ProductID)
		if err != nil {
			return nil, 0, nil, err
		}
		q.LocationFilter = p.Location()
	} else {
		loc, err := s.guard.Scope(ctx, actor, q.LocationFilter)
		if err != nil {
			return nil, 0, nil, err
		}
		q.LocationFilter = loc
	}

	movements, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, nil, err
	}
	stats, err := s.repo.Stats(ctx, q)
	if err != nil {
		return nil, 0, nil, err
	}
	return movements, total, stats, nil
}

func (s *service) RecentActivity(ctx context.Context, actor shared.Actor, days int, loc shared.LocationFilter) ([]ProductActivity, error) {
	if days <= 0 {
		days = defaultActivityDays
	}
	if days > maxActivityDays {
		days = maxActivityDays
	}
	loc, err := s.guard.Scope(ctx, actor, loc)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	movements, err := s.repo.Since(ctx, loc, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}

	byProduct := make(map[uuid.UUID][]Movement)
	var order []uuid.UUID
	for _, m := range movements {
		if _, seen := byProduct[m.ProductID]; !seen {
			order = append(order, m.ProductID)
		}
		byProduct[m.ProductID] = append(byProduct[m.ProductID], m)
	}
	products, err := s.products.GetByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	activity := make([]ProductActivity, 0, len(order))
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			continue
		}
		ms := byProduct[id]
		recent := ms
		if len(recent) > recentPerProduct {
			recent = recent[:recentPerProduct]
		}
		last := ms[0]
		activity = append(activity, ProductActivity{
			Product:      &p,
			Statistics:   summarize(ms, now),
			LastMovement: &last,
			Recent:       recent,
		})
	}
	// Movements arrive newest first, so order already ranks by last activity.
	return activity, nil
}

func (s *service) LowStock(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]product.Product, error) {
	loc, err := s.guard.Scope(ctx, actor, loc)
	if err != nil {
		return nil, err
	}
	return s.productRepo.FindLowStock(ctx, loc)
}

// summarize computes statistics over movements already in memory.
func summarize(movements []Movement, now time.Time) Statistics {
	var stats Statistics
	if len(movements) == 0 {
		return stats
	}
	first := movements[0].CreatedAt
	for _, m := range movements {
		stats.add(m.Type, 1, int64(m.Quantity))
		if m.CreatedAt.Before(first) {
			first = m.CreatedAt
		}
	}
	stats.AvgMovementsPerMonth = perMonth(stats.Total, first, now)
	return stats
}

// perMonth spreads total over the 30-day months between first and now,
// counting at least one month.
func perMonth(total int64, first, now time.Time) float64 {
	months := math.Ceil(now.Sub(first).Hours() / 24 / 30)
	if months < 1 {
		months = 1
	}
	return math.Round(float64(total)/months*100) / 100
}
