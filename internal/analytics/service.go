// File: internal/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/cache"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UnreadCounter counts a user's unread notifications.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service computes the dashboard figures. Every figure is scoped to the
// caller's location and cached for a short while.
type Service interface {
	Summary(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (*Summary, error)
	ApprovalRate(ctx context.Context, actor shared.Actor, q Query) (*ApprovalRate, error)
	OrdersByBranch(ctx context.Context, actor shared.Actor, q Query) ([]BranchOrders, error)
	TopProducts(ctx context.Context, actor shared.Actor, q Query) ([]TopProduct, error)
	RequestsVsOrders(ctx context.Context, actor shared.Actor, loc shared.LocationFilter, months int) ([]MonthlyPoint, error)
	ProductsByBranch(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]BranchProducts, error)
}

type service struct {
	repo   Repository
	guard  *location.Guard
	unread UnreadCounter
	store  cache.Store
	ttl    time.Duration
	tz     *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates the dashboard service. Months are cut in tz.
func NewService(repo Repository, branches location.BranchFinder, unread UnreadCounter, store cache.Store, ttl time.Duration, tz *time.Location, logger *zap.Logger) Service {
	if tz == nil {
		tz = time.UTC
	}
	return &service{
		repo:   repo,
		guard:  location.NewGuard(branches),
		unread: unread,
		store:  store,
		ttl:    ttl,
		tz:     tz,
		now:    time.Now,
		logger: logger,
	}
}

func locKey(loc shared.LocationFilter) string {
	switch {
	case loc.WarehouseID != nil:
		return "w:" + loc.WarehouseID.String()
	case loc.BranchID != nil:
		return "b:" + loc.BranchID.String()
	}
	return "all"
}

func timeKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func key(parts ...string) string {
	return "dashboard:" + strings.Join(parts, ":")
}

func remember[T any](ctx context.Context, s *service, k string, compute func(ctx context.Context) (T, error)) (T, error) {
	if s.store == nil || s.ttl <= 0 {
		return compute(ctx)
	}
	return cache.Remember(ctx, s.store, k, s.ttl, compute)
}

func (s *service) Summary(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (*Summary, error) {
	loc, err := s.guard.Scope(ctx, actor, loc)
	if err != nil {
		return nil, err
	}
	return remember(ctx, s, key("summary", locKey(loc), actor.UserID.String()), func(ctx context.Context) (*Summary, error) {
		var out Summary
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			out.ActiveProducts, err = s.repo.CountProducts(ctx, loc, false)
			return err
		})
		g.Go(func() (err error) {
			out.LowStockProducts, err = s.repo.CountProducts(ctx, loc, true)
			return err
		})
		g.Go(func() (err error) {
			out.PendingRequests, err = s.repo.CountPendingRequests(ctx, loc)
			return err
		})
		g.Go(func() (err error) {
			out.PendingTransfers, err = s.repo.CountOpenTransfers(ctx, loc)
			return err
		})
		if s.unread != nil {
			g.Go(func() (err error) {
				out.UnreadNotifications, err = s.unread.UnreadCount(ctx, actor.UserID)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			s.logger.Error("Failed to compute dashboard summary", zap.Error(err))
			return nil, err
		}
		return &out, nil
	})
}

func (s *service) ApprovalRate(ctx context.Context, actor shared.Actor, q Query) (*ApprovalRate, error) {
	var err error
	if q.LocationFilter, err = s.guard.Scope(ctx, actor, q.LocationFilter); err != nil {
		return nil, err
	}
	return remember(ctx, s, key("approval", locKey(q.LocationFilter), timeKey(q.From), timeKey(q.To)), func(ctx context.Context) (*ApprovalRate, error) {
		rows, err := s.repo.RequestStatusCounts(ctx, q)
		if err != nil {
			return nil, err
		}
		var out ApprovalRate
		for _, row := range rows {
			switch requisition.Status(row.Status) {
			case requisition.StatusApproved:
				out.Approved = row.Total
			case requisition.StatusDenied:
				out.Denied = row.Total
			case requisition.StatusPending:
				out.Pending = row.Total
			}
		}
		if decided := out.Approved + out.Denied; decided > 0 {
			out.Rate = math.Round(float64(out.Approved)/float64(decided)*10000) / 10000
		}
		return &out, nil
	})
}

func (s *service) OrdersByBranch(ctx context.Context, actor shared.Actor, q Query) ([]BranchOrders, error) {
	var err error
	if q.LocationFilter, err = s.guard.Scope(ctx, actor, q.LocationFilter); err != nil {
		return nil, err
	}
	return remember(ctx, s, key("orders-by-branch", locKey(q.LocationFilter), timeKey(q.From), timeKey(q.To)), func(ctx context.Context) ([]BranchOrders, error) {
		rows, err := s.repo.OrdersByBranch(ctx, q)
		if rows == nil && err == nil {
			rows = []BranchOrders{}
		}
		return rows, err
	})
}

func (s *service) TopProducts(ctx context.Context, actor shared.Actor, q Query) ([]TopProduct, error) {
	var err error
	if q.LocationFilter, err = s.guard.Scope(ctx, actor, q.LocationFilter); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = defaultTopLimit
	}
	if q.Limit > maxTopLimit {
		q.Limit = maxTopLimit
	}
	k := key("top-products", locKey(q.LocationFilter), timeKey(q.From), timeKey(q.To), fmt.Sprint(q.Limit))
	return remember(ctx, s, k, func(ctx context.Context) ([]TopProduct, error) {
		rows, err := s.repo.TopProducts(ctx, q)
		if rows == nil && err == nil {
			rows = []TopProduct{}
		}
		return rows, err
	})
}

// monthStart returns the first instant of the month t falls in, in tz.
func monthStart(t time.Time, tz *time.Location) time.Time {
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, tz)
}

func (s *service) RequestsVsOrders(ctx context.Context, actor shared.Actor, loc shared.LocationFilter, months int) ([]MonthlyPoint, error) {
	loc, err := s.guard.Scope(ctx, actor, loc)
	if err != nil {
		return nil, err
	}
	if months <= 0 {
		months = defaultMonths
	}
	if months > maxMonths {
		months = maxMonths
	}
	first := monthStart(s.now(), s.tz).AddDate(0, -(months - 1), 0)

	return remember(ctx, s, key("requests-vs-orders", locKey(loc), first.Format("2006-01"), fmt.Sprint(months)), func(ctx context.Context) ([]MonthlyPoint, error) {
		points := make([]MonthlyPoint, months)
		index := make(map[string]int, months)
		for i := range points {
			points[i].Month = first.AddDate(0, i, 0).Format("2006-01")
			index[points[i].Month] = i
		}

		var requests, orders []time.Time
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			requests, err = s.repo.RequestDates(gctx, loc, first.UTC())
			return err
		})
		g.Go(func() (err error) {
			orders, err = s.repo.OrderDates(gctx, loc, first.UTC())
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, t := range requests {
			if i, ok := index[t.In(s.tz).Format("2006-01")]; ok {
				points[i].Requests++
			}
		}
		for _, t := range orders {
			if i, ok := index[t.In(s.tz).Format("2006-01")]; ok {
				points[i].Orders++
			}
		}
		return points, nil
	})
}

func (s *service) ProductsByBranch(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]BranchProducts, error) {
	loc, err := s.guard.Scope(ctx, actor, loc)
	if err != nil {
		return nil, err
	}
	return remember(ctx, s, key("products-by-branch", locKey(loc)), func(ctx context.Context) ([]BranchProducts, error) {
		rows, err := s.repo.ProductsByBranch(ctx, loc)
		if rows == nil && err == nil {
			rows = []BranchProducts{}
		}
		return rows, err
	})
}
