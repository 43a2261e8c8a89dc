// File: internal/report/service.go
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ordena_backend/internal/analytics"
	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/sanitize"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Figures is the part of the dashboard a generated report snapshots.
type Figures interface {
	Summary(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (*analytics.Summary, error)
	ApprovalRate(ctx context.Context, actor shared.Actor, q analytics.Query) (*analytics.ApprovalRate, error)
	OrdersByBranch(ctx context.Context, actor shared.Actor, q analytics.Query) ([]analytics.BranchOrders, error)
	TopProducts(ctx context.Context, actor shared.Actor, q analytics.Query) ([]analytics.TopProduct, error)
	RequestsVsOrders(ctx context.Context, actor shared.Actor, loc shared.LocationFilter, months int) ([]analytics.MonthlyPoint, error)
	ProductsByBranch(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]analytics.BranchProducts, error)
}

type Service interface {
	Create(ctx context.Context, actor shared.Actor, req CreateReportRequest) (*Report, error)
	Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Report, error)
	List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Report, int64, error)
	Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateReportRequest) (*Report, error)
	Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error
	Generate(ctx context.Context, actor shared.Actor, req GenerateRequest) (*Report, error)
	CleanupOrphans(ctx context.Context) (int64, error)
}

type service struct {
	repo    Repository
	figures Figures
	tz      *time.Location
	logger  *zap.Logger
}

func NewService(repo Repository, figures Figures, tz *time.Location, logger *zap.Logger) Service {
	if tz == nil {
		tz = time.UTC
	}
	return &service{repo: repo, figures: figures, tz: tz, logger: logger}
}

// canSee lets admins reach every report and everyone else their own.
func canSee(actor shared.Actor, r *Report) bool {
	return actor.IsAdmin() || (r.UserID != nil && *r.UserID == actor.UserID)
}

func validContent(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, common.NewValidationAPIError(map[string]string{"content": "The content must be valid JSON."})
	}
	return raw, nil
}

func (s *service) Create(ctx context.Context, actor shared.Actor, req CreateReportRequest) (*Report, error) {
	content, err := validContent(req.Content)
	if err != nil {
		return nil, err
	}
	errs := map[string]string{}
	if req.OrderID != nil {
		if ok, err := s.repo.Exists(ctx, "orders", *req.OrderID); err != nil {
			return nil, err
		} else if !ok {
			errs["order_id"] = "Order not found."
		}
	}
	if req.ProductID != nil {
		if ok, err := s.repo.Exists(ctx, "products", *req.ProductID); err != nil {
			return nil, err
		} else if !ok {
			errs["product_id"] = "Product not found."
		}
	}
	if len(errs) > 0 {
		return nil, common.NewValidationAPIError(errs)
	}

	userID := actor.UserID
	r := &Report{
		Title:       sanitize.Text(req.Title),
		Description: sanitize.OptionalText(req.Description),
		Module:      req.Module,
		Content:     content,
		FileURL:     req.FileURL,
		GeneratedAt: time.Now().UTC(),
		UserID:      &userID,
		OrderID:     req.OrderID,
		ProductID:   req.ProductID,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("Failed to create report", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Report created successfully", zap.String("id", r.ID.String()), zap.String("module", string(r.Module)))
	return r, nil
}

func (s *service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Report, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, r) {
		return nil, common.ErrForbidden.WithDetails("You cannot access this report.")
	}
	return r, nil
}

func (s *service) List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Report, int64, error) {
	if q.Module != "" && !q.Module.Valid() {
		return nil, 0, common.ErrBadRequest.WithDetails("Invalid module filter.")
	}
	if !actor.IsAdmin() {
		q.UserID = &actor.UserID
	}
	return s.repo.List(ctx, q)
}

func (s *service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateReportRequest) (*Report, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		r.Title = sanitize.Text(*req.Title)
	}
	if req.Description != nil {
		r.Description = sanitize.OptionalText(req.Description)
	}
	if req.FileURL != nil {
		r.FileURL = req.FileURL
	}
	if len(req.Content) > 0 {
		if r.Content, err = validContent(req.Content); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, r); err != nil {
		s.logger.Error("Failed to update report", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return r, nil
}

func (s *service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Report deleted", zap.String("id", id.String()))
	return nil
}

var moduleTitles = map[Module]string{
	ModuleInventory: "Informe de inventario",
	ModuleOrders:    "Informe de pedidos",
	ModuleRequests:  "Informe de solicitudes",
	ModuleGeneral:   "Informe general",
}

// snapshot collects the dashboard figures that belong to module.
func (s *service) snapshot(ctx context.Context, actor shared.Actor, module Module, loc shared.LocationFilter) (map[string]interface{}, error) {
	content := map[string]interface{}{}
	q := analytics.Query{LocationFilter: loc}
	include := func(m Module) bool { return module == m || module == ModuleGeneral }

	if include(ModuleInventory) {
		summary, err := s.figures.Summary(ctx, actor, loc)
		if err != nil {
			return nil, err
		}
		byBranch, err := s.figures.ProductsByBranch(ctx, actor, loc)
		if err != nil {
			return nil, err
		}
		content["summary"] = summary
		content["products_by_branch"] = byBranch
	}
	if include(ModuleOrders) {
		byBranch, err := s.figures.OrdersByBranch(ctx, actor, q)
		if err != nil {
			return nil, err
		}
		monthly, err := s.figures.RequestsVsOrders(ctx, actor, loc, 0)
		if err != nil {
			return nil, err
		}
		content["orders_by_branch"] = byBranch
		content["requests_vs_orders"] = monthly
	}
	if include(ModuleRequests) {
		rate, err := s.figures.ApprovalRate(ctx, actor, q)
		if err != nil {
			return nil, err
		}
		top, err := s.figures.TopProducts(ctx, actor, q)
		if err != nil {
			return nil, err
		}
		content["approval_rate"] = rate
		content["top_products"] = top
	}
	return content, nil
}

func (s *service) Generate(ctx context.Context, actor shared.Actor, req GenerateRequest) (*Report, error) {
	if !req.Module.Valid() {
		return nil, common.NewValidationAPIError(map[string]string{"module": "Unknown report module."})
	}
	if req.WarehouseID != nil && req.BranchID != nil {
		return nil, common.ErrBadRequest.WithDetails("Specify warehouse_id or branch_id, not both.")
	}
	loc := shared.LocationFilter{WarehouseID: req.WarehouseID, BranchID: req.BranchID}
	content, err := s.snapshot(ctx, actor, req.Module, loc)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	content["generated_at"] = now.UTC()
	if loc.WarehouseID != nil {
		content["warehouse_id"] = loc.WarehouseID
	}
	if loc.BranchID != nil {
		content["branch_id"] = loc.BranchID
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encoding report content: %w", err)
	}

	title := fmt.Sprintf("%s %s", moduleTitles[req.Module], now.In(s.tz).Format("02-01-2006"))
	if req.Title != nil {
		title = *req.Title
	}
	userID := actor.UserID
	r := &Report{
		Title:       sanitize.Text(title),
		Module:      req.Module,
		Content:     raw,
		GeneratedAt: now.UTC(),
		UserID:      &userID,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("Failed to store generated report", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Report generated", zap.String("id", r.ID.String()), zap.String("module", string(r.Module)))
	return r, nil
}

func (s *service) CleanupOrphans(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteOrphans(ctx)
	if err != nil {
		s.logger.Error("Failed to clean up orphan reports", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Orphan reports removed", zap.Int64("deleted", n))
	}
	return n, nil
}
