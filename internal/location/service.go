// File: internal/location/service.go
package location

import (
	"context"
	"strings"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/sanitize"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the business logic for warehouses and branches.
type Service interface {
	CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*Warehouse, error)
	UpdateWarehouse(ctx context.Context, id uuid.UUID, req UpdateWarehouseRequest) (*Warehouse, error)
	GetWarehouse(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)

	CreateBranch(ctx context.Context, req CreateBranchRequest) (*Branch, error)
	UpdateBranch(ctx context.Context, id uuid.UUID, req UpdateBranchRequest) (*Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error)
	ListBranches(ctx context.Context, warehouseID *uuid.UUID) ([]Branch, error)
	DeleteBranch(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new location service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*Warehouse, error) {
	w := &Warehouse{
		Name:    sanitize.Text(req.Name),
		Address: sanitize.Text(req.Address),
		RUT:     common.NormalizeRUT(req.RUT),
	}
	if err := s.repo.CreateWarehouse(ctx, w); err != nil {
		s.logger.Error("Failed to create warehouse", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.logger.Info("Warehouse created successfully", zap.String("id", w.ID.String()), zap.String("name", w.Name))
	return w, nil
}

func (s *service) UpdateWarehouse(ctx context.Context, id uuid.UUID, req UpdateWarehouseRequest) (*Warehouse, error) {
	w, err := s.repo.FindWarehouseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		w.Name = sanitize.Text(*req.Name)
	}
	if req.Address != nil {
		w.Address = sanitize.Text(*req.Address)
	}
	if req.RUT != nil {
		w.RUT = common.NormalizeRUT(*req.RUT)
	}
	if err := s.repo.UpdateWarehouse(ctx, w); err != nil {
		s.logger.Error("Failed to update warehouse", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return w, nil
}

func (s *service) GetWarehouse(ctx context.Context, id uuid.UUID) (*Warehouse, error) {
	return s.repo.FindWarehouseByID(ctx, id)
}

func (s *service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	return s.repo.FindAllWarehouses(ctx)
}

func (s *service) CreateBranch(ctx context.Context, req CreateBranchRequest) (*Branch, error) {
	if _, err := s.repo.FindWarehouseByID(ctx, req.WarehouseID); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Code == common.ErrNotFound.Code {
			return nil, common.ErrBadRequest.WithDetails("Warehouse does not exist.")
		}
		return nil, err
	}
	b := &Branch{
		Name:        sanitize.Text(req.Name),
		Address:     sanitize.Text(req.Address),
		Description: sanitize.OptionalText(req.Description),
		RUT:         common.NormalizeRUT(req.RUT),
		WarehouseID: req.WarehouseID,
	}
	if err := s.repo.CreateBranch(ctx, b); err != nil {
		s.logger.Error("Failed to create branch", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.logger.Info("Branch created successfully", zap.String("id", b.ID.String()), zap.String("name", b.Name))
	return s.repo.FindBranchByID(ctx, b.ID)
}

func (s *service) UpdateBranch(ctx context.Context, id uuid.UUID, req UpdateBranchRequest) (*Branch, error) {
	b, err := s.repo.FindBranchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		b.Name = sanitize.Text(*req.Name)
	}
	if req.Address != nil {
		b.Address = sanitize.Text(*req.Address)
	}
	if req.Description != nil {
		if d := strings.TrimSpace(*req.Description); d == "" {
			b.Description = nil
		} else {
			b.Description = sanitize.OptionalText(req.Description)
		}
	}
	if req.RUT != nil {
		b.RUT = common.NormalizeRUT(*req.RUT)
	}
	if req.WarehouseID != nil && *req.WarehouseID != b.WarehouseID {
		if _, err := s.repo.FindWarehouseByID(ctx, *req.WarehouseID); err != nil {
			return nil, common.ErrBadRequest.WithDetails("Warehouse does not exist.")
		}
		b.WarehouseID = *req.WarehouseID
		b.Warehouse = nil
	}
	if err := s.repo.UpdateBranch(ctx, b); err != nil {
		s.logger.Error("Failed to update branch", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return s.repo.FindBranchByID(ctx, id)
}

func (s *service) GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error) {
	return s.repo.FindBranchByID(ctx, id)
}

func (s *service) ListBranches(ctx context.Context, warehouseID *uuid.UUID) ([]Branch, error) {
	return s.repo.FindBranches(ctx, warehouseID)
}

func (s *service) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindBranchByID(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountBranchReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return common.ErrConflict.WithDetails("Branch has users, products, requests or orders and cannot be deleted.")
	}
	if err := s.repo.DeleteBranch(ctx, id); err != nil {
		s.logger.Error("Failed to delete branch", zap.Error(err), zap.String("id", id.String()))
		return err
	}
	s.logger.Info("Branch deleted", zap.String("id", id.String()))
	return nil
}
