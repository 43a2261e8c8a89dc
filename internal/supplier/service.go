// File: internal/supplier/service.go
package supplier

import (
	"context"
	"errors"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/sanitize"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the business logic for suppliers.
type Service interface {
	Create(ctx context.Context, req CreateSupplierRequest) (*Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (*Supplier, error)
	List(ctx context.Context, q ListQuery) ([]Supplier, int64, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateSupplierRequest) (*Supplier, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindOrCreateByRUT returns the supplier registered under req.RUT, creating
	// it from req when none exists. Existing suppliers are not modified.
	FindOrCreateByRUT(ctx context.Context, req CreateSupplierRequest) (*Supplier, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new supplier service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) Create(ctx context.Context, req CreateSupplierRequest) (*Supplier, error) {
	sup := &Supplier{
		Name:         sanitize.Text(req.Name),
		BusinessName: sanitize.Text(req.BusinessName),
		RUT:          common.NormalizeRUT(req.RUT),
		Email:        sanitize.OptionalText(req.Email),
		Phone:        sanitize.OptionalText(req.Phone),
		Address:      sanitize.OptionalText(req.Address),
		ContactName:  sanitize.OptionalText(req.ContactName),
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		s.logger.Error("Failed to create supplier", zap.Error(err), zap.String("rut", sup.RUT))
		return nil, err
	}
	s.logger.Info("Supplier created successfully", zap.String("id", sup.ID.String()), zap.String("rut", sup.RUT))
	return sup, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]Supplier, int64, error) {
	return s.repo.List(ctx, q)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateSupplierRequest) (*Supplier, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		sup.Name = sanitize.Text(*req.Name)
	}
	if req.BusinessName != nil {
		sup.BusinessName = sanitize.Text(*req.BusinessName)
	}
	if req.RUT != nil {
		sup.RUT = common.NormalizeRUT(*req.RUT)
	}
	if req.Email != nil {
		sup.Email = sanitize.OptionalText(req.Email)
	}
	if req.Phone != nil {
		sup.Phone = sanitize.OptionalText(req.Phone)
	}
	if req.Address != nil {
		sup.Address = sanitize.OptionalText(req.Address)
	}
	if req.ContactName != nil {
		sup.ContactName = sanitize.OptionalText(req.ContactName)
	}
	if err := s.repo.Update(ctx, sup); err != nil {
		s.logger.Error("Failed to update supplier", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return sup, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountOrderReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return common.ErrConflict.WithDetails("Supplier has registered receipts and cannot be deleted.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Supplier deleted", zap.String("id", id.String()))
	return nil
}

func (s *service) FindOrCreateByRUT(ctx context.Context, req CreateSupplierRequest) (*Supplier, error) {
	existing, err := s.repo.FindByRUT(ctx, common.NormalizeRUT(req.RUT))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return s.Create(ctx, req)
}
