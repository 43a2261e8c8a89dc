// File: internal/courier/service.go
package courier

import (
	"context"
	"errors"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/sanitize"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserLookup resolves the account behind a courier.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service defines the business logic for couriers.
type Service interface {
	Create(ctx context.Context, actor shared.Actor, req CreateCourierRequest) (*Courier, error)
	CreateFromUser(ctx context.Context, actor shared.Actor, req FromUserRequest) (*Courier, error)
	Get(ctx context.Context, id uuid.UUID) (*Courier, error)
	List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Courier, error)
	Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateCourierRequest) (*Courier, error)
	Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) (*DeleteResult, error)
}

type service struct {
	repo   Repository
	users  UserLookup
	logger *zap.Logger
}

// NewService creates a new courier service.
func NewService(repo Repository, users UserLookup, logger *zap.Logger) Service {
	return &service{repo: repo, users: users, logger: logger}
}

// warehouseFor picks the warehouse a new courier belongs to: warehouse staff
// always register couriers for their own warehouse.
func warehouseFor(actor shared.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if !actor.IsAdmin() {
		if actor.WarehouseID == nil {
			return uuid.Nil, common.ErrForbidden.WithDetails("Only warehouse staff can manage couriers.")
		}
		return *actor.WarehouseID, nil
	}
	if requested == nil {
		return uuid.Nil, common.NewValidationAPIError(map[string]string{"WarehouseID": "The warehouse_id field is required."})
	}
	return *requested, nil
}

func (s *service) Create(ctx context.Context, actor shared.Actor, req CreateCourierRequest) (*Courier, error) {
	warehouseID, err := warehouseFor(actor, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	c := &Courier{
		Name:         sanitize.Text(req.Name),
		Description:  sanitize.OptionalText(req.Description),
		LicensePlate: common.NormalizePlate(req.LicensePlate),
		WarehouseID:  warehouseID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("Failed to create courier", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Courier created successfully", zap.String("id", c.ID.String()), zap.String("plate", c.LicensePlate))
	return c, nil
}

func (s *service) CreateFromUser(ctx context.Context, actor shared.Actor, req FromUserRequest) (*Courier, error) {
	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role != common.RoleCourier || !u.Active {
		return nil, common.ErrUnprocessableEntity.WithDetails("The user must be an active transportista.")
	}
	if u.WarehouseID == nil {
		return nil, common.ErrUnprocessableEntity.WithDetails("The user is not assigned to a warehouse.")
	}
	if !actor.CanAccessWarehouse(*u.WarehouseID) {
		return nil, common.ErrForbidden.WithDetails("The user belongs to another warehouse.")
	}
	if _, err := s.repo.FindByUserID(ctx, u.ID); err == nil {
		return nil, common.ErrConflict.WithDetails("This user already backs a courier.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	userID := u.ID
	c := &Courier{
		Name:         u.Name,
		Description:  sanitize.OptionalText(req.Description),
		LicensePlate: common.NormalizePlate(req.LicensePlate),
		WarehouseID:  *u.WarehouseID,
		UserID:       &userID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("Failed to create courier from user", zap.Error(err), zap.String("userID", u.ID.String()))
		return nil, err
	}
	s.logger.Info("Courier created from user", zap.String("id", c.ID.String()), zap.String("userID", u.ID.String()))
	return c, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Courier, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Courier, error) {
	if !actor.IsAdmin() && actor.WarehouseID != nil {
		q.WarehouseID = actor.WarehouseID
	}
	return s.repo.List(ctx, q)
}

func (s *service) editable(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Courier, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessWarehouse(c.WarehouseID) {
		return nil, common.ErrForbidden.WithDetails("The courier belongs to another warehouse.")
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateCourierRequest) (*Courier, error) {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = sanitize.Text(*req.Name)
	}
	if req.Description != nil {
		c.Description = sanitize.OptionalText(req.Description)
	}
	if req.LicensePlate != nil {
		c.LicensePlate = common.NormalizePlate(*req.LicensePlate)
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := s.repo.Update(ctx, c); err != nil {
		s.logger.Error("Failed to update courier", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return c, nil
}

// Delete removes a courier that never carried an order. Couriers with
// orders are kept for the dispatch history and only deactivated.
func (s *service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) (*DeleteResult, error) {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	refs, err := s.repo.CountOrderReferences(ctx, id)
	if err != nil {
		return nil, err
	}
	if refs > 0 {
		c.Active = false
		if err := s.repo.Update(ctx, c); err != nil {
			return nil, err
		}
		s.logger.Info("Courier deactivated", zap.String("id", id.String()), zap.Int64("orders", refs))
		return &DeleteResult{Deactivated: true}, nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("Courier deleted", zap.String("id", id.String()))
	return &DeleteResult{Deleted: true}, nil
}
