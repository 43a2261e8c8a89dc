// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/crypto"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/sanitize"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const temporaryPasswordLength = 12

// LocationLookup resolves the warehouses and branches users are bound to.
type LocationLookup interface {
	GetWarehouse(ctx context.Context, id uuid.UUID) (*location.Warehouse, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*location.Branch, error)
}

// Service defines user management operations.
type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, string, error)
	Register(ctx context.Context, req CreateUserRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]User, error)
	List(ctx context.Context, actor shared.Actor, q ListQuery) ([]User, int64, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	SetDeviceToken(ctx context.Context, id uuid.UUID, token string) error
	RehashLegacyPasswords(ctx context.Context) (int, error)
}

type service struct {
	repo      Repository
	locations LocationLookup
	tx        *database.Transactor
	logger    *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, locations LocationLookup, tx *database.Transactor, logger *zap.Logger) Service {
	return &service{repo: repo, locations: locations, tx: tx, logger: logger}
}

// Create stores a new user. When no password is given a temporary one is
// generated and returned so the administrator can hand it over.
func (s *service) Create(ctx context.Context, req CreateUserRequest) (*User, string, error) {
	var temporary string
	if req.Password == "" {
		generated, err := crypto.GenerateTemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return nil, "", fmt.Errorf("generating temporary password: %w", err)
		}
		temporary = generated
		req.Password = generated
	}
	u, err := s.create(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return u, temporary, nil
}

// Register is the public sign-up path. It cannot create administrators and
// always needs a password.
func (s *service) Register(ctx context.Context, req CreateUserRequest) (*User, error) {
	if req.Role == common.RoleAdmin {
		return nil, common.ErrForbidden.WithDetails("Administrator accounts cannot be self-registered.")
	}
	if len(req.Password) < 8 {
		return nil, common.NewValidationAPIError(map[string]string{"Password": "The password field must be at least 8."})
	}
	return s.create(ctx, req)
}

func (s *service) create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := s.checkAssignment(ctx, req.Role, req.WarehouseID, req.BranchID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.ErrConflict.WithDetails("User with this email already exists.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		RUT:          common.NormalizeRUT(req.RUT),
		Name:         sanitize.Text(req.Name),
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         req.Role,
		WarehouseID:  req.WarehouseID,
		BranchID:     req.BranchID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("Failed to create user in repository", zap.Error(err), zap.String("email", req.Email))
		return nil, err
	}
	s.logger.Info("User created successfully", zap.String("userID", u.ID.String()), zap.String("role", u.Role))
	return u, nil
}

// checkAssignment enforces the role/location pairing: warehouse staff and
// couriers belong to a warehouse, branch staff to a branch, admins to neither.
func (s *service) checkAssignment(ctx context.Context, role string, warehouseID, branchID *uuid.UUID) error {
	fields := map[string]string{}
	switch {
	case common.RequiresWarehouse(role):
		if warehouseID == nil {
			fields["WarehouseID"] = "Users with role " + role + " must be assigned to a warehouse."
		}
		if branchID != nil {
			fields["BranchID"] = "Users with role " + role + " cannot be assigned to a branch."
		}
	case common.RequiresBranch(role):
		if branchID == nil {
			fields["BranchID"] = "Users with role " + role + " must be assigned to a branch."
		}
		if warehouseID != nil {
			fields["WarehouseID"] = "Users with role " + role + " cannot be assigned to a warehouse."
		}
	case role == common.RoleAdmin:
		if warehouseID != nil || branchID != nil {
			fields["Role"] = "Administrators are not bound to a warehouse or branch."
		}
	default:
		fields["Role"] = "Unknown role."
	}
	if len(fields) > 0 {
		return common.NewValidationAPIError(fields)
	}

	if warehouseID != nil {
		if _, err := s.locations.GetWarehouse(ctx, *warehouseID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.NewValidationAPIError(map[string]string{"WarehouseID": "Warehouse does not exist."})
			}
			return err
		}
	}
	if branchID != nil {
		if _, err := s.locations.GetBranch(ctx, *branchID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.NewValidationAPIError(map[string]string{"BranchID": "Branch does not exist."})
			}
			return err
		}
	}
	return nil
}

// Authenticate checks credentials. Unknown e-mail, wrong password and inactive
// accounts all produce the same 401 so callers cannot probe for accounts.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	invalid := common.ErrUnauthorized.WithDetails("Invalid email or password.")

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info("User not found during login", zap.String("email", email))
			return nil, invalid
		}
		s.logger.Error("Error finding user by email during login", zap.Error(err), zap.String("email", email))
		return nil, err
	}
	if !u.Active {
		s.logger.Warn("Inactive user attempted to log in", zap.String("userID", u.ID.String()))
		return nil, invalid
	}
	if !CheckPasswordHash(password, u.PasswordHash) {
		s.logger.Warn("Invalid password attempt", zap.String("userID", u.ID.String()))
		return nil, invalid
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	if err := s.repo.Update(ctx, u); err != nil {
		// Not critical for authentication.
		s.logger.Error("Failed to update last login time", zap.Error(err), zap.String("userID", u.ID.String()))
	}
	return u, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]User, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// List returns users visible to the actor. Warehouse staff only see the
// employees of their warehouse and its branches.
func (s *service) List(ctx context.Context, actor shared.Actor, q ListQuery) ([]User, int64, error) {
	switch {
	case actor.IsAdmin():
	case actor.Role == common.RoleBodega && actor.WarehouseID != nil:
		q.EmployeesOf = actor.WarehouseID
	default:
		return nil, 0, common.ErrForbidden.WithDetails("You are not allowed to list users.")
	}
	return s.repo.List(ctx, q)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	var updated *User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		u, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		wasActiveAdmin := u.Role == common.RoleAdmin && u.Active

		if req.Name != nil {
			u.Name = sanitize.Text(*req.Name)
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.RUT != nil {
			u.RUT = common.NormalizeRUT(*req.RUT)
		}
		if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
			if len(*req.Password) < 8 {
				return common.NewValidationAPIError(map[string]string{"Password": "The password field must be at least 8."})
			}
			hash, err := HashPassword(*req.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			u.PasswordHash = hash
		}
		if req.Role != nil {
			u.Role = *req.Role
		}
		if req.ClearLocation {
			u.WarehouseID, u.BranchID = nil, nil
		}
		if req.WarehouseID != nil {
			u.WarehouseID = req.WarehouseID
		}
		if req.BranchID != nil {
			u.BranchID = req.BranchID
		}
		if req.Active != nil {
			u.Active = *req.Active
		}
		// Role changes drop whatever binding the new role does not allow.
		switch {
		case u.Role == common.RoleAdmin:
			u.WarehouseID, u.BranchID = nil, nil
		case common.RequiresWarehouse(u.Role):
			u.BranchID = nil
		case common.RequiresBranch(u.Role):
			u.WarehouseID = nil
		}
		if err := s.checkAssignment(ctx, u.Role, u.WarehouseID, u.BranchID); err != nil {
			return err
		}
		if wasActiveAdmin && (u.Role != common.RoleAdmin || !u.Active) {
			if err := s.ensureAnotherAdmin(ctx); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User updated", zap.String("userID", id.String()))
	return updated, nil
}

// Deactivate soft-deletes a user. The last active administrator is kept.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		u, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !u.Active {
			return nil
		}
		if u.Role == common.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx); err != nil {
				return err
			}
		}
		u.Active = false
		u.DeviceToken = nil
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		s.logger.Info("User deactivated", zap.String("userID", id.String()))
		return nil
	})
}

func (s *service) ensureAnotherAdmin(ctx context.Context) error {
	n, err := s.repo.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return common.ErrConflict.WithDetails("The last active administrator cannot be deactivated or demoted.")
	}
	return nil
}

func (s *service) SetDeviceToken(ctx context.Context, id uuid.UUID, token string) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	t := strings.TrimSpace(token)
	u.DeviceToken = &t
	return s.repo.Update(ctx, u)
}

// RehashLegacyPasswords replaces plaintext passwords carried over from an old
// database with their bcrypt hash. It returns how many users were updated.
func (s *service) RehashLegacyPasswords(ctx context.Context) (int, error) {
	users, err := s.repo.FindLegacyPasswords(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, u := range users {
		if u.PasswordHash == "" || IsBcryptHash(u.PasswordHash) {
			continue
		}
		hash, err := HashPassword(u.PasswordHash)
		if err != nil {
			return updated, fmt.Errorf("hashing password of %s: %w", u.ID, err)
		}
		if err := s.repo.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return updated, fmt.Errorf("storing password of %s: %w", u.ID, err)
		}
		updated++
	}
	s.logger.Info("Legacy passwords re-hashed", zap.Int("count", updated))
	return updated, nil
}
