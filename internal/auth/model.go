// File: internal/auth/model.go
package auth

import (
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
)

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the public sign-up payload. Unlike POST /users the password is mandatory.
type RegisterRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=150"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"required,min=8,max=72"`
	RUT         string     `json:"rut" binding:"required,rut"`
	Role        string     `json:"role" binding:"required,oneof=admin bodega sucursal transportista"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	BranchID    *uuid.UUID `json:"branch_id"`
}

func (r RegisterRequest) toCreate() user.CreateUserRequest {
	return user.CreateUserRequest{
		Name:        r.Name,
		Email:       r.Email,
		Password:    r.Password,
		RUT:         r.RUT,
		Role:        r.Role,
		WarehouseID: r.WarehouseID,
		BranchID:    r.BranchID,
	}
}

// RefreshTokenRequest defines the structure for refresh token requests.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token so it is revoked too.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is returned by login and register.
type SessionResponse struct {
	User  user.UserResponse     `json:"user"`
	Token *shared.TokenResponse `json:"token"`
}
