// File: internal/shared/core.go
package shared

import (
	"time"

	"ordena_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenResponse represents the response containing JWT tokens.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// UserDataForToken is an interface to abstract the user data needed for token generation.
type UserDataForToken interface {
	GetID() uuid.UUID
	GetEmail() string
	GetRole() string
	GetWarehouseID() *uuid.UUID
	GetBranchID() *uuid.UUID
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(userData UserDataForToken) (string, time.Time, error)
	GenerateRefreshToken(userData UserDataForToken) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
	ParseRefreshToken(refreshTokenString string) (*Claims, error)
}

// Claims represents the JWT claims structure
type Claims struct {
	UserID      uuid.UUID  `json:"user_id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	BranchID    *uuid.UUID `json:"branch_id,omitempty"`
	TokenUse    string     `json:"token_use"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller as seen by services: who they are and
// which location they are bound to.
type Actor struct {
	UserID      uuid.UUID
	Role        string
	WarehouseID *uuid.UUID
	BranchID    *uuid.UUID
}

// ActorFromClaims builds an Actor from validated token claims.
func ActorFromClaims(c *Claims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role, WarehouseID: c.WarehouseID, BranchID: c.BranchID}
}

func (a Actor) IsAdmin() bool { return a.Role == common.RoleAdmin }

// CanAccessWarehouse reports whether the actor may read or write data of the warehouse.
func (a Actor) CanAccessWarehouse(id uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return a.WarehouseID != nil && *a.WarehouseID == id
}

// CanAccessBranch reports whether the actor may read or write data of the branch.
// Warehouse staff reach branches through the branch's warehouse, which the caller passes in.
func (a Actor) CanAccessBranch(branchID uuid.UUID, branchWarehouseID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	if a.BranchID != nil && *a.BranchID == branchID {
		return true
	}
	return a.Role == common.RoleBodega && a.WarehouseID != nil && *a.WarehouseID == branchWarehouseID
}

// LocationFilter narrows a query to a warehouse or a branch. At most one is set.
type LocationFilter struct {
	WarehouseID *uuid.UUID
	BranchID    *uuid.UUID
}

// LocationFromQuery reads the warehouse_id and branch_id query parameters.
func LocationFromQuery(c *gin.Context) (LocationFilter, error) {
	wh, err := common.ParseOptionalUUIDQuery(c, "warehouse_id")
	if err != nil {
		return LocationFilter{}, err
	}
	br, err := common.ParseOptionalUUIDQuery(c, "branch_id")
	if err != nil {
		return LocationFilter{}, err
	}
	if wh != nil && br != nil {
		return LocationFilter{}, common.ErrBadRequest.WithDetails("Specify warehouse_id or branch_id, not both.")
	}
	return LocationFilter{WarehouseID: wh, BranchID: br}, nil
}

// IsEmpty reports whether neither location is set.
func (f LocationFilter) IsEmpty() bool { return f.WarehouseID == nil && f.BranchID == nil }

// ScopeTo forces the filter onto the actor's own location for non-admin users.
// Admins keep whatever they asked for.
func (f LocationFilter) ScopeTo(a Actor) LocationFilter {
	if a.IsAdmin() {
		return f
	}
	if a.BranchID != nil {
		return LocationFilter{BranchID: a.BranchID}
	}
	if a.WarehouseID != nil {
		if f.BranchID != nil && a.Role == common.RoleBodega {
			// Warehouse staff may look at a branch; the caller checks the branch belongs to them.
			return LocationFilter{BranchID: f.BranchID}
		}
		return LocationFilter{WarehouseID: a.WarehouseID}
	}
	return f
}
