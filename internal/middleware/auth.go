// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"ordena_backend/internal/common"
	"ordena_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenBlocklist reports revoked token IDs.
type TokenBlocklist interface {
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication. It does not
// call c.Next so that it can be composed with other checks; gin continues
// the chain once it returns without aborting.
func AuthMiddleware(tokenService shared.TokenService, blocklist TokenBlocklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeader)
		if authHeader == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], common.AuthorizationTypeBearer) {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}
		if claims.TokenUse != "access" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Refresh tokens cannot be used to access the API."))
			return
		}

		if blocklist != nil && claims.ID != "" {
			revoked, err := blocklist.IsBlocklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error("Blocklist lookup failed", zap.Error(err))
				common.RespondWithError(c, common.ErrServiceUnavailable)
				return
			}
			if revoked {
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Token has been revoked."))
				return
			}
		}

		c.Set(common.UserIDKey, claims.UserID)
		c.Set(common.UserEmailKey, claims.Email)
		c.Set(common.UserRoleKey, claims.Role)
		c.Set(common.UserClaimsKey, claims)
	}
}

// GetUserClaimsFromContext retrieves the full claims object from the Gin context.
func GetUserClaimsFromContext(c *gin.Context) *shared.Claims {
	val, exists := c.Get(common.UserClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := val.(*shared.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetActor returns the authenticated caller, or a zero Actor on public routes.
func GetActor(c *gin.Context) shared.Actor {
	return shared.ActorFromClaims(GetUserClaimsFromContext(c))
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}

		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}

// Chain runs handlers in order as a single middleware and stops at the first
// one that aborts. Only the last handler may call c.Next.
func Chain(handlers ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
