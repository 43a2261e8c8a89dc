// File: internal/auth/handler.go
package auth

import (
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	userService  user.Service
	tokenService shared.TokenService
	blocklist    TokenBlocklistService
	logger       *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(
	userService user.Service,
	tokenService shared.TokenService,
	blocklist TokenBlocklistService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userService:  userService,
		tokenService: tokenService,
		blocklist:    blocklist,
		logger:       logger,
	}
}

// RegisterRoutes sets up the routes for authentication operations. loginMW
// throttles credential guessing per client IP.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, loginMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", loginMW, h.login)
		authGroup.POST("/register", loginMW, h.register)
		authGroup.POST("/refresh-token", h.refreshToken)
		authGroup.POST("/logout", authMW, h.logout)
		authGroup.GET("/me", authMW, h.me)
	}
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Login: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	u, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	tokens, err := h.issueTokens(u)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Info("User logged in successfully", zap.String("userID", u.ID.String()))
	common.RespondOK(c, "Login successful.", SessionResponse{User: user.ToUserResponse(u), Token: tokens})
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Register: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, err := h.userService.Register(c.Request.Context(), req.toCreate())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	tokens, err := h.issueTokens(u)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "User registered successfully.", SessionResponse{User: user.ToUserResponse(u), Token: tokens})
}

func (h *Handler) issueTokens(u *user.User) (*shared.TokenResponse, error) {
	accessToken, accessExpiresAt, err := h.tokenService.GenerateAccessToken(u)
	if err != nil {
		h.logger.Error("Failed to generate access token", zap.Error(err), zap.String("userID", u.ID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate access token.")
	}
	refreshToken, _, err := h.tokenService.GenerateRefreshToken(u)
	if err != nil {
		h.logger.Error("Failed to generate refresh token", zap.Error(err), zap.String("userID", u.ID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate refresh token.")
	}
	return &shared.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    accessExpiresAt,
	}, nil
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Refresh token: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	invalid := common.ErrUnauthorized.WithDetails("Invalid or expired refresh token.")

	claims, err := h.tokenService.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		h.logger.Warn("Refresh token validation failed", zap.Error(err))
		common.RespondWithError(c, invalid)
		return
	}
	revoked, err := h.blocklist.IsBlocklisted(c.Request.Context(), claims.ID)
	if err != nil {
		h.logger.Error("Blocklist lookup failed", zap.Error(err))
		common.RespondWithError(c, common.ErrServiceUnavailable)
		return
	}
	if revoked {
		common.RespondWithError(c, invalid)
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || !u.Active {
		h.logger.Warn("Refresh token for missing or inactive user", zap.String("userID", claims.UserID.String()))
		common.RespondWithError(c, invalid)
		return
	}

	newAccessToken, newAccessExpiresAt, err := h.tokenService.GenerateAccessToken(u)
	if err != nil {
		h.logger.Error("Failed to generate new access token during refresh", zap.Error(err), zap.String("userID", u.ID.String()))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not generate new access token."))
		return
	}
	common.RespondOK(c, "Token refreshed successfully.", &shared.TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    newAccessExpiresAt,
	})
}

// logout revokes the access token used for the call and, when supplied, the refresh token.
func (h *Handler) logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondWithError(c, common.BindingError(err))
			return
		}
	}
	ctx := c.Request.Context()

	claims := middleware.GetUserClaimsFromContext(c)
	if claims == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	if err := h.blocklist.AddToBlocklist(ctx, claims.ID, expiry(claims)); err != nil {
		h.logger.Error("Failed to blocklist access token", zap.Error(err))
		common.RespondWithError(c, err)
		return
	}

	if req.RefreshToken != "" {
		refresh, err := h.tokenService.ParseRefreshToken(req.RefreshToken)
		if err == nil && refresh.UserID == claims.UserID {
			if err := h.blocklist.AddToBlocklist(ctx, refresh.ID, expiry(refresh)); err != nil {
				h.logger.Error("Failed to blocklist refresh token", zap.Error(err))
				common.RespondWithError(c, err)
				return
			}
		}
	}
	h.logger.Info("User logged out", zap.String("userID", claims.UserID.String()))
	common.RespondOK(c, "Logged out successfully.", nil)
}

func (h *Handler) me(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", user.ToUserResponse(u))
}

func expiry(claims *shared.Claims) time.Time {
	if claims.ExpiresAt == nil {
		return time.Now().Add(time.Hour)
	}
	return claims.ExpiresAt.Time
}
