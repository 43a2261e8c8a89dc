// File: internal/user/handler.go
package user

import (
	"strconv"

	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the /users routes. Listing is open to admins and
// warehouse staff; every other write is admin only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	users := router.Group("/users", authMW)
	{
		users.PUT("/me/device-token", h.setDeviceToken)
		users.GET("", middleware.RoleAuthMiddleware(common.RoleAdmin, common.RoleBodega), h.list)
		users.POST("", adminRoleMW, h.create)
		users.GET("/:id", h.get)
		users.PATCH("/:id", adminRoleMW, h.update)
		users.DELETE("/:id", adminRoleMW, h.deactivate)
	}
}

func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	q.Role = c.Query("role")
	var err error
	if q.WarehouseID, err = common.ParseOptionalUUIDQuery(c, "warehouse_id"); err != nil {
		common.RespondWithError(c, err)
		return
	}
	if q.BranchID, err = common.ParseOptionalUUIDQuery(c, "branch_id"); err != nil {
		common.RespondWithError(c, err)
		return
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid active flag."))
			return
		}
		q.Active = &active
	}
	q.Page, q.PageSize = common.GetPaginationParams(c)

	users, total, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i])
	}
	common.RespondPaginated(c, "Users retrieved successfully.", out, common.NewPagination(total, q.Page, q.PageSize))
}

func (h *Handler) create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create user: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, temporary, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "User created successfully.", CreatedUserResponse{User: ToUserResponse(u), TemporaryPassword: temporary})
}

func (h *Handler) get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	actor := middleware.GetActor(c)
	u, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if !actor.IsAdmin() && actor.UserID != id && !sameWarehouseStaff(actor.Role, actor.WarehouseID, u) {
		h.logger.Warn("User attempting to fetch another user's profile",
			zap.String("requestingUserID", actor.UserID.String()),
			zap.String("targetUserID", id.String()))
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You are not authorized to view this profile."))
		return
	}
	common.RespondOK(c, "User retrieved successfully.", ToUserResponse(u))
}

func sameWarehouseStaff(role string, warehouseID *uuid.UUID, target *User) bool {
	return role == common.RoleBodega && warehouseID != nil && target.WarehouseID != nil && *warehouseID == *target.WarehouseID
}

func (h *Handler) update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User updated successfully.", ToUserResponse(u))
}

func (h *Handler) deactivate(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) setDeviceToken(c *gin.Context) {
	var req DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	if err := h.service.SetDeviceToken(c.Request.Context(), userID, req.Token); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Device token registered.", nil)
}
