// File: internal/courier/handler.go
package courier

import (
	"strconv"

	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the /couriers endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new courier handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /couriers. Writes need warehouse staff or admin.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, writeRoleMW gin.HandlerFunc) {
	couriers := router.Group("/couriers", authMW)
	{
		couriers.GET("", h.list)
		couriers.GET("/:id", h.get)
		couriers.POST("", writeRoleMW, h.create)
		couriers.POST("/from-user", writeRoleMW, h.createFromUser)
		couriers.PATCH("/:id", writeRoleMW, h.update)
		couriers.DELETE("/:id", writeRoleMW, h.delete)
	}
}

func (h *Handler) list(c *gin.Context) {
	warehouseID, err := common.ParseOptionalUUIDQuery(c, "warehouse_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	q := ListQuery{WarehouseID: warehouseID}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid active value."))
			return
		}
		q.Active = &active
	}
	couriers, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Couriers retrieved successfully.", couriers)
}

func (h *Handler) get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	courier, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Courier retrieved successfully.", courier)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	courier, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Courier created successfully.", courier)
}

func (h *Handler) createFromUser(c *gin.Context) {
	var req FromUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	courier, err := h.service.CreateFromUser(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Courier created successfully.", courier)
}

func (h *Handler) update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateCourierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	courier, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Courier updated successfully.", courier)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	result, err := h.service.Delete(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if result.Deactivated {
		common.RespondOK(c, "Courier has orders and was deactivated.", result)
		return
	}
	common.RespondOK(c, "Courier deleted successfully.", result)
}
