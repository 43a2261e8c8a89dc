// File: internal/location/handler.go
package location

import (
	"ordena_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the warehouse and branch endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new location handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /warehouses and /branches. Reads need a valid token,
// writes additionally need the admin role.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	warehouses := router.Group("/warehouses", authMW)
	{
		warehouses.GET("", h.listWarehouses)
		warehouses.GET("/:id", h.getWarehouse)
		warehouses.GET("/:id/branches", h.listWarehouseBranches)
		warehouses.POST("", adminRoleMW, h.createWarehouse)
		warehouses.PUT("/:id", adminRoleMW, h.updateWarehouse)
	}

	branches := router.Group("/branches", authMW)
	{
		branches.GET("", h.listBranches)
		branches.GET("/:id", h.getBranch)
		branches.POST("", adminRoleMW, h.createBranch)
		branches.PUT("/:id", adminRoleMW, h.updateBranch)
		branches.DELETE("/:id", adminRoleMW, h.deleteBranch)
	}
}

func (h *Handler) listWarehouses(c *gin.Context) {
	warehouses, err := h.service.ListWarehouses(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Warehouses retrieved successfully.", warehouses)
}

func (h *Handler) getWarehouse(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	w, err := h.service.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Warehouse retrieved successfully.", w)
}

func (h *Handler) listWarehouseBranches(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if _, err := h.service.GetWarehouse(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	branches, err := h.service.ListBranches(c.Request.Context(), &id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Branches retrieved successfully.", branches)
}

func (h *Handler) createWarehouse(c *gin.Context) {
	var req CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	w, err := h.service.CreateWarehouse(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Warehouse created successfully.", w)
}

func (h *Handler) updateWarehouse(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	w, err := h.service.UpdateWarehouse(c.Request.Context(), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Warehouse updated successfully.", w)
}

func (h *Handler) listBranches(c *gin.Context) {
	warehouseID, err := common.ParseOptionalUUIDQuery(c, "warehouse_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	branches, err := h.service.ListBranches(c.Request.Context(), warehouseID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Branches retrieved successfully.", branches)
}

func (h *Handler) getBranch(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	b, err := h.service.GetBranch(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Branch retrieved successfully.", b)
}

func (h *Handler) createBranch(c *gin.Context) {
	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	b, err := h.service.CreateBranch(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Branch created successfully.", b)
}

func (h *Handler) updateBranch(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	b, err := h.service.UpdateBranch(c.Request.Context(), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Branch updated successfully.", b)
}

func (h *Handler) deleteBranch(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.DeleteBranch(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
