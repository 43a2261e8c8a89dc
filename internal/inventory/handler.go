// File: internal/inventory/handler.go
package inventory

import (
	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"
	"ordena_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves stock adjustments, product history and inventory listings.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new inventory handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /products/:id/stock, /products/:id/history and /inventory.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, writeRoleMW gin.HandlerFunc) {
	products := router.Group("/products", authMW)
	{
		products.PUT("/:id/stock", writeRoleMW, h.adjust)
		products.GET("/:id/history", h.history)
	}

	inventory := router.Group("/inventory", authMW)
	{
		inventory.GET("/movements", h.movements)
		inventory.GET("/recent-activity", h.recentActivity)
		inventory.GET("/low-stock", h.lowStock)
	}
}

func (h *Handler) adjust(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	result, err := h.service.Adjust(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Stock updated successfully.", result)
}

func (h *Handler) history(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	history, err := h.service.History(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product history retrieved successfully.", history)
}

func (h *Handler) movements(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	productID, err := common.ParseOptionalUUIDQuery(c, "product_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	from, to, err := common.ParseDateRange(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	q := MovementQuery{
		LocationFilter:  loc,
		ProductID:       productID,
		Type:            MovementType(c.Query("type")),
		From:            from,
		To:              to,
		PaginationQuery: common.PaginationQuery{Page: page, PageSize: pageSize},
	}

	movements, total, stats, err := h.service.Movements(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Movements retrieved successfully.", gin.H{
		"movements":  movements,
		"statistics": stats,
	}, common.NewPagination(total, page, pageSize))
}

func (h *Handler) recentActivity(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	days, err := common.ParseIntQuery(c, "days", defaultActivityDays)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	activity, err := h.service.RecentActivity(c.Request.Context(), middleware.GetActor(c), days, loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Recent activity retrieved successfully.", activity)
}

func (h *Handler) lowStock(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	products, err := h.service.LowStock(c.Request.Context(), middleware.GetActor(c), loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Low stock products retrieved successfully.", products)
}
