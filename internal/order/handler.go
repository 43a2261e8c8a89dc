// File: internal/order/handler.go
package order

import (
	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the /orders endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new order handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /orders. writeRoleMW guards creation and edits;
// status changes and reception are authorized per order by the service.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, writeRoleMW gin.HandlerFunc) {
	orders := router.Group("/orders", authMW)
	{
		orders.GET("", h.list)
		orders.GET("/recent", h.recent)
		orders.POST("", writeRoleMW, h.create)
		orders.POST("/from-request", writeRoleMW, h.createFromRequest)
		orders.GET("/:id", h.get)
		orders.PATCH("/:id", writeRoleMW, h.update)
		orders.DELETE("/:id", writeRoleMW, h.delete)
		orders.POST("/:id/status", h.changeStatus)
		orders.POST("/:id/confirm-reception", h.confirmReception)
		orders.GET("/:id/status-history", h.history)
		orders.GET("/:id/dispatch-guide.pdf", h.dispatchGuide)
		orders.GET("/:id/receipt-act.pdf", h.receiptAct)
	}
}

func (h *Handler) create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	o, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Order created successfully.", o)
}

func (h *Handler) createFromRequest(c *gin.Context) {
	var req FromRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	o, err := h.service.CreateFromRequest(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Order created from request.", o)
}

func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	var err error
	if q.BranchID, err = common.ParseOptionalUUIDQuery(c, "branch_id"); err != nil {
		common.RespondWithError(c, err)
		return
	}
	if q.WarehouseID, err = common.ParseOptionalUUIDQuery(c, "warehouse_id"); err != nil {
		common.RespondWithError(c, err)
		return
	}
	if q.CourierID, err = common.ParseOptionalUUIDQuery(c, "courier_id"); err != nil {
		common.RespondWithError(c, err)
		return
	}
	if q.From, q.To, err = common.ParseDateRange(c); err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	q.Status = Status(c.Query("status"))
	q.Kind = Kind(c.Query("kind"))
	q.PaginationQuery = common.PaginationQuery{Page: page, PageSize: pageSize}

	orders, total, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Orders retrieved successfully.", orders, common.NewPagination(total, page, pageSize))
}

func (h *Handler) recent(c *gin.Context) {
	limit, err := common.ParseIntQuery(c, "limit", defaultRecentLimit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	orders, err := h.service.Recent(c.Request.Context(), middleware.GetActor(c), limit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Recent orders retrieved successfully.", orders)
}

func (h *Handler) get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	o, err := h.service.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Order retrieved successfully.", o)
}

func (h *Handler) update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	o, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Order updated successfully.", o)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) changeStatus(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	o, err := h.service.ChangeStatus(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Order status updated.", o)
}

func (h *Handler) confirmReception(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req ReceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	o, err := h.service.ConfirmReception(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Reception confirmed.", o)
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
	common.RespondOK(c, "Status history retrieved successfully.", history)
}

func (h *Handler) dispatchGuide(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	filename, body, err := h.service.DispatchGuidePDF(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPDF(c, filename, body)
}

func (h *Handler) receiptAct(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	filename, body, err := h.service.ReceiptActPDF(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPDF(c, filename, body)
}
