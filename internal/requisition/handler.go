// File: internal/requisition/handler.go
package requisition

import (
	"strconv"

	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the /requests endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new request handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /requests. Branch staff create requests and warehouse
// staff decide them; admins may do both.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, createRoleMW, decideRoleMW gin.HandlerFunc) {
	requests := router.Group("/requests", authMW)
	{
		requests.GET("", h.list)
		requests.POST("", createRoleMW, h.create)
		requests.POST("/archive", h.archive)
		requests.GET("/:id", h.get)
		requests.GET("/:id/oci.pdf", h.purchaseOrder)
		requests.PATCH("/:id", decideRoleMW, h.decide)
		requests.DELETE("/:id", h.delete)
	}
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Request created successfully.", r)
}

func (h *Handler) list(c *gin.Context) {
	branchID, err := common.ParseOptionalUUIDQuery(c, "branch_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	warehouseID, err := common.ParseOptionalUUIDQuery(c, "warehouse_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	q := ListQuery{
		Status:          Status(c.Query("status")),
		BranchID:        branchID,
		WarehouseID:     warehouseID,
		PaginationQuery: common.PaginationQuery{Page: page, PageSize: pageSize},
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid archived value."))
			return
		}
		q.Archived = &archived
	}

	reqs, total, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Requests retrieved successfully.", reqs, common.NewPagination(total, page, pageSize))
}

func (h *Handler) get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	r, err := h.service.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Request retrieved successfully.", r)
}

func (h *Handler) decide(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.Decide(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Request updated successfully.", r)
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

func (h *Handler) archive(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	result, err := h.service.Archive(c.Request.Context(), middleware.GetActor(c), req.IDs)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Requests archived.", result)
}

func (h *Handler) purchaseOrder(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	filename, body, err := h.service.PurchaseOrderPDF(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPDF(c, filename, body)
}
