// File: internal/report/handler.go
package report

import (
	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /reports. writeRoleMW guards authoring; adminMW guards
// the orphan cleanup.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, writeRoleMW, adminMW gin.HandlerFunc) {
	reports := router.Group("/reports", authMW)
	{
		reports.GET("", h.list)
		reports.POST("", writeRoleMW, h.create)
		reports.POST("/generate", writeRoleMW, h.generate)
		reports.POST("/cleanup-orphans", adminMW, h.cleanup)
		reports.GET("/:id", h.get)
		reports.PATCH("/:id", writeRoleMW, h.update)
		reports.DELETE("/:id", writeRoleMW, h.delete)
	}
}

func (h *Handler) create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Report created successfully.", r)
}

func (h *Handler) generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.Generate(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Report generated successfully.", r)
}

func (h *Handler) list(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	q := ListQuery{
		Module:          Module(c.Query("module")),
		PaginationQuery: common.PaginationQuery{Page: page, PageSize: pageSize},
	}
	reports, total, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reports retrieved successfully.", reports, common.NewPagination(total, page, pageSize))
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
	common.RespondOK(c, "Report retrieved successfully.", r)
}

func (h *Handler) update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	r, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Report updated successfully.", r)
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

func (h *Handler) cleanup(c *gin.Context) {
	n, err := h.service.CleanupOrphans(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Orphan reports removed.", CleanupResult{Deleted: n})
}
