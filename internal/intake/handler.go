// File: internal/intake/handler.go
package intake

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

// RegisterRoutes mounts /intake for warehouse staff.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, roleMW gin.HandlerFunc) {
	intake := router.Group("/intake", authMW, roleMW)
	{
		intake.POST("/extract", h.extract)
		intake.POST("/match", h.match)
		intake.POST("/commit", h.commit)
	}
}

func (h *Handler) extract(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A PDF file is required in the 'file' field."))
		return
	}
	result, err := h.service.Extract(c.Request.Context(), middleware.GetActor(c), file)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Document extracted successfully.", result)
}

func (h *Handler) match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	results, err := h.service.Match(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Lines matched successfully.", results)
}

func (h *Handler) commit(c *gin.Context) {
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	result, err := h.service.Commit(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Goods received successfully.", result)
}
