// File: internal/document/handler.go
package document

import (
	"strings"

	"ordena_backend/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler serves /documents.
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	docs := router.Group("/documents", authMW)
	docs.GET("/validate", h.validate)
}

func (h *Handler) validate(c *gin.Context) {
	number := strings.TrimSpace(c.Query("number"))
	if number == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("number is required."))
		return
	}
	common.RespondOK(c, "Document number checked.", Check(number))
}
