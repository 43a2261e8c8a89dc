// File: internal/catalog/handler.go
package catalog

import (
	"ordena_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves /brands and /categories.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new catalog handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the brand and category routes. Deleting is admin only;
// warehouse staff may create entries while loading products.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, writeRoleMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	brands := router.Group("/brands", authMW)
	{
		brands.GET("", h.listBrands)
		brands.POST("", writeRoleMW, h.createBrand)
		brands.DELETE("/:id", adminRoleMW, h.deleteBrand)
	}
	categories := router.Group("/categories", authMW)
	{
		categories.GET("", h.listCategories)
		categories.POST("", writeRoleMW, h.createCategory)
		categories.DELETE("/:id", adminRoleMW, h.deleteCategory)
	}
}

func (h *Handler) listBrands(c *gin.Context) {
	brands, err := h.service.ListBrands(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]Entry, len(brands))
	for i := range brands {
		out[i] = ToBrandEntry(&brands[i])
	}
	common.RespondOK(c, "Brands retrieved successfully.", out)
}

func (h *Handler) createBrand(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	b, err := h.service.CreateBrand(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Brand created successfully.", ToBrandEntry(b))
}

func (h *Handler) deleteBrand(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.DeleteBrand(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]Entry, len(categories))
	for i := range categories {
		out[i] = ToCategoryEntry(&categories[i])
	}
	common.RespondOK(c, "Categories retrieved successfully.", out)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	cat, err := h.service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Category created successfully.", ToCategoryEntry(cat))
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
