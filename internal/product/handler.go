// File: internal/product/handler.go
package product

import (
	"net/http"
	"strconv"

	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"
	"ordena_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageUploadBytes = 5 << 20

// Handler serves the /products endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new product handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /products. writeRoleMW guards every mutation.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, writeRoleMW gin.HandlerFunc) {
	products := router.Group("/products", authMW)
	{
		products.GET("", h.list)
		products.GET("/inactive", h.listInactive)
		products.GET("/search", h.search)
		products.GET("/qr-list", h.qrList)
		products.GET("/suggest-code", h.suggestCode)
		products.GET("/by-code/:code", h.getByCode)
		products.POST("/validate", h.validate)
		products.POST("/similar", h.similar)
		products.POST("", writeRoleMW, h.create)
		products.POST("/reactivate", writeRoleMW, h.reactivateMany)

		products.GET("/:id", h.get)
		products.GET("/:id/qr", h.qr)
		products.PUT("/:id", writeRoleMW, h.update)
		products.DELETE("/:id", writeRoleMW, h.deactivate)
		products.POST("/:id/reactivate", writeRoleMW, h.reactivateOne)
		products.POST("/:id/image", writeRoleMW, h.uploadImage)
	}
}

func parseBoolQuery(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails("Invalid " + name + " value.")
	}
	return &v, nil
}

func listQueryFrom(c *gin.Context) (ListQuery, error) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		return ListQuery{}, err
	}
	q := ListQuery{LocationFilter: loc, Search: c.Query("q")}
	if q.BrandID, err = common.ParseOptionalUUIDQuery(c, "brand_id"); err != nil {
		return q, err
	}
	if q.CategoryID, err = common.ParseOptionalUUIDQuery(c, "category_id"); err != nil {
		return q, err
	}
	lowStock, err := parseBoolQuery(c, "low_stock")
	if err != nil {
		return q, err
	}
	q.LowStock = lowStock != nil && *lowStock
	if q.Active, err = parseBoolQuery(c, "active"); err != nil {
		return q, err
	}
	q.Page, q.PageSize = common.GetPaginationParams(c)
	return q, nil
}

func (h *Handler) list(c *gin.Context) {
	q, err := listQueryFrom(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if q.Active == nil {
		active := true
		q.Active = &active
	}
	products, total, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Products retrieved successfully.", products, common.NewPagination(total, q.Page, q.PageSize))
}

func (h *Handler) listInactive(c *gin.Context) {
	q, err := listQueryFrom(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	inactive := false
	q.Active = &inactive
	products, total, err := h.service.List(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Inactive products retrieved successfully.", products, common.NewPagination(total, q.Page, q.PageSize))
}

func (h *Handler) search(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Query parameter q is required."))
		return
	}
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	products, err := h.service.Search(c.Request.Context(), middleware.GetActor(c), term, loc, limit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Search completed successfully.", products)
}

func (h *Handler) qrList(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	payloads, err := h.service.QRList(c.Request.Context(), middleware.GetActor(c), loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "QR payloads retrieved successfully.", payloads)
}

func (h *Handler) suggestCode(c *gin.Context) {
	categoryID, err := common.ParseOptionalUUIDQuery(c, "category_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	name := c.Query("name")
	if categoryID == nil || name == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("category_id and name are required."))
		return
	}
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	code, err := h.service.SuggestCode(c.Request.Context(), middleware.GetActor(c), *categoryID, name, loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Code suggested successfully.", gin.H{"code": code})
}

func (h *Handler) getByCode(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	p, err := h.service.GetByCode(c.Request.Context(), middleware.GetActor(c), c.Param("code"), loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product retrieved successfully.", p)
}

func (h *Handler) validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Validation completed.", result)
}

func (h *Handler) similar(c *gin.Context) {
	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	similar, err := h.service.FindSimilar(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Similar products retrieved successfully.", similar)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), in)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Product created successfully.", p)
}

func (h *Handler) reactivateMany(c *gin.Context) {
	var req ReactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	h.reactivate(c, req.IDs)
}

func (h *Handler) reactivateOne(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.reactivate(c, []uuid.UUID{id})
}

func (h *Handler) reactivate(c *gin.Context, ids []uuid.UUID) {
	n, err := h.service.Reactivate(c.Request.Context(), middleware.GetActor(c), ids)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Products reactivated successfully.", gin.H{"reactivated": n})
}

func (h *Handler) get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	p, err := h.service.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product retrieved successfully.", p)
}

func (h *Handler) qr(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	png, err := h.service.QRCode(c.Request.Context(), middleware.GetActor(c), id, size)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Update(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product updated successfully.", p)
}

func (h *Handler) deactivate(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product deactivated successfully.", nil)
}

func (h *Handler) uploadImage(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageUploadBytes)
	file, err := c.FormFile("image")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("An image file is required in field 'image'."))
		return
	}
	p, err := h.service.SetImage(c.Request.Context(), middleware.GetActor(c), id, file)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product image updated successfully.", p)
}
