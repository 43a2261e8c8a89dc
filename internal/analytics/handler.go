// File: internal/analytics/handler.go
package analytics

import (
	"ordena_backend/internal/common"
	"ordena_backend/internal/middleware"
	"ordena_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the /dashboard endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	dashboard := router.Group("/dashboard", authMW)
	{
		dashboard.GET("/summary", h.summary)
		dashboard.GET("/approval-rate", h.approvalRate)
		dashboard.GET("/orders-by-branch", h.ordersByBranch)
		dashboard.GET("/top-products", h.topProducts)
		dashboard.GET("/requests-vs-orders", h.requestsVsOrders)
		dashboard.GET("/products-by-branch", h.productsByBranch)
	}
}

// query reads the location, date range and limit shared by the ranking endpoints.
func query(c *gin.Context, defaultLimit int) (Query, error) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		return Query{}, err
	}
	from, to, err := common.ParseDateRange(c)
	if err != nil {
		return Query{}, err
	}
	limit, err := common.ParseIntQuery(c, "limit", defaultLimit)
	if err != nil {
		return Query{}, err
	}
	return Query{LocationFilter: loc, From: from, To: to, Limit: limit}, nil
}

func (h *Handler) summary(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out, err := h.service.Summary(c.Request.Context(), middleware.GetActor(c), loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Dashboard summary retrieved successfully.", out)
}

func (h *Handler) approvalRate(c *gin.Context) {
	q, err := query(c, 0)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out, err := h.service.ApprovalRate(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Approval rate retrieved successfully.", out)
}

func (h *Handler) ordersByBranch(c *gin.Context) {
	q, err := query(c, 0)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out, err := h.service.OrdersByBranch(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Orders by branch retrieved successfully.", out)
}

func (h *Handler) topProducts(c *gin.Context) {
	q, err := query(c, defaultTopLimit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out, err := h.service.TopProducts(c.Request.Context(), middleware.GetActor(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Top products retrieved successfully.", out)
}

func (h *Handler) requestsVsOrders(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	months, err := common.ParseIntQuery(c, "months", defaultMonths)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out, err := h.service.RequestsVsOrders(c.Request.Context(), middleware.GetActor(c), loc, months)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Monthly requests and orders retrieved successfully.", out)
}

func (h *Handler) productsByBranch(c *gin.Context) {
	loc, err := shared.LocationFromQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out, err := h.service.ProductsByBranch(c.Request.Context(), middleware.GetActor(c), loc)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Products by branch retrieved successfully.", out)
}
