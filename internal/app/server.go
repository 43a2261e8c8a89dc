// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ordena_backend/internal/analytics"
	"ordena_backend/internal/auth"
	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/config"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/document"
	"ordena_backend/internal/filestorage"
	"ordena_backend/internal/intake"
	"ordena_backend/internal/inventory"
	"ordena_backend/internal/jobs"
	"ordena_backend/internal/location"
	"ordena_backend/internal/middleware"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/product"
	"ordena_backend/internal/report"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/supplier"
	"ordena_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler mounted under /api/v1.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Location     *location.Handler
	Catalog      *catalog.Handler
	Product      *product.Handler
	Inventory    *inventory.Handler
	Supplier     *supplier.Handler
	Courier      *courier.Handler
	Requisition  *requisition.Handler
	Order        *order.Handler
	Intake       *intake.Handler
	Notification *notification.Handler
	Report       *report.Handler
	Analytics    *analytics.Handler
	Document     *document.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	scheduler  *jobs.Scheduler
	limiter    *middleware.RateLimiter
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	h Handlers,
	tokens shared.TokenService,
	blocklist auth.TokenBlocklistService,
	limiter *middleware.RateLimiter,
	scheduler *jobs.Scheduler,
	recorder metrics.Recorder,
	registry *prometheus.Registry,
	files *filestorage.FileStorageService,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := common.RegisterValidators(v); err != nil {
			return nil, fmt.Errorf("registering validators: %w", err)
		}
	}

	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	if recorder != nil {
		router.Use(middleware.Metrics(recorder))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.Chain(
		middleware.AuthMiddleware(tokens, blocklist, logger.Named("AuthMiddleware")),
		limiter.GeneralMiddleware(),
	)
	adminMW := middleware.RoleAuthMiddleware(common.RoleAdmin)
	warehouseMW := middleware.RoleAuthMiddleware(common.RoleAdmin, common.RoleBodega)
	branchMW := middleware.RoleAuthMiddleware(common.RoleAdmin, common.RoleSucursal)
	staffMW := middleware.RoleAuthMiddleware(common.RoleAdmin, common.RoleBodega, common.RoleSucursal)

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Ordena API is healthy!"})
	})
	if registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	}
	if files != nil {
		router.Static("/files", files.Root())
	}

	v1 := router.Group("/api/v1")
	h.Auth.RegisterRoutes(v1, authMW, limiter.LoginMiddleware())
	h.User.RegisterRoutes(v1, authMW, adminMW)
	h.Location.RegisterRoutes(v1, authMW, adminMW)
	h.Catalog.RegisterRoutes(v1, authMW, warehouseMW, adminMW)
	h.Product.RegisterRoutes(v1, authMW, warehouseMW)
	h.Inventory.RegisterRoutes(v1, authMW, warehouseMW)
	h.Supplier.RegisterRoutes(v1, authMW, warehouseMW)
	h.Courier.RegisterRoutes(v1, authMW, warehouseMW)
	h.Requisition.RegisterRoutes(v1, authMW, branchMW, warehouseMW)
	h.Order.RegisterRoutes(v1, authMW, warehouseMW)
	h.Intake.RegisterRoutes(v1, authMW, warehouseMW)
	h.Notification.RegisterRoutes(v1, authMW)
	h.Report.RegisterRoutes(v1, authMW, staffMW, adminMW)
	h.Analytics.RegisterRoutes(v1, authMW)
	h.Document.RegisterRoutes(v1, authMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		scheduler:  scheduler,
		limiter:    limiter,
	}, nil
}

// Router exposes the engine for in-process tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) Start() error {
	if s.scheduler != nil {
		s.scheduler.Start()
	} else {
		s.logger.Info("Job scheduler is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
