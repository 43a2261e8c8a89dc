// File: internal/app/providers.go
package app

import (
	"context"
	"time"

	"ordena_backend/internal/analytics"
	"ordena_backend/internal/config"
	"ordena_backend/internal/document"
	"ordena_backend/internal/filestorage"
	"ordena_backend/internal/firebase"
	"ordena_backend/internal/jobs"
	"ordena_backend/internal/location"
	"ordena_backend/internal/middleware"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/platform/cache"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/elasticsearch"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/product"
	"ordena_backend/internal/report"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProvideDatabase opens the configured database. SQLite databases are
// auto-migrated on start; PostgreSQL is migrated with `ordena migrate up`.
func ProvideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBDriver == config.DriverSQLite {
		if err := AutoMigrate(db); err != nil {
			database.CloseGORMDB(db, logger)
			return nil, nil, err
		}
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

// ProvideCache picks the Redis or in-memory store and closes it on cleanup.
func ProvideCache(cfg *config.Config, logger *zap.Logger) (cache.Store, func(), error) {
	store, err := cache.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close cache", zap.Error(err))
		}
	}, nil
}

// ProvideRegistry returns nil when METRICS_ENABLED is false.
func ProvideRegistry(cfg *config.Config) *prometheus.Registry {
	if !cfg.MetricsEnabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideRecorder(reg *prometheus.Registry) metrics.Recorder {
	if reg == nil {
		return metrics.Nop{}
	}
	return metrics.NewCollector(reg)
}

// ProvidePusher keeps a disabled Firebase service from becoming a non-nil interface.
func ProvidePusher(fs *firebase.FirebaseService) notification.Pusher {
	if fs == nil {
		return nil
	}
	return fs
}

// ProvideSearchIndex makes sure the products index exists before the index
// is handed out. A failure is logged and search keeps working through SQL
// until `ordena sync-products` is run.
func ProvideSearchIndex(client *elasticsearch.ESClientWrapper, logger *zap.Logger) *product.SearchIndex {
	index := product.NewSearchIndex(client, logger)
	if index.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := elasticsearch.CreateProductsIndexIfNotExists(ctx, client, logger); err != nil {
			logger.Error("Failed to create Elasticsearch products index", zap.Error(err))
		}
	}
	return index
}

func ProvideFileStorage(cfg *config.Config, logger *zap.Logger) (*filestorage.FileStorageService, error) {
	return filestorage.NewFileStorageService(cfg.StoragePath, logger.Named("filestorage"))
}

func ProvideRenderer(cfg *config.Config) *document.Renderer {
	return document.NewRenderer(cfg.DocumentLocation(), cfg.DocumentApproverName)
}

func ProvideNumberer(cfg *config.Config, db *gorm.DB, tx *database.Transactor) *document.Numberer {
	return document.NewNumberer(db, tx, cfg.DocumentLocation())
}

func ProvideRateLimiter(cfg *config.Config, logger *zap.Logger) (*middleware.RateLimiter, func()) {
	rl := middleware.NewRateLimiter(
		middleware.RateLimiterConfigFrom(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.LoginRateLimitPerMinute),
		logger.Named("ratelimit"),
	)
	return rl, rl.Stop
}

func ProvideAnalyticsService(
	cfg *config.Config,
	repo analytics.Repository,
	branches location.BranchFinder,
	unread analytics.UnreadCounter,
	store cache.Store,
	logger *zap.Logger,
) analytics.Service {
	return analytics.NewService(repo, branches, unread, store, cfg.CacheTTL, cfg.DocumentLocation(), logger.Named("analytics"))
}

func ProvideReportService(cfg *config.Config, repo report.Repository, figures report.Figures, logger *zap.Logger) report.Service {
	return report.NewService(repo, figures, cfg.DocumentLocation(), logger.Named("report"))
}

// ProvideScheduler registers the background jobs on their configured schedules.
func ProvideScheduler(
	cfg *config.Config,
	recorder metrics.Recorder,
	products product.Repository,
	notifications notification.Service,
	reports report.Service,
	logger *zap.Logger,
) (*jobs.Scheduler, error) {
	s := jobs.NewScheduler(recorder, logger)
	if err := s.Register(cfg.LowStockJobSchedule, jobs.NewLowStockJob(products, notifications, logger)); err != nil {
		return nil, err
	}
	if err := s.Register(cfg.ReportCleanupJobSchedule, jobs.NewReportCleanupJob(reports)); err != nil {
		return nil, err
	}
	return s, nil
}
