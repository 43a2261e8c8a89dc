// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"ordena_backend/internal/analytics"
	"ordena_backend/internal/app"
	"ordena_backend/internal/auth"
	"ordena_backend/internal/catalog"
	"ordena_backend/internal/config"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/document"
	"ordena_backend/internal/filestorage"
	"ordena_backend/internal/firebase"
	"ordena_backend/internal/intake"
	"ordena_backend/internal/inventory"
	"ordena_backend/internal/location"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/elasticsearch"
	"ordena_backend/internal/platform/logger"
	"ordena_backend/internal/product"
	"ordena_backend/internal/report"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/supplier"
	"ordena_backend/internal/user"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	logger.New,
	app.ProvideDatabase,
	database.NewTransactor,
	app.ProvideCache,
	app.ProvideRegistry,
	app.ProvideRecorder,
	app.ProvideFileStorage,
	app.ProvideRenderer,
	app.ProvideNumberer,
	app.ProvideRateLimiter,
	app.ProvidePusher,
	firebase.NewFirebaseService,
	elasticsearch.NewClient,
)

var domainSet = wire.NewSet(
	location.NewGORMRepository, location.NewService, location.NewHandler,
	wire.Bind(new(location.BranchFinder), new(location.Service)),
	wire.Bind(new(user.LocationLookup), new(location.Service)),
	wire.Bind(new(product.LocationLookup), new(location.Service)),

	user.NewGORMRepository, user.NewService, user.NewHandler, user.NewRecipientDirectory,
	wire.Bind(new(notification.RecipientResolver), new(*user.RecipientDirectory)),
	wire.Bind(new(courier.UserLookup), new(user.Service)),
	wire.Bind(new(requisition.UserLookup), new(user.Service)),
	wire.Bind(new(order.UserLookup), new(user.Service)),

	auth.NewJWTService, auth.NewCacheBlocklistService, auth.NewHandler,
	wire.Bind(new(auth.TokenBlocklistService), new(*auth.CacheBlocklistService)),

	catalog.NewGORMRepository, catalog.NewService, catalog.NewHandler,
	wire.Bind(new(product.CatalogLookup), new(catalog.Service)),
	wire.Bind(new(intake.Catalog), new(catalog.Service)),
	wire.Bind(new(intake.CatalogLookup), new(catalog.Repository)),

	product.NewGORMRepository, app.ProvideSearchIndex, product.NewService, product.NewHandler,
	wire.Bind(new(product.ImageStore), new(*filestorage.FileStorageService)),
	wire.Bind(new(product.MovementRecorder), new(*inventory.Ledger)),
	wire.Bind(new(inventory.ProductReader), new(product.Service)),
	wire.Bind(new(requisition.ProductLookup), new(product.Service)),
	wire.Bind(new(order.ProductCatalog), new(product.Service)),
	wire.Bind(new(intake.ProductProvisioner), new(product.Service)),

	inventory.NewGORMRepository, inventory.NewLedger, inventory.NewService, inventory.NewHandler,
	wire.Bind(new(order.StockLedger), new(*inventory.Ledger)),

	supplier.NewGORMRepository, supplier.NewService, supplier.NewHandler,
	wire.Bind(new(intake.Suppliers), new(supplier.Service)),

	courier.NewGORMRepository, courier.NewService, courier.NewHandler,
	wire.Bind(new(order.CourierLookup), new(courier.Service)),

	notification.NewGORMRepository, notification.NewService, notification.NewHandler,
	wire.Bind(new(requisition.Notifier), new(notification.Service)),
	wire.Bind(new(order.Notifier), new(notification.Service)),
	wire.Bind(new(analytics.UnreadCounter), new(notification.Service)),

	wire.Bind(new(requisition.Numberer), new(*document.Numberer)),
	wire.Bind(new(order.Numberer), new(*document.Numberer)),
	document.NewHandler,

	requisition.NewGORMRepository, requisition.NewService, requisition.NewHandler,
	wire.Bind(new(order.RequestLookup), new(requisition.Repository)),

	order.NewGORMRepository, order.NewService, order.NewHandler,
	wire.Struct(new(order.Deps), "*"),
	wire.Bind(new(intake.Receiver), new(order.Service)),

	intake.NewService, intake.NewHandler,
	wire.Bind(new(intake.FileStore), new(*filestorage.FileStorageService)),

	analytics.NewGORMRepository, app.ProvideAnalyticsService, analytics.NewHandler,
	wire.Bind(new(report.Figures), new(analytics.Service)),

	report.NewGORMRepository, app.ProvideReportService, report.NewHandler,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		platformSet,
		domainSet,
		app.ProvideScheduler,
		wire.Struct(new(app.Handlers), "*"),
		app.NewServer,
	)
	return nil, nil, nil
}
