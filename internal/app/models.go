// File: internal/app/models.go
package app

import (
	"fmt"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/document"
	"ordena_backend/internal/inventory"
	"ordena_backend/internal/location"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/order"
	"ordena_backend/internal/product"
	"ordena_backend/internal/report"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/supplier"
	"ordena_backend/internal/user"

	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order. PostgreSQL is
// migrated with the SQL files under platform/database/migrations; this list
// builds the same schema on SQLite for local development.
func Models() []interface{} {
	return []interface{}{
		&location.Warehouse{},
		&location.Branch{},
		&user.User{},
		&catalog.Brand{},
		&catalog.Category{},
		&product.Product{},
		&supplier.Supplier{},
		&courier.Courier{},
		&inventory.Movement{},
		&requisition.Request{},
		&requisition.Item{},
		&order.Order{},
		&order.Item{},
		&order.StatusChange{},
		&document.Sequence{},
		&notification.Notification{},
		&report.Report{},
	}
}

// AutoMigrate creates or updates the schema through GORM.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}
