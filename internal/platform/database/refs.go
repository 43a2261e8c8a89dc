package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ref names a column in another table that may point at a row.
type Ref struct {
	Table  string
	Column string
}

// CountReferences sums the rows in refs whose column equals id. Tables that
// do not exist yet count as zero, which happens on a partially migrated SQLite database.
func CountReferences(ctx context.Context, db *gorm.DB, id uuid.UUID, refs ...Ref) (int64, error) {
	conn := Conn(ctx, db)
	var total int64
	for _, ref := range refs {
		if !conn.Migrator().HasTable(ref.Table) {
			continue
		}
		var n int64
		if err := conn.Table(ref.Table).Where(ref.Column+" = ?", id).Count(&n).Error; err != nil {
			return 0, fmt.Errorf("counting %s.%s references: %w", ref.Table, ref.Column, err)
		}
		total += n
	}
	return total, nil
}
