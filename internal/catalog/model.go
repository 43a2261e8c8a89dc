// File: internal/catalog/model.go
package catalog

import (
	"ordena_backend/internal/common"
)

// Brand is a product brand (marca).
type Brand struct {
	common.BaseModel
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`
	NameKey     string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	Slug        string  `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
}

func (Brand) TableName() string { return "brands" }

// Category is a product category (categoria).
type Category struct {
	common.BaseModel
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`
	NameKey     string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	Slug        string  `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
}

func (Category) TableName() string { return "categories" }

// Entry is the shape shared by brands and categories in responses.
type Entry struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
}

// CreateEntryRequest is the payload for POST /brands and POST /categories.
type CreateEntryRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

func ToBrandEntry(b *Brand) Entry {
	return Entry{ID: b.ID.String(), Name: b.Name, Slug: b.Slug, Description: b.Description}
}

func ToCategoryEntry(c *Category) Entry {
	return Entry{ID: c.ID.String(), Name: c.Name, Slug: c.Slug, Description: c.Description}
}
