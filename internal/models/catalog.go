// internal/models/catalog.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Name      string     `json:"name" gorm:"size:100;not null"`
	Slug      string     `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	ParentID  *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	Position  int        `json:"position" gorm:"not null;default:0"`
	IsVisible bool       `json:"is_visible" gorm:"not null;default:true"`

	// Relationships
	Parent     *Category            `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children   []Category           `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Attributes []AttributeDefinition `json:"attributes,omitempty" gorm:"foreignKey:CategoryID"`
}

type AttributeDefinition struct {
	BaseModel
	CategoryID uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
	Name       string    `json:"name" gorm:"size:100;not null"`
	DataType   string    `json:"data_type" gorm:"size:20;not null"`
	IsRequired bool      `json:"is_required" gorm:"not null;default:false"`
	Options    JSONB     `json:"options,omitempty" gorm:"type:jsonb"`
	Position   int       `json:"position" gorm:"not null;default:0"`
}

type Product struct {
	BaseModel
	StoreID     uuid.UUID       `json:"store_id" gorm:"type:uuid;not null;index"`
	CategoryID  uuid.UUID       `json:"category_id" gorm:"type:uuid;not null;index"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Currency    string          `json:"currency" gorm:"size:3;not null;default:'EUR'"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Attributes  JSONB           `json:"attributes" gorm:"type:jsonb"`
	IsPublished bool            `json:"is_published" gorm:"not null;default:false;index"`

	// Relationships
	Store    Store          `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Category Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Photos   []ProductPhoto `json:"photos,omitempty" gorm:"foreignKey:ProductID"`
}

type ProductPhoto struct {
	BaseModel
	ProductID        uuid.UUID        `json:"product_id" gorm:"type:uuid;not null;index"`
	URL              string           `json:"url" gorm:"size:500;not null"`
	StorageKey       string           `json:"storage_key" gorm:"size:500;not null"`
	Position         int              `json:"position" gorm:"not null;default:0"`
	ModerationStatus ModerationStatus `json:"moderation_status" gorm:"type:varchar(20);default:'pending';index"`
}
