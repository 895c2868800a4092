// internal/models/store.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Store struct {
	BaseModel
	OwnerID     uuid.UUID   `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name        string      `json:"name" gorm:"size:255;not null"`
	Slug        string      `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Description string      `json:"description" gorm:"type:text"`
	Status      StoreStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Tier        SellerTier  `json:"tier" gorm:"type:varchar(20);default:'standard';index"`
	CountryCode string      `json:"country_code" gorm:"size:2"`
	Region      string      `json:"region" gorm:"size:100"`
	ApprovedAt  *time.Time  `json:"approved_at"`
	ApprovedBy  *uuid.UUID  `json:"approved_by" gorm:"type:uuid"`

	// Relationships
	Owner       User         `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Products    []Product    `json:"products,omitempty" gorm:"foreignKey:StoreID"`
	Settlements []Settlement `json:"settlements,omitempty" gorm:"foreignKey:StoreID"`
}
