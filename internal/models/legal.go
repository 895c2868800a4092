// internal/models/legal.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LegalDocument struct {
	BaseModel
	DocumentType  DocumentType `json:"document_type" gorm:"type:varchar(30);not null;index:idx_legal_docs_type_lang"`
	Version       int          `json:"version" gorm:"not null"`
	Title         string       `json:"title" gorm:"size:255;not null"`
	Content       string       `json:"content" gorm:"type:text;not null"`
	EffectiveDate time.Time    `json:"effective_date" gorm:"not null"`
	IsActive      bool         `json:"is_active" gorm:"not null;default:false;index"`
	ChangeNotes   string       `json:"change_notes,omitempty" gorm:"type:text"`
	LanguageCode  string       `json:"language_code" gorm:"size:5;not null;default:'en';index:idx_legal_docs_type_lang"`
	CreatedBy     uuid.UUID    `json:"created_by" gorm:"type:uuid;not null"`

	// Relationships
	ConsentRecords []ConsentRecord `json:"consent_records,omitempty" gorm:"foreignKey:DocumentID"`
}

// ConsentRecord is append-only: rows are never updated or deleted. Consent is
// bound to one document row, so a new active version invalidates prior consent.
type ConsentRecord struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_consents_user_doc"`
	DocumentID  uuid.UUID `json:"document_id" gorm:"type:uuid;not null;index:idx_consents_user_doc"`
	IPAddress   string    `json:"ip_address" gorm:"size:45"`
	UserAgent   string    `json:"user_agent" gorm:"type:text"`
	Context     string    `json:"context" gorm:"size:50"`
	ConsentedAt time.Time `json:"consented_at" gorm:"not null"`

	// Relationships
	User     User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Document LegalDocument `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
}

func (c *ConsentRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ConsentedAt.IsZero() {
		c.ConsentedAt = time.Now()
	}
	return nil
}
