// internal/services/legal_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// LegalService manages versioned legal documents and the append-only consent
// ledger. At most one version per document type is active at any moment; the
// swap from the old active version to the new one happens atomically.
type LegalService struct {
	db *gorm.DB
}

func NewLegalService(db *gorm.DB) *LegalService {
	return &LegalService{db: db}
}

type CreateDocumentRequest struct {
	DocumentType        models.DocumentType `json:"document_type" validate:"required"`
	Title               string              `json:"title" validate:"required,max=255"`
	Content             string              `json:"content" validate:"required"`
	EffectiveDate       time.Time           `json:"effective_date" validate:"required"`
	ChangeNotes         string              `json:"change_notes,omitempty"`
	LanguageCode        string              `json:"language_code,omitempty" validate:"omitempty,len=2"`
	ActivateImmediately bool                `json:"activate_immediately"`
}

type RecordConsentRequest struct {
	DocumentID uuid.UUID `json:"document_id" validate:"required"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Context    string    `json:"context,omitempty" validate:"omitempty,max=50"`
}

// CreateDocument stores a new version of a legal document. Versions are
// numbered sequentially per document type. With ActivateImmediately set the
// new version also becomes the active one, subject to the same checks as
// ActivateDocument.
func (s *LegalService) CreateDocument(ctx context.Context, adminID uuid.UUID, req *CreateDocumentRequest) (*models.LegalDocument, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !models.IsValidDocumentType(req.DocumentType) {
		return nil, NewValidationError(fmt.Sprintf("unknown document type %q", req.DocumentType))
	}

	language := req.LanguageCode
	if language == "" {
		language = "en"
	}

	var doc *models.LegalDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latestVersion int
		row := tx.Model(&models.LegalDocument{}).
			Where("document_type = ?", req.DocumentType).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&latestVersion); err != nil {
			return fmt.Errorf("failed to determine latest version: %w", err)
		}

		doc = &models.LegalDocument{
			DocumentType:  req.DocumentType,
			Version:       latestVersion + 1,
			Title:         req.Title,
			Content:       req.Content,
			EffectiveDate: req.EffectiveDate,
			IsActive:      false,
			ChangeNotes:   req.ChangeNotes,
			LanguageCode:  language,
			CreatedBy:     adminID,
		}

		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		// Activation is gated on the effective date; a future-dated version
		// is still persisted, it just stays inactive until activated later.
		if req.ActivateImmediately && !doc.EffectiveDate.After(time.Now()) {
			if err := s.activateTx(tx, doc, adminID); err != nil {
				return err
			}
		}

		recordAudit(tx, adminID, "legal_document.create", "legal_document", &doc.ID, nil, documentSnapshot(doc))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// ActivateDocument makes the version the active one for its document type,
// deactivating whichever version was active before. A version whose effective
// date is still in the future cannot be activated.
func (s *LegalService) ActivateDocument(ctx context.Context, documentID uuid.UUID, adminID uuid.UUID) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("document not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.activateTx(tx, &doc, adminID); err != nil {
			return err
		}

		recordAudit(tx, adminID, "legal_document.activate", "legal_document", &doc.ID, nil, documentSnapshot(&doc))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (s *LegalService) activateTx(tx *gorm.DB, doc *models.LegalDocument, adminID uuid.UUID) error {
	if doc.IsActive {
		return NewValidationError("document version is already active")
	}

	if doc.EffectiveDate.After(time.Now()) {
		return NewValidationError(fmt.Sprintf("document version %d is not effective until %s", doc.Version, doc.EffectiveDate.Format("2006-01-02")))
	}

	// Deactivate the previous active version and activate this one in the
	// same transaction, so readers never observe zero or two active versions.
	if err := tx.Model(&models.LegalDocument{}).
		Where("document_type = ? AND is_active = ? AND id != ?", doc.DocumentType, true, doc.ID).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate previous version: %w", err)
	}

	doc.IsActive = true
	if err := tx.Model(doc).Update("is_active", true).Error; err != nil {
		return fmt.Errorf("failed to activate document: %w", err)
	}

	return nil
}

// GetActiveDocument returns the currently active version for the type.
func (s *LegalService) GetActiveDocument(ctx context.Context, docType models.DocumentType) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	err := s.db.WithContext(ctx).
		Where("document_type = ? AND is_active = ?", docType, true).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no active document for this type")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &doc, nil
}

func (s *LegalService) GetDocument(ctx context.Context, id uuid.UUID) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("document not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &doc, nil
}

// ListVersions returns the full version history for a document type, newest
// first.
func (s *LegalService) ListVersions(ctx context.Context, docType models.DocumentType) ([]models.LegalDocument, error) {
	var docs []models.LegalDocument
	err := s.db.WithContext(ctx).
		Where("document_type = ?", docType).
		Order("version desc").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document versions: %w", err)
	}
	return docs, nil
}

// RecordConsent appends a consent record binding the user to a specific
// document version. Consent to an inactive version is rejected; consent
// records are never updated or deleted.
func (s *LegalService) RecordConsent(ctx context.Context, userID uuid.UUID, req *RecordConsentRequest) (*models.ConsentRecord, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var record *models.ConsentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.LegalDocument
		if err := tx.First(&doc, req.DocumentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("document not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !doc.IsActive {
			return NewValidationError(fmt.Sprintf("version %d of %s is not the active version", doc.Version, doc.DocumentType))
		}

		record = &models.ConsentRecord{
			UserID:     userID,
			DocumentID: doc.ID,
			IPAddress:  req.IPAddress,
			UserAgent:  req.UserAgent,
			Context:    req.Context,
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to record consent: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// HasUserConsented reports whether the user has consented to the currently
// active version of the document type. A new active version invalidates
// consent given to older versions.
func (s *LegalService) HasUserConsented(ctx context.Context, userID uuid.UUID, docType models.DocumentType) (bool, error) {
	active, err := s.GetActiveDocument(ctx, docType)
	if err != nil {
		return false, err
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.ConsentRecord{}).
		Where("user_id = ? AND document_id = ?", userID, active.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check consent: %w", err)
	}

	return count > 0, nil
}

// PendingConsents returns the active documents the user has not yet consented
// to, for the given document types.
func (s *LegalService) PendingConsents(ctx context.Context, userID uuid.UUID, docTypes []models.DocumentType) ([]models.LegalDocument, error) {
	pending := make([]models.LegalDocument, 0)
	for _, docType := range docTypes {
		active, err := s.GetActiveDocument(ctx, docType)
		if err != nil {
			// Types with no active version have nothing to consent to.
			continue
		}

		var count int64
		err = s.db.WithContext(ctx).Model(&models.ConsentRecord{}).
			Where("user_id = ? AND document_id = ?", userID, active.ID).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check consent: %w", err)
		}

		if count == 0 {
			pending = append(pending, *active)
		}
	}

	return pending, nil
}

// ConsentHistory returns the user's consent records, newest first, with the
// referenced document versions preloaded.
func (s *LegalService) ConsentHistory(ctx context.Context, userID uuid.UUID) ([]models.ConsentRecord, error) {
	var records []models.ConsentRecord
	err := s.db.WithContext(ctx).
		Preload("Document").
		Where("user_id = ?", userID).
		Order("consented_at desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consent history: %w", err)
	}
	return records, nil
}

func documentSnapshot(doc *models.LegalDocument) map[string]interface{} {
	return map[string]interface{}{
		"document_type":  string(doc.DocumentType),
		"version":        doc.Version,
		"title":          doc.Title,
		"effective_date": doc.EffectiveDate.Format(time.RFC3339),
		"is_active":      doc.IsActive,
		"language_code":  doc.LanguageCode,
	}
}
