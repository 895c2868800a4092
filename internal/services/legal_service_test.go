// internal/services/legal_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
)

type LegalServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *LegalService
	ctx     context.Context
	admin   *models.User
	user    *models.User
}

func (suite *LegalServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewLegalService(suite.db)
	suite.ctx = context.Background()
	suite.admin = createTestUser(suite.T(), suite.db, models.UserTypeAdmin)
	suite.user = createTestUser(suite.T(), suite.db, models.UserTypeBuyer)
}

func (suite *LegalServiceTestSuite) createDocument(docType models.DocumentType, effective time.Time, activate bool) *models.LegalDocument {
	doc, err := suite.service.CreateDocument(suite.ctx, suite.admin.ID, &CreateDocumentRequest{
		DocumentType:        docType,
		Title:               "Terms",
		Content:             "Full document text.",
		EffectiveDate:       effective,
		ActivateImmediately: activate,
	})
	suite.Require().NoError(err)
	return doc
}

func (suite *LegalServiceTestSuite) TestVersionsAreSequentialPerType() {
	past := time.Now().Add(-24 * time.Hour)

	first := suite.createDocument(models.DocumentTypeTermsOfService, past, false)
	second := suite.createDocument(models.DocumentTypeTermsOfService, past, false)
	otherType := suite.createDocument(models.DocumentTypePrivacyPolicy, past, false)

	assert.Equal(suite.T(), 1, first.Version)
	assert.Equal(suite.T(), 2, second.Version)
	assert.Equal(suite.T(), 1, otherType.Version)
}

func (suite *LegalServiceTestSuite) TestActivateSwapsActiveVersion() {
	past := time.Now().Add(-24 * time.Hour)

	first := suite.createDocument(models.DocumentTypeTermsOfService, past, true)
	second := suite.createDocument(models.DocumentTypeTermsOfService, past, false)

	_, err := suite.service.ActivateDocument(suite.ctx, second.ID, suite.admin.ID)
	suite.Require().NoError(err)

	// Exactly one active version, and it is the new one.
	var active []models.LegalDocument
	suite.db.Where("document_type = ? AND is_active = ?", models.DocumentTypeTermsOfService, true).Find(&active)
	suite.Require().Len(active, 1)
	assert.Equal(suite.T(), second.ID, active[0].ID)

	var reloaded models.LegalDocument
	suite.Require().NoError(suite.db.First(&reloaded, first.ID).Error)
	assert.False(suite.T(), reloaded.IsActive)
}

func (suite *LegalServiceTestSuite) TestActivateFutureVersionRejected() {
	future := suite.createDocument(models.DocumentTypeTermsOfService, time.Now().Add(48*time.Hour), false)

	_, err := suite.service.ActivateDocument(suite.ctx, future.ID, suite.admin.ID)
	suite.Require().Error(err)

	ve, ok := AsValidationError(err)
	suite.Require().True(ok)
	assert.Contains(suite.T(), ve.Errors[0], "not effective until")
}

func (suite *LegalServiceTestSuite) TestCreateFutureVersionPersistsInactive() {
	effective := time.Now().Add(48 * time.Hour)
	doc := suite.createDocument(models.DocumentTypeTermsOfService, effective, true)

	// The version exists but the activation was deferred to its effective date.
	var reloaded models.LegalDocument
	suite.Require().NoError(suite.db.First(&reloaded, doc.ID).Error)
	assert.Equal(suite.T(), 1, reloaded.Version)
	assert.False(suite.T(), reloaded.IsActive)

	_, err := suite.service.GetActiveDocument(suite.ctx, models.DocumentTypeTermsOfService)
	suite.Require().Error(err)
}

func (suite *LegalServiceTestSuite) TestActivateAlreadyActiveRejected() {
	doc := suite.createDocument(models.DocumentTypeTermsOfService, time.Now().Add(-time.Hour), true)

	_, err := suite.service.ActivateDocument(suite.ctx, doc.ID, suite.admin.ID)
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *LegalServiceTestSuite) TestConsentToInactiveVersionRejected() {
	past := time.Now().Add(-24 * time.Hour)

	suite.createDocument(models.DocumentTypeTermsOfService, past, true)
	draft := suite.createDocument(models.DocumentTypeTermsOfService, past, false)

	_, err := suite.service.RecordConsent(suite.ctx, suite.user.ID, &RecordConsentRequest{
		DocumentID: draft.ID,
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *LegalServiceTestSuite) TestNewActiveVersionInvalidatesConsent() {
	past := time.Now().Add(-24 * time.Hour)

	first := suite.createDocument(models.DocumentTypeTermsOfService, past, true)

	record, err := suite.service.RecordConsent(suite.ctx, suite.user.ID, &RecordConsentRequest{
		DocumentID: first.ID,
		IPAddress:  "203.0.113.10",
		Context:    "settings",
	})
	suite.Require().NoError(err)
	assert.False(suite.T(), record.ConsentedAt.IsZero())

	consented, err := suite.service.HasUserConsented(suite.ctx, suite.user.ID, models.DocumentTypeTermsOfService)
	suite.Require().NoError(err)
	assert.True(suite.T(), consented)

	// Publish and activate version 2: the old consent no longer counts.
	suite.createDocument(models.DocumentTypeTermsOfService, past, true)

	consented, err = suite.service.HasUserConsented(suite.ctx, suite.user.ID, models.DocumentTypeTermsOfService)
	suite.Require().NoError(err)
	assert.False(suite.T(), consented)

	// The old consent record itself is untouched.
	var count int64
	suite.db.Model(&models.ConsentRecord{}).Where("user_id = ?", suite.user.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *LegalServiceTestSuite) TestPendingConsents() {
	past := time.Now().Add(-24 * time.Hour)

	terms := suite.createDocument(models.DocumentTypeTermsOfService, past, true)
	suite.createDocument(models.DocumentTypePrivacyPolicy, past, true)

	docTypes := []models.DocumentType{
		models.DocumentTypeTermsOfService,
		models.DocumentTypePrivacyPolicy,
		models.DocumentTypeCookiePolicy, // no active version, must be skipped
	}

	pending, err := suite.service.PendingConsents(suite.ctx, suite.user.ID, docTypes)
	suite.Require().NoError(err)
	assert.Len(suite.T(), pending, 2)

	_, err = suite.service.RecordConsent(suite.ctx, suite.user.ID, &RecordConsentRequest{DocumentID: terms.ID})
	suite.Require().NoError(err)

	pending, err = suite.service.PendingConsents(suite.ctx, suite.user.ID, docTypes)
	suite.Require().NoError(err)
	suite.Require().Len(pending, 1)
	assert.Equal(suite.T(), models.DocumentTypePrivacyPolicy, pending[0].DocumentType)
}

func (suite *LegalServiceTestSuite) TestConsentHistoryNewestFirst() {
	past := time.Now().Add(-24 * time.Hour)

	first := suite.createDocument(models.DocumentTypeTermsOfService, past, true)
	_, err := suite.service.RecordConsent(suite.ctx, suite.user.ID, &RecordConsentRequest{DocumentID: first.ID})
	suite.Require().NoError(err)

	second := suite.createDocument(models.DocumentTypeTermsOfService, past, true)
	_, err = suite.service.RecordConsent(suite.ctx, suite.user.ID, &RecordConsentRequest{DocumentID: second.ID})
	suite.Require().NoError(err)

	history, err := suite.service.ConsentHistory(suite.ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Require().Len(history, 2)
	assert.Equal(suite.T(), second.ID, history[0].DocumentID)
	assert.Equal(suite.T(), 2, history[0].Document.Version)
}

func (suite *LegalServiceTestSuite) TestUnknownDocumentTypeRejected() {
	_, err := suite.service.CreateDocument(suite.ctx, suite.admin.ID, &CreateDocumentRequest{
		DocumentType:  models.DocumentType("imprint"),
		Title:         "Imprint",
		Content:       "Text",
		EffectiveDate: time.Now(),
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func TestLegalServiceSuite(t *testing.T) {
	suite.Run(t, new(LegalServiceTestSuite))
}
