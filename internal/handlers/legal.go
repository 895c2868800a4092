// internal/handlers/legal.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type LegalHandler struct {
	legalService *services.LegalService
}

func NewLegalHandler(legalService *services.LegalService) *LegalHandler {
	return &LegalHandler{
		legalService: legalService,
	}
}

// GET /legal/:type
func (h *LegalHandler) GetActiveDocument(c *gin.Context) {
	docType := models.DocumentType(c.Param("type"))
	if !models.IsValidDocumentType(docType) {
		utils.BadRequestResponse(c, "unknown document type", nil)
		return
	}

	doc, err := h.legalService.GetActiveDocument(c.Request.Context(), docType)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyDocumentNotFound)
		return
	}

	utils.SuccessResponse(c, doc)
}

// GET /admin/legal/:type/versions
func (h *LegalHandler) ListVersions(c *gin.Context) {
	docType := models.DocumentType(c.Param("type"))
	if !models.IsValidDocumentType(docType) {
		utils.BadRequestResponse(c, "unknown document type", nil)
		return
	}

	docs, err := h.legalService.ListVersions(c.Request.Context(), docType)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"versions": docs})
}

// POST /admin/legal
func (h *LegalHandler) CreateDocument(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	doc, err := h.legalService.CreateDocument(c.Request.Context(), adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyDocumentNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentCreated),
		"document": doc,
	})
}

// POST /admin/legal/:id/activate
func (h *LegalHandler) ActivateDocument(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.legalService.ActivateDocument(c.Request.Context(), docID, adminID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyDocumentNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentActivated),
		"document": doc,
	})
}

// POST /legal/consent
func (h *LegalHandler) RecordConsent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RecordConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	record, err := h.legalService.RecordConsent(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyDocumentNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyConsentRecorded),
		"consent": record,
	})
}

// GET /legal/consent/pending
func (h *LegalHandler) PendingConsents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	docTypes := []models.DocumentType{
		models.DocumentTypeTermsOfService,
		models.DocumentTypePrivacyPolicy,
		models.DocumentTypeCookiePolicy,
		models.DocumentTypeSellerAgreement,
	}

	pending, err := h.legalService.PendingConsents(c.Request.Context(), userID, docTypes)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"pending": pending})
}

// GET /legal/consent/history
func (h *LegalHandler) ConsentHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	records, err := h.legalService.ConsentHistory(c.Request.Context(), userID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"consents": records})
}
