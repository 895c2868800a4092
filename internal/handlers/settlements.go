// internal/handlers/settlements.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type SettlementHandler struct {
	settlementService *services.SettlementService
	storeService      *services.StoreService
}

func NewSettlementHandler(settlementService *services.SettlementService, storeService *services.StoreService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		storeService:      storeService,
	}
}

// POST /admin/settlements
func (h *SettlementHandler) GenerateSettlement(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.GenerateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	settlement, err := h.settlementService.GenerateSettlement(c.Request.Context(), adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeySettlementNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySettlementGenerated),
		"settlement": settlement,
	})
}

// POST /admin/settlements/:id/finalize
func (h *SettlementHandler) FinalizeSettlement(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	settlementID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementService.FinalizeSettlement(c.Request.Context(), settlementID, adminID)
	if err != nil {
		handleServiceError(c, err, i18n.KeySettlementNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySettlementFinalized),
		"settlement": settlement,
	})
}

// POST /admin/settlements/:id/regenerate
func (h *SettlementHandler) RegenerateSettlement(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	settlementID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementService.RegenerateSettlement(c.Request.Context(), settlementID, adminID)
	if err != nil {
		handleServiceError(c, err, i18n.KeySettlementNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySettlementRegenerated),
		"settlement": settlement,
	})
}

// POST /admin/settlements/:id/adjustments
func (h *SettlementHandler) AddAdjustment(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	settlementID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.AddAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	adjustment, err := h.settlementService.AddAdjustment(c.Request.Context(), settlementID, adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeySettlementNotFound)
		return
	}

	utils.CreatedResponse(c, adjustment)
}

// GET /settlements/:id
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	settlementID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementService.GetSettlement(c.Request.Context(), settlementID)
	if err != nil {
		handleServiceError(c, err, i18n.KeySettlementNotFound)
		return
	}

	// Sellers can only see their own statements.
	if !isAdmin(c) {
		userID, okUser := currentUserID(c)
		if !okUser {
			return
		}
		if settlement.Store.OwnerID != userID {
			utils.ForbiddenResponse(c, "")
			return
		}
	}

	utils.SuccessResponse(c, settlement)
}

// GET /settlements/:id/history
func (h *SettlementHandler) VersionHistory(c *gin.Context) {
	settlementID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	versions, err := h.settlementService.VersionHistory(c.Request.Context(), settlementID)
	if err != nil {
		handleServiceError(c, err, i18n.KeySettlementNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"versions": versions})
}

// GET /seller/settlements
func (h *SettlementHandler) MyStoreSettlements(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	store, err := h.storeService.GetStoreByOwner(c.Request.Context(), userID)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStoreNotFound)
		return
	}

	params := utils.GetPaginationParams(c)
	includeSuperseded := c.Query("include_superseded") == "true"

	settlements, total, err := h.settlementService.ListStoreSettlements(c.Request.Context(), store.ID, includeSuperseded, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(settlements, total, params))
}
