// internal/handlers/stores.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type StoreHandler struct {
	storeService *services.StoreService
}

func NewStoreHandler(storeService *services.StoreService) *StoreHandler {
	return &StoreHandler{
		storeService: storeService,
	}
}

// POST /seller/stores
func (h *StoreHandler) CreateStore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	store, err := h.storeService.CreateStore(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyStoreNotFound)
		return
	}

	utils.CreatedResponse(c, store)
}

// PUT /seller/stores/:id
func (h *StoreHandler) UpdateStore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	store, err := h.storeService.UpdateStore(c.Request.Context(), storeID, userID, isAdmin(c), &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyStoreNotFound)
		return
	}

	utils.SuccessResponse(c, store)
}

// GET /stores/:slug
func (h *StoreHandler) GetStoreBySlug(c *gin.Context) {
	store, err := h.storeService.GetStoreBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStoreNotFound)
		return
	}

	utils.SuccessResponse(c, store)
}

// GET /seller/stores/mine
func (h *StoreHandler) MyStore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	store, err := h.storeService.GetStoreByOwner(c.Request.Context(), userID)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStoreNotFound)
		return
	}

	utils.SuccessResponse(c, store)
}

// POST /admin/stores/:id/approve
func (h *StoreHandler) ApproveStore(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	storeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	store, err := h.storeService.ApproveStore(c.Request.Context(), storeID, adminID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyStoreNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyStoreApproved),
		"store":   store,
	})
}

// POST /admin/stores/:id/suspend
func (h *StoreHandler) SuspendStore(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	storeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	store, err := h.storeService.SuspendStore(c.Request.Context(), storeID, adminID, req.Reason)
	if err != nil {
		handleServiceError(c, err, i18n.KeyStoreNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyStoreSuspended),
		"store":   store,
	})
}

// POST /admin/stores/:id/tier
func (h *StoreHandler) ChangeTier(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	storeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Tier models.SellerTier `json:"tier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	store, err := h.storeService.ChangeTier(c.Request.Context(), storeID, adminID, req.Tier)
	if err != nil {
		handleServiceError(c, err, i18n.KeyStoreNotFound)
		return
	}

	utils.SuccessResponse(c, store)
}

// GET /admin/stores
func (h *StoreHandler) ListStores(c *gin.Context) {
	params := services.StoreSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		CountryCode:      c.Query("country_code"),
	}

	if t := c.Query("status"); t != "" {
		status := models.StoreStatus(t)
		params.Status = &status
	}
	if t := c.Query("tier"); t != "" {
		tier := models.SellerTier(t)
		params.Tier = &tier
	}

	stores, total, err := h.storeService.SearchStores(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(stores, total, params.PaginationParams))
}
