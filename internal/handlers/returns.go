// internal/handlers/returns.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type ReturnHandler struct {
	returnsService *services.ReturnsService
	storeService   *services.StoreService
}

func NewReturnHandler(returnsService *services.ReturnsService, storeService *services.StoreService) *ReturnHandler {
	return &ReturnHandler{
		returnsService: returnsService,
		storeService:   storeService,
	}
}

// POST /returns
func (h *ReturnHandler) RequestReturn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	request, err := h.returnsService.RequestReturn(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyReturnNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReturnCreated),
		"return":  request,
	})
}

// POST /seller/returns/:id/respond
func (h *ReturnHandler) RespondToReturn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	returnID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.SellerReturnResponse
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	request, err := h.returnsService.RespondToReturn(c.Request.Context(), returnID, userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyReturnNotFound)
		return
	}

	utils.SuccessResponse(c, request)
}

// POST /admin/returns/:id/resolve
func (h *ReturnHandler) ResolveReturn(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	returnID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.ResolveReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	request, err := h.returnsService.ResolveReturn(c.Request.Context(), returnID, adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyReturnNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReturnResolved),
		"return":  request,
	})
}

// GET /returns/:id
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	returnID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	request, err := h.returnsService.GetReturn(c.Request.Context(), returnID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyReturnNotFound)
		return
	}

	if !isAdmin(c) && request.BuyerID != userID && request.Store.OwnerID != userID {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, request)
}

// GET /returns
func (h *ReturnHandler) MyReturns(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := services.ReturnSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		BuyerID:          &userID,
	}

	requests, total, err := h.returnsService.SearchReturns(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(requests, total, params.PaginationParams))
}

// GET /seller/returns
func (h *ReturnHandler) StoreReturns(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	store, err := h.storeService.GetStoreByOwner(c.Request.Context(), userID)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStoreNotFound)
		return
	}

	params := services.ReturnSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		StoreID:          &store.ID,
	}

	if t := c.Query("status"); t != "" {
		status := models.ReturnStatus(t)
		params.Status = &status
	}

	requests, total, err := h.returnsService.SearchReturns(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(requests, total, params.PaginationParams))
}

// GET /admin/returns/escalated
func (h *ReturnHandler) EscalatedReturns(c *gin.Context) {
	status := models.ReturnStatusEscalated
	params := services.ReturnSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Status:           &status,
	}

	requests, total, err := h.returnsService.SearchReturns(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(requests, total, params.PaginationParams))
}
