// internal/handlers/orders.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
	storeService *services.StoreService
}

func NewOrderHandler(orderService *services.OrderService, storeService *services.StoreService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		storeService: storeService,
	}
}

// POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.CreatedResponse(c, order)
}

// POST /orders/:id/payment-intent
func (h *OrderHandler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	intent, err := h.orderService.CreatePaymentIntent(c.Request.Context(), orderID, userID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, intent)
}

// POST /orders/:id/confirm
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	transaction, err := h.orderService.ConfirmPayment(c.Request.Context(), orderID, req.PaymentIntentID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, transaction)
}

// POST /orders/:id/complete
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.CompleteOrder(c.Request.Context(), orderID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	if !isAdmin(c) && order.BuyerID != userID && order.Store.OwnerID != userID {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders
func (h *OrderHandler) MyOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := services.OrderSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		BuyerID:          &userID,
	}

	if t := c.Query("status"); t != "" {
		status := models.OrderStatus(t)
		params.Status = &status
	}

	orders, total, err := h.orderService.SearchOrders(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params.PaginationParams))
}

// GET /seller/orders
func (h *OrderHandler) StoreOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	store, err := h.storeService.GetStoreByOwner(c.Request.Context(), userID)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStoreNotFound)
		return
	}

	params := services.OrderSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		StoreID:          &store.ID,
	}

	orders, total, err := h.orderService.SearchOrders(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params.PaginationParams))
}

// POST /refunds
func (h *OrderHandler) RequestRefund(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	refund, err := h.orderService.RequestRefund(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyRefundNotFound)
		return
	}

	utils.CreatedResponse(c, refund)
}

// POST /admin/refunds/:id/decide
func (h *OrderHandler) DecideRefund(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	refundID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.RefundDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	refund, err := h.orderService.DecideRefund(c.Request.Context(), refundID, adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyRefundNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	key := i18n.KeyRefundRejected
	if req.Approve {
		key = i18n.KeyRefundApproved
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
		"refund":  refund,
	})
}
