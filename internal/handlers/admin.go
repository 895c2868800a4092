// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type AdminHandler struct {
	db                  *gorm.DB
	userService         *services.UserService
	moderationService   *services.ModerationService
	flagService         *services.FeatureFlagService
	notificationService *services.NotificationService
}

func NewAdminHandler(db *gorm.DB, userService *services.UserService, moderationService *services.ModerationService, flagService *services.FeatureFlagService, notificationService *services.NotificationService) *AdminHandler {
	return &AdminHandler{
		db:                  db,
		userService:         userService,
		moderationService:   moderationService,
		flagService:         flagService,
		notificationService: notificationService,
	}
}

// GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := services.UserSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if t := c.Query("user_type"); t != "" {
		userType := models.UserType(t)
		params.UserType = &userType
	}
	if t := c.Query("status"); t != "" {
		status := models.UserStatus(t)
		params.Status = &status
	}

	users, total, err := h.userService.SearchUsers(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params.PaginationParams))
}

// POST /admin/users/:id/status
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.UserStatus `json:"status" binding:"required"`
		Reason string            `json:"reason,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	user, err := h.userService.SetUserStatus(c.Request.Context(), userID, adminID, req.Status, req.Reason)
	if err != nil {
		handleServiceError(c, err, i18n.KeyUserNotFound)
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /admin/moderation/queue
func (h *AdminHandler) ModerationQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	items, err := h.moderationService.PendingQueue(c.Request.Context(), limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"queue": items})
}

// POST /admin/moderation/:id/decide
func (h *AdminHandler) DecideModeration(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.ModerationDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	if err := h.moderationService.Decide(c.Request.Context(), targetID, adminID, &req); err != nil {
		handleServiceError(c, err, i18n.KeyModerationNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	key := i18n.KeyModerationRejected
	if req.Approve {
		key = i18n.KeyModerationApproved
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
	})
}

// GET /admin/feature-flags
func (h *AdminHandler) ListFlags(c *gin.Context) {
	flags, err := h.flagService.ListFlags(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"flags": flags})
}

// PUT /admin/feature-flags/:key
func (h *AdminHandler) SetFlag(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	flag, err := h.flagService.SetFlag(c.Request.Context(), c.Param("key"), adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyFlagNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFlagUpdated),
		"flag":    flag,
	})
}

// PUT /admin/feature-flags/:key/overrides
func (h *AdminHandler) SetFlagOverride(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	override, err := h.flagService.SetOverride(c.Request.Context(), c.Param("key"), adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyFlagNotFound)
		return
	}

	utils.SuccessResponse(c, override)
}

// DELETE /admin/feature-flags/:key/overrides/:storeId
func (h *AdminHandler) RemoveFlagOverride(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	storeID, ok := pathUUID(c, "storeId")
	if !ok {
		return
	}

	if err := h.flagService.RemoveOverride(c.Request.Context(), c.Param("key"), storeID, adminID); err != nil {
		handleServiceError(c, err, i18n.KeyFlagNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "override removed"})
}

// GET /admin/notifications
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notificationService.ListAdminNotifications(c.Request.Context(), unreadOnly, limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"notifications": notifications})
}

// POST /admin/notifications/:id/read
func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	notificationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkNotificationRead(c.Request.Context(), notificationID); err != nil {
		handleServiceError(c, err, i18n.KeyUserNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "notification marked read"})
}

// GET /admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.AuditLog{})
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resourceType := c.Query("resource_type"); resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	var logs []models.AuditLog
	query = query.Order("created_at desc")
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&logs).Error; err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
