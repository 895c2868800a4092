// internal/handlers/rules.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type RuleHandler struct {
	ruleService *services.RuleService
}

func NewRuleHandler(ruleService *services.RuleService) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
	}
}

// POST /admin/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyRuleNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRuleCreated),
		"rule":    rule,
	})
}

// PUT /admin/rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	ruleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), ruleID, adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyRuleNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRuleUpdated),
		"rule":    rule,
	})
}

// DELETE /admin/rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	ruleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), ruleID, adminID); err != nil {
		handleServiceError(c, err, i18n.KeyRuleNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRuleDeleted),
	})
}

// POST /admin/rules/:id/deactivate
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	ruleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	rule, err := h.ruleService.DeactivateRule(c.Request.Context(), ruleID, adminID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyRuleNotFound)
		return
	}

	utils.SuccessResponse(c, rule)
}

// GET /admin/rules/:id
func (h *RuleHandler) GetRule(c *gin.Context) {
	ruleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyRuleNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"rule":   rule,
		"status": rule.Status(time.Now()),
	})
}

// GET /admin/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	params := services.RuleSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if t := c.Query("rule_type"); t != "" {
		ruleType := models.RuleType(t)
		params.RuleType = &ruleType
	}
	if t := c.Query("scope_type"); t != "" {
		scopeType := models.ScopeType(t)
		params.ScopeType = &scopeType
	}
	if t := c.Query("status"); t != "" {
		status := models.RuleStatus(t)
		params.Status = &status
	}

	rules, total, err := h.ruleService.SearchRules(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(rules, total, params.PaginationParams))
}

// GET /admin/rules/active
func (h *RuleHandler) ActiveRules(c *gin.Context) {
	ruleType := models.RuleType(c.DefaultQuery("rule_type", string(models.RuleTypeCommission)))
	if !models.IsValidRuleType(ruleType) {
		utils.BadRequestResponse(c, "invalid rule_type", nil)
		return
	}

	at := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.BadRequestResponse(c, "as_of must be RFC 3339", nil)
			return
		}
		at = parsed
	}

	rules, err := h.ruleService.RulesActiveAsOf(c.Request.Context(), ruleType, at)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"as_of": at,
		"rules": rules,
	})
}

// GET /admin/rules/future
func (h *RuleHandler) FutureRules(c *gin.Context) {
	ruleType := models.RuleType(c.DefaultQuery("rule_type", string(models.RuleTypeCommission)))
	if !models.IsValidRuleType(ruleType) {
		utils.BadRequestResponse(c, "invalid rule_type", nil)
		return
	}

	rules, err := h.ruleService.FutureRules(c.Request.Context(), ruleType, time.Now())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"rules": rules})
}
