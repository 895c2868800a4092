// internal/handlers/common.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// handleServiceError maps a service failure onto the right HTTP response.
// Business-rule violations surface as a structured 422; plain "not found"
// errors as 404; everything else as 400 with the message.
func handleServiceError(c *gin.Context, err error, notFoundKey string) {
	if verr, ok := services.AsValidationError(err); ok {
		utils.BusinessRuleResponse(c, verr.Errors)
		return
	}

	if strings.HasSuffix(err.Error(), "not found") {
		utils.NotFoundResponse(c, notFoundKey)
		return
	}

	if strings.HasPrefix(err.Error(), "not authorized") {
		utils.ForbiddenResponse(c, err.Error())
		return
	}

	utils.BadRequestResponse(c, err.Error(), nil)
}

// currentUserID reads the authenticated user's id set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	idStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	return id, true
}

// pathUUID parses a uuid path parameter, answering 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func isAdmin(c *gin.Context) bool {
	userType, _ := utils.GetUserTypeFromContext(c)
	return userType == "admin"
}
