// internal/services/audit.go
package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
)

// recordAudit writes a before/after snapshot for an admin mutation. It runs on
// the caller's transaction handle so the audit row commits with the mutation.
func recordAudit(tx *gorm.DB, userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, oldValues, newValues map[string]interface{}) {
	auditLog := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    models.JSONB(oldValues),
		NewValues:    models.JSONB(newValues),
	}

	if err := tx.Create(auditLog).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"action":        action,
			"resource_type": resourceType,
		}).Error("Failed to record audit entry")
	}
}
