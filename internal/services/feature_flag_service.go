// internal/services/feature_flag_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// FeatureFlagService answers flag checks. A per-store override beats the
// global value; an unknown flag is off.
type FeatureFlagService struct {
	db *gorm.DB
}

func NewFeatureFlagService(db *gorm.DB) *FeatureFlagService {
	return &FeatureFlagService{db: db}
}

type SetFlagRequest struct {
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

type SetOverrideRequest struct {
	StoreID uuid.UUID `json:"store_id" validate:"required"`
	Enabled bool      `json:"enabled"`
}

// IsEnabled resolves the flag for an optional store context.
func (s *FeatureFlagService) IsEnabled(ctx context.Context, key string, storeID *uuid.UUID) (bool, error) {
	var flag models.FeatureFlag
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&flag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load feature flag: %w", err)
	}

	if storeID != nil {
		var override models.FeatureFlagOverride
		err := s.db.WithContext(ctx).
			Where("flag_id = ? AND store_id = ?", flag.ID, *storeID).
			First(&override).Error
		if err == nil {
			return override.Enabled, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("failed to load flag override: %w", err)
		}
	}

	return flag.Enabled, nil
}

// SetFlag updates or creates a global flag.
func (s *FeatureFlagService) SetFlag(ctx context.Context, key string, adminID uuid.UUID, req *SetFlagRequest) (*models.FeatureFlag, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var flag models.FeatureFlag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("key = ?", key).First(&flag).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load feature flag: %w", err)
		}

		oldEnabled := flag.Enabled
		flag.Key = key
		flag.Enabled = req.Enabled
		if req.Description != "" {
			flag.Description = req.Description
		}
		flag.UpdatedBy = &adminID

		if err := tx.Save(&flag).Error; err != nil {
			return fmt.Errorf("failed to save feature flag: %w", err)
		}

		recordAudit(tx, adminID, "feature_flag.set", "feature_flag", &flag.ID,
			map[string]interface{}{"enabled": oldEnabled},
			map[string]interface{}{"key": key, "enabled": req.Enabled})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &flag, nil
}

// SetOverride pins the flag for one store.
func (s *FeatureFlagService) SetOverride(ctx context.Context, key string, adminID uuid.UUID, req *SetOverrideRequest) (*models.FeatureFlagOverride, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var override models.FeatureFlagOverride
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var flag models.FeatureFlag
		if err := tx.Where("key = ?", key).First(&flag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("feature flag not found")
			}
			return fmt.Errorf("failed to load feature flag: %w", err)
		}

		var storeCount int64
		if err := tx.Model(&models.Store{}).Where("id = ?", req.StoreID).Count(&storeCount).Error; err != nil {
			return fmt.Errorf("failed to check store: %w", err)
		}
		if storeCount == 0 {
			return errors.New("store not found")
		}

		err := tx.Where("flag_id = ? AND store_id = ?", flag.ID, req.StoreID).First(&override).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load flag override: %w", err)
		}

		override.FlagID = flag.ID
		override.StoreID = req.StoreID
		override.Enabled = req.Enabled

		if err := tx.Save(&override).Error; err != nil {
			return fmt.Errorf("failed to save flag override: %w", err)
		}

		recordAudit(tx, adminID, "feature_flag.override", "feature_flag", &flag.ID, nil, map[string]interface{}{
			"key":      key,
			"store_id": req.StoreID.String(),
			"enabled":  req.Enabled,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &override, nil
}

// RemoveOverride drops a store override, returning the store to the global
// flag value.
func (s *FeatureFlagService) RemoveOverride(ctx context.Context, key string, storeID, adminID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var flag models.FeatureFlag
		if err := tx.Where("key = ?", key).First(&flag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("feature flag not found")
			}
			return fmt.Errorf("failed to load feature flag: %w", err)
		}

		result := tx.Where("flag_id = ? AND store_id = ?", flag.ID, storeID).
			Delete(&models.FeatureFlagOverride{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove flag override: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.New("flag override not found")
		}

		recordAudit(tx, adminID, "feature_flag.remove_override", "feature_flag", &flag.ID, nil, map[string]interface{}{
			"key":      key,
			"store_id": storeID.String(),
		})
		return nil
	})
}

func (s *FeatureFlagService) ListFlags(ctx context.Context) ([]models.FeatureFlag, error) {
	var flags []models.FeatureFlag
	err := s.db.WithContext(ctx).
		Preload("Overrides").
		Order("key asc").
		Find(&flags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feature flags: %w", err)
	}
	return flags, nil
}
