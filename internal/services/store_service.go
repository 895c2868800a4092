// internal/services/store_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// StoreService manages seller storefronts: creation, admin approval, tier
// assignment and suspension. Tier changes are audited because commission rule
// resolution depends on the store's tier.
type StoreService struct {
	db *gorm.DB
}

func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{db: db}
}

type CreateStoreRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	CountryCode string `json:"country_code" validate:"required,country_code"`
	Region      string `json:"region,omitempty" validate:"omitempty,max=100"`
}

type UpdateStoreRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Region      string `json:"region,omitempty" validate:"omitempty,max=100"`
}

type StoreSearchParams struct {
	utils.PaginationParams
	Status      *models.StoreStatus `json:"status,omitempty"`
	Tier        *models.SellerTier  `json:"tier,omitempty"`
	CountryCode string              `json:"country_code,omitempty"`
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugCleaner.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// CreateStore opens a pending storefront for a seller. One store per seller;
// the store goes live after admin approval.
func (s *StoreService) CreateStore(ctx context.Context, ownerID uuid.UUID, req *CreateStoreRequest) (*models.Store, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var store *models.Store
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("user not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if owner.UserType != models.UserTypeSeller && owner.UserType != models.UserTypeAdmin {
			return NewValidationError("only seller accounts can open a store")
		}

		var existing int64
		if err := tx.Model(&models.Store{}).
			Where("owner_id = ? AND status != ?", ownerID, models.StoreStatusClosed).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing stores: %w", err)
		}
		if existing > 0 {
			return NewValidationError("seller already has a store")
		}

		slug := slugify(req.Name)
		if slug == "" {
			return NewValidationError("store name must contain at least one letter or digit")
		}

		var slugTaken int64
		if err := tx.Model(&models.Store{}).Where("slug = ?", slug).Count(&slugTaken).Error; err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}
		if slugTaken > 0 {
			slug = fmt.Sprintf("%s-%s", slug, uuid.New().String()[:8])
		}

		store = &models.Store{
			OwnerID:     ownerID,
			Name:        req.Name,
			Slug:        slug,
			Description: req.Description,
			Status:      models.StoreStatusPending,
			Tier:        models.SellerTierStandard,
			CountryCode: req.CountryCode,
			Region:      req.Region,
		}

		if err := tx.Create(store).Error; err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

func (s *StoreService) UpdateStore(ctx context.Context, storeID, requesterID uuid.UUID, isAdmin bool, req *UpdateStoreRequest) (*models.Store, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("store not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !isAdmin && store.OwnerID != requesterID {
		return nil, errors.New("not authorized to update this store")
	}

	store.Name = req.Name
	store.Description = req.Description
	store.Region = req.Region

	if err := s.db.Save(&store).Error; err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}

	return &store, nil
}

// ApproveStore activates a pending store.
func (s *StoreService) ApproveStore(ctx context.Context, storeID, adminID uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&store, storeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("store not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if store.Status != models.StoreStatusPending {
			return NewValidationError(fmt.Sprintf("only pending stores can be approved; this one is %s", store.Status))
		}

		now := time.Now()
		store.Status = models.StoreStatusActive
		store.ApprovedAt = &now
		store.ApprovedBy = &adminID

		if err := tx.Save(&store).Error; err != nil {
			return fmt.Errorf("failed to approve store: %w", err)
		}

		recordAudit(tx, adminID, "store.approve", "store", &store.ID, nil, map[string]interface{}{
			"name":   store.Name,
			"status": string(store.Status),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &store, nil
}

// SuspendStore takes an active store offline. Its products stop being
// purchasable but settlement history is unaffected.
func (s *StoreService) SuspendStore(ctx context.Context, storeID, adminID uuid.UUID, reason string) (*models.Store, error) {
	var store models.Store
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&store, storeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("store not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if store.Status != models.StoreStatusActive {
			return NewValidationError(fmt.Sprintf("only active stores can be suspended; this one is %s", store.Status))
		}

		store.Status = models.StoreStatusSuspended
		if err := tx.Save(&store).Error; err != nil {
			return fmt.Errorf("failed to suspend store: %w", err)
		}

		recordAudit(tx, adminID, "store.suspend", "store", &store.ID, nil, map[string]interface{}{
			"name":   store.Name,
			"reason": reason,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &store, nil
}

// ChangeTier moves a store to another seller tier. Tier-scoped commission
// rules pick up the new tier for future transactions only.
func (s *StoreService) ChangeTier(ctx context.Context, storeID, adminID uuid.UUID, tier models.SellerTier) (*models.Store, error) {
	if !models.IsValidSellerTier(tier) {
		return nil, NewValidationError(fmt.Sprintf("unknown seller tier %q", tier))
	}

	var store models.Store
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&store, storeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("store not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if store.Tier == tier {
			return NewValidationError("store is already on this tier")
		}

		oldTier := store.Tier
		store.Tier = tier

		if err := tx.Save(&store).Error; err != nil {
			return fmt.Errorf("failed to change tier: %w", err)
		}

		recordAudit(tx, adminID, "store.change_tier", "store", &store.ID,
			map[string]interface{}{"tier": string(oldTier)},
			map[string]interface{}{"tier": string(tier)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &store, nil
}

func (s *StoreService) GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := s.db.WithContext(ctx).Preload("Owner").First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("store not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &store, nil
}

func (s *StoreService) GetStoreBySlug(ctx context.Context, slug string) (*models.Store, error) {
	var store models.Store
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("store not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &store, nil
}

func (s *StoreService) GetStoreByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status != ?", ownerID, models.StoreStatusClosed).
		First(&store).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("store not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &store, nil
}

func (s *StoreService) SearchStores(ctx context.Context, params StoreSearchParams) ([]models.Store, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Store{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Tier != nil {
		query = query.Where("tier = ?", *params.Tier)
	}
	if params.CountryCode != "" {
		query = query.Where("country_code = ?", params.CountryCode)
	}
	if params.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stores: %w", err)
	}

	allowedSortFields := []string{"created_at", "name", "tier", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var stores []models.Store
	if err := query.Find(&stores).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stores: %w", err)
	}

	return stores, total, nil
}
