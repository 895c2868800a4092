// internal/services/moderation_service.go
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

// ModerationService runs the review and product-photo moderation queue.
// Content enters as pending and becomes visible only after approval.
type ModerationService struct {
	db *gorm.DB
}

func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db}
}

type CreateReviewRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Body      string    `json:"body,omitempty" validate:"omitempty,max=5000"`
}

type ModerationDecisionRequest struct {
	TargetType models.ModerationTargetType `json:"target_type" validate:"required,oneof=review photo"`
	Approve    bool                        `json:"approve"`
	Note       string                      `json:"note,omitempty" validate:"omitempty,max=500"`
}

// QueueItem is one pending entry in the moderation queue.
type QueueItem struct {
	TargetType models.ModerationTargetType `json:"target_type"`
	Review     *models.Review              `json:"review,omitempty"`
	Photo      *models.ProductPhoto        `json:"photo,omitempty"`
}

// SubmitReview creates a pending review. Buyers can only review products from
// orders they completed, and only once per product.
func (s *ModerationService) SubmitReview(ctx context.Context, authorID uuid.UUID, req *CreateReviewRequest) (*models.Review, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var review *models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("product not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var purchased int64
		if err := tx.Model(&models.Order{}).
			Where("buyer_id = ? AND store_id = ? AND status = ?",
				authorID, product.StoreID, models.OrderStatusCompleted).
			Count(&purchased).Error; err != nil {
			return fmt.Errorf("failed to check purchase history: %w", err)
		}
		if purchased == 0 {
			return NewValidationError("only buyers with a completed order from this store can review")
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("product_id = ? AND author_id = ?", req.ProductID, authorID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing reviews: %w", err)
		}
		if existing > 0 {
			return NewValidationError("you have already reviewed this product")
		}

		review = &models.Review{
			ProductID:        req.ProductID,
			AuthorID:         authorID,
			Rating:           req.Rating,
			Body:             req.Body,
			ModerationStatus: models.ModerationStatusPending,
		}

		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// AddProductPhoto records an uploaded photo as pending moderation.
func (s *ModerationService) AddProductPhoto(ctx context.Context, productID, storeID uuid.UUID, upload *UploadResult) (*models.ProductPhoto, error) {
	var photo *models.ProductPhoto
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("product not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if product.StoreID != storeID {
			return errors.New("not authorized to add photos to this product")
		}

		var position int64
		if err := tx.Model(&models.ProductPhoto{}).
			Where("product_id = ?", productID).
			Count(&position).Error; err != nil {
			return fmt.Errorf("failed to count photos: %w", err)
		}

		photo = &models.ProductPhoto{
			ProductID:        productID,
			URL:              upload.URL,
			StorageKey:       upload.Key,
			Position:         int(position),
			ModerationStatus: models.ModerationStatusPending,
		}

		if err := tx.Create(photo).Error; err != nil {
			return fmt.Errorf("failed to create photo: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return photo, nil
}

// PendingQueue returns the oldest pending reviews and photos, interleaved
// reviews first.
func (s *ModerationService) PendingQueue(ctx context.Context, limit int) ([]QueueItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("moderation_status = ?", models.ModerationStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending reviews: %w", err)
	}

	var photos []models.ProductPhoto
	err = s.db.WithContext(ctx).
		Where("moderation_status = ?", models.ModerationStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending photos: %w", err)
	}

	items := make([]QueueItem, 0, len(reviews)+len(photos))
	for i := range reviews {
		items = append(items, QueueItem{TargetType: models.ModerationTargetReview, Review: &reviews[i]})
	}
	for i := range photos {
		items = append(items, QueueItem{TargetType: models.ModerationTargetPhoto, Photo: &photos[i]})
	}

	return items, nil
}

// Decide approves or rejects a pending review or photo.
func (s *ModerationService) Decide(ctx context.Context, targetID, adminID uuid.UUID, req *ModerationDecisionRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	status := models.ModerationStatusRejected
	action := "moderation.reject"
	if req.Approve {
		status = models.ModerationStatusApproved
		action = "moderation.approve"
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var result *gorm.DB
		switch req.TargetType {
		case models.ModerationTargetReview:
			result = tx.Model(&models.Review{}).
				Where("id = ? AND moderation_status = ?", targetID, models.ModerationStatusPending).
				Update("moderation_status", status)
		case models.ModerationTargetPhoto:
			result = tx.Model(&models.ProductPhoto{}).
				Where("id = ? AND moderation_status = ?", targetID, models.ModerationStatusPending).
				Update("moderation_status", status)
		default:
			return NewValidationError(fmt.Sprintf("unknown moderation target %q", req.TargetType))
		}

		if result.Error != nil {
			return fmt.Errorf("failed to update moderation status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.New("pending item not found")
		}

		recordAudit(tx, adminID, action, string(req.TargetType), &targetID, nil, map[string]interface{}{
			"status": string(status),
			"note":   req.Note,
		})
		return nil
	})
}

// ApprovedProductReviews lists the visible reviews on a product.
func (s *ModerationService) ApprovedProductReviews(ctx context.Context, productID uuid.UUID, params utils.PaginationParams) ([]models.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ? AND moderation_status = ?", productID, models.ModerationStatusApproved)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	query = query.Order("created_at desc")
	query = utils.ApplyPagination(query, params)

	var reviews []models.Review
	if err := query.Preload("Author").Find(&reviews).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch reviews: %w", err)
	}

	return reviews, total, nil
}
