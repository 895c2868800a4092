// internal/services/returns_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// ReturnsService handles buyer return requests. Sellers have a response SLA;
// requests the seller lets lapse are escalated to admins by the periodic
// checker and resolved manually.
type ReturnsService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewReturnsService(db *gorm.DB, cfg *config.Config) *ReturnsService {
	return &ReturnsService{db: db, cfg: cfg}
}

type CreateReturnRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Reason  string    `json:"reason" validate:"required,max=500"`
}

type SellerReturnResponse struct {
	Accept   bool   `json:"accept"`
	Response string `json:"response" validate:"required,max=2000"`
}

type ResolveReturnRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

type ReturnSearchParams struct {
	utils.PaginationParams
	StoreID *uuid.UUID           `json:"store_id,omitempty"`
	BuyerID *uuid.UUID           `json:"buyer_id,omitempty"`
	Status  *models.ReturnStatus `json:"status,omitempty"`
}

// RequestReturn opens a return for a completed order. The seller's response
// deadline is stamped from the configured SLA at creation time.
func (s *ReturnsService) RequestReturn(ctx context.Context, buyerID uuid.UUID, req *CreateReturnRequest) (*models.ReturnRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var request *models.ReturnRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, req.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if order.BuyerID != buyerID {
			return errors.New("not authorized to return this order")
		}
		if order.Status != models.OrderStatusCompleted {
			return NewValidationError("only completed orders can be returned")
		}

		var open int64
		if err := tx.Model(&models.ReturnRequest{}).
			Where("order_id = ? AND status IN ?", req.OrderID,
				[]models.ReturnStatus{models.ReturnStatusRequested, models.ReturnStatusEscalated}).
			Count(&open).Error; err != nil {
			return fmt.Errorf("failed to check open returns: %w", err)
		}
		if open > 0 {
			return NewValidationError("a return request is already open for this order")
		}

		deadline := time.Now().Add(time.Duration(s.cfg.Returns.SellerResponseSLAHours) * time.Hour)

		request = &models.ReturnRequest{
			OrderID:     req.OrderID,
			BuyerID:     buyerID,
			StoreID:     order.StoreID,
			Reason:      req.Reason,
			Status:      models.ReturnStatusRequested,
			SLADeadline: deadline,
		}

		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("failed to create return request: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

// RespondToReturn records the seller's accept or reject decision. Escalated
// requests are out of the seller's hands.
func (s *ReturnsService) RespondToReturn(ctx context.Context, returnID, sellerID uuid.UUID, req *SellerReturnResponse) (*models.ReturnRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var request models.ReturnRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Store").First(&request, returnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("return request not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if request.Store.OwnerID != sellerID {
			return errors.New("not authorized to respond to this return")
		}
		if request.Status != models.ReturnStatusRequested {
			return NewValidationError(fmt.Sprintf("return request is %s and cannot be answered", request.Status))
		}

		now := time.Now()
		if req.Accept {
			request.Status = models.ReturnStatusAccepted
		} else {
			request.Status = models.ReturnStatusRejected
		}
		request.SellerResponse = req.Response
		request.RespondedAt = &now

		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to record seller response: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// EscalateOverdueReturns moves every requested return whose SLA deadline has
// passed to escalated and raises an admin notification per request. The
// periodic checker calls this; it returns the number escalated.
func (s *ReturnsService) EscalateOverdueReturns(ctx context.Context) (int, error) {
	var overdue []models.ReturnRequest
	err := s.db.WithContext(ctx).
		Where("status = ? AND sla_deadline < ?", models.ReturnStatusRequested, time.Now()).
		Find(&overdue).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue returns: %w", err)
	}

	escalated := 0
	for i := range overdue {
		request := &overdue[i]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := time.Now()

			// Re-check under the transaction; the seller may have answered
			// between the scan and now.
			result := tx.Model(&models.ReturnRequest{}).
				Where("id = ? AND status = ?", request.ID, models.ReturnStatusRequested).
				Updates(map[string]interface{}{
					"status":       models.ReturnStatusEscalated,
					"escalated_at": now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to escalate return: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return nil
			}

			notification := &models.AdminNotification{
				Type:                "return_escalated",
				Title:               "Return request escalated",
				Message:             fmt.Sprintf("Return request %s passed its seller response deadline and needs an admin decision.", request.ID),
				Priority:            "high",
				RelatedResourceType: "return_request",
				RelatedResourceID:   &request.ID,
			}
			if err := tx.Create(notification).Error; err != nil {
				return fmt.Errorf("failed to create escalation notification: %w", err)
			}

			escalated++
			return nil
		})
		if err != nil {
			logrus.WithError(err).WithField("return_id", request.ID).Error("Failed to escalate return request")
		}
	}

	return escalated, nil
}

// ResolveReturn closes an escalated return with an admin decision.
func (s *ReturnsService) ResolveReturn(ctx context.Context, returnID, adminID uuid.UUID, req *ResolveReturnRequest) (*models.ReturnRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var request models.ReturnRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, returnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("return request not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if request.Status != models.ReturnStatusEscalated {
			return NewValidationError("only escalated return requests can be resolved by an admin")
		}

		now := time.Now()
		request.Status = models.ReturnStatusResolved
		request.SellerResponse = req.Resolution
		request.ResolvedAt = &now
		request.ResolvedBy = &adminID

		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("failed to resolve return: %w", err)
		}

		recordAudit(tx, adminID, "return.resolve", "return_request", &request.ID, nil, map[string]interface{}{
			"resolution": req.Resolution,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}

func (s *ReturnsService) GetReturn(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := s.db.WithContext(ctx).
		Preload("Order").
		Preload("Store").
		First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("return request not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &request, nil
}

func (s *ReturnsService) SearchReturns(ctx context.Context, params ReturnSearchParams) ([]models.ReturnRequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ReturnRequest{})

	if params.StoreID != nil {
		query = query.Where("store_id = ?", *params.StoreID)
	}
	if params.BuyerID != nil {
		query = query.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count returns: %w", err)
	}

	allowedSortFields := []string{"created_at", "sla_deadline", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var requests []models.ReturnRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch returns: %w", err)
	}

	return requests, total, nil
}
