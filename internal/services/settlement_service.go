// internal/services/settlement_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// SettlementService generates payout statements from completed transactions.
// Statements are versioned: finalized statements are immutable, and a
// regeneration supersedes the old version and inserts a fresh draft with the
// next version number.
type SettlementService struct {
	db *gorm.DB
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{db: db}
}

type GenerateSettlementRequest struct {
	StoreID         uuid.UUID `json:"store_id" validate:"required"`
	PeriodStartDate time.Time `json:"period_start_date" validate:"required"`
	PeriodEndDate   time.Time `json:"period_end_date" validate:"required"`
}

type AddAdjustmentRequest struct {
	AdjustmentType models.AdjustmentType `json:"adjustment_type" validate:"required,oneof=credit debit"`
	Amount         decimal.Decimal       `json:"amount"`
	Description    string                `json:"description" validate:"required,max=500"`
}

// GenerateSettlement aggregates the store's completed transactions over the
// period into a draft statement. A period with no completed transactions
// produces no statement. Generating for a (store, period) pair that already
// has a live statement is rejected; use RegenerateSettlement instead.
func (s *SettlementService) GenerateSettlement(ctx context.Context, adminID uuid.UUID, req *GenerateSettlementRequest) (*models.Settlement, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.PeriodEndDate.Before(req.PeriodStartDate) {
		return nil, NewValidationError("period end date must be on or after the period start date")
	}

	var settlement *models.Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store models.Store
		if err := tx.First(&store, req.StoreID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("store not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var existing int64
		if err := tx.Model(&models.Settlement{}).
			Where("store_id = ? AND period_start_date = ? AND period_end_date = ? AND status != ?",
				req.StoreID, req.PeriodStartDate, req.PeriodEndDate, models.SettlementStatusSuperseded).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing settlements: %w", err)
		}
		if existing > 0 {
			return NewValidationError("a settlement for this store and period already exists; regenerate it instead")
		}

		created, err := s.buildSettlement(tx, adminID, req.StoreID, req.PeriodStartDate, req.PeriodEndDate, 1)
		if err != nil {
			return err
		}
		settlement = created

		recordAudit(tx, adminID, "settlement.generate", "settlement", &settlement.ID, nil, settlementSnapshot(settlement))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

// buildSettlement aggregates transactions and inserts a draft row at the
// given version. Commission amounts come from the values stamped on each
// transaction at payment time, never from re-applying current rules.
func (s *SettlementService) buildSettlement(tx *gorm.DB, adminID, storeID uuid.UUID, start, end time.Time, version int) (*models.Settlement, error) {
	var transactions []models.OrderTransaction
	err := tx.Where("store_id = ? AND status = ? AND processed_at >= ? AND processed_at <= ?",
		storeID, models.TransactionStatusCompleted, start, end).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	if len(transactions) == 0 {
		return nil, NewValidationError("no completed transactions in the period; nothing to settle")
	}

	gross := decimal.Zero
	commission := decimal.Zero
	for _, t := range transactions {
		gross = gross.Add(t.Amount)
		commission = commission.Add(t.CommissionAmount)
	}

	settlement := &models.Settlement{
		StoreID:          storeID,
		PeriodStartDate:  start,
		PeriodEndDate:    end,
		Version:          version,
		Status:           models.SettlementStatusDraft,
		GrossAmount:      gross,
		CommissionAmount: commission,
		NetAmount:        gross.Sub(commission),
		TransactionCount: len(transactions),
		GeneratedBy:      adminID,
	}

	if err := tx.Create(settlement).Error; err != nil {
		return nil, fmt.Errorf("failed to create settlement: %w", err)
	}

	return settlement, nil
}

// FinalizeSettlement moves a draft to finalized, freezing its amounts.
func (s *SettlementService) FinalizeSettlement(ctx context.Context, settlementID uuid.UUID, adminID uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&settlement, settlementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("settlement not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if settlement.Status != models.SettlementStatusDraft {
			return NewValidationError(fmt.Sprintf("only draft settlements can be finalized; this one is %s", settlement.Status))
		}

		now := time.Now()
		settlement.Status = models.SettlementStatusFinalized
		settlement.FinalizedAt = &now

		if err := tx.Save(&settlement).Error; err != nil {
			return fmt.Errorf("failed to finalize settlement: %w", err)
		}

		recordAudit(tx, adminID, "settlement.finalize", "settlement", &settlement.ID, nil, settlementSnapshot(&settlement))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &settlement, nil
}

// RegenerateSettlement supersedes a finalized statement and rebuilds a fresh
// draft for the same store and period at the next version number. Only
// finalized statements can be regenerated: a draft is still mutable (its
// adjustments would be silently lost) and a superseded row is immutable.
func (s *SettlementService) RegenerateSettlement(ctx context.Context, settlementID uuid.UUID, adminID uuid.UUID) (*models.Settlement, error) {
	var replacement *models.Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Settlement
		if err := tx.First(&old, settlementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("settlement not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if old.Status != models.SettlementStatusFinalized {
			return NewValidationError(fmt.Sprintf("only finalized settlements can be regenerated; this one is %s", old.Status))
		}

		now := time.Now()
		oldSnapshot := settlementSnapshot(&old)
		old.Status = models.SettlementStatusSuperseded
		old.SupersededAt = &now

		if err := tx.Save(&old).Error; err != nil {
			return fmt.Errorf("failed to supersede settlement: %w", err)
		}

		created, err := s.buildSettlement(tx, adminID, old.StoreID, old.PeriodStartDate, old.PeriodEndDate, old.Version+1)
		if err != nil {
			return err
		}
		replacement = created

		recordAudit(tx, adminID, "settlement.regenerate", "settlement", &replacement.ID, oldSnapshot, settlementSnapshot(replacement))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return replacement, nil
}

// AddAdjustment appends a manual credit or debit to a draft settlement and
// recomputes its net amount. Finalized and superseded statements reject
// adjustments.
func (s *SettlementService) AddAdjustment(ctx context.Context, settlementID uuid.UUID, adminID uuid.UUID, req *AddAdjustmentRequest) (*models.SettlementAdjustment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !req.Amount.IsPositive() {
		return nil, NewValidationError("adjustment amount must be positive")
	}

	var adjustment *models.SettlementAdjustment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var settlement models.Settlement
		if err := tx.First(&settlement, settlementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("settlement not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if settlement.Status != models.SettlementStatusDraft {
			return NewValidationError(fmt.Sprintf("adjustments can only be added to draft settlements; this one is %s", settlement.Status))
		}

		var position int64
		if err := tx.Model(&models.SettlementAdjustment{}).
			Where("settlement_id = ?", settlementID).
			Count(&position).Error; err != nil {
			return fmt.Errorf("failed to count adjustments: %w", err)
		}

		adjustment = &models.SettlementAdjustment{
			SettlementID:   settlementID,
			AdjustmentType: req.AdjustmentType,
			Amount:         req.Amount,
			Description:    req.Description,
			Position:       int(position),
			CreatedBy:      adminID,
		}

		if err := tx.Create(adjustment).Error; err != nil {
			return fmt.Errorf("failed to create adjustment: %w", err)
		}

		settlement.NetAmount = settlement.NetAmount.Add(adjustment.SignedAmount())
		if err := tx.Save(&settlement).Error; err != nil {
			return fmt.Errorf("failed to update settlement net amount: %w", err)
		}

		recordAudit(tx, adminID, "settlement.adjust", "settlement", &settlement.ID, nil, map[string]interface{}{
			"adjustment_type": string(req.AdjustmentType),
			"amount":          req.Amount.String(),
			"description":     req.Description,
			"net_amount":      settlement.NetAmount.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return adjustment, nil
}

func (s *SettlementService) GetSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	err := s.db.WithContext(ctx).
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("Store").
		First(&settlement, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("settlement not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &settlement, nil
}

// VersionHistory returns every version for the settlement's store and period,
// oldest first.
func (s *SettlementService) VersionHistory(ctx context.Context, id uuid.UUID) ([]models.Settlement, error) {
	var settlement models.Settlement
	if err := s.db.WithContext(ctx).First(&settlement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("settlement not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var versions []models.Settlement
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND period_start_date = ? AND period_end_date = ?",
			settlement.StoreID, settlement.PeriodStartDate, settlement.PeriodEndDate).
		Order("version asc").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settlement versions: %w", err)
	}

	return versions, nil
}

// ListStoreSettlements returns the store's statements newest period first,
// excluding superseded versions unless includeSuperseded is set.
func (s *SettlementService) ListStoreSettlements(ctx context.Context, storeID uuid.UUID, includeSuperseded bool, params utils.PaginationParams) ([]models.Settlement, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Settlement{}).Where("store_id = ?", storeID)
	if !includeSuperseded {
		query = query.Where("status != ?", models.SettlementStatusSuperseded)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	query = query.Order("period_start_date desc, version desc")
	query = utils.ApplyPagination(query, params)

	var settlements []models.Settlement
	if err := query.Find(&settlements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch settlements: %w", err)
	}

	return settlements, total, nil
}

func settlementSnapshot(settlement *models.Settlement) map[string]interface{} {
	return map[string]interface{}{
		"store_id":          settlement.StoreID.String(),
		"period_start_date": settlement.PeriodStartDate.Format("2006-01-02"),
		"period_end_date":   settlement.PeriodEndDate.Format("2006-01-02"),
		"version":           settlement.Version,
		"status":            string(settlement.Status),
		"gross_amount":      settlement.GrossAmount.String(),
		"commission_amount": settlement.CommissionAmount.String(),
		"net_amount":        settlement.NetAmount.String(),
		"transaction_count": settlement.TransactionCount,
	}
}
