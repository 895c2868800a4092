// internal/models/settlement.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settlement is a payout statement for one store over one period. Regeneration
// never mutates a finalized row: the old row is marked superseded and a new row
// is inserted with Version+1. All versions of a (store, period) pair share the
// same GroupKey so history stays queryable.
type Settlement struct {
	BaseModel
	StoreID          uuid.UUID        `json:"store_id" gorm:"type:uuid;not null;index:idx_settlements_group"`
	PeriodStartDate  time.Time        `json:"period_start_date" gorm:"not null;index:idx_settlements_group"`
	PeriodEndDate    time.Time        `json:"period_end_date" gorm:"not null;index:idx_settlements_group"`
	Version          int              `json:"version" gorm:"not null;default:1"`
	Status           SettlementStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	GrossAmount      decimal.Decimal  `json:"gross_amount" gorm:"type:decimal(14,2);not null"`
	CommissionAmount decimal.Decimal  `json:"commission_amount" gorm:"type:decimal(14,2);not null"`
	NetAmount        decimal.Decimal  `json:"net_amount" gorm:"type:decimal(14,2);not null"`
	TransactionCount int              `json:"transaction_count" gorm:"not null;default:0"`
	GeneratedBy      uuid.UUID        `json:"generated_by" gorm:"type:uuid;not null"`
	FinalizedAt      *time.Time       `json:"finalized_at"`
	SupersededAt     *time.Time       `json:"superseded_at"`

	// Relationships
	Store       Store                  `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Adjustments []SettlementAdjustment `json:"adjustments,omitempty" gorm:"foreignKey:SettlementID"`
}

// GroupKey identifies all versions of the same store+period settlement.
func (s *Settlement) GroupKey() string {
	return s.StoreID.String() + ":" +
		s.PeriodStartDate.Format("2006-01-02") + ":" +
		s.PeriodEndDate.Format("2006-01-02")
}

type SettlementAdjustment struct {
	BaseModel
	SettlementID   uuid.UUID       `json:"settlement_id" gorm:"type:uuid;not null;index"`
	AdjustmentType AdjustmentType  `json:"adjustment_type" gorm:"type:varchar(10);not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	Description    string          `json:"description" gorm:"size:500;not null"`
	Position       int             `json:"position" gorm:"not null;default:0"`
	CreatedBy      uuid.UUID       `json:"created_by" gorm:"type:uuid;not null"`
}

// SignedAmount is the adjustment's contribution to the settlement net total.
func (a *SettlementAdjustment) SignedAmount() decimal.Decimal {
	if a.AdjustmentType == AdjustmentTypeDebit {
		return a.Amount.Neg()
	}
	return a.Amount
}
