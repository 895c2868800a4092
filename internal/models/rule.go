// internal/models/rule.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rule is a temporal pricing rule: commission rates, VAT rates, and currency
// exchange rates all share the same shape. A rule applies to exactly one scope
// and is effective over a date range. Overlap between two active rules of the
// same type and scope is rejected at write time.
type Rule struct {
	BaseModel
	RuleType           RuleType        `json:"rule_type" gorm:"type:varchar(20);not null;index:idx_rules_type_scope"`
	Name               string          `json:"name" gorm:"size:255;not null"`
	ScopeType          ScopeType       `json:"scope_type" gorm:"type:varchar(20);not null;index:idx_rules_type_scope"`
	CategoryID         *uuid.UUID      `json:"category_id,omitempty" gorm:"type:uuid;index"`
	StoreID            *uuid.UUID      `json:"store_id,omitempty" gorm:"type:uuid;index"`
	Tier               *SellerTier     `json:"tier,omitempty" gorm:"type:varchar(20)"`
	CountryCode        string          `json:"country_code,omitempty" gorm:"size:2"`
	Region             string          `json:"region,omitempty" gorm:"size:100"`
	CurrencyCode       string          `json:"currency_code,omitempty" gorm:"size:3"`
	Rate               decimal.Decimal `json:"rate" gorm:"type:decimal(12,6);not null"`
	EffectiveStartDate time.Time       `json:"effective_start_date" gorm:"not null;index"`
	EffectiveEndDate   *time.Time      `json:"effective_end_date" gorm:"index"`
	Priority           int             `json:"priority" gorm:"not null;default:100"`
	IsActive           bool            `json:"is_active" gorm:"not null;default:true;index"`
	CreatedBy          uuid.UUID       `json:"created_by" gorm:"type:uuid;not null"`
	UpdatedBy          *uuid.UUID      `json:"updated_by,omitempty" gorm:"type:uuid"`

	// Relationships
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Store    *Store    `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

// RuleScope is the tagged-variant view of a rule's target. Only the fields
// matching Type are meaningful; validators and the conflict detector switch
// on Type exhaustively instead of null-checking columns.
type RuleScope struct {
	Type         ScopeType
	CategoryID   *uuid.UUID
	StoreID      *uuid.UUID
	Tier         *SellerTier
	CountryCode  string
	Region       string
	CurrencyCode string
}

func (r *Rule) Scope() RuleScope {
	return RuleScope{
		Type:         r.ScopeType,
		CategoryID:   r.CategoryID,
		StoreID:      r.StoreID,
		Tier:         r.Tier,
		CountryCode:  r.CountryCode,
		Region:       r.Region,
		CurrencyCode: r.CurrencyCode,
	}
}

// ApplyScope writes the variant back onto the row, clearing the columns that
// do not belong to the scope type.
func (r *Rule) ApplyScope(scope RuleScope) {
	r.ScopeType = scope.Type
	r.CategoryID = nil
	r.StoreID = nil
	r.Tier = nil
	r.CountryCode = ""
	r.Region = ""

	switch scope.Type {
	case ScopeTypeGlobal:
	case ScopeTypeCategory:
		r.CategoryID = scope.CategoryID
	case ScopeTypeStore:
		r.StoreID = scope.StoreID
	case ScopeTypeSellerTier:
		r.Tier = scope.Tier
	case ScopeTypeGeo:
		r.CountryCode = scope.CountryCode
		r.Region = scope.Region
	}
	r.CurrencyCode = scope.CurrencyCode
}

// SameTarget reports whether two scopes address the same rule target. Global
// rules are defaults and never collide with scoped rules.
func (s RuleScope) SameTarget(other RuleScope) bool {
	if s.Type != other.Type {
		return false
	}

	switch s.Type {
	case ScopeTypeGlobal:
		return true
	case ScopeTypeCategory:
		return s.CategoryID != nil && other.CategoryID != nil && *s.CategoryID == *other.CategoryID
	case ScopeTypeStore:
		return s.StoreID != nil && other.StoreID != nil && *s.StoreID == *other.StoreID
	case ScopeTypeSellerTier:
		return s.Tier != nil && other.Tier != nil && *s.Tier == *other.Tier
	case ScopeTypeGeo:
		return s.CountryCode == other.CountryCode && s.Region == other.Region
	}
	return false
}

func (s RuleScope) String() string {
	switch s.Type {
	case ScopeTypeGlobal:
		return "global"
	case ScopeTypeCategory:
		if s.CategoryID != nil {
			return fmt.Sprintf("category %s", s.CategoryID)
		}
		return "category"
	case ScopeTypeStore:
		if s.StoreID != nil {
			return fmt.Sprintf("store %s", s.StoreID)
		}
		return "store"
	case ScopeTypeSellerTier:
		if s.Tier != nil {
			return fmt.Sprintf("tier %s", *s.Tier)
		}
		return "tier"
	case ScopeTypeGeo:
		if s.Region != "" {
			return fmt.Sprintf("%s/%s", s.CountryCode, s.Region)
		}
		return s.CountryCode
	}
	return string(s.Type)
}

// Status derives the lifecycle state at the given instant.
func (r *Rule) Status(now time.Time) RuleStatus {
	if !r.IsActive {
		return RuleStatusInactive
	}
	if now.Before(r.EffectiveStartDate) {
		return RuleStatusFuture
	}
	if r.EffectiveEndDate != nil && now.After(*r.EffectiveEndDate) {
		return RuleStatusExpired
	}
	return RuleStatusActive
}

// OverlapsRange reports whether the rule's effective range intersects
// [start, end]; a nil end extends to positive infinity.
func (r *Rule) OverlapsRange(start time.Time, end *time.Time) bool {
	if end != nil && r.EffectiveStartDate.After(*end) {
		return false
	}
	if r.EffectiveEndDate != nil && start.After(*r.EffectiveEndDate) {
		return false
	}
	return true
}

func (r *Rule) DateRangeString() string {
	if r.EffectiveEndDate == nil {
		return fmt.Sprintf("%s - open ended", r.EffectiveStartDate.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s - %s",
		r.EffectiveStartDate.Format("2006-01-02"),
		r.EffectiveEndDate.Format("2006-01-02"))
}
