// internal/services/rule_service.go
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

// RuleService manages the temporal pricing rules (commission, VAT, currency).
// Every mutation runs its full validation pipeline, including conflict
// detection against other active rules, inside the same database transaction
// as the write, so two concurrent edits cannot both pass against a stale
// snapshot.
type RuleService struct {
	db *gorm.DB
}

func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

type RuleScopeRequest struct {
	Type         models.ScopeType  `json:"type" validate:"required"`
	CategoryID   *uuid.UUID        `json:"category_id,omitempty"`
	StoreID      *uuid.UUID        `json:"store_id,omitempty"`
	Tier         *models.SellerTier `json:"tier,omitempty"`
	CountryCode  string            `json:"country_code,omitempty"`
	Region       string            `json:"region,omitempty"`
	CurrencyCode string            `json:"currency_code,omitempty"`
}

func (r RuleScopeRequest) toScope() models.RuleScope {
	return models.RuleScope{
		Type:         r.Type,
		CategoryID:   r.CategoryID,
		StoreID:      r.StoreID,
		Tier:         r.Tier,
		CountryCode:  r.CountryCode,
		Region:       r.Region,
		CurrencyCode: r.CurrencyCode,
	}
}

type CreateRuleRequest struct {
	RuleType           models.RuleType  `json:"rule_type" validate:"required"`
	Name               string           `json:"name" validate:"required,max=255"`
	Scope              RuleScopeRequest `json:"scope"`
	Rate               decimal.Decimal  `json:"rate"`
	EffectiveStartDate time.Time        `json:"effective_start_date" validate:"required"`
	EffectiveEndDate   *time.Time       `json:"effective_end_date,omitempty"`
	Priority           int              `json:"priority"`
}

type UpdateRuleRequest struct {
	Name               string           `json:"name" validate:"required,max=255"`
	Scope              RuleScopeRequest `json:"scope"`
	Rate               decimal.Decimal  `json:"rate"`
	EffectiveStartDate time.Time        `json:"effective_start_date" validate:"required"`
	EffectiveEndDate   *time.Time       `json:"effective_end_date,omitempty"`
	Priority           int              `json:"priority"`
	IsActive           bool             `json:"is_active"`
}

type RuleSearchParams struct {
	utils.PaginationParams
	RuleType  *models.RuleType  `json:"rule_type,omitempty"`
	ScopeType *models.ScopeType `json:"scope_type,omitempty"`
	Status    *models.RuleStatus `json:"status,omitempty"`
}

// FindConflicts returns every active rule of the same type whose scope
// addresses the same target and whose effective range intersects the
// candidate range. Global rules are defaults and never conflict with scoped
// rules. excludeRuleID lets an update check against all other rules.
func (s *RuleService) FindConflicts(ctx context.Context, ruleType models.RuleType, scope models.RuleScope, start time.Time, end *time.Time, excludeRuleID *uuid.UUID) ([]models.Rule, error) {
	query := s.db.WithContext(ctx).
		Where("rule_type = ? AND is_active = ? AND scope_type = ?", ruleType, true, scope.Type)

	// Narrow by the scope's identity columns; the exhaustive switch keeps the
	// tagged-variant semantics in one place.
	switch scope.Type {
	case models.ScopeTypeGlobal:
		// nothing further to narrow
	case models.ScopeTypeCategory:
		query = query.Where("category_id = ?", scope.CategoryID)
	case models.ScopeTypeStore:
		query = query.Where("store_id = ?", scope.StoreID)
	case models.ScopeTypeSellerTier:
		query = query.Where("tier = ?", scope.Tier)
	case models.ScopeTypeGeo:
		query = query.Where("country_code = ? AND region = ?", scope.CountryCode, scope.Region)
	default:
		return nil, fmt.Errorf("unknown scope type %q", scope.Type)
	}

	if ruleType == models.RuleTypeCurrency {
		query = query.Where("currency_code = ?", scope.CurrencyCode)
	}

	if excludeRuleID != nil {
		query = query.Where("id != ?", *excludeRuleID)
	}

	var candidates []models.Rule
	if err := query.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to query conflicting rules: %w", err)
	}

	// Interval intersection with open-ended ranges treated as +infinity.
	conflicts := make([]models.Rule, 0)
	for _, rule := range candidates {
		if rule.OverlapsRange(start, end) {
			conflicts = append(conflicts, rule)
		}
	}

	return conflicts, nil
}

func (s *RuleService) CreateRule(ctx context.Context, adminID uuid.UUID, req *CreateRuleRequest) (*models.Rule, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	scope := req.Scope.toScope()

	var rule *models.Rule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errs := s.validateRule(tx, req.RuleType, scope, req.Rate, req.EffectiveStartDate, req.EffectiveEndDate, req.Priority)

		// Conflict detection only makes sense once the scope itself is valid.
		if len(errs) == 0 {
			conflicts, err := s.findConflictsTx(ctx, tx, req.RuleType, scope, req.EffectiveStartDate, req.EffectiveEndDate, nil)
			if err != nil {
				return err
			}
			for _, c := range conflicts {
				errs = append(errs, fmt.Sprintf("conflicts with rule %q (%s, effective %s)", c.Name, c.Scope(), c.DateRangeString()))
			}
		}

		if len(errs) > 0 {
			return NewValidationError(errs...)
		}

		rule = &models.Rule{
			RuleType:           req.RuleType,
			Name:               req.Name,
			Rate:               req.Rate,
			EffectiveStartDate: req.EffectiveStartDate,
			EffectiveEndDate:   req.EffectiveEndDate,
			Priority:           req.Priority,
			IsActive:           true,
			CreatedBy:          adminID,
		}
		rule.ApplyScope(scope)

		if err := tx.Create(rule).Error; err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}

		recordAudit(tx, adminID, "rule.create", "rule", &rule.ID, nil, ruleSnapshot(rule))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *RuleService) UpdateRule(ctx context.Context, id uuid.UUID, adminID uuid.UUID, req *UpdateRuleRequest) (*models.Rule, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	scope := req.Scope.toScope()

	var rule models.Rule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("rule not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		oldSnapshot := ruleSnapshot(&rule)

		errs := s.validateRule(tx, rule.RuleType, scope, req.Rate, req.EffectiveStartDate, req.EffectiveEndDate, req.Priority)

		if len(errs) == 0 && req.IsActive {
			conflicts, err := s.findConflictsTx(ctx, tx, rule.RuleType, scope, req.EffectiveStartDate, req.EffectiveEndDate, &rule.ID)
			if err != nil {
				return err
			}
			for _, c := range conflicts {
				errs = append(errs, fmt.Sprintf("conflicts with rule %q (%s, effective %s)", c.Name, c.Scope(), c.DateRangeString()))
			}
		}

		if len(errs) > 0 {
			return NewValidationError(errs...)
		}

		rule.Name = req.Name
		rule.Rate = req.Rate
		rule.EffectiveStartDate = req.EffectiveStartDate
		rule.EffectiveEndDate = req.EffectiveEndDate
		rule.Priority = req.Priority
		rule.IsActive = req.IsActive
		rule.UpdatedBy = &adminID
		rule.ApplyScope(scope)

		if err := tx.Save(&rule).Error; err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}

		recordAudit(tx, adminID, "rule.update", "rule", &rule.ID, oldSnapshot, ruleSnapshot(&rule))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

// DeleteRule hard-deletes a rule that no historical transaction references.
// Rules already consumed by transactions must be deactivated instead, so
// settlement history stays reproducible.
func (s *RuleService) DeleteRule(ctx context.Context, id uuid.UUID, adminID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule models.Rule
		if err := tx.First(&rule, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("rule not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var refCount int64
		if err := tx.Model(&models.OrderTransaction{}).
			Where("commission_rule_id = ? OR vat_rule_id = ?", id, id).
			Count(&refCount).Error; err != nil {
			return fmt.Errorf("failed to count rule references: %w", err)
		}

		if refCount > 0 {
			return NewValidationError(fmt.Sprintf("rule %q is referenced by %d historical transactions and cannot be deleted; deactivate it instead", rule.Name, refCount))
		}

		if err := tx.Unscoped().Delete(&rule).Error; err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}

		recordAudit(tx, adminID, "rule.delete", "rule", &rule.ID, ruleSnapshot(&rule), nil)
		return nil
	})
}

func (s *RuleService) DeactivateRule(ctx context.Context, id uuid.UUID, adminID uuid.UUID) (*models.Rule, error) {
	var rule models.Rule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("rule not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !rule.IsActive {
			return NewValidationError("rule is already inactive")
		}

		oldSnapshot := ruleSnapshot(&rule)
		rule.IsActive = false
		rule.UpdatedBy = &adminID

		if err := tx.Save(&rule).Error; err != nil {
			return fmt.Errorf("failed to deactivate rule: %w", err)
		}

		recordAudit(tx, adminID, "rule.deactivate", "rule", &rule.ID, oldSnapshot, ruleSnapshot(&rule))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func (s *RuleService) GetRule(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	var rule models.Rule
	if err := s.db.WithContext(ctx).Preload("Category").Preload("Store").First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("rule not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &rule, nil
}

func (s *RuleService) SearchRules(ctx context.Context, params RuleSearchParams) ([]models.Rule, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Rule{})

	if params.RuleType != nil {
		query = query.Where("rule_type = ?", *params.RuleType)
	}

	if params.ScopeType != nil {
		query = query.Where("scope_type = ?", *params.ScopeType)
	}

	if params.Status != nil {
		now := time.Now()
		switch *params.Status {
		case models.RuleStatusInactive:
			query = query.Where("is_active = ?", false)
		case models.RuleStatusFuture:
			query = query.Where("is_active = ? AND effective_start_date > ?", true, now)
		case models.RuleStatusExpired:
			query = query.Where("is_active = ? AND effective_end_date IS NOT NULL AND effective_end_date < ?", true, now)
		case models.RuleStatusActive:
			query = query.Where("is_active = ? AND effective_start_date <= ? AND (effective_end_date IS NULL OR effective_end_date >= ?)", true, now, now)
		}
	}

	if params.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rules: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "effective_start_date", "priority", "name"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var rules []models.Rule
	if err := query.Find(&rules).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch rules: %w", err)
	}

	return rules, total, nil
}

// RulesActiveAsOf returns the rules of the given type whose effective range
// covers the instant.
func (s *RuleService) RulesActiveAsOf(ctx context.Context, ruleType models.RuleType, at time.Time) ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.WithContext(ctx).
		Where("rule_type = ? AND is_active = ? AND effective_start_date <= ? AND (effective_end_date IS NULL OR effective_end_date >= ?)",
			ruleType, true, at, at).
		Order("priority asc, effective_start_date asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active rules: %w", err)
	}
	return rules, nil
}

// FutureRules returns active rules whose effective window has not opened yet.
func (s *RuleService) FutureRules(ctx context.Context, ruleType models.RuleType, asOf time.Time) ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.WithContext(ctx).
		Where("rule_type = ? AND is_active = ? AND effective_start_date > ?", ruleType, true, asOf).
		Order("effective_start_date asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch future rules: %w", err)
	}
	return rules, nil
}

// ResolveCommissionRule picks the commission rule that applies to a store at
// the given instant: the store-scoped rule if one exists, otherwise the
// store's tier rule, otherwise the global default. Within a scope level the
// lowest priority value wins.
func (s *RuleService) ResolveCommissionRule(ctx context.Context, store *models.Store, at time.Time) (*models.Rule, error) {
	rules, err := s.RulesActiveAsOf(ctx, models.RuleTypeCommission, at)
	if err != nil {
		return nil, err
	}

	var best *models.Rule
	bestRank := -1
	for i := range rules {
		rule := &rules[i]

		var rank int
		switch rule.ScopeType {
		case models.ScopeTypeStore:
			if rule.StoreID == nil || *rule.StoreID != store.ID {
				continue
			}
			rank = 0
		case models.ScopeTypeSellerTier:
			if rule.Tier == nil || *rule.Tier != store.Tier {
				continue
			}
			rank = 1
		case models.ScopeTypeGlobal:
			rank = 2
		default:
			continue
		}

		if best == nil || rank < bestRank || (rank == bestRank && rule.Priority < best.Priority) {
			best = rule
			bestRank = rank
		}
	}

	return best, nil
}

// ResolveVATRule picks the VAT rule for a country and region at the given
// instant. A region-specific rule beats a country-wide one; nil with no error
// means no VAT applies.
func (s *RuleService) ResolveVATRule(ctx context.Context, countryCode, region string, at time.Time) (*models.Rule, error) {
	rules, err := s.RulesActiveAsOf(ctx, models.RuleTypeVAT, at)
	if err != nil {
		return nil, err
	}

	var best *models.Rule
	bestRank := -1
	for i := range rules {
		rule := &rules[i]
		if rule.ScopeType != models.ScopeTypeGeo || rule.CountryCode != countryCode {
			continue
		}

		var rank int
		switch {
		case rule.Region != "" && rule.Region == region:
			rank = 0
		case rule.Region == "":
			rank = 1
		default:
			continue
		}

		if best == nil || rank < bestRank || (rank == bestRank && rule.Priority < best.Priority) {
			best = rule
			bestRank = rank
		}
	}

	return best, nil
}

// findConflictsTx is FindConflicts bound to an open transaction so the check
// and the subsequent write share one snapshot.
func (s *RuleService) findConflictsTx(ctx context.Context, tx *gorm.DB, ruleType models.RuleType, scope models.RuleScope, start time.Time, end *time.Time, excludeRuleID *uuid.UUID) ([]models.Rule, error) {
	svc := &RuleService{db: tx}
	return svc.FindConflicts(ctx, ruleType, scope, start, end, excludeRuleID)
}

// validateRule collects every validation failure for the proposed rule state.
// The caller writes nothing unless the returned list is empty.
func (s *RuleService) validateRule(tx *gorm.DB, ruleType models.RuleType, scope models.RuleScope, rate decimal.Decimal, start time.Time, end *time.Time, priority int) []string {
	var errs []string

	if end != nil && end.Before(start) {
		errs = append(errs, "effective end date must be on or after the effective start date")
	}

	if rate.IsNegative() {
		errs = append(errs, "rate must not be negative")
	}

	if ruleType != models.RuleTypeCurrency && rate.GreaterThan(decimal.NewFromInt(100)) {
		errs = append(errs, "percentage rate must not exceed 100")
	}

	if priority < 0 {
		errs = append(errs, "priority must not be negative")
	}

	switch scope.Type {
	case models.ScopeTypeGlobal:
		// no scope key
	case models.ScopeTypeCategory:
		if scope.CategoryID == nil {
			errs = append(errs, "category scope requires a category id")
		} else {
			var count int64
			tx.Model(&models.Category{}).Where("id = ?", *scope.CategoryID).Count(&count)
			if count == 0 {
				errs = append(errs, "the referenced category does not exist")
			}
		}
	case models.ScopeTypeStore:
		if scope.StoreID == nil {
			errs = append(errs, "store scope requires a store id")
		} else {
			var count int64
			tx.Model(&models.Store{}).Where("id = ?", *scope.StoreID).Count(&count)
			if count == 0 {
				errs = append(errs, "the referenced store does not exist")
			}
		}
	case models.ScopeTypeSellerTier:
		if scope.Tier == nil || !models.IsValidSellerTier(*scope.Tier) {
			errs = append(errs, "seller tier scope requires a valid tier")
		}
	case models.ScopeTypeGeo:
		if !utils.IsValidCountryCode(scope.CountryCode) {
			errs = append(errs, "geo scope requires a 2-letter ISO country code")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown scope type %q", scope.Type))
	}

	if ruleType == models.RuleTypeCurrency {
		if !utils.IsValidCurrencyCode(scope.CurrencyCode) {
			errs = append(errs, "currency rules require a 3-letter ISO currency code")
		}
		if rate.IsZero() {
			errs = append(errs, "currency exchange rate must be positive")
		}
	}

	return errs
}

func ruleSnapshot(rule *models.Rule) map[string]interface{} {
	snapshot := map[string]interface{}{
		"rule_type":            string(rule.RuleType),
		"name":                 rule.Name,
		"scope_type":           string(rule.ScopeType),
		"rate":                 rule.Rate.String(),
		"effective_start_date": rule.EffectiveStartDate.Format(time.RFC3339),
		"priority":             rule.Priority,
		"is_active":            rule.IsActive,
	}
	if rule.EffectiveEndDate != nil {
		snapshot["effective_end_date"] = rule.EffectiveEndDate.Format(time.RFC3339)
	}
	if rule.CategoryID != nil {
		snapshot["category_id"] = rule.CategoryID.String()
	}
	if rule.StoreID != nil {
		snapshot["store_id"] = rule.StoreID.String()
	}
	if rule.Tier != nil {
		snapshot["tier"] = string(*rule.Tier)
	}
	if rule.CountryCode != "" {
		snapshot["country_code"] = rule.CountryCode
	}
	if rule.Region != "" {
		snapshot["region"] = rule.Region
	}
	if rule.CurrencyCode != "" {
		snapshot["currency_code"] = rule.CurrencyCode
	}
	return snapshot
}
