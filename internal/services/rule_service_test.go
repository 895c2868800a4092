// internal/services/rule_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
)

type RuleServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *RuleService
	ctx     context.Context
	admin   *models.User
}

func (suite *RuleServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewRuleService(suite.db)
	suite.ctx = context.Background()
	suite.admin = createTestUser(suite.T(), suite.db, models.UserTypeAdmin)
}

func (suite *RuleServiceTestSuite) globalCommission(name string, rate int64, start time.Time, end *time.Time) *CreateRuleRequest {
	return &CreateRuleRequest{
		RuleType:           models.RuleTypeCommission,
		Name:               name,
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal},
		Rate:               decimal.NewFromInt(rate),
		EffectiveStartDate: start,
		EffectiveEndDate:   end,
	}
}

func (suite *RuleServiceTestSuite) TestCreateGlobalRule() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("Default commission", 10, start, nil))
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.RuleTypeCommission, rule.RuleType)
	assert.Equal(suite.T(), models.ScopeTypeGlobal, rule.ScopeType)
	assert.True(suite.T(), rule.IsActive)
	assert.True(suite.T(), rule.Rate.Equal(decimal.NewFromInt(10)))

	var audit models.AuditLog
	err = suite.db.Where("action = ? AND resource_id = ?", "rule.create", rule.ID).First(&audit).Error
	assert.NoError(suite.T(), err)
}

func (suite *RuleServiceTestSuite) TestOverlappingRulesConflict() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("H1 commission", 10, start, &end))
	suite.Require().NoError(err)

	// Second rule opens inside the first one's range.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Spring commission", 12, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil))
	suite.Require().Error(err)

	ve, ok := AsValidationError(err)
	suite.Require().True(ok)
	assert.Contains(suite.T(), ve.Errors[0], "conflicts with rule")

	// Nothing was written.
	var count int64
	suite.db.Model(&models.Rule{}).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *RuleServiceTestSuite) TestOpenEndedRuleConflictsWithLaterRule() {
	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Open ended", 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil))
	suite.Require().NoError(err)

	// An open-ended range extends to infinity, so any later rule collides.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Next year", 8, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), nil))
	suite.Require().Error(err)

	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *RuleServiceTestSuite) TestAdjacentRangesDoNotConflict() {
	firstEnd := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("H1", 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), &firstEnd))
	suite.Require().NoError(err)

	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("H2", 12, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), nil))
	assert.NoError(suite.T(), err)
}

func (suite *RuleServiceTestSuite) TestDifferentScopeTargetsDoNotConflict() {
	seller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	otherSeller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	storeA := createTestStore(suite.T(), suite.db, seller, models.StoreStatusActive, models.SellerTierStandard)
	storeB := createTestStore(suite.T(), suite.db, otherSeller, models.StoreStatusActive, models.SellerTierStandard)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	makeStoreRule := func(name string, store *models.Store) *CreateRuleRequest {
		req := suite.globalCommission(name, 5, start, nil)
		req.Scope = RuleScopeRequest{Type: models.ScopeTypeStore, StoreID: &store.ID}
		return req
	}

	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, makeStoreRule("Store A rate", storeA))
	suite.Require().NoError(err)

	// Same dates, different store: no conflict.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID, makeStoreRule("Store B rate", storeB))
	assert.NoError(suite.T(), err)

	// A global default alongside scoped rules is fine too.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("Global default", 10, start, nil))
	assert.NoError(suite.T(), err)

	// But a second rule for store A does collide.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID, makeStoreRule("Store A duplicate", storeA))
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *RuleServiceTestSuite) TestCurrencyRulesKeyedByCurrencyCode() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	makeCurrencyRule := func(name, code string) *CreateRuleRequest {
		return &CreateRuleRequest{
			RuleType:           models.RuleTypeCurrency,
			Name:               name,
			Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal, CurrencyCode: code},
			Rate:               decimal.NewFromFloat(1.08),
			EffectiveStartDate: start,
		}
	}

	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, makeCurrencyRule("USD rate", "USD"))
	suite.Require().NoError(err)

	// Different currency, same dates: fine.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID, makeCurrencyRule("GBP rate", "GBP"))
	assert.NoError(suite.T(), err)

	// Same currency overlapping: conflict.
	_, err = suite.service.CreateRule(suite.ctx, suite.admin.ID, makeCurrencyRule("USD rate v2", "USD"))
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *RuleServiceTestSuite) TestUpdateRuleExcludesItselfFromConflictCheck() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("Default", 10, start, nil))
	suite.Require().NoError(err)

	updated, err := suite.service.UpdateRule(suite.ctx, rule.ID, suite.admin.ID, &UpdateRuleRequest{
		Name:               "Default",
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal},
		Rate:               decimal.NewFromInt(11),
		EffectiveStartDate: start,
		IsActive:           true,
	})
	suite.Require().NoError(err)
	assert.True(suite.T(), updated.Rate.Equal(decimal.NewFromInt(11)))
}

func (suite *RuleServiceTestSuite) TestUpdateToInactiveSkipsConflictCheck() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("First", 10, start, nil))
	suite.Require().NoError(err)

	_, err = suite.service.DeactivateRule(suite.ctx, first.ID, suite.admin.ID)
	suite.Require().NoError(err)

	second, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("Second", 12, start, nil))
	suite.Require().NoError(err)

	// Re-activating the first rule must fail now that the second occupies the range.
	_, err = suite.service.UpdateRule(suite.ctx, first.ID, suite.admin.ID, &UpdateRuleRequest{
		Name:               "First",
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal},
		Rate:               decimal.NewFromInt(10),
		EffectiveStartDate: start,
		IsActive:           true,
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)

	// But editing it while it stays inactive is allowed.
	_, err = suite.service.UpdateRule(suite.ctx, first.ID, suite.admin.ID, &UpdateRuleRequest{
		Name:               "First (archived)",
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal},
		Rate:               decimal.NewFromInt(10),
		EffectiveStartDate: start,
		IsActive:           false,
	})
	assert.NoError(suite.T(), err)
	_ = second
}

func (suite *RuleServiceTestSuite) TestDeleteRuleBlockedByTransactionReferences() {
	seller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	buyer := createTestUser(suite.T(), suite.db, models.UserTypeBuyer)
	store := createTestStore(suite.T(), suite.db, seller, models.StoreStatusActive, models.SellerTierStandard)

	rule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Referenced", 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil))
	suite.Require().NoError(err)

	transaction := createCompletedTransaction(suite.T(), suite.db, buyer, store, "100.00", "10.00", time.Now())
	suite.Require().NoError(suite.db.Model(transaction).Update("commission_rule_id", rule.ID).Error)

	err = suite.service.DeleteRule(suite.ctx, rule.ID, suite.admin.ID)
	suite.Require().Error(err)

	ve, ok := AsValidationError(err)
	suite.Require().True(ok)
	assert.Contains(suite.T(), ve.Errors[0], "deactivate it instead")

	// The rule survives.
	var count int64
	suite.db.Model(&models.Rule{}).Where("id = ?", rule.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *RuleServiceTestSuite) TestDeleteUnreferencedRule() {
	rule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Disposable", 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.DeleteRule(suite.ctx, rule.ID, suite.admin.ID))

	var count int64
	suite.db.Unscoped().Model(&models.Rule{}).Where("id = ?", rule.ID).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *RuleServiceTestSuite) TestDeactivateRule() {
	rule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("To deactivate", 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil))
	suite.Require().NoError(err)

	deactivated, err := suite.service.DeactivateRule(suite.ctx, rule.ID, suite.admin.ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), deactivated.IsActive)

	// Deactivating twice is a business error.
	_, err = suite.service.DeactivateRule(suite.ctx, rule.ID, suite.admin.ID)
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *RuleServiceTestSuite) TestResolveCommissionRulePrecedence() {
	seller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	store := createTestStore(suite.T(), suite.db, seller, models.StoreStatusActive, models.SellerTierGold)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	global, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, suite.globalCommission("Global", 12, start, nil))
	suite.Require().NoError(err)

	// Only the global default exists.
	resolved, err := suite.service.ResolveCommissionRule(suite.ctx, store, at)
	suite.Require().NoError(err)
	suite.Require().NotNil(resolved)
	assert.Equal(suite.T(), global.ID, resolved.ID)

	tierReq := suite.globalCommission("Gold tier", 8, start, nil)
	tierReq.Scope = RuleScopeRequest{Type: models.ScopeTypeSellerTier, Tier: tierPtr(models.SellerTierGold)}
	tierRule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, tierReq)
	suite.Require().NoError(err)

	// Tier beats global.
	resolved, err = suite.service.ResolveCommissionRule(suite.ctx, store, at)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), tierRule.ID, resolved.ID)

	storeReq := suite.globalCommission("Store deal", 5, start, nil)
	storeReq.Scope = RuleScopeRequest{Type: models.ScopeTypeStore, StoreID: &store.ID}
	storeRule, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, storeReq)
	suite.Require().NoError(err)

	// Store beats tier.
	resolved, err = suite.service.ResolveCommissionRule(suite.ctx, store, at)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), storeRule.ID, resolved.ID)

	// Before any rule is effective nothing resolves.
	resolved, err = suite.service.ResolveCommissionRule(suite.ctx, store, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	suite.Require().NoError(err)
	assert.Nil(suite.T(), resolved)
}

func (suite *RuleServiceTestSuite) TestResolveVATRuleRegionBeatsCountry() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	makeVATRule := func(name, country, region string, rate int64) *CreateRuleRequest {
		return &CreateRuleRequest{
			RuleType:           models.RuleTypeVAT,
			Name:               name,
			Scope:              RuleScopeRequest{Type: models.ScopeTypeGeo, CountryCode: country, Region: region},
			Rate:               decimal.NewFromInt(rate),
			EffectiveStartDate: start,
		}
	}

	country, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, makeVATRule("Germany VAT", "DE", "", 19))
	suite.Require().NoError(err)

	region, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, makeVATRule("Bavaria VAT", "DE", "Bavaria", 19))
	suite.Require().NoError(err)

	resolved, err := suite.service.ResolveVATRule(suite.ctx, "DE", "Bavaria", at)
	suite.Require().NoError(err)
	suite.Require().NotNil(resolved)
	assert.Equal(suite.T(), region.ID, resolved.ID)

	// Outside the region the country-wide rule applies.
	resolved, err = suite.service.ResolveVATRule(suite.ctx, "DE", "Saxony", at)
	suite.Require().NoError(err)
	suite.Require().NotNil(resolved)
	assert.Equal(suite.T(), country.ID, resolved.ID)

	// Unknown country: no VAT.
	resolved, err = suite.service.ResolveVATRule(suite.ctx, "FR", "", at)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), resolved)
}

func (suite *RuleServiceTestSuite) TestValidationCollectsAllErrors() {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	req := &CreateRuleRequest{
		RuleType:           models.RuleTypeCommission,
		Name:               "Broken",
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal},
		Rate:               decimal.NewFromInt(150),
		EffectiveStartDate: start,
		EffectiveEndDate:   &end,
		Priority:           -1,
	}

	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID, req)
	suite.Require().Error(err)

	ve, ok := AsValidationError(err)
	suite.Require().True(ok)
	assert.Len(suite.T(), ve.Errors, 3)
}

func (suite *RuleServiceTestSuite) TestFutureRules() {
	now := time.Now()

	_, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Current", 10, now.Add(-24*time.Hour), timePtr(now.Add(24*time.Hour))))
	suite.Require().NoError(err)

	future, err := suite.service.CreateRule(suite.ctx, suite.admin.ID,
		suite.globalCommission("Scheduled", 12, now.Add(48*time.Hour), nil))
	suite.Require().NoError(err)

	rules, err := suite.service.FutureRules(suite.ctx, models.RuleTypeCommission, now)
	suite.Require().NoError(err)
	suite.Require().Len(rules, 1)
	assert.Equal(suite.T(), future.ID, rules[0].ID)
}

func (suite *RuleServiceTestSuite) TestConflictCheckHonorsCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scope := models.RuleScope{Type: models.ScopeTypeGlobal}
	_, err := suite.service.findConflictsTx(ctx, suite.db, models.RuleTypeCommission, scope, time.Now(), nil, nil)
	suite.Require().Error(err)
	assert.ErrorIs(suite.T(), err, context.Canceled)
}

func TestRuleServiceSuite(t *testing.T) {
	suite.Run(t, new(RuleServiceTestSuite))
}
