// internal/services/order_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
)

type OrderServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *OrderService
	rules   *RuleService
	ctx     context.Context
	admin   *models.User
	store   *models.Store
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.rules = NewRuleService(suite.db)
	suite.service = NewOrderService(suite.db, testConfig(), suite.rules)
	suite.ctx = context.Background()
	suite.admin = createTestUser(suite.T(), suite.db, models.UserTypeAdmin)

	seller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	suite.store = createTestStore(suite.T(), suite.db, seller, models.StoreStatusActive, models.SellerTierStandard)
}

func (suite *OrderServiceTestSuite) TestStampChargesUsesActiveRules() {
	now := time.Now()

	commission, err := suite.rules.CreateRule(suite.ctx, suite.admin.ID, &CreateRuleRequest{
		RuleType:           models.RuleTypeCommission,
		Name:               "Marketplace commission",
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGlobal},
		Rate:               mustDecimal(suite.T(), "15"),
		EffectiveStartDate: now.Add(-24 * time.Hour),
	})
	suite.Require().NoError(err)

	vat, err := suite.rules.CreateRule(suite.ctx, suite.admin.ID, &CreateRuleRequest{
		RuleType:           models.RuleTypeVAT,
		Name:               "German VAT",
		Scope:              RuleScopeRequest{Type: models.ScopeTypeGeo, CountryCode: "DE"},
		Rate:               mustDecimal(suite.T(), "19"),
		EffectiveStartDate: now.Add(-24 * time.Hour),
	})
	suite.Require().NoError(err)

	transaction := &models.OrderTransaction{Amount: mustDecimal(suite.T(), "200.00")}
	suite.Require().NoError(suite.service.stampCharges(suite.ctx, suite.db, transaction, suite.store, now))

	assert.True(suite.T(), transaction.CommissionRate.Equal(mustDecimal(suite.T(), "15")))
	assert.True(suite.T(), transaction.CommissionAmount.Equal(mustDecimal(suite.T(), "30.00")))
	suite.Require().NotNil(transaction.CommissionRuleID)
	assert.Equal(suite.T(), commission.ID, *transaction.CommissionRuleID)

	suite.Require().NotNil(transaction.VATRuleID)
	assert.Equal(suite.T(), vat.ID, *transaction.VATRuleID)
	assert.True(suite.T(), transaction.VATAmount.Equal(mustDecimal(suite.T(), "38.00")))
}

func (suite *OrderServiceTestSuite) TestStampChargesFallsBackToDefaultCommission() {
	transaction := &models.OrderTransaction{Amount: mustDecimal(suite.T(), "50.00")}
	suite.Require().NoError(suite.service.stampCharges(suite.ctx, suite.db, transaction, suite.store, time.Now()))

	assert.True(suite.T(), transaction.CommissionRate.Equal(mustDecimal(suite.T(), "10")))
	assert.True(suite.T(), transaction.CommissionAmount.Equal(mustDecimal(suite.T(), "5.00")))
	assert.Nil(suite.T(), transaction.CommissionRuleID)
	assert.Nil(suite.T(), transaction.VATRuleID)
}

func (suite *OrderServiceTestSuite) TestStampChargesHonorsCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transaction := &models.OrderTransaction{Amount: mustDecimal(suite.T(), "50.00")}
	err := suite.service.stampCharges(ctx, suite.db, transaction, suite.store, time.Now())
	suite.Require().Error(err)
	assert.ErrorIs(suite.T(), err, context.Canceled)
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}
