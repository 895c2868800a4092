// internal/services/returns_service_test.go
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

type ReturnsServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ReturnsService
	ctx     context.Context
	admin   *models.User
	buyer   *models.User
	seller  *models.User
	store   *models.Store
}

func (suite *ReturnsServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewReturnsService(suite.db, testConfig())
	suite.ctx = context.Background()
	suite.admin = createTestUser(suite.T(), suite.db, models.UserTypeAdmin)
	suite.buyer = createTestUser(suite.T(), suite.db, models.UserTypeBuyer)
	suite.seller = createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	suite.store = createTestStore(suite.T(), suite.db, suite.seller, models.StoreStatusActive, models.SellerTierStandard)
}

func (suite *ReturnsServiceTestSuite) openReturn() *models.ReturnRequest {
	order := createCompletedOrder(suite.T(), suite.db, suite.buyer, suite.store)

	request, err := suite.service.RequestReturn(suite.ctx, suite.buyer.ID, &CreateReturnRequest{
		OrderID: order.ID,
		Reason:  "Damaged on arrival",
	})
	suite.Require().NoError(err)
	return request
}

func (suite *ReturnsServiceTestSuite) TestRequestReturnStampsSLADeadline() {
	before := time.Now()
	request := suite.openReturn()

	assert.Equal(suite.T(), models.ReturnStatusRequested, request.Status)
	assert.Equal(suite.T(), suite.store.ID, request.StoreID)

	expected := before.Add(72 * time.Hour)
	assert.WithinDuration(suite.T(), expected, request.SLADeadline, time.Minute)
}

func (suite *ReturnsServiceTestSuite) TestRequestReturnRequiresCompletedOrder() {
	now := time.Now()
	order := &models.Order{
		BuyerID:     suite.buyer.ID,
		StoreID:     suite.store.ID,
		Status:      models.OrderStatusPaid,
		TotalAmount: mustDecimal(suite.T(), "30.00"),
		Currency:    "EUR",
		PlacedAt:    now,
	}
	suite.Require().NoError(suite.db.Create(order).Error)

	_, err := suite.service.RequestReturn(suite.ctx, suite.buyer.ID, &CreateReturnRequest{
		OrderID: order.ID,
		Reason:  "Changed my mind",
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *ReturnsServiceTestSuite) TestOnlyOneOpenReturnPerOrder() {
	request := suite.openReturn()

	_, err := suite.service.RequestReturn(suite.ctx, suite.buyer.ID, &CreateReturnRequest{
		OrderID: request.OrderID,
		Reason:  "Second attempt",
	})
	suite.Require().Error(err)

	ve, ok := AsValidationError(err)
	suite.Require().True(ok)
	assert.Contains(suite.T(), ve.Errors[0], "already open")
}

func (suite *ReturnsServiceTestSuite) TestRespondToReturn() {
	request := suite.openReturn()

	answered, err := suite.service.RespondToReturn(suite.ctx, request.ID, suite.seller.ID, &SellerReturnResponse{
		Accept:   true,
		Response: "Send it back, refund on receipt.",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.ReturnStatusAccepted, answered.Status)
	assert.NotNil(suite.T(), answered.RespondedAt)
}

func (suite *ReturnsServiceTestSuite) TestRespondRequiresStoreOwner() {
	request := suite.openReturn()
	stranger := createTestUser(suite.T(), suite.db, models.UserTypeSeller)

	_, err := suite.service.RespondToReturn(suite.ctx, request.ID, stranger.ID, &SellerReturnResponse{
		Accept:   false,
		Response: "Not my store",
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "not authorized")
}

func (suite *ReturnsServiceTestSuite) TestEscalateOverdueReturns() {
	overdue := suite.openReturn()
	suite.Require().NoError(suite.db.Model(overdue).
		Update("sla_deadline", time.Now().Add(-time.Hour)).Error)

	// A second return, answered in time, must not be touched.
	answered := suite.openReturn()
	_, err := suite.service.RespondToReturn(suite.ctx, answered.ID, suite.seller.ID, &SellerReturnResponse{
		Accept:   false,
		Response: "Outside the return window.",
	})
	suite.Require().NoError(err)

	count, err := suite.service.EscalateOverdueReturns(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, count)

	var reloaded models.ReturnRequest
	suite.Require().NoError(suite.db.First(&reloaded, overdue.ID).Error)
	assert.Equal(suite.T(), models.ReturnStatusEscalated, reloaded.Status)
	assert.NotNil(suite.T(), reloaded.EscalatedAt)

	var notification models.AdminNotification
	err = suite.db.Where("type = ? AND related_resource_id = ?", "return_escalated", overdue.ID).
		First(&notification).Error
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "high", notification.Priority)

	// A second sweep finds nothing.
	count, err = suite.service.EscalateOverdueReturns(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 0, count)
}

func (suite *ReturnsServiceTestSuite) TestSellerCannotAnswerEscalatedReturn() {
	request := suite.openReturn()
	suite.Require().NoError(suite.db.Model(request).
		Update("sla_deadline", time.Now().Add(-time.Hour)).Error)

	_, err := suite.service.EscalateOverdueReturns(suite.ctx)
	suite.Require().NoError(err)

	_, err = suite.service.RespondToReturn(suite.ctx, request.ID, suite.seller.ID, &SellerReturnResponse{
		Accept:   true,
		Response: "Too late but trying anyway",
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *ReturnsServiceTestSuite) TestResolveReturnRequiresEscalation() {
	request := suite.openReturn()

	// Requested, not escalated: admin cannot resolve yet.
	_, err := suite.service.ResolveReturn(suite.ctx, request.ID, suite.admin.ID, &ResolveReturnRequest{
		Resolution: "Refund issued by support.",
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)

	suite.Require().NoError(suite.db.Model(request).
		Update("sla_deadline", time.Now().Add(-time.Hour)).Error)
	_, err = suite.service.EscalateOverdueReturns(suite.ctx)
	suite.Require().NoError(err)

	resolved, err := suite.service.ResolveReturn(suite.ctx, request.ID, suite.admin.ID, &ResolveReturnRequest{
		Resolution: "Refund issued by support.",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.ReturnStatusResolved, resolved.Status)
	assert.Equal(suite.T(), suite.admin.ID, *resolved.ResolvedBy)
	assert.NotNil(suite.T(), resolved.ResolvedAt)
}

func TestReturnsServiceSuite(t *testing.T) {
	suite.Run(t, new(ReturnsServiceTestSuite))
}
