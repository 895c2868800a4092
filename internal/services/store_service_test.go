// internal/services/store_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
)

type StoreServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *StoreService
	ctx     context.Context
	admin   *models.User
	seller  *models.User
}

func (suite *StoreServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewStoreService(suite.db)
	suite.ctx = context.Background()
	suite.admin = createTestUser(suite.T(), suite.db, models.UserTypeAdmin)
	suite.seller = createTestUser(suite.T(), suite.db, models.UserTypeSeller)
}

func (suite *StoreServiceTestSuite) TestCreateStore() {
	store, err := suite.service.CreateStore(suite.ctx, suite.seller.ID, &CreateStoreRequest{
		Name:        "Alpine Ceramics",
		CountryCode: "AT",
		Region:      "Tyrol",
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.StoreStatusPending, store.Status)
	assert.Equal(suite.T(), models.SellerTierStandard, store.Tier)
	assert.Equal(suite.T(), "alpine-ceramics", store.Slug)
}

func (suite *StoreServiceTestSuite) TestBuyersCannotOpenStores() {
	buyer := createTestUser(suite.T(), suite.db, models.UserTypeBuyer)

	_, err := suite.service.CreateStore(suite.ctx, buyer.ID, &CreateStoreRequest{
		Name:        "Buyer Store",
		CountryCode: "DE",
	})
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *StoreServiceTestSuite) TestOneStorePerSeller() {
	_, err := suite.service.CreateStore(suite.ctx, suite.seller.ID, &CreateStoreRequest{
		Name:        "First Store",
		CountryCode: "DE",
	})
	suite.Require().NoError(err)

	_, err = suite.service.CreateStore(suite.ctx, suite.seller.ID, &CreateStoreRequest{
		Name:        "Second Store",
		CountryCode: "DE",
	})
	suite.Require().Error(err)

	ve, ok := AsValidationError(err)
	suite.Require().True(ok)
	assert.Contains(suite.T(), ve.Errors[0], "already has a store")
}

func (suite *StoreServiceTestSuite) TestSlugCollisionGetsSuffix() {
	first, err := suite.service.CreateStore(suite.ctx, suite.seller.ID, &CreateStoreRequest{
		Name:        "Nordic Woodworks",
		CountryCode: "SE",
	})
	suite.Require().NoError(err)

	otherSeller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	second, err := suite.service.CreateStore(suite.ctx, otherSeller.ID, &CreateStoreRequest{
		Name:        "Nordic Woodworks",
		CountryCode: "NO",
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), "nordic-woodworks", first.Slug)
	assert.NotEqual(suite.T(), first.Slug, second.Slug)
	assert.Contains(suite.T(), second.Slug, "nordic-woodworks-")
}

func (suite *StoreServiceTestSuite) TestApproveStore() {
	store, err := suite.service.CreateStore(suite.ctx, suite.seller.ID, &CreateStoreRequest{
		Name:        "Pending Store",
		CountryCode: "DE",
	})
	suite.Require().NoError(err)

	approved, err := suite.service.ApproveStore(suite.ctx, store.ID, suite.admin.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.StoreStatusActive, approved.Status)
	assert.NotNil(suite.T(), approved.ApprovedAt)
	assert.Equal(suite.T(), suite.admin.ID, *approved.ApprovedBy)

	// Approving an already active store is rejected.
	_, err = suite.service.ApproveStore(suite.ctx, store.ID, suite.admin.ID)
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)
}

func (suite *StoreServiceTestSuite) TestSuspendRequiresActiveStore() {
	store, err := suite.service.CreateStore(suite.ctx, suite.seller.ID, &CreateStoreRequest{
		Name:        "Fresh Store",
		CountryCode: "DE",
	})
	suite.Require().NoError(err)

	_, err = suite.service.SuspendStore(suite.ctx, store.ID, suite.admin.ID, "policy violation")
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)

	_, err = suite.service.ApproveStore(suite.ctx, store.ID, suite.admin.ID)
	suite.Require().NoError(err)

	suspended, err := suite.service.SuspendStore(suite.ctx, store.ID, suite.admin.ID, "policy violation")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.StoreStatusSuspended, suspended.Status)
}

func (suite *StoreServiceTestSuite) TestChangeTier() {
	store := createTestStore(suite.T(), suite.db, suite.seller, models.StoreStatusActive, models.SellerTierStandard)

	changed, err := suite.service.ChangeTier(suite.ctx, store.ID, suite.admin.ID, models.SellerTierGold)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.SellerTierGold, changed.Tier)

	// Same tier again is a no-op request and rejected.
	_, err = suite.service.ChangeTier(suite.ctx, store.ID, suite.admin.ID, models.SellerTierGold)
	suite.Require().Error(err)
	_, ok := AsValidationError(err)
	assert.True(suite.T(), ok)

	// Unknown tier names are rejected.
	_, err = suite.service.ChangeTier(suite.ctx, store.ID, suite.admin.ID, models.SellerTier("diamond"))
	suite.Require().Error(err)
	_, ok = AsValidationError(err)
	assert.True(suite.T(), ok)

	// The tier change left an audit trail.
	var audit models.AuditLog
	err = suite.db.Where("action = ? AND resource_id = ?", "store.change_tier", store.ID).First(&audit).Error
	assert.NoError(suite.T(), err)
}

func (suite *StoreServiceTestSuite) TestGetStoreByOwnerSkipsClosed() {
	store := createTestStore(suite.T(), suite.db, suite.seller, models.StoreStatusActive, models.SellerTierStandard)

	found, err := suite.service.GetStoreByOwner(suite.ctx, suite.seller.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), store.ID, found.ID)

	suite.Require().NoError(suite.db.Model(store).Update("status", models.StoreStatusClosed).Error)

	_, err = suite.service.GetStoreByOwner(suite.ctx, suite.seller.ID)
	assert.Error(suite.T(), err)
}

func TestStoreServiceSuite(t *testing.T) {
	suite.Run(t, new(StoreServiceTestSuite))
}
