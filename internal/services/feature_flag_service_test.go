// internal/services/feature_flag_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
)

type FeatureFlagServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *FeatureFlagService
	ctx     context.Context
	admin   *models.User
	store   *models.Store
}

func (suite *FeatureFlagServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewFeatureFlagService(suite.db)
	suite.ctx = context.Background()
	suite.admin = createTestUser(suite.T(), suite.db, models.UserTypeAdmin)

	seller := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	suite.store = createTestStore(suite.T(), suite.db, seller, models.StoreStatusActive, models.SellerTierStandard)
}

func (suite *FeatureFlagServiceTestSuite) TestUnknownFlagIsOff() {
	enabled, err := suite.service.IsEnabled(suite.ctx, "does_not_exist", nil)
	suite.Require().NoError(err)
	assert.False(suite.T(), enabled)
}

func (suite *FeatureFlagServiceTestSuite) TestStoreOverrideBeatsGlobal() {
	_, err := suite.service.SetFlag(suite.ctx, "reviews_enabled", suite.admin.ID, &SetFlagRequest{
		Enabled:     true,
		Description: "Allow buyers to submit product reviews",
	})
	suite.Require().NoError(err)

	enabled, err := suite.service.IsEnabled(suite.ctx, "reviews_enabled", &suite.store.ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), enabled)

	_, err = suite.service.SetOverride(suite.ctx, "reviews_enabled", suite.admin.ID, &SetOverrideRequest{
		StoreID: suite.store.ID,
		Enabled: false,
	})
	suite.Require().NoError(err)

	// The override turns the flag off for this store only.
	enabled, err = suite.service.IsEnabled(suite.ctx, "reviews_enabled", &suite.store.ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), enabled)

	enabled, err = suite.service.IsEnabled(suite.ctx, "reviews_enabled", nil)
	suite.Require().NoError(err)
	assert.True(suite.T(), enabled)

	// Removing the override restores the global value.
	suite.Require().NoError(suite.service.RemoveOverride(suite.ctx, "reviews_enabled", suite.store.ID, suite.admin.ID))

	enabled, err = suite.service.IsEnabled(suite.ctx, "reviews_enabled", &suite.store.ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), enabled)
}

func (suite *FeatureFlagServiceTestSuite) TestOverrideRequiresExistingFlagAndStore() {
	_, err := suite.service.SetOverride(suite.ctx, "missing_flag", suite.admin.ID, &SetOverrideRequest{
		StoreID: suite.store.ID,
		Enabled: true,
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "feature flag not found")

	_, err = suite.service.SetFlag(suite.ctx, "returns_enabled", suite.admin.ID, &SetFlagRequest{Enabled: true})
	suite.Require().NoError(err)

	ghostStore := createTestUser(suite.T(), suite.db, models.UserTypeSeller)
	_, err = suite.service.SetOverride(suite.ctx, "returns_enabled", suite.admin.ID, &SetOverrideRequest{
		StoreID: ghostStore.ID, // a user id, not a store id
		Enabled: true,
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "store not found")
}

func (suite *FeatureFlagServiceTestSuite) TestRemoveMissingOverride() {
	_, err := suite.service.SetFlag(suite.ctx, "returns_enabled", suite.admin.ID, &SetFlagRequest{Enabled: true})
	suite.Require().NoError(err)

	err = suite.service.RemoveOverride(suite.ctx, "returns_enabled", suite.store.ID, suite.admin.ID)
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "override not found")
}

func (suite *FeatureFlagServiceTestSuite) TestSetFlagUpdatesExisting() {
	created, err := suite.service.SetFlag(suite.ctx, "push_notifications", suite.admin.ID, &SetFlagRequest{
		Enabled:     false,
		Description: "Send push notifications",
	})
	suite.Require().NoError(err)

	updated, err := suite.service.SetFlag(suite.ctx, "push_notifications", suite.admin.ID, &SetFlagRequest{
		Enabled: true,
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), created.ID, updated.ID)
	assert.True(suite.T(), updated.Enabled)
	// An empty description leaves the stored one alone.
	assert.Equal(suite.T(), "Send push notifications", updated.Description)

	flags, err := suite.service.ListFlags(suite.ctx)
	suite.Require().NoError(err)
	assert.Len(suite.T(), flags, 1)
}

func TestFeatureFlagServiceSuite(t *testing.T) {
	suite.Run(t, new(FeatureFlagServiceTestSuite))
}
