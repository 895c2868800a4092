// internal/services/testutil_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// setupTestDB opens a private in-memory SQLite database and migrates the full
// schema into it. Each test gets its own database name so suites cannot leak
// state into each other.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Category{},
		&models.AttributeDefinition{},
		&models.Product{},
		&models.ProductPhoto{},
		&models.Order{},
		&models.OrderTransaction{},
		&models.Refund{},
		&models.ReturnRequest{},
		&models.Review{},
		&models.Rule{},
		&models.LegalDocument{},
		&models.ConsentRecord{},
		&models.Settlement{},
		&models.SettlementAdjustment{},
		&models.AuditLog{},
		&models.FeatureFlag{},
		&models.FeatureFlagOverride{},
		&models.AdminNotification{},
	)
	require.NoError(t, err)

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Payment: config.PaymentConfig{
			DefaultCurrency:   "EUR",
			DefaultCommission: 10.0,
		},
		Returns: config.ReturnsConfig{
			SellerResponseSLAHours: 72,
			EscalationCron:         "0 * * * *",
		},
	}
}

func createTestUser(t *testing.T, db *gorm.DB, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{
		Username: fmt.Sprintf("user_%s", uuid.New().String()[:8]),
		Email:    fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)

	return user
}

func createTestStore(t *testing.T, db *gorm.DB, owner *models.User, status models.StoreStatus, tier models.SellerTier) *models.Store {
	t.Helper()

	store := &models.Store{
		OwnerID:     owner.ID,
		Name:        "Test Store " + uuid.New().String()[:8],
		Slug:        "test-store-" + uuid.New().String()[:8],
		Status:      status,
		Tier:        tier,
		CountryCode: "DE",
	}
	require.NoError(t, db.Create(store).Error)

	return store
}

// createCompletedTransaction inserts a paid order plus its completed
// transaction with commission values already stamped, the way ConfirmPayment
// leaves them.
func createCompletedTransaction(t *testing.T, db *gorm.DB, buyer *models.User, store *models.Store, amount, commission string, processedAt time.Time) *models.OrderTransaction {
	t.Helper()

	order := &models.Order{
		BuyerID:     buyer.ID,
		StoreID:     store.ID,
		Status:      models.OrderStatusPaid,
		TotalAmount: mustDecimal(t, amount),
		Currency:    "EUR",
		PlacedAt:    processedAt.Add(-time.Hour),
	}
	require.NoError(t, db.Create(order).Error)

	transaction := &models.OrderTransaction{
		OrderID:          order.ID,
		StoreID:          store.ID,
		Amount:           mustDecimal(t, amount),
		CommissionRate:   mustDecimal(t, "10"),
		CommissionAmount: mustDecimal(t, commission),
		Currency:         "EUR",
		Status:           models.TransactionStatusCompleted,
		ProcessedAt:      &processedAt,
	}
	require.NoError(t, db.Create(transaction).Error)

	return transaction
}

func createCompletedOrder(t *testing.T, db *gorm.DB, buyer *models.User, store *models.Store) *models.Order {
	t.Helper()

	now := time.Now()
	order := &models.Order{
		BuyerID:     buyer.ID,
		StoreID:     store.ID,
		Status:      models.OrderStatusCompleted,
		TotalAmount: mustDecimal(t, "50.00"),
		Currency:    "EUR",
		PlacedAt:    now.Add(-48 * time.Hour),
		CompletedAt: &now,
	}
	require.NoError(t, db.Create(order).Error)

	return order
}

func testPagination() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20}
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func tierPtr(v models.SellerTier) *models.SellerTier {
	return &v
}
