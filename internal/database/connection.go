// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
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

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Store indexes
		"CREATE INDEX IF NOT EXISTS idx_stores_owner ON stores(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_stores_status_tier ON stores(status, tier)",

		// Rule indexes
		"CREATE INDEX IF NOT EXISTS idx_rules_type_active ON rules(rule_type, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_rules_effective ON rules(effective_start_date, effective_end_date)",
		"CREATE INDEX IF NOT EXISTS idx_rules_geo ON rules(country_code, region)",

		// Legal document indexes
		"CREATE INDEX IF NOT EXISTS idx_legal_docs_active ON legal_documents(document_type, language_code, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_consents_document ON consent_records(document_id)",

		// Settlement indexes
		"CREATE INDEX IF NOT EXISTS idx_settlements_store_period ON settlements(store_id, period_start_date, period_end_date)",
		"CREATE INDEX IF NOT EXISTS idx_settlements_status ON settlements(status)",

		// Order/transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_store_status ON orders(store_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_order_transactions_store_processed ON order_transactions(store_id, processed_at)",
		"CREATE INDEX IF NOT EXISTS idx_return_requests_sla ON return_requests(status, sla_deadline)",

		// Moderation indexes
		"CREATE INDEX IF NOT EXISTS idx_reviews_moderation ON reviews(moderation_status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_product_photos_moderation ON product_photos(moderation_status, created_at DESC)",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_status ON admin_notifications(status, priority)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@vendora.example",
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
				"role":       "super_admin",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Create default feature flags
	defaultFlags := []models.FeatureFlag{
		{
			Key:         "reviews_enabled",
			Description: "Allow buyers to submit product reviews",
			Enabled:     true,
		},
		{
			Key:         "returns_enabled",
			Description: "Allow buyers to open return requests",
			Enabled:     true,
		},
		{
			Key:         "settlement_auto_finalize",
			Description: "Finalize generated settlements without manual review",
			Enabled:     false,
		},
		{
			Key:         "push_notifications",
			Description: "Send push notifications for order and return events",
			Enabled:     false,
		},
	}

	for _, flag := range defaultFlags {
		var count int64
		db.Model(&models.FeatureFlag{}).Where("key = ?", flag.Key).Count(&count)

		if count == 0 {
			if err := db.Create(&flag).Error; err != nil {
				log.Printf("Warning: Failed to create feature flag %s: %v", flag.Key, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
