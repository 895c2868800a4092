// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
	UserTypeAdmin  UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type StoreStatus string

const (
	StoreStatusPending   StoreStatus = "pending"
	StoreStatusActive    StoreStatus = "active"
	StoreStatusSuspended StoreStatus = "suspended"
	StoreStatusClosed    StoreStatus = "closed"
)

type SellerTier string

const (
	SellerTierStandard SellerTier = "standard"
	SellerTierSilver   SellerTier = "silver"
	SellerTierGold     SellerTier = "gold"
	SellerTierPlatinum SellerTier = "platinum"
)

func IsValidSellerTier(tier SellerTier) bool {
	switch tier {
	case SellerTierStandard, SellerTierSilver, SellerTierGold, SellerTierPlatinum:
		return true
	}
	return false
}

type RuleType string

const (
	RuleTypeCommission RuleType = "commission"
	RuleTypeVAT        RuleType = "vat"
	RuleTypeCurrency   RuleType = "currency"
)

func IsValidRuleType(t RuleType) bool {
	switch t {
	case RuleTypeCommission, RuleTypeVAT, RuleTypeCurrency:
		return true
	}
	return false
}

type ScopeType string

const (
	ScopeTypeGlobal     ScopeType = "global"
	ScopeTypeCategory   ScopeType = "category"
	ScopeTypeStore      ScopeType = "store"
	ScopeTypeSellerTier ScopeType = "seller_tier"
	ScopeTypeGeo        ScopeType = "geo"
)

// RuleStatus is derived from (IsActive, dates, now); only IsActive is persisted.
type RuleStatus string

const (
	RuleStatusFuture   RuleStatus = "future"
	RuleStatusActive   RuleStatus = "active"
	RuleStatusExpired  RuleStatus = "expired"
	RuleStatusInactive RuleStatus = "inactive"
)

type DocumentType string

const (
	DocumentTypeTermsOfService  DocumentType = "terms_of_service"
	DocumentTypePrivacyPolicy   DocumentType = "privacy_policy"
	DocumentTypeCookiePolicy    DocumentType = "cookie_policy"
	DocumentTypeSellerAgreement DocumentType = "seller_agreement"
)

func IsValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentTypeTermsOfService, DocumentTypePrivacyPolicy,
		DocumentTypeCookiePolicy, DocumentTypeSellerAgreement:
		return true
	}
	return false
}

type SettlementStatus string

const (
	SettlementStatusDraft      SettlementStatus = "draft"
	SettlementStatusFinalized  SettlementStatus = "finalized"
	SettlementStatusSuperseded SettlementStatus = "superseded"
)

type AdjustmentType string

const (
	AdjustmentTypeCredit AdjustmentType = "credit"
	AdjustmentTypeDebit  AdjustmentType = "debit"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "requested"
	RefundStatusApproved  RefundStatus = "approved"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusRejected  RefundStatus = "rejected"
)

type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusAccepted  ReturnStatus = "accepted"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusEscalated ReturnStatus = "escalated"
	ReturnStatusResolved  ReturnStatus = "resolved"
)

type ModerationStatus string

const (
	ModerationStatusPending  ModerationStatus = "pending"
	ModerationStatusApproved ModerationStatus = "approved"
	ModerationStatusRejected ModerationStatus = "rejected"
)

type ModerationTargetType string

const (
	ModerationTargetReview ModerationTargetType = "review"
	ModerationTargetPhoto  ModerationTargetType = "photo"
)
