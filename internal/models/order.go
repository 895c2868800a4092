// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	BuyerID     uuid.UUID       `json:"buyer_id" gorm:"type:uuid;not null;index"`
	StoreID     uuid.UUID       `json:"store_id" gorm:"type:uuid;not null;index"`
	Status      OrderStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Currency    string          `json:"currency" gorm:"size:3;not null;default:'EUR'"`
	PlacedAt    time.Time       `json:"placed_at" gorm:"not null"`
	CompletedAt *time.Time      `json:"completed_at"`

	// Relationships
	Buyer        User              `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Store        Store             `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Transactions []OrderTransaction `json:"transactions,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderTransaction is the monetary record settlements aggregate over. The
// commission fields are stamped at payment time from the rule active then;
// settlement regeneration re-reads them, never recomputes historical rates.
type OrderTransaction struct {
	BaseModel
	OrderID          uuid.UUID         `json:"order_id" gorm:"type:uuid;not null;index"`
	StoreID          uuid.UUID         `json:"store_id" gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal   `json:"amount" gorm:"type:decimal(12,2);not null"`
	CommissionRate   decimal.Decimal   `json:"commission_rate" gorm:"type:decimal(12,6);not null"`
	CommissionAmount decimal.Decimal   `json:"commission_amount" gorm:"type:decimal(12,2);not null"`
	CommissionRuleID *uuid.UUID        `json:"commission_rule_id" gorm:"type:uuid;index"`
	VATRuleID        *uuid.UUID        `json:"vat_rule_id" gorm:"type:uuid;index"`
	VATAmount        decimal.Decimal   `json:"vat_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Currency         string            `json:"currency" gorm:"size:3;not null;default:'EUR'"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaymentReference string            `json:"payment_reference" gorm:"size:255"`
	ProcessedAt      *time.Time        `json:"processed_at"`

	// Relationships
	Order Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Store Store `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

type Refund struct {
	BaseModel
	TransactionID    uuid.UUID       `json:"transaction_id" gorm:"type:uuid;not null;index"`
	RequestedBy      uuid.UUID       `json:"requested_by" gorm:"type:uuid;not null"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Reason           string          `json:"reason" gorm:"size:500;not null"`
	Status           RefundStatus    `json:"status" gorm:"type:varchar(20);default:'requested';index"`
	GatewayReference string          `json:"gateway_reference" gorm:"size:255"`
	DecidedBy        *uuid.UUID      `json:"decided_by" gorm:"type:uuid"`
	DecidedAt        *time.Time      `json:"decided_at"`
	ProcessedAt      *time.Time      `json:"processed_at"`

	// Relationships
	Transaction OrderTransaction `json:"transaction,omitempty" gorm:"foreignKey:TransactionID"`
}

type ReturnRequest struct {
	BaseModel
	OrderID        uuid.UUID    `json:"order_id" gorm:"type:uuid;not null;index"`
	BuyerID        uuid.UUID    `json:"buyer_id" gorm:"type:uuid;not null;index"`
	StoreID        uuid.UUID    `json:"store_id" gorm:"type:uuid;not null;index"`
	Reason         string       `json:"reason" gorm:"size:500;not null"`
	Status         ReturnStatus `json:"status" gorm:"type:varchar(20);default:'requested';index"`
	SLADeadline    time.Time    `json:"sla_deadline" gorm:"not null;index"`
	SellerResponse string       `json:"seller_response,omitempty" gorm:"type:text"`
	RespondedAt    *time.Time   `json:"responded_at"`
	EscalatedAt    *time.Time   `json:"escalated_at"`
	ResolvedAt     *time.Time   `json:"resolved_at"`
	ResolvedBy     *uuid.UUID   `json:"resolved_by" gorm:"type:uuid"`

	// Relationships
	Order Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Buyer User  `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Store Store `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

type Review struct {
	BaseModel
	ProductID        uuid.UUID        `json:"product_id" gorm:"type:uuid;not null;index"`
	AuthorID         uuid.UUID        `json:"author_id" gorm:"type:uuid;not null;index"`
	Rating           int              `json:"rating" gorm:"not null"`
	Body             string           `json:"body" gorm:"type:text"`
	ModerationStatus ModerationStatus `json:"moderation_status" gorm:"type:varchar(20);default:'pending';index"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Author  User    `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}
