// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// OrderService handles order placement, payment capture and refunds. The
// commission and VAT fields on a transaction are stamped once, at payment
// time, from the rules active at that moment. Later rule changes never touch
// recorded transactions.
type OrderService struct {
	db     *gorm.DB
	config *config.Config
	rules  *RuleService
}

func NewOrderService(db *gorm.DB, cfg *config.Config, rules *RuleService) *OrderService {
	stripe.Key = cfg.Payment.StripeSecretKey

	return &OrderService{
		db:     db,
		config: cfg,
		rules:  rules,
	}
}

type PlaceOrderRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type PaymentIntentResponse struct {
	ClientSecret string    `json:"client_secret"`
	PaymentID    string    `json:"payment_id"`
	OrderID      uuid.UUID `json:"order_id"`
	Status       string    `json:"status"`
}

type RefundDecisionRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type CreateRefundRequest struct {
	TransactionID uuid.UUID       `json:"transaction_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason" validate:"required,max=500"`
}

type OrderSearchParams struct {
	utils.PaginationParams
	BuyerID *uuid.UUID          `json:"buyer_id,omitempty"`
	StoreID *uuid.UUID          `json:"store_id,omitempty"`
	Status  *models.OrderStatus `json:"status,omitempty"`
}

// PlaceOrder reserves stock and creates a pending order with its pending
// transaction. Payment happens in a second step against the Stripe intent.
func (s *OrderService) PlaceOrder(ctx context.Context, buyerID uuid.UUID, req *PlaceOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Preload("Store").First(&product, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("product not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !product.IsPublished {
			return NewValidationError("product is not available")
		}
		if product.Store.Status != models.StoreStatusActive {
			return NewValidationError("the store is not accepting orders")
		}
		if product.Stock < req.Quantity {
			return NewValidationError(fmt.Sprintf("only %d units in stock", product.Stock))
		}

		product.Stock -= req.Quantity
		if err := tx.Save(&product).Error; err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}

		total := product.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))

		order = &models.Order{
			BuyerID:     buyerID,
			StoreID:     product.StoreID,
			Status:      models.OrderStatusPending,
			TotalAmount: total,
			Currency:    product.Currency,
			PlacedAt:    time.Now(),
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		transaction := &models.OrderTransaction{
			OrderID:          order.ID,
			StoreID:          product.StoreID,
			Amount:           total,
			CommissionRate:   decimal.Zero,
			CommissionAmount: decimal.Zero,
			VATAmount:        decimal.Zero,
			Currency:         product.Currency,
			Status:           models.TransactionStatusPending,
		}

		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CreatePaymentIntent opens the Stripe payment for a pending order.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, orderID, buyerID uuid.UUID) (*PaymentIntentResponse, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if order.BuyerID != buyerID {
		return nil, errors.New("not authorized to pay for this order")
	}
	if order.Status != models.OrderStatusPending {
		return nil, NewValidationError(fmt.Sprintf("order is %s and cannot be paid", order.Status))
	}

	amountInCents := order.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(order.Currency),
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("buyer_id", buyerID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		OrderID:      order.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment verifies the Stripe intent succeeded, then completes the
// transaction and stamps the commission and VAT from the rules active right
// now. This is the only place those fields are ever written.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (*models.OrderTransaction, error) {
	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, NewValidationError(fmt.Sprintf("payment is %s, not succeeded", pi.Status))
	}

	var transaction models.OrderTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Store").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if order.Status != models.OrderStatusPending {
			return NewValidationError(fmt.Sprintf("order is %s and cannot be confirmed", order.Status))
		}

		if err := tx.Where("order_id = ? AND status = ?", orderID, models.TransactionStatusPending).
			First(&transaction).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("pending transaction not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		now := time.Now()

		if err := s.stampCharges(ctx, tx, &transaction, &order.Store, now); err != nil {
			return err
		}

		transaction.Status = models.TransactionStatusCompleted
		transaction.PaymentReference = pi.ID
		transaction.ProcessedAt = &now

		if err := tx.Save(&transaction).Error; err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}

		order.Status = models.OrderStatusPaid
		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &transaction, nil
}

// stampCharges resolves the commission and VAT rules active at payment time
// and writes their rates onto the transaction.
func (s *OrderService) stampCharges(ctx context.Context, tx *gorm.DB, transaction *models.OrderTransaction, store *models.Store, at time.Time) error {
	txRules := &RuleService{db: tx}

	commissionRule, err := txRules.ResolveCommissionRule(ctx, store, at)
	if err != nil {
		return err
	}

	if commissionRule != nil {
		transaction.CommissionRate = commissionRule.Rate
		transaction.CommissionRuleID = &commissionRule.ID
	} else {
		transaction.CommissionRate = decimal.NewFromFloat(s.config.Payment.DefaultCommission)
	}
	transaction.CommissionAmount = transaction.Amount.
		Mul(transaction.CommissionRate).
		Div(decimal.NewFromInt(100)).
		Round(2)

	vatRule, err := txRules.ResolveVATRule(ctx, store.CountryCode, store.Region, at)
	if err != nil {
		return err
	}

	if vatRule != nil {
		transaction.VATRuleID = &vatRule.ID
		transaction.VATAmount = transaction.Amount.
			Mul(vatRule.Rate).
			Div(decimal.NewFromInt(100)).
			Round(2)
	}

	return nil
}

// CompleteOrder marks a paid or shipped order as completed, making its
// transaction eligible for settlement.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if order.Status != models.OrderStatusPaid && order.Status != models.OrderStatusShipped {
			return NewValidationError(fmt.Sprintf("order is %s and cannot be completed", order.Status))
		}

		now := time.Now()
		order.Status = models.OrderStatusCompleted
		order.CompletedAt = &now

		if err := tx.Save(&order).Error; err != nil {
			return fmt.Errorf("failed to complete order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// RequestRefund records a buyer's refund request against a completed
// transaction. A partial amount of zero means a full refund.
func (s *OrderService) RequestRefund(ctx context.Context, requesterID uuid.UUID, req *CreateRefundRequest) (*models.Refund, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var refundRecord *models.Refund
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transaction models.OrderTransaction
		if err := tx.Preload("Order").First(&transaction, req.TransactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("transaction not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if transaction.Order.BuyerID != requesterID {
			return errors.New("not authorized to refund this transaction")
		}
		if transaction.Status != models.TransactionStatusCompleted {
			return NewValidationError("only completed transactions can be refunded")
		}

		amount := req.Amount
		if amount.IsZero() {
			amount = transaction.Amount
		}
		if amount.IsNegative() || amount.GreaterThan(transaction.Amount) {
			return NewValidationError("refund amount must be between zero and the transaction amount")
		}

		var open int64
		if err := tx.Model(&models.Refund{}).
			Where("transaction_id = ? AND status IN ?", req.TransactionID,
				[]models.RefundStatus{models.RefundStatusRequested, models.RefundStatusApproved}).
			Count(&open).Error; err != nil {
			return fmt.Errorf("failed to check open refunds: %w", err)
		}
		if open > 0 {
			return NewValidationError("a refund request is already open for this transaction")
		}

		refundRecord = &models.Refund{
			TransactionID: req.TransactionID,
			RequestedBy:   requesterID,
			Amount:        amount,
			Reason:        req.Reason,
			Status:        models.RefundStatusRequested,
		}

		if err := tx.Create(refundRecord).Error; err != nil {
			return fmt.Errorf("failed to create refund request: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return refundRecord, nil
}

// DecideRefund approves or rejects a refund request. Approval executes the
// refund through Stripe and marks the transaction refunded, pulling it out of
// future settlement generation.
func (s *OrderService) DecideRefund(ctx context.Context, refundID, adminID uuid.UUID, req *RefundDecisionRequest) (*models.Refund, error) {
	var refundRecord models.Refund
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Transaction").First(&refundRecord, refundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("refund not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if refundRecord.Status != models.RefundStatusRequested {
			return NewValidationError(fmt.Sprintf("refund is already %s", refundRecord.Status))
		}

		now := time.Now()
		refundRecord.DecidedBy = &adminID
		refundRecord.DecidedAt = &now

		if !req.Approve {
			refundRecord.Status = models.RefundStatusRejected
			if err := tx.Save(&refundRecord).Error; err != nil {
				return fmt.Errorf("failed to reject refund: %w", err)
			}
			recordAudit(tx, adminID, "refund.reject", "refund", &refundRecord.ID, nil, map[string]interface{}{
				"reason": req.Reason,
			})
			return nil
		}

		transaction := refundRecord.Transaction
		amountInCents := refundRecord.Amount.Mul(decimal.NewFromInt(100)).IntPart()

		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(transaction.PaymentReference),
			Amount:        stripe.Int64(amountInCents),
			Reason:        stripe.String("requested_by_customer"),
		}

		stripeRefund, err := refund.New(params)
		if err != nil {
			return fmt.Errorf("failed to process refund: %w", err)
		}

		refundRecord.Status = models.RefundStatusProcessed
		refundRecord.GatewayReference = stripeRefund.ID
		refundRecord.ProcessedAt = &now

		if err := tx.Save(&refundRecord).Error; err != nil {
			return fmt.Errorf("failed to update refund: %w", err)
		}

		if refundRecord.Amount.Equal(transaction.Amount) {
			transaction.Status = models.TransactionStatusRefunded
			if err := tx.Save(&transaction).Error; err != nil {
				return fmt.Errorf("failed to update transaction: %w", err)
			}

			if err := tx.Model(&models.Order{}).
				Where("id = ?", transaction.OrderID).
				Update("status", models.OrderStatusRefunded).Error; err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		}

		recordAudit(tx, adminID, "refund.approve", "refund", &refundRecord.ID, nil, map[string]interface{}{
			"amount":            refundRecord.Amount.String(),
			"gateway_reference": stripeRefund.ID,
		})

		logrus.WithFields(logrus.Fields{
			"refund_id":      refundRecord.ID,
			"transaction_id": transaction.ID,
			"amount":         refundRecord.Amount.String(),
		}).Info("Refund processed")

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &refundRecord, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Transactions").
		Preload("Store").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

func (s *OrderService) SearchOrders(ctx context.Context, params OrderSearchParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	if params.BuyerID != nil {
		query = query.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.StoreID != nil {
		query = query.Where("store_id = ?", *params.StoreID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "placed_at", "total_amount", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return orders, total, nil
}
