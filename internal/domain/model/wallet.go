package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
)

// CoinPackage is a purchasable bundle of virtual coins.
type CoinPackage struct {
	ID         string
	Name       string
	CoinAmount int64
	BonusCoins int64
	Price      decimal.Decimal
	IsActive   bool
	CreatedAt  time.Time
}

func NewCoinPackage(name string, coins, bonus int64, price decimal.Decimal) (*CoinPackage, error) {
	if name == "" || coins <= 0 || bonus < 0 || !IsPositive(price) {
		return nil, domain.ErrInvalidArgument
	}
	return &CoinPackage{
		ID:         uuid.NewString(),
		Name:       name,
		CoinAmount: coins,
		BonusCoins: bonus,
		Price:      CleanAmount(price),
		IsActive:   true,
		CreatedAt:  time.Now(),
	}, nil
}

func (p *CoinPackage) TotalCoins() int64 { return p.CoinAmount + p.BonusCoins }

// Wallet holds a user's coin balance.
type Wallet struct {
	UserID      string
	CoinBalance int64
	UpdatedAt   time.Time
}

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

type OrderEvent string

const (
	OrderEventPaid   OrderEvent = "paid"
	OrderEventCancel OrderEvent = "cancel"
)

var OrderLifecycle = NewStateMachine[OrderStatus, OrderEvent]("order",
	Transition[OrderStatus, OrderEvent]{From: OrderStatusPendingPayment, On: OrderEventPaid, To: OrderStatusPaid},
	Transition[OrderStatus, OrderEvent]{From: OrderStatusPendingPayment, On: OrderEventCancel, To: OrderStatusCancelled},
)

// Order is a marketplace purchase; only its payment state matters here.
type Order struct {
	ID        string
	BuyerID   string
	Total     decimal.Decimal
	Status    OrderStatus
	PaymentID *string
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewOrder(buyerID string, total decimal.Decimal) (*Order, error) {
	if buyerID == "" || !IsPositive(total) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Order{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		Total:     CleanAmount(total),
		Status:    OrderStatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
