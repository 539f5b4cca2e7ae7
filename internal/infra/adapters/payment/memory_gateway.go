package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*MemoryGateway)(nil)

// MemoryGateway is an in-process provider for tests and local runs without
// credentials. Orders stay pending until Settle is called.
type MemoryGateway struct {
	mu      sync.Mutex
	seq     int64
	orders  map[string]model.GatewayStatus
	balance decimal.Decimal

	// FailCollect makes the next Collect calls fail with a rejection.
	FailCollect bool
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{orders: make(map[string]model.GatewayStatus)}
}

func (g *MemoryGateway) Name() string { return "memory" }

func (g *MemoryGateway) Collect(ctx context.Context, phone string, amount decimal.Decimal, description string) (*adapter.CollectResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCollect {
		return nil, domain.NewGatewayRejected(opCollect, 0, "collect disabled")
	}
	if !amount.IsPositive() {
		return nil, domain.NewGatewayRejected(opCollect, 0, "amount must be positive")
	}
	g.seq++
	id := fmt.Sprintf("mem-%d", g.seq)
	g.orders[id] = model.GatewayStatusPending
	return &adapter.CollectResult{
		OrderID:   id,
		Fee:       decimal.Zero,
		NetAmount: amount,
		Raw:       fmt.Sprintf(`{"success":true,"order_id":%q}`, id),
	}, nil
}

func (g *MemoryGateway) CheckStatus(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.orders[orderID]
	if !ok {
		return nil, domain.NewGatewayRejected(opStatus, 404, "order not found")
	}
	return &adapter.StatusResult{
		Status: st,
		Raw:    fmt.Sprintf(`{"success":true,"payment":{"status":%q}}`, st),
	}, nil
}

func (g *MemoryGateway) Balance(ctx context.Context) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, nil
}

// Settle moves an order to st. Completed orders add to the balance once.
func (g *MemoryGateway) Settle(orderID string, st model.GatewayStatus, amount decimal.Decimal) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.orders[orderID]
	if !ok || cur != model.GatewayStatusPending {
		return false
	}
	g.orders[orderID] = st
	if st == model.GatewayStatusCompleted {
		g.balance = g.balance.Add(amount)
	}
	return true
}
