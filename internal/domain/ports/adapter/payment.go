package adapter

//go:generate mockgen -source=payment.go -destination=mocks/payment_mock.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
)

// CollectResult is the provider's acceptance of a USSD push.
type CollectResult struct {
	OrderID   string
	Fee       decimal.Decimal
	NetAmount decimal.Decimal
	Raw       string
}

// StatusResult is the provider's current view of an order.
type StatusResult struct {
	Status model.GatewayStatus
	Raw    string
}

// PaymentGateway is the hex port for the mobile-money provider. Any
// transport or non-success reply surfaces as *domain.GatewayError.
type PaymentGateway interface {
	Name() string
	Collect(ctx context.Context, phone string, amount decimal.Decimal, description string) (*CollectResult, error)
	CheckStatus(ctx context.Context, orderID string) (*StatusResult, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}
