package repository

import (
	"context"
	"time"

	"marketplace-payments/internal/domain/model"
)

type CoinPackageRepository interface {
	Save(ctx context.Context, tx Tx, p *model.CoinPackage) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CoinPackage, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.CoinPackage, error)
}

type WalletRepository interface {
	// CreditOnce adds coins to the user's wallet keyed by paymentID; a
	// second call with the same paymentID is a noop returning false.
	CreditOnce(ctx context.Context, tx Tx, userID, paymentID string, coins int64) (bool, error)
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
}

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	SetPayment(ctx context.Context, tx Tx, id, paymentID string) error
	MarkPaid(ctx context.Context, tx Tx, id string, paidAt time.Time) (bool, error)
}
