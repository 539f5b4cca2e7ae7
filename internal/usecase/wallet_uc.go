package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

// WalletUseCase sells coin packages and reads balances. Credits happen in
// ActivationService once the payment succeeds.
type WalletUseCase struct {
	packages repository.CoinPackageRepository
	wallets  repository.WalletRepository
	payments PaymentUseCase
	log      *zerolog.Logger
}

func NewWalletUseCase(packages repository.CoinPackageRepository, wallets repository.WalletRepository, payments PaymentUseCase, logger *zerolog.Logger) *WalletUseCase {
	l := logger.With().Str("component", "WalletUseCase").Logger()
	return &WalletUseCase{packages: packages, wallets: wallets, payments: payments, log: &l}
}

func (u *WalletUseCase) Packages(ctx context.Context) ([]*model.CoinPackage, error) {
	return u.packages.ListActive(ctx, repository.NoTX)
}

func (u *WalletUseCase) BuyCoins(ctx context.Context, userID, packageID, phone string) (*model.Payment, error) {
	pkg, err := u.packages.FindByID(ctx, repository.NoTX, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, domain.ErrPackageInactive
	}
	return u.payments.Initiate(ctx, InitiatePayment{
		UserID:      userID,
		Amount:      pkg.Price,
		Purpose:     model.PurposeCoinPurchase,
		Phone:       phone,
		Description: "Coins: " + pkg.Name,
		Related:     &model.RelatedRef{ID: pkg.ID, Kind: model.RelatedCoinPackage},
	})
}

// Balance returns an empty wallet for users who never bought coins.
func (u *WalletUseCase) Balance(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := u.wallets.FindByUser(ctx, repository.NoTX, userID)
	if isNotFound(err) {
		return &model.Wallet{UserID: userID, UpdatedAt: time.Now()}, nil
	}
	return w, err
}
