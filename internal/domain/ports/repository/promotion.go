package repository

import (
	"context"
	"time"

	"marketplace-payments/internal/domain/model"
)

type PromotionRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Promotion) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Promotion, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Promotion, error)
	SetPayment(ctx context.Context, tx Tx, id, paymentID string) error
	// TransitionStatus applies from -> to only if the stored status is from;
	// markPaid also sets is_paid.
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.PromotionStatus, markPaid bool) (bool, error)
	// ListEnded returns ACTIVE or PAUSED promotions whose end date is before now.
	ListEnded(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Promotion, error)
}
