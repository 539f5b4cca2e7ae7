package repository

import (
	"context"
	"time"

	"marketplace-payments/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByBusiness(ctx context.Context, tx Tx, businessID string) (*model.Subscription, error)
	// ListLapsed returns ACTIVE or GRACE subscriptions whose end date is before now.
	ListLapsed(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	// ListExpiring returns ACTIVE subscriptions ending in (now, now+within].
	ListExpiring(ctx context.Context, tx Tx, now time.Time, within time.Duration, limit int) ([]*model.Subscription, error)
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.SubscriptionStatus) (bool, error)
}
