// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/infra/metrics"
)

const expiryBatch = 500

// SubscriptionUseCase implements subscription purchase and expiry.
type SubscriptionUseCase struct {
	plans      repository.SubscriptionPlanRepository
	subs       repository.SubscriptionRepository
	businesses repository.BusinessRepository
	tm         repository.TransactionManager
	payments   PaymentUseCase
	log        *zerolog.Logger
}

func NewSubscriptionUseCase(
	plans repository.SubscriptionPlanRepository,
	subs repository.SubscriptionRepository,
	businesses repository.BusinessRepository,
	tm repository.TransactionManager,
	payments PaymentUseCase,
	logger *zerolog.Logger,
) *SubscriptionUseCase {
	l := logger.With().Str("component", "SubscriptionUseCase").Logger()
	return &SubscriptionUseCase{plans: plans, subs: subs, businesses: businesses, tm: tm, payments: payments, log: &l}
}

func (uc *SubscriptionUseCase) Plans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return uc.plans.ListActive(ctx, repository.NoTX)
}

// Purchase starts a payment for planID on the owner's business. A first
// purchase creates the PENDING row; an existing subscription is left as it
// is until the money arrives, so a failed renewal changes nothing. The plan
// travels on the payment and is applied on activation.
func (uc *SubscriptionUseCase) Purchase(ctx context.Context, userID, planID, phone string) (*model.Subscription, *model.Payment, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUseCase.Purchase")()

	plan, err := uc.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, nil, err
	}
	if !plan.IsActive {
		return nil, nil, domain.ErrPlanInactive
	}
	b, err := uc.businesses.FindLiveByOwner(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, nil, err
	}

	var sub *model.Subscription
	err = inTx(ctx, uc.tm, repository.NoTX, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.subs.FindByBusiness(ctx, tx, b.ID)
		switch {
		case isNotFound(err):
			sub, err = model.NewSubscription(b.ID, plan)
			if err != nil {
				return err
			}
			return uc.subs.Save(ctx, tx, sub)
		case err != nil:
			return err
		}
		sub = cur
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	p, err := uc.payments.Initiate(ctx, InitiatePayment{
		UserID:      userID,
		Amount:      plan.Price,
		Purpose:     model.PurposeSubscription,
		Phone:       phone,
		Description: fmt.Sprintf("%s subscription for %s", plan.Name, b.Name),
		Related:     &model.RelatedRef{ID: plan.ID, Kind: model.RelatedPlan},
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("subscription_id", sub.ID).Str("status", string(sub.Status)).Msg("subscription payment not started")
		return sub, p, err
	}
	if cur, err := uc.subs.FindByID(ctx, repository.NoTX, sub.ID); err == nil {
		sub = cur
	}
	return sub, p, nil
}

func (uc *SubscriptionUseCase) ForOwner(ctx context.Context, userID string) (*model.Subscription, error) {
	b, err := uc.businesses.FindLiveByOwner(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return uc.subs.FindByBusiness(ctx, repository.NoTX, b.ID)
}

// ExpireDue moves lapsed subscriptions to EXPIRED and their business to
// INACTIVE. It returns how many subscriptions it expired.
func (uc *SubscriptionUseCase) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	lapsed, err := uc.subs.ListLapsed(ctx, repository.NoTX, now, expiryBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range lapsed {
		if ctx.Err() != nil {
			break
		}
		if err := uc.expireOne(ctx, s); err != nil {
			uc.log.Warn().Err(err).Str("subscription_id", s.ID).Msg("failed to expire subscription")
			continue
		}
		n++
	}
	metrics.IncSubscriptionsExpired(n)
	return n, nil
}

func (uc *SubscriptionUseCase) expireOne(ctx context.Context, s *model.Subscription) error {
	return inTx(ctx, uc.tm, repository.NoTX, func(ctx context.Context, tx repository.Tx) error {
		next, ok := model.SubscriptionLifecycle.Apply(s.Status, model.SubscriptionEventExpire)
		if !ok {
			return nil
		}
		changed, err := uc.subs.TransitionStatus(ctx, tx, s.ID, s.Status, next)
		if err != nil || !changed {
			return err
		}
		b, err := uc.businesses.FindByID(ctx, tx, s.BusinessID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if bn, ok := model.BusinessLifecycle.Apply(b.Status, model.BusinessEventDeactivate); ok {
			if _, err := uc.businesses.TransitionStatus(ctx, tx, b.ID, b.Status, bn); err != nil {
				return err
			}
		}
		return nil
	})
}
