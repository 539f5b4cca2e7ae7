package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

const sweepBatch = 500

type CreatePromotion struct {
	BusinessID *string
	Title      string
	Budget     decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
	Phone      string
}

// PromotionUseCase covers the promotion lifecycle around its payment:
// create and pay, moderation, owner pause/resume and the end-date sweep.
type PromotionUseCase struct {
	promotions repository.PromotionRepository
	tm         repository.TransactionManager
	payments   PaymentUseCase
	log        *zerolog.Logger
}

func NewPromotionUseCase(promotions repository.PromotionRepository, tm repository.TransactionManager, payments PaymentUseCase, logger *zerolog.Logger) *PromotionUseCase {
	l := logger.With().Str("component", "PromotionUseCase").Logger()
	return &PromotionUseCase{promotions: promotions, tm: tm, payments: payments, log: &l}
}

func (u *PromotionUseCase) Create(ctx context.Context, userID string, in CreatePromotion) (*model.Promotion, *model.Payment, error) {
	promo, err := model.NewPromotion(userID, in.BusinessID, in.Title, in.Budget, in.StartDate, in.EndDate)
	if err != nil {
		return nil, nil, err
	}
	if err := u.promotions.Save(ctx, repository.NoTX, promo); err != nil {
		return nil, nil, err
	}

	p, err := u.payments.Initiate(ctx, InitiatePayment{
		UserID:      userID,
		Amount:      promo.Budget,
		Purpose:     model.PurposePromotion,
		Phone:       in.Phone,
		Description: "Promotion: " + promo.Title,
		Related:     &model.RelatedRef{ID: promo.ID, Kind: model.RelatedPromotion},
	})
	if p != nil {
		if serr := u.promotions.SetPayment(ctx, repository.NoTX, promo.ID, p.ID); serr != nil {
			u.log.Warn().Err(serr).Str("promotion_id", promo.ID).Msg("failed to link payment to promotion")
		}
	}
	if err != nil {
		return promo, p, err
	}
	if cur, err := u.promotions.FindByID(ctx, repository.NoTX, promo.ID); err == nil {
		promo = cur
	}
	return promo, p, nil
}

func (u *PromotionUseCase) Approve(ctx context.Context, id string) (*model.Promotion, error) {
	return u.apply(ctx, id, "", model.PromotionEventApprove)
}

func (u *PromotionUseCase) Reject(ctx context.Context, id string) (*model.Promotion, error) {
	return u.apply(ctx, id, "", model.PromotionEventReject)
}

func (u *PromotionUseCase) Pause(ctx context.Context, userID, id string) (*model.Promotion, error) {
	return u.apply(ctx, id, userID, model.PromotionEventPause)
}

func (u *PromotionUseCase) Resume(ctx context.Context, userID, id string) (*model.Promotion, error) {
	return u.apply(ctx, id, userID, model.PromotionEventResume)
}

// apply runs one guarded transition. A non-empty ownerID restricts it to
// the promotion's creator.
func (u *PromotionUseCase) apply(ctx context.Context, id, ownerID string, ev model.PromotionEvent) (*model.Promotion, error) {
	var promo *model.Promotion
	err := inTx(ctx, u.tm, repository.NoTX, func(ctx context.Context, tx repository.Tx) error {
		var err error
		promo, err = u.promotions.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if ownerID != "" && promo.UserID != ownerID {
			return domain.ErrForbidden
		}
		next, ok := model.PromotionLifecycle.Apply(promo.Status, ev)
		if !ok {
			return fmt.Errorf("%w: promotion %s is %s, cannot %s", domain.ErrInvalidTransition, promo.ID, promo.Status, ev)
		}
		changed, err := u.promotions.TransitionStatus(ctx, tx, promo.ID, promo.Status, next, false)
		if err != nil {
			return err
		}
		if !changed {
			return domain.ErrInvalidTransition
		}
		promo.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("promotion_id", promo.ID).Str("event", string(ev)).Str("status", string(promo.Status)).Msg("promotion updated")
	return promo, nil
}

// Sweep completes ACTIVE and PAUSED promotions whose window has closed.
func (u *PromotionUseCase) Sweep(ctx context.Context, now time.Time) (int, error) {
	ended, err := u.promotions.ListEnded(ctx, repository.NoTX, now, sweepBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, promo := range ended {
		next, ok := model.PromotionLifecycle.Apply(promo.Status, model.PromotionEventComplete)
		if !ok || !promo.Ended(now) {
			continue
		}
		changed, err := u.promotions.TransitionStatus(ctx, repository.NoTX, promo.ID, promo.Status, next, false)
		if err != nil {
			u.log.Warn().Err(err).Str("promotion_id", promo.ID).Msg("failed to complete promotion")
			continue
		}
		if changed {
			n++
		}
	}
	metrics.IncPromotionsCompleted(n)
	return n, nil
}
