package postgres

import (
	"context"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	red "marketplace-payments/internal/infra/redis"
)

var _ repository.SubscriptionPlanRepository = (*planRepoCacheDecorator)(nil)

const activePlansKey = "plans:active"

type planRepoCacheDecorator struct {
	inner  repository.SubscriptionPlanRepository
	plans  readThrough[*model.SubscriptionPlan]
	active readThrough[[]*model.SubscriptionPlan]
}

func NewPlanRepoCacheDecorator(inner repository.SubscriptionPlanRepository, cache red.RedisClient) repository.SubscriptionPlanRepository {
	return &planRepoCacheDecorator{
		inner:  inner,
		plans:  readThrough[*model.SubscriptionPlan]{cache: cache, entity: "plan", ttl: defaultCacheTTL},
		active: readThrough[[]*model.SubscriptionPlan]{cache: cache, entity: "plan_list", ttl: defaultCacheTTL},
	}
}

func planKey(id string) string { return "plan:" + id }

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	return d.plans.get(ctx, tx, planKey(id), func() (*model.SubscriptionPlan, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

// Save drops the plan and the active list; prices and the active flag
// both show up in the list.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	d.plans.invalidate(ctx, planKey(plan.ID), activePlansKey)
	return nil
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	return d.active.get(ctx, tx, activePlansKey, func() ([]*model.SubscriptionPlan, error) {
		return d.inner.ListActive(ctx, tx)
	})
}
