package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.SubscriptionPlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	const sql = `
INSERT INTO subscription_plans (id, name, tier, price, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
  SET name      = EXCLUDED.name,
      tier      = EXCLUDED.tier,
      price     = EXCLUDED.price,
      is_active = EXCLUDED.is_active;
`
	_, err := execSQL(ctx, r.pool, tx, sql, plan.ID, plan.Name, plan.Tier, plan.Price, plan.IsActive, plan.CreatedAt)
	return writeErr(err)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	const sql = `SELECT id, name, tier, price, is_active, created_at FROM subscription_plans WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, sql, id)
	if err != nil {
		return nil, err
	}
	var p model.SubscriptionPlan
	if err := row.Scan(&p.ID, &p.Name, &p.Tier, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &p, nil
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	const sql = `SELECT id, name, tier, price, is_active, created_at FROM subscription_plans WHERE is_active ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, sql)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var plans []*model.SubscriptionPlan
	for rows.Next() {
		var p model.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.Tier, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		plans = append(plans, &p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return plans, nil
}
