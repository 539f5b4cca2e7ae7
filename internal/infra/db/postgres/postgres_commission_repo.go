package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

var _ repository.CommissionRepository = (*commissionRepo)(nil)

type commissionRepo struct{ pool *pgxpool.Pool }

func NewCommissionRepo(pool *pgxpool.Pool) *commissionRepo {
	return &commissionRepo{pool: pool}
}

const commissionColumns = `id, agent_id, business_id, type, amount, status, description, paid_at, created_at`

// Insert relies on ux_commissions_grant: a second grant of the same dedup
// class for the pair is dropped by the database, not by the caller.
func (r *commissionRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Commission) (bool, error) {
	const q = `
INSERT INTO commissions (id, agent_id, business_id, type, dedup_class, amount, status, description, paid_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (agent_id, business_id, dedup_class) WHERE status <> 'CANCELLED' DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, c.ID, c.AgentID, c.BusinessID, c.Type, c.Type.DedupClass(), c.Amount, c.Status, c.Description, c.PaidAt, c.CreatedAt)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *commissionRepo) ListByAgentAndBusiness(ctx context.Context, tx repository.Tx, agentID, businessID string) ([]*model.Commission, error) {
	const q = `SELECT ` + commissionColumns + ` FROM commissions WHERE agent_id=$1 AND business_id=$2 ORDER BY created_at ASC;`
	return r.list(ctx, tx, q, agentID, businessID)
}

func (r *commissionRepo) ListByAgent(ctx context.Context, tx repository.Tx, agentID string, limit, offset int) ([]*model.Commission, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + commissionColumns + ` FROM commissions WHERE agent_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	return r.list(ctx, tx, q, agentID, limit, offset)
}

func (r *commissionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Commission, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.Commission
	for rows.Next() {
		c := &model.Commission{}
		if err := rows.Scan(&c.ID, &c.AgentID, &c.BusinessID, &c.Type, &c.Amount, &c.Status, &c.Description, &c.PaidAt, &c.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
