package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

var _ repository.AgentRepository = (*agentRepo)(nil)

type agentRepo struct{ pool *pgxpool.Pool }

func NewAgentRepo(pool *pgxpool.Pool) *agentRepo {
	return &agentRepo{pool: pool}
}

const agentColumns = `id, user_id, agent_code, phone, status, package_id, total_earnings, available_balance, businesses_activated, total_referrals, approved_at, created_at, updated_at`

func scanAgent(row pgx.Row) (*model.Agent, error) {
	a := &model.Agent{}
	if err := row.Scan(&a.ID, &a.UserID, &a.AgentCode, &a.Phone, &a.Status, &a.PackageID, &a.TotalEarnings, &a.AvailableBalance, &a.BusinessesActivated, &a.TotalReferrals, &a.ApprovedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return a, nil
}

func (r *agentRepo) Save(ctx context.Context, tx repository.Tx, a *model.Agent) error {
	const q = `
INSERT INTO agents (
  id, user_id, agent_code, phone, status, package_id, total_earnings, available_balance, businesses_activated, total_referrals, approved_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  phone=$4, status=$5, package_id=$6, approved_at=$11, updated_at=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.AgentCode, a.Phone, a.Status, a.PackageID, a.TotalEarnings, a.AvailableBalance, a.BusinessesActivated, a.TotalReferrals, a.ApprovedAt, a.CreatedAt, a.UpdatedAt)
	return writeErr(err)
}

func (r *agentRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Agent, error) {
	q := lockClause(`SELECT `+agentColumns+` FROM agents WHERE `+where, tx)
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	return scanAgent(row)
}

func (r *agentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Agent, error) {
	return r.findOne(ctx, tx, "id=$1", id)
}

func (r *agentRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Agent, error) {
	return r.findOne(ctx, tx, "user_id=$1", userID)
}

func (r *agentRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Agent, error) {
	return r.findOne(ctx, tx, "agent_code=$1", code)
}

// NextCodeSequence draws from agent_code_seq outside any transaction so a
// rolled back registration never hands its number to someone else.
func (r *agentRepo) NextCodeSequence(ctx context.Context) (int64, error) {
	row, err := pickRow(ctx, r.pool, repository.NoTX, `SELECT nextval('agent_code_seq');`)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *agentRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.AgentStatus, approvedAt *time.Time) (bool, error) {
	const q = `
UPDATE agents
   SET status = $3,
       approved_at = COALESCE($4, approved_at),
       updated_at = NOW()
 WHERE id = $1
   AND status = $2`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to), approvedAt)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *agentRepo) AssignPackage(ctx context.Context, tx repository.Tx, id, packageID string) error {
	const q = `UPDATE agents SET package_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, packageID)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *agentRepo) Credit(ctx context.Context, tx repository.Tx, id string, amount decimal.Decimal, counter model.AgentCounter) error {
	var q string
	switch counter {
	case model.CounterTotalReferrals:
		q = `UPDATE agents SET total_earnings = total_earnings + $2, available_balance = available_balance + $2, total_referrals = total_referrals + 1, updated_at = NOW() WHERE id = $1;`
	case model.CounterBusinessesActivated:
		q = `UPDATE agents SET total_earnings = total_earnings + $2, available_balance = available_balance + $2, businesses_activated = businesses_activated + 1, updated_at = NOW() WHERE id = $1;`
	default:
		return domain.ErrInvalidArgument
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- packages ----

var _ repository.AgentPackageRepository = (*agentPackageRepo)(nil)

type agentPackageRepo struct{ pool *pgxpool.Pool }

func NewAgentPackageRepo(pool *pgxpool.Pool) *agentPackageRepo {
	return &agentPackageRepo{pool: pool}
}

func (r *agentPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.AgentPackage) error {
	const q = `
INSERT INTO agent_packages (id, name, price, number_of_businesses, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET name=$2, price=$3, number_of_businesses=$4, is_active=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price, p.NumberOfBusinesses, p.IsActive, p.CreatedAt)
	return writeErr(err)
}

func (r *agentPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AgentPackage, error) {
	const q = `SELECT id, name, price, number_of_businesses, is_active, created_at FROM agent_packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.AgentPackage{}
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.NumberOfBusinesses, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *agentPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AgentPackage, error) {
	const q = `SELECT id, name, price, number_of_businesses, is_active, created_at FROM agent_packages WHERE is_active ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.AgentPackage
	for rows.Next() {
		p := &model.AgentPackage{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.NumberOfBusinesses, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
