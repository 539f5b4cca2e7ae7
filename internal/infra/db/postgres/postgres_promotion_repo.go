package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

var _ repository.PromotionRepository = (*promotionRepo)(nil)

type promotionRepo struct{ pool *pgxpool.Pool }

func NewPromotionRepo(pool *pgxpool.Pool) *promotionRepo {
	return &promotionRepo{pool: pool}
}

const promotionColumns = `id, user_id, business_id, title, budget, is_paid, payment_id, status, start_date, end_date, created_at, updated_at`

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	p := &model.Promotion{}
	if err := row.Scan(&p.ID, &p.UserID, &p.BusinessID, &p.Title, &p.Budget, &p.IsPaid, &p.PaymentID, &p.Status, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *promotionRepo) Save(ctx context.Context, tx repository.Tx, p *model.Promotion) error {
	const q = `
INSERT INTO promotions (
  id, user_id, business_id, title, budget, is_paid, payment_id, status, start_date, end_date, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  title=$4, budget=$5, is_paid=$6, payment_id=$7, status=$8, start_date=$9, end_date=$10, updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.BusinessID, p.Title, p.Budget, p.IsPaid, p.PaymentID, p.Status, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt)
	return writeErr(err)
}

func (r *promotionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Promotion, error) {
	q := lockClause(`SELECT `+promotionColumns+` FROM promotions WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPromotion(row)
}

func (r *promotionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Promotion, error) {
	q := lockClause(`SELECT `+promotionColumns+` FROM promotions WHERE payment_id=$1 LIMIT 1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanPromotion(row)
}

func (r *promotionRepo) SetPayment(ctx context.Context, tx repository.Tx, id, paymentID string) error {
	const q = `UPDATE promotions SET payment_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentID)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *promotionRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.PromotionStatus, markPaid bool) (bool, error) {
	const q = `
UPDATE promotions
   SET status = $3,
       is_paid = is_paid OR $4,
       updated_at = NOW()
 WHERE id = $1
   AND status = $2`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to), markPaid)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *promotionRepo) ListEnded(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Promotion, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + promotionColumns + ` FROM promotions WHERE status IN ('ACTIVE','PAUSED') AND end_date < $1 ORDER BY end_date ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
