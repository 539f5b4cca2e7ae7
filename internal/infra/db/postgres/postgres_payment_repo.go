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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, amount, currency, purpose, status, method, phone, description, external_ref, fee, net_amount, related_id, related_kind, provider_response, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Purpose, &p.Status, &p.Method, &p.Phone, &p.Description, &p.ExternalRef, &p.Fee, &p.NetAmount, &p.RelatedID, &p.RelatedKind, &p.ProviderResponse, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, amount, currency, purpose, status, method, phone, description, external_ref, fee, net_amount, related_id, related_kind, provider_response, paid_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
) ON CONFLICT (id) DO UPDATE SET
  status=$6, description=$9, external_ref=$10, fee=$11, net_amount=$12, provider_response=$15, paid_at=$16, updated_at=$18;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.Amount, p.Currency, p.Purpose, p.Status, p.Method, p.Phone, p.Description, p.ExternalRef, p.Fee, p.NetAmount, p.RelatedID, p.RelatedKind, p.ProviderResponse, p.PaidAt, p.CreatedAt, p.UpdatedAt)
	return writeErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := lockClause(`SELECT `+paymentColumns+` FROM payments WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	q := lockClause(`SELECT `+paymentColumns+` FROM payments WHERE external_ref=$1 LIMIT 1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, ref)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	return r.list(ctx, tx, q, userID, limit, offset)
}

func (r *paymentRepo) AttachGatewayOrder(ctx context.Context, tx repository.Tx, id, externalRef string, fee, net decimal.Decimal, raw string) error {
	const q = `
UPDATE payments
   SET external_ref = $2, fee = $3, net_amount = $4, provider_response = $5, updated_at = NOW()
 WHERE id = $1 AND status = 'PENDING';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, externalRef, fee, net, raw)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TransitionIfPending is the guarded PENDING -> terminal write. Concurrent
// pollers race on the WHERE clause; exactly one sees a row affected.
func (r *paymentRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time, raw string) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       paid_at = $3,
       provider_response = CASE WHEN $4 = '' THEN provider_response ELSE $4 END,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'PENDING'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), paidAt, raw)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListOutstanding(ctx context.Context, tx repository.Tx, createdBefore time.Time, after *model.Payment, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		afterAt *time.Time
		afterID string
	)
	if after != nil {
		afterAt, afterID = &after.CreatedAt, after.ID
	}
	const q = `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE status = 'PENDING'
   AND external_ref IS NOT NULL
   AND created_at < $1
   AND ($2::timestamptz IS NULL OR (created_at, id) > ($2::timestamptz, $3::text))
 ORDER BY created_at ASC, id ASC
 LIMIT $4;`
	return r.list(ctx, tx, q, createdBefore, afterAt, afterID, limit)
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx, since time.Time) (map[model.PaymentStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM payments WHERE created_at >= $1 GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q, since)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	out := make(map[model.PaymentStatus]int)
	for rows.Next() {
		var (
			st model.PaymentStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[st] = n
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) SumSucceededByPurpose(ctx context.Context, tx repository.Tx, since time.Time) (map[model.Purpose]decimal.Decimal, error) {
	const q = `SELECT purpose, COALESCE(SUM(amount),0) FROM payments WHERE status='SUCCESS' AND paid_at >= $1 GROUP BY purpose;`
	rows, err := queryRows(ctx, r.pool, tx, q, since)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	out := make(map[model.Purpose]decimal.Decimal)
	for rows.Next() {
		var (
			purpose model.Purpose
			sum     decimal.Decimal
		)
		if err := rows.Scan(&purpose, &sum); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[purpose] = sum
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
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
