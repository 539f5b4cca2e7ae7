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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, business_id, plan_id, tier, status, start_date, end_date, auto_renew, reminder_sent_7_days, reminder_sent_3_days, reminder_sent_1_day, payment_id, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.BusinessID, &s.PlanID, &s.Tier, &s.Status, &s.StartDate, &s.EndDate, &s.AutoRenew, &s.ReminderSent7Days, &s.ReminderSent3Days, &s.ReminderSent1Day, &s.PaymentID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, business_id, plan_id, tier, status, start_date, end_date, auto_renew, reminder_sent_7_days, reminder_sent_3_days, reminder_sent_1_day, payment_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, tier=$4, status=$5, start_date=$6, end_date=$7, auto_renew=$8,
  reminder_sent_7_days=$9, reminder_sent_3_days=$10, reminder_sent_1_day=$11, payment_id=$12, updated_at=$14;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.BusinessID, s.PlanID, s.Tier, s.Status, s.StartDate, s.EndDate, s.AutoRenew, s.ReminderSent7Days, s.ReminderSent3Days, s.ReminderSent1Day, s.PaymentID, s.CreatedAt, s.UpdatedAt)
	return writeErr(err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := lockClause(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindByBusiness(ctx context.Context, tx repository.Tx, businessID string) (*model.Subscription, error) {
	q := lockClause(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE business_id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, businessID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListLapsed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status IN ('ACTIVE','GRACE') AND end_date < $1 ORDER BY end_date ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *subscriptionRepo) ListExpiring(ctx context.Context, tx repository.Tx, now time.Time, within time.Duration, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status='ACTIVE' AND end_date > $1 AND end_date <= $2 ORDER BY end_date ASC LIMIT $3;`
	return r.list(ctx, tx, q, now, now.Add(within), limit)
}

func (r *subscriptionRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.SubscriptionStatus) (bool, error) {
	const q = `UPDATE subscriptions SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to))
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
