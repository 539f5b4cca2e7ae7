package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

// ---- coin packages ----

var _ repository.CoinPackageRepository = (*coinPackageRepo)(nil)

type coinPackageRepo struct{ pool *pgxpool.Pool }

func NewCoinPackageRepo(pool *pgxpool.Pool) *coinPackageRepo {
	return &coinPackageRepo{pool: pool}
}

func (r *coinPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.CoinPackage) error {
	const q = `
INSERT INTO coin_packages (id, name, coin_amount, bonus_coins, price, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET name=$2, coin_amount=$3, bonus_coins=$4, price=$5, is_active=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.CoinAmount, p.BonusCoins, p.Price, p.IsActive, p.CreatedAt)
	return writeErr(err)
}

func (r *coinPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CoinPackage, error) {
	const q = `SELECT id, name, coin_amount, bonus_coins, price, is_active, created_at FROM coin_packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.CoinPackage{}
	if err := row.Scan(&p.ID, &p.Name, &p.CoinAmount, &p.BonusCoins, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *coinPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.CoinPackage, error) {
	const q = `SELECT id, name, coin_amount, bonus_coins, price, is_active, created_at FROM coin_packages WHERE is_active ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.CoinPackage
	for rows.Next() {
		p := &model.CoinPackage{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CoinAmount, &p.BonusCoins, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// ---- wallets ----

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

// CreditOnce claims the payment in wallet_credits first; the balance only
// moves when that claim inserted a row. Both statements must share tx.
func (r *walletRepo) CreditOnce(ctx context.Context, tx repository.Tx, userID, paymentID string, coins int64) (bool, error) {
	const claim = `
INSERT INTO wallet_credits (payment_id, user_id, coins, created_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (payment_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, claim, paymentID, userID, coins)
	if err != nil {
		return false, writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return false, nil
	}

	const credit = `
INSERT INTO wallets (user_id, coin_balance, updated_at)
VALUES ($1,$2,NOW())
ON CONFLICT (user_id) DO UPDATE SET coin_balance = wallets.coin_balance + EXCLUDED.coin_balance, updated_at = NOW();`
	if _, err := execSQL(ctx, r.pool, tx, credit, userID, coins); err != nil {
		return false, writeErr(err)
	}
	return true, nil
}

func (r *walletRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	const q = `SELECT user_id, coin_balance, updated_at FROM wallets WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	w := &model.Wallet{}
	if err := row.Scan(&w.UserID, &w.CoinBalance, &w.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return w, nil
}

// ---- orders ----

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (id, buyer_id, total, status, payment_id, paid_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET total=$3, status=$4, payment_id=$5, paid_at=$6, updated_at=$8;`
	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.BuyerID, o.Total, o.Status, o.PaymentID, o.PaidAt, o.CreatedAt, o.UpdatedAt)
	return writeErr(err)
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := lockClause(`SELECT id, buyer_id, total, status, payment_id, paid_at, created_at, updated_at FROM orders WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	o := &model.Order{}
	if err := row.Scan(&o.ID, &o.BuyerID, &o.Total, &o.Status, &o.PaymentID, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return o, nil
}

func (r *orderRepo) SetPayment(ctx context.Context, tx repository.Tx, id, paymentID string) error {
	const q = `UPDATE orders SET payment_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentID)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	const q = `UPDATE orders SET status='PAID', paid_at=$2, updated_at=NOW() WHERE id=$1 AND status='PENDING_PAYMENT'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paidAt)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}
