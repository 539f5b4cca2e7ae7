package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories accept nil for the non-transactional path and lock rows
// (SELECT ... FOR UPDATE) when handed a live transaction.
type Tx interface{}

// NoTX selects the pool-backed, non-transactional path.
var NoTX Tx

// TransactionManager runs fn inside one database transaction. The handle
// passed to fn must be threaded through every repository call that belongs
// to the unit of work.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
