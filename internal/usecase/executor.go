package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/ports/repository"
)

var readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// inTx runs fn on the caller's transaction when there is one, otherwise in
// a fresh read-committed transaction.
func inTx(ctx context.Context, tm repository.TransactionManager, tx repository.Tx, fn func(ctx context.Context, tx repository.Tx) error) error {
	if tx != nil || tm == nil {
		return fn(ctx, tx)
	}
	return tm.WithTx(ctx, readCommitted, fn)
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
