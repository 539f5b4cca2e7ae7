package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// PaymentStats summarises the ledger over a window.
type PaymentStats struct {
	Since    time.Time                         `json:"since"`
	Users    int                               `json:"users"`
	ByStatus map[model.PaymentStatus]int       `json:"by_status"`
	Revenue  map[model.Purpose]decimal.Decimal `json:"revenue"`
	Total    decimal.Decimal                   `json:"total"`
	Stuck    int                               `json:"stuck"`
}

type StatsUseCase interface {
	Payments(ctx context.Context, since time.Time) (*PaymentStats, error)
	// Revenue returns succeeded totals for the last week, month and year.
	Revenue(ctx context.Context, now time.Time) (week, month, year decimal.Decimal, err error)
}

type statsUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	// pending rows older than stuckAfter are reported as stuck
	stuckAfter time.Duration

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, payments repository.PaymentRepository, stuckAfter time.Duration, logger *zerolog.Logger) *statsUC {
	if stuckAfter <= 0 {
		stuckAfter = time.Hour
	}
	l := logger.With().Str("component", "StatsUseCase").Logger()
	return &statsUC{users: users, payments: payments, stuckAfter: stuckAfter, log: &l}
}

func (s *statsUC) Payments(ctx context.Context, since time.Time) (*PaymentStats, error) {
	defer logging.TraceDuration(s.log, "StatsUseCase.Payments")()

	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.payments.CountByStatus(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.SumSucceededByPurpose(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, v := range revenue {
		total = total.Add(v)
	}
	stuck, err := s.payments.ListOutstanding(ctx, repository.NoTX, time.Now().Add(-s.stuckAfter), nil, 1000)
	if err != nil {
		return nil, err
	}
	return &PaymentStats{
		Since:    since,
		Users:    users,
		ByStatus: byStatus,
		Revenue:  revenue,
		Total:    total,
		Stuck:    len(stuck),
	}, nil
}

func (s *statsUC) Revenue(ctx context.Context, now time.Time) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	sum := func(since time.Time) (decimal.Decimal, error) {
		m, err := s.payments.SumSucceededByPurpose(ctx, repository.NoTX, since)
		if err != nil {
			return decimal.Zero, err
		}
		total := decimal.Zero
		for _, v := range m {
			total = total.Add(v)
		}
		return total, nil
	}
	w, err := sum(now.AddDate(0, 0, -7))
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	m, err := sum(now.AddDate(0, -1, 0))
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	y, err := sum(now.AddDate(-1, 0, 0))
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return w, m, y, nil
}
