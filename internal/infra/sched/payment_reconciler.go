package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/infra/metrics"
	"marketplace-payments/internal/usecase"
)

// Reconciler is the part of the payment use case the loop drives.
type Reconciler interface {
	Outstanding(ctx context.Context, after *model.Payment, limit int) ([]*model.Payment, error)
	Reconcile(ctx context.Context, p *model.Payment) (usecase.ReconcileOutcome, error)
}

// Submitter runs a task on a bounded pool, blocking while it is full.
type Submitter interface {
	SubmitWait(ctx context.Context, task func(ctx context.Context) error) error
}

type ReconcilerOptions struct {
	Interval    time.Duration
	BatchSize   int
	PollTimeout time.Duration
}

// PaymentReconciler polls the provider for every outstanding payment on a
// fixed interval. A payment that cannot be checked stays PENDING and is
// retried next cycle, with no upper bound on attempts.
type PaymentReconciler struct {
	uc   Reconciler
	pool Submitter
	opts ReconcilerOptions
	log  *zerolog.Logger
}

func NewPaymentReconciler(uc Reconciler, pool Submitter, opts ReconcilerOptions, logger *zerolog.Logger) *PaymentReconciler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, pool: pool, opts: opts, log: &l}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.opts.Interval).Msg("Starting payment reconciler")
	t := time.NewTicker(w.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one cycle and waits for every poll it started. It pages
// through all outstanding payments, so rows stuck at the provider cannot
// hold newer ones out of the cycle.
func (w *PaymentReconciler) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObserveReconcileTick(time.Since(start)) }()

	var (
		wg    sync.WaitGroup
		after *model.Payment
		total int
	)
pages:
	for {
		page, err := w.uc.Outstanding(ctx, after, w.opts.BatchSize)
		if err != nil {
			metrics.IncReconcileTick("list_error")
			w.log.Error().Err(err).Int("listed", total).Msg("list outstanding payments failed")
			break
		}
		for i, p := range page {
			p := p
			wg.Add(1)
			err := w.pool.SubmitWait(ctx, func(ctx context.Context) error {
				defer wg.Done()
				w.reconcileOne(ctx, p)
				return nil
			})
			if err != nil {
				wg.Done()
				w.log.Warn().Err(err).Int("skipped", len(page)-i).Msg("reconcile cycle cut short")
				break pages
			}
		}
		total += len(page)
		if len(page) < w.opts.BatchSize {
			metrics.IncReconcileTick("ok")
			break
		}
		after = page[len(page)-1]
	}
	if total == 0 {
		return
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		w.log.Warn().Msg("reconcile cycle interrupted")
		return
	}
	w.log.Debug().Int("count", total).Dur("took", time.Since(start)).Msg("reconcile cycle done")
}

func (w *PaymentReconciler) reconcileOne(ctx context.Context, p *model.Payment) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.PollTimeout)
	defer cancel()

	out, err := w.uc.Reconcile(ctx, p)
	metrics.IncReconcileItem(string(out))
	if err != nil {
		w.log.Warn().Err(err).
			Str("payment_id", p.ID).
			Str("order_id", p.OrderRef()).
			Str("purpose", string(p.Purpose)).
			Msg("reconcile failed, will retry next cycle")
		return
	}
	if out == usecase.ReconcileSucceeded || out == usecase.ReconcileFailed {
		w.log.Info().Str("payment_id", p.ID).Str("outcome", string(out)).Msg("payment reconciled")
	}
}
