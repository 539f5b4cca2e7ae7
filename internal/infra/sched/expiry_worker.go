package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/ports/usecase"
)

// ExpiryWorker expires lapsed subscriptions and sends reminders for those
// about to end.
type ExpiryWorker struct {
	interval  time.Duration
	subs      usecase.SubscriptionMaintainer
	reminders usecase.ReminderSender
	now       func() time.Time
	log       *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subs usecase.SubscriptionMaintainer, reminders usecase.ReminderSender, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:  interval,
		subs:      subs,
		reminders: reminders,
		now:       time.Now,
		log:       &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *ExpiryWorker) runCheck(ctx context.Context) {
	now := w.now()
	n, err := w.subs.ExpireDue(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("subscriptions expired")
	}

	if w.reminders == nil {
		return
	}
	sent, err := w.reminders.SendExpiryReminders(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("reminder check failed")
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("expiry reminders sent")
	}
}
