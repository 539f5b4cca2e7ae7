package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/ports/usecase"
)

type PromotionSweeper struct {
	interval time.Duration
	uc       usecase.PromotionSweeper
	log      *zerolog.Logger
}

func NewPromotionSweeper(interval time.Duration, uc usecase.PromotionSweeper, logger *zerolog.Logger) *PromotionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "PromotionSweeper").Logger()
	return &PromotionSweeper{interval: interval, uc: uc, log: &l}
}

func (w *PromotionSweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting promotion sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping promotion sweeper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.uc.Sweep(ctx, time.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("promotion sweep failed")
				continue
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("promotions completed")
			}
		}
	}
}
