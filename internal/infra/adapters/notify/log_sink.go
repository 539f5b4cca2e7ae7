package notify

import (
	"context"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
)

var (
	_ adapter.AuditSink  = (*LogSink)(nil)
	_ adapter.OpsAlerter = (*LogSink)(nil)
)

// LogSink writes events and alerts to the log. It backs both ports when
// Kafka or the alert channels are not configured.
type LogSink struct {
	log *zerolog.Logger
}

func NewLogSink(logger *zerolog.Logger) *LogSink {
	l := logger.With().Str("component", "LogSink").Logger()
	return &LogSink{log: &l}
}

func (s *LogSink) Emit(ctx context.Context, ev model.AuditEvent) error {
	s.log.Info().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Str("payment_id", ev.PaymentID).
		Str("purpose", string(ev.Purpose)).
		Str("amount", ev.Amount).
		Interface("attributes", ev.Attributes).
		Msg("audit")
	return nil
}

func (s *LogSink) Alert(ctx context.Context, subject, body string) error {
	s.log.Warn().Str("subject", subject).Msg(body)
	return nil
}
