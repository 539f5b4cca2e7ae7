package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
)

const eventTimeout = 10 * time.Second

// EventPublisher fans audit events and ops alerts out through a TaskRunner.
// Failures are logged and swallowed; callers never wait on delivery.
type EventPublisher struct {
	sink    adapter.AuditSink
	alerter adapter.OpsAlerter
	runner  adapter.TaskRunner
	log     *zerolog.Logger
}

func NewEventPublisher(sink adapter.AuditSink, alerter adapter.OpsAlerter, runner adapter.TaskRunner, logger *zerolog.Logger) *EventPublisher {
	l := logger.With().Str("component", "EventPublisher").Logger()
	return &EventPublisher{sink: sink, alerter: alerter, runner: runner, log: &l}
}

func (e *EventPublisher) Emit(ev model.AuditEvent) {
	if e == nil || e.sink == nil {
		return
	}
	e.submit(string(ev.Kind), func(ctx context.Context) error {
		return e.sink.Emit(ctx, ev)
	})
}

func (e *EventPublisher) Alert(subject, body string) {
	if e == nil || e.alerter == nil {
		return
	}
	e.submit("alert", func(ctx context.Context) error {
		return e.alerter.Alert(ctx, subject, body)
	})
}

func (e *EventPublisher) submit(kind string, task func(ctx context.Context) error) {
	bounded := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, eventTimeout)
		defer cancel()
		if err := task(ctx); err != nil {
			e.log.Warn().Err(err).Str("kind", kind).Msg("event delivery failed")
		}
		return nil
	}
	if e.runner == nil {
		_ = bounded(context.Background())
		return
	}
	if err := e.runner.Submit(bounded); err != nil {
		e.log.Warn().Err(err).Str("kind", kind).Msg("event dropped")
	}
}
