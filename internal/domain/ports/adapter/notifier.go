package adapter

//go:generate mockgen -source=notifier.go -destination=mocks/notifier_mock.go -package=mocks

import (
	"context"

	"marketplace-payments/internal/domain/model"
)

// AuditSink publishes state-change events for downstream consumers.
type AuditSink interface {
	Emit(ctx context.Context, ev model.AuditEvent) error
}

// OpsAlerter notifies operators about conditions that need a human,
// e.g. money collected for an entity that no longer exists.
type OpsAlerter interface {
	Alert(ctx context.Context, subject, body string) error
}

// TaskRunner executes work off the caller's goroutine.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}
