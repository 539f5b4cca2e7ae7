package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type AuditKind string

const (
	AuditPaymentSucceeded   AuditKind = "payment.succeeded"
	AuditPaymentFailed      AuditKind = "payment.failed"
	AuditCommissionGranted  AuditKind = "commission.granted"
	AuditIntegrityViolation AuditKind = "activation.integrity_violation"
	AuditSubscriptionExpiry AuditKind = "subscription.expiring"
)

// AuditEvent is a fire-and-forget record published after state changes.
type AuditEvent struct {
	ID         string            `json:"id"`
	Kind       AuditKind         `json:"kind"`
	PaymentID  string            `json:"payment_id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	Purpose    Purpose           `json:"purpose,omitempty"`
	Amount     string            `json:"amount,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewAuditEvent(kind AuditKind, p *Payment) AuditEvent {
	ev := AuditEvent{
		ID:         ulid.Make().String(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
	if p != nil {
		ev.PaymentID = p.ID
		ev.UserID = p.UserID
		ev.Purpose = p.Purpose
		ev.Amount = p.Amount.String()
	}
	return ev
}

func (e AuditEvent) With(key, value string) AuditEvent {
	attrs := make(map[string]string, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	e.Attributes = attrs
	return e
}
