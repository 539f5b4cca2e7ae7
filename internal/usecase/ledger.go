package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

// PaymentLedger is the only writer of payment rows. Status changes go
// through model.PaymentLifecycle and are repeated as a conditional update,
// so a second caller racing on the same payment observes a noop.
type PaymentLedger struct {
	payments repository.PaymentRepository
	log      *zerolog.Logger
}

func NewPaymentLedger(payments repository.PaymentRepository, logger *zerolog.Logger) *PaymentLedger {
	l := logger.With().Str("component", "PaymentLedger").Logger()
	return &PaymentLedger{payments: payments, log: &l}
}

func (l *PaymentLedger) Create(ctx context.Context, tx repository.Tx, userID string, amount decimal.Decimal, purpose model.Purpose, phone, description string, related *model.RelatedRef) (*model.Payment, error) {
	p, err := model.NewPayment(userID, amount, purpose, phone, description, related)
	if err != nil {
		return nil, err
	}
	if err := l.payments.Save(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	metrics.IncPayment(string(p.Purpose), string(p.Status))
	return p, nil
}

// AttachOrder stores the provider order reference returned by collect.
func (l *PaymentLedger) AttachOrder(ctx context.Context, tx repository.Tx, p *model.Payment, res *adapter.CollectResult) error {
	if res == nil || res.OrderID == "" {
		return domain.ErrInvalidArgument
	}
	if err := l.payments.AttachGatewayOrder(ctx, tx, p.ID, res.OrderID, res.Fee, res.NetAmount, res.Raw); err != nil {
		return fmt.Errorf("attach gateway order: %w", err)
	}
	ref := res.OrderID
	p.ExternalRef = &ref
	p.Fee = res.Fee
	p.NetAmount = res.NetAmount
	p.ProviderResponse = res.Raw
	return nil
}

// MarkSuccess moves p to SUCCESS. It reports false without error when p is
// already terminal.
func (l *PaymentLedger) MarkSuccess(ctx context.Context, tx repository.Tx, p *model.Payment, raw string) (bool, error) {
	changed, err := l.transition(ctx, tx, p, model.PaymentEventSucceeded, raw)
	if changed {
		metrics.AddPaymentRevenue(string(p.Purpose), p.Currency, p.Amount)
	}
	return changed, err
}

// MarkFailed moves p to FAILED, keeping reason as the provider response.
func (l *PaymentLedger) MarkFailed(ctx context.Context, tx repository.Tx, p *model.Payment, reason string) (bool, error) {
	return l.transition(ctx, tx, p, model.PaymentEventFailed, reason)
}

func (l *PaymentLedger) transition(ctx context.Context, tx repository.Tx, p *model.Payment, ev model.PaymentEvent, raw string) (bool, error) {
	next, ok := model.PaymentLifecycle.Apply(p.Status, ev)
	if !ok {
		return false, nil
	}
	now := time.Now()
	var paidAt *time.Time
	if next == model.PaymentStatusSuccess {
		paidAt = &now
	}
	changed, err := l.payments.TransitionIfPending(ctx, tx, p.ID, next, paidAt, raw)
	if err != nil {
		return false, fmt.Errorf("transition payment %s: %w", p.ID, err)
	}
	if !changed {
		// lost the race; reflect what the winner wrote
		if cur, ferr := l.payments.FindByID(ctx, tx, p.ID); ferr == nil {
			*p = *cur
		}
		l.log.Debug().Str("payment_id", p.ID).Str("event", string(ev)).Msg("payment already terminal")
		return false, nil
	}
	p.Status = next
	p.PaidAt = paidAt
	if raw != "" {
		p.ProviderResponse = raw
	}
	p.UpdatedAt = now
	metrics.IncPayment(string(p.Purpose), string(next))
	return true, nil
}

func (l *PaymentLedger) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	return l.payments.FindByID(ctx, repository.NoTX, id)
}

func (l *PaymentLedger) FindByExternalRef(ctx context.Context, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, domain.ErrInvalidArgument
	}
	return l.payments.FindByExternalRef(ctx, repository.NoTX, ref)
}

// FindOutstanding lists PENDING payments with an order reference that are
// older than grace.
func (l *PaymentLedger) FindOutstanding(ctx context.Context, grace time.Duration, after *model.Payment, limit int) ([]*model.Payment, error) {
	return l.payments.ListOutstanding(ctx, repository.NoTX, time.Now().Add(-grace), after, limit)
}

func (l *PaymentLedger) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return l.payments.ListByUser(ctx, repository.NoTX, userID, limit, offset)
}
