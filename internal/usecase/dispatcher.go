package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

// Outcome is what an activation did to its target.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"    // target already past the guarded state
	OutcomeSkipped Outcome = "skipped" // integrity violation; payment stays SUCCESS
)

// ActivationHandler turns the target of one successful payment live.
// Implementations re-read the target under the transaction and apply a
// guarded transition, so repeated calls report OutcomeNoop.
type ActivationHandler interface {
	Activate(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error)
}

type ActivationFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error)

func (f ActivationFunc) Activate(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	return f(ctx, tx, p)
}

// ActivationHandlers has one slot per model.Purpose.
type ActivationHandlers struct {
	AgentRegistration  ActivationHandler
	AgentPackage       ActivationHandler
	BusinessActivation ActivationHandler
	Subscription       ActivationHandler
	Promotion          ActivationHandler
	Order              ActivationHandler
	CoinPurchase       ActivationHandler
}

// ActivationDispatcher routes a SUCCESS payment to the handler for its purpose.
type ActivationDispatcher struct {
	handlers ActivationHandlers
	events   *EventPublisher
	log      *zerolog.Logger
}

func NewActivationDispatcher(handlers ActivationHandlers, events *EventPublisher, logger *zerolog.Logger) *ActivationDispatcher {
	l := logger.With().Str("component", "ActivationDispatcher").Logger()
	return &ActivationDispatcher{handlers: handlers, events: events, log: &l}
}

func (d *ActivationDispatcher) route(purpose model.Purpose) (ActivationHandler, error) {
	var h ActivationHandler
	switch purpose {
	case model.PurposeAgentRegistration:
		h = d.handlers.AgentRegistration
	case model.PurposeAgentPackage:
		h = d.handlers.AgentPackage
	case model.PurposeBusinessActivation:
		h = d.handlers.BusinessActivation
	case model.PurposeSubscription:
		h = d.handlers.Subscription
	case model.PurposePromotion:
		h = d.handlers.Promotion
	case model.PurposeOrder:
		h = d.handlers.Order
	case model.PurposeCoinPurchase:
		h = d.handlers.CoinPurchase
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPurpose, purpose)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: no handler for %s", domain.ErrUnknownPurpose, purpose)
	}
	return h, nil
}

// Dispatch runs the activation for p inside tx. Integrity violations are
// logged, alerted and swallowed: the money side already completed.
func (d *ActivationDispatcher) Dispatch(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	if p == nil {
		return "", domain.ErrInvalidArgument
	}
	if p.Status != model.PaymentStatusSuccess {
		return "", fmt.Errorf("%w: dispatch of %s payment %s", domain.ErrInvalidTransition, p.Status, p.ID)
	}
	h, err := d.route(p.Purpose)
	if err != nil {
		metrics.IncActivation(string(p.Purpose), "error")
		return "", err
	}

	out, err := h.Activate(ctx, tx, p)
	switch {
	case errors.Is(err, domain.ErrIntegrityViolation):
		d.failOpen(p, err)
		return OutcomeSkipped, nil
	case err != nil:
		metrics.IncActivation(string(p.Purpose), "error")
		return "", fmt.Errorf("activate %s payment %s: %w", p.Purpose, p.ID, err)
	}

	metrics.IncActivation(string(p.Purpose), string(out))
	ev := d.log.Info()
	if out == OutcomeNoop {
		ev = d.log.Debug()
	}
	ev.Str("payment_id", p.ID).Str("purpose", string(p.Purpose)).Str("outcome", string(out)).Msg("activation dispatched")
	return out, nil
}

func (d *ActivationDispatcher) failOpen(p *model.Payment, cause error) {
	related := ""
	if ref := p.Related(); ref != nil {
		related = string(ref.Kind) + ":" + ref.ID
	}
	metrics.IncActivation(string(p.Purpose), string(OutcomeSkipped))
	d.log.Warn().
		Err(cause).
		Str("payment_id", p.ID).
		Str("purpose", string(p.Purpose)).
		Str("related_id", related).
		Msg("activation skipped; payment kept as SUCCESS")
	d.events.Emit(model.NewAuditEvent(model.AuditIntegrityViolation, p).
		With("related", related).
		With("reason", cause.Error()))
	d.events.Alert(
		fmt.Sprintf("Activation skipped for payment %s", p.ID),
		fmt.Sprintf("purpose=%s related=%s amount=%s %s order=%s\nreason: %v",
			p.Purpose, related, p.Amount.String(), p.Currency, p.OrderRef(), cause),
	)
}
