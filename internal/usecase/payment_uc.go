// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// ReconcileOutcome is the result of checking one payment against the gateway.
type ReconcileOutcome string

const (
	ReconcileSucceeded ReconcileOutcome = "success"
	ReconcileFailed    ReconcileOutcome = "failed"
	ReconcilePending   ReconcileOutcome = "pending"
	ReconcileNoop      ReconcileOutcome = "noop"
	ReconcileError     ReconcileOutcome = "error"
)

// InitiatePayment is the inbound request to collect money for one purpose.
type InitiatePayment struct {
	UserID      string
	Amount      decimal.Decimal
	Purpose     model.Purpose
	Phone       string
	Description string
	Related     *model.RelatedRef
}

type PaymentUseCase interface {
	// Initiate records a PENDING payment and pushes the collect request.
	// In demo mode the payment succeeds and activates before returning.
	Initiate(ctx context.Context, in InitiatePayment) (*model.Payment, error)
	// Refresh checks one payment by provider order id, outside the schedule.
	Refresh(ctx context.Context, orderID string) (*model.Payment, error)
	// Reconcile polls the gateway for p and advances it when terminal.
	Reconcile(ctx context.Context, p *model.Payment) (ReconcileOutcome, error)
	// Redispatch re-runs activation for a SUCCESS payment.
	Redispatch(ctx context.Context, paymentID string) (Outcome, error)
	Get(ctx context.Context, id string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error)
	// Outstanding pages through pollable payments; pass the last row of the
	// previous page as after, nil for the first.
	Outstanding(ctx context.Context, after *model.Payment, limit int) ([]*model.Payment, error)
	GatewayBalance(ctx context.Context) (decimal.Decimal, error)
}

// PaymentSettings carries the payment section of the config.
type PaymentSettings struct {
	DemoMode bool
	Grace    time.Duration
}

type paymentUC struct {
	ledger     *PaymentLedger
	gateway    adapter.PaymentGateway
	dispatcher *ActivationDispatcher
	tm         repository.TransactionManager
	events     *EventPublisher
	settings   PaymentSettings
	log        *zerolog.Logger
}

func NewPaymentUseCase(
	ledger *PaymentLedger,
	gateway adapter.PaymentGateway,
	dispatcher *ActivationDispatcher,
	tm repository.TransactionManager,
	events *EventPublisher,
	settings PaymentSettings,
	logger *zerolog.Logger,
) *paymentUC {
	if settings.Grace <= 0 {
		settings.Grace = 10 * time.Second
	}
	l := logger.With().Str("component", "PaymentUseCase").Logger()
	return &paymentUC{
		ledger:     ledger,
		gateway:    gateway,
		dispatcher: dispatcher,
		tm:         tm,
		events:     events,
		settings:   settings,
		log:        &l,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, in InitiatePayment) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUseCase.Initiate")()

	if !in.Purpose.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPurpose, in.Purpose)
	}
	p, err := u.ledger.Create(ctx, repository.NoTX, in.UserID, in.Amount, in.Purpose, in.Phone, in.Description, in.Related)
	if err != nil {
		return nil, err
	}
	log := u.log.With().Str("payment_id", p.ID).Str("purpose", string(p.Purpose)).Logger()

	if u.settings.DemoMode {
		res := &adapter.CollectResult{
			OrderID:   model.DemoOrderPrefix + ulid.Make().String(),
			Fee:       decimal.Zero,
			NetAmount: p.Amount,
			Raw:       `{"demo":true}`,
		}
		if err := u.ledger.AttachOrder(ctx, repository.NoTX, p, res); err != nil {
			return nil, err
		}
		log.Info().Str("order_id", res.OrderID).Msg("demo mode: auto-completing payment")
		if _, err := u.complete(ctx, p, demoCompleted); err != nil {
			return p, err
		}
		return p, nil
	}

	res, err := u.gateway.Collect(ctx, p.Phone, p.Amount, p.Description)
	if err != nil {
		if _, ferr := u.ledger.MarkFailed(ctx, repository.NoTX, p, err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("failed to mark payment failed after collect error")
		}
		u.emitFailed(p, err.Error())
		log.Warn().Err(err).Str("phone", logging.RedactPhone(p.Phone)).Msg("collect rejected")
		return p, fmt.Errorf("collect: %w", err)
	}
	if err := u.ledger.AttachOrder(ctx, repository.NoTX, p, res); err != nil {
		if _, ferr := u.ledger.MarkFailed(ctx, repository.NoTX, p, "attach order: "+err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("failed to mark payment failed after attach error")
		}
		return p, err
	}
	log.Info().Str("order_id", res.OrderID).Str("amount", p.Amount.String()).Msg("collect request accepted")
	return p, nil
}

// complete marks p SUCCESS and dispatches activation in one transaction.
// A dispatch error rolls the payment back to PENDING so the next poll
// retries it; integrity violations do not, the dispatcher swallows them.
func (u *paymentUC) complete(ctx context.Context, p *model.Payment, raw string) (bool, error) {
	var changed bool
	err := u.tm.WithTx(ctx, readCommitted, func(ctx context.Context, tx repository.Tx) error {
		var err error
		changed, err = u.ledger.MarkSuccess(ctx, tx, p, raw)
		if err != nil || !changed {
			return err
		}
		_, err = u.dispatcher.Dispatch(ctx, tx, p)
		return err
	})
	if err != nil {
		if cur, ferr := u.ledger.FindByID(ctx, p.ID); ferr == nil {
			*p = *cur
		}
		return false, err
	}
	if changed {
		u.events.Emit(model.NewAuditEvent(model.AuditPaymentSucceeded, p).With("order_id", p.OrderRef()))
	}
	return changed, nil
}

func (u *paymentUC) emitFailed(p *model.Payment, reason string) {
	u.events.Emit(model.NewAuditEvent(model.AuditPaymentFailed, p).With("reason", reason))
}

func (u *paymentUC) Reconcile(ctx context.Context, p *model.Payment) (ReconcileOutcome, error) {
	if p.IsTerminal() {
		return ReconcileNoop, nil
	}
	ref := p.OrderRef()
	if ref == "" {
		return ReconcilePending, nil
	}
	st, err := u.checkStatus(ctx, ref)
	if err != nil {
		return ReconcileError, err
	}
	ev, ok := st.Status.Event()
	if !ok {
		return ReconcilePending, nil
	}

	switch ev {
	case model.PaymentEventSucceeded:
		changed, err := u.complete(ctx, p, st.Raw)
		if err != nil {
			return ReconcileError, err
		}
		if !changed {
			return ReconcileNoop, nil
		}
		return ReconcileSucceeded, nil
	case model.PaymentEventFailed:
		changed, err := u.ledger.MarkFailed(ctx, repository.NoTX, p, st.Raw)
		if err != nil {
			return ReconcileError, err
		}
		if !changed {
			return ReconcileNoop, nil
		}
		u.emitFailed(p, string(st.Status))
		return ReconcileFailed, nil
	default:
		return ReconcilePending, nil
	}
}

const demoCompleted = `{"demo":true,"status":"completed"}`

// checkStatus asks the provider about ref. Demo orders never reached the
// provider: in demo mode they complete locally, so a demo payment whose
// inline activation failed is settled by the next poll.
func (u *paymentUC) checkStatus(ctx context.Context, ref string) (*adapter.StatusResult, error) {
	if model.IsDemoOrder(ref) {
		if !u.settings.DemoMode {
			return &adapter.StatusResult{Status: model.GatewayStatusPending}, nil
		}
		return &adapter.StatusResult{Status: model.GatewayStatusCompleted, Raw: demoCompleted}, nil
	}
	st, err := u.gateway.CheckStatus(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("check status %s: %w", ref, err)
	}
	return st, nil
}

// Refresh is a noop for terminal payments. A failed poll leaves the payment
// as it is and is not reported to the caller.
func (u *paymentUC) Refresh(ctx context.Context, orderID string) (*model.Payment, error) {
	p, err := u.ledger.FindByExternalRef(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.IsTerminal() {
		return p, nil
	}
	out, err := u.Reconcile(ctx, p)
	if err != nil {
		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			return nil, err
		}
		u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("manual refresh: status check failed")
	}
	u.log.Debug().Str("payment_id", p.ID).Str("outcome", string(out)).Msg("manual refresh")
	return u.ledger.FindByID(ctx, p.ID)
}

func (u *paymentUC) Redispatch(ctx context.Context, paymentID string) (Outcome, error) {
	p, err := u.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if p.Status != model.PaymentStatusSuccess {
		return "", fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidTransition, p.ID, p.Status)
	}
	var out Outcome
	err = u.tm.WithTx(ctx, readCommitted, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = u.dispatcher.Dispatch(ctx, tx, p)
		return err
	})
	return out, err
}

func (u *paymentUC) Get(ctx context.Context, id string) (*model.Payment, error) {
	return u.ledger.FindByID(ctx, id)
}

func (u *paymentUC) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error) {
	return u.ledger.ListByUser(ctx, userID, limit, offset)
}

func (u *paymentUC) Outstanding(ctx context.Context, after *model.Payment, limit int) ([]*model.Payment, error) {
	return u.ledger.FindOutstanding(ctx, u.settings.Grace, after, limit)
}

func (u *paymentUC) GatewayBalance(ctx context.Context) (decimal.Decimal, error) {
	return u.gateway.Balance(ctx)
}
