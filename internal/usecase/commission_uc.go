package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/infra/metrics"
)

// CommissionPolicy holds the fixed grant amounts.
type CommissionPolicy struct {
	ActivationAmount decimal.Decimal
	ReferralAmount   decimal.Decimal
	LockTTL          time.Duration
}

// GrantSummary reports which grants a call actually wrote.
type GrantSummary struct {
	Activation bool
	Referral   bool
}

// CommissionEngine grants at most one activation commission per
// (agent, business) and at most one referral bonus per (agent, business).
//
// The existence check and the insert form one critical section: a Redis
// lock keyed by the pair narrows contention, and the unique index behind
// CommissionRepository.Insert is the final arbiter. Earnings move only when
// the insert wrote a row.
type CommissionEngine struct {
	commissions repository.CommissionRepository
	agents      repository.AgentRepository
	users       repository.UserRepository
	tm          repository.TransactionManager
	locker      adapter.Locker
	events      *EventPublisher
	policy      CommissionPolicy
	log         *zerolog.Logger
}

func NewCommissionEngine(
	commissions repository.CommissionRepository,
	agents repository.AgentRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	locker adapter.Locker,
	events *EventPublisher,
	policy CommissionPolicy,
	logger *zerolog.Logger,
) *CommissionEngine {
	if policy.LockTTL <= 0 {
		policy.LockTTL = 10 * time.Second
	}
	l := logger.With().Str("component", "CommissionEngine").Logger()
	return &CommissionEngine{
		commissions: commissions,
		agents:      agents,
		users:       users,
		tm:          tm,
		locker:      locker,
		events:      events,
		policy:      policy,
		log:         &l,
	}
}

// GrantForBusiness pays the activating agent (if any) and the referring
// agent (if different). Safe to call any number of times.
func (e *CommissionEngine) GrantForBusiness(ctx context.Context, tx repository.Tx, b *model.Business) (GrantSummary, error) {
	var s GrantSummary
	err := inTx(ctx, e.tm, tx, func(ctx context.Context, tx repository.Tx) error {
		if b.AgentID != nil && *b.AgentID != "" {
			ok, err := e.GrantActivation(ctx, tx, *b.AgentID, b)
			if err != nil {
				return err
			}
			s.Activation = ok
		}
		ok, err := e.GrantReferral(ctx, tx, b)
		if err != nil {
			return err
		}
		s.Referral = ok
		return nil
	})
	return s, err
}

func (e *CommissionEngine) GrantActivation(ctx context.Context, tx repository.Tx, agentID string, b *model.Business) (bool, error) {
	desc := fmt.Sprintf("Commission for activating business: %s", b.Name)
	return e.grant(ctx, tx, agentID, b, model.CommissionActivation, e.policy.ActivationAmount, desc)
}

// GrantReferral pays the agent whose code the owner signed up with, unless
// that agent is the one who activated the business.
func (e *CommissionEngine) GrantReferral(ctx context.Context, tx repository.Tx, b *model.Business) (bool, error) {
	owner, err := e.users.FindByID(ctx, tx, b.OwnerID)
	if isNotFound(err) {
		e.log.Warn().Str("business_id", b.ID).Str("owner_id", b.OwnerID).Msg("referral check: owner not found")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load owner: %w", err)
	}
	if owner.ReferredByAgentCode == nil || *owner.ReferredByAgentCode == "" {
		return false, nil
	}
	referrer, err := e.agents.FindByCode(ctx, tx, *owner.ReferredByAgentCode)
	if isNotFound(err) {
		e.log.Info().Str("agent_code", *owner.ReferredByAgentCode).Msg("referral check: unknown agent code")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load referring agent: %w", err)
	}
	if b.AgentID != nil && referrer.ID == *b.AgentID {
		return false, nil
	}
	desc := fmt.Sprintf("Referral bonus for user %s starting business: %s", logging.RedactPhone(owner.Phone), b.Name)
	return e.grant(ctx, tx, referrer.ID, b, model.CommissionReferral, e.policy.ReferralAmount, desc)
}

func (e *CommissionEngine) grant(ctx context.Context, tx repository.Tx, agentID string, b *model.Business, typ model.CommissionType, amount decimal.Decimal, desc string) (bool, error) {
	key := model.CommissionLockKey(agentID, b.ID, typ)
	if e.locker != nil {
		token, err := e.locker.TryLock(ctx, key, e.policy.LockTTL)
		if err != nil {
			e.log.Warn().Err(err).Str("key", key).Msg("commission lock unavailable; relying on unique index")
		} else {
			defer func() {
				if err := e.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					e.log.Warn().Err(err).Str("key", key).Msg("commission unlock failed")
				}
			}()
		}
	}

	var granted *model.Commission
	err := inTx(ctx, e.tm, tx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := e.commissions.ListByAgentAndBusiness(ctx, tx, agentID, b.ID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("list commissions: %w", err)
		}
		if model.HasGrant(existing, b.ID, typ) {
			return nil
		}
		c, err := model.NewPaidCommission(agentID, b.ID, typ, amount, desc)
		if err != nil {
			return err
		}
		inserted, err := e.commissions.Insert(ctx, tx, c)
		if err != nil {
			return fmt.Errorf("insert commission: %w", err)
		}
		if !inserted {
			return nil
		}
		if err := e.agents.Credit(ctx, tx, agentID, c.Amount, typ.Counter()); err != nil {
			return fmt.Errorf("credit agent: %w", err)
		}
		granted = c
		return nil
	})
	if err != nil {
		metrics.IncCommission(string(typ), "error")
		return false, err
	}
	if granted == nil {
		metrics.IncCommission(string(typ), "duplicate")
		e.log.Info().Str("agent_id", agentID).Str("business_id", b.ID).Str("type", string(typ)).Msg("commission already granted; skipping")
		return false, nil
	}

	metrics.IncCommission(string(typ), "granted")
	metrics.AddCommissionAmount(string(typ), granted.Amount)
	e.log.Info().
		Str("agent_id", agentID).
		Str("business_id", b.ID).
		Str("type", string(typ)).
		Str("amount", granted.Amount.String()).
		Msg("commission granted")
	e.events.Emit(model.NewAuditEvent(model.AuditCommissionGranted, nil).
		With("commission_id", granted.ID).
		With("agent_id", agentID).
		With("business_id", b.ID).
		With("type", string(typ)).
		With("amount", granted.Amount.String()))
	return true, nil
}

// ListForAgent returns an agent's commission history, newest first.
func (e *CommissionEngine) ListForAgent(ctx context.Context, agentID string, limit, offset int) ([]*model.Commission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return e.commissions.ListByAgent(ctx, repository.NoTX, agentID, limit, offset)
}
