package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
)

// Fees are the configured prices of flows without a catalogue price.
type Fees struct {
	AgentRegistration  decimal.Decimal
	BusinessActivation decimal.Decimal
}

// NewBusinessInput is an agent registering a business on an owner's behalf.
type NewBusinessInput struct {
	OwnerID     string
	Name        string
	Category    string
	Description string
	Location    model.Location
	Phone       string // phone to push the USSD prompt to; defaults to the owner's
}

type AgentUseCase struct {
	agents      repository.AgentRepository
	packages    repository.AgentPackageRepository
	businesses  repository.BusinessRepository
	users       repository.UserRepository
	tm          repository.TransactionManager
	payments    PaymentUseCase
	commissions *CommissionEngine
	fees        Fees
	log         *zerolog.Logger
}

func NewAgentUseCase(
	agents repository.AgentRepository,
	packages repository.AgentPackageRepository,
	businesses repository.BusinessRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	payments PaymentUseCase,
	commissions *CommissionEngine,
	fees Fees,
	logger *zerolog.Logger,
) *AgentUseCase {
	l := logger.With().Str("component", "AgentUseCase").Logger()
	return &AgentUseCase{
		agents:      agents,
		packages:    packages,
		businesses:  businesses,
		users:       users,
		tm:          tm,
		payments:    payments,
		commissions: commissions,
		fees:        fees,
		log:         &l,
	}
}

// Register creates (or reuses) the caller's PENDING agent profile and starts
// the registration payment. With a package the package price is charged.
func (u *AgentUseCase) Register(ctx context.Context, userID, phone string, packageID *string) (*model.Agent, *model.Payment, error) {
	defer logging.TraceDuration(u.log, "AgentUseCase.Register")()

	var pkg *model.AgentPackage
	if packageID != nil && *packageID != "" {
		var err error
		pkg, err = u.packages.FindByID(ctx, repository.NoTX, *packageID)
		if err != nil {
			return nil, nil, err
		}
		if !pkg.IsActive {
			return nil, nil, domain.ErrPackageInactive
		}
	}

	a, err := u.agents.FindByUserID(ctx, repository.NoTX, userID)
	switch {
	case err == nil && a.Status != model.AgentStatusPending:
		return nil, nil, domain.ErrAlreadyAgent
	case err == nil:
		// unpaid registration; charge again on the same profile
	case isNotFound(err):
		seq, err := u.agents.NextCodeSequence(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("next agent code: %w", err)
		}
		a, err = model.NewAgent(userID, phone, seq)
		if err != nil {
			return nil, nil, err
		}
		if err := u.agents.Save(ctx, repository.NoTX, a); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return nil, nil, domain.ErrAlreadyAgent
			}
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	in := InitiatePayment{
		UserID:      userID,
		Amount:      u.fees.AgentRegistration,
		Purpose:     model.PurposeAgentRegistration,
		Phone:       phone,
		Description: "Agent registration " + a.AgentCode,
		Related:     &model.RelatedRef{ID: a.ID, Kind: model.RelatedAgent},
	}
	if pkg != nil {
		in.Amount = pkg.Price
		in.Purpose = model.PurposeAgentPackage
		in.Description = fmt.Sprintf("Agent package %s for %s", pkg.Name, a.AgentCode)
		in.Related = &model.RelatedRef{ID: pkg.ID, Kind: model.RelatedAgentPackage}
	}
	p, err := u.payments.Initiate(ctx, in)
	if err != nil {
		return a, p, err
	}
	// demo mode may already have activated the agent
	if cur, err := u.agents.FindByID(ctx, repository.NoTX, a.ID); err == nil {
		a = cur
	}
	return a, p, nil
}

// Approve activates an agent without a payment. Approving an ACTIVE agent
// is a noop.
func (u *AgentUseCase) Approve(ctx context.Context, agentID string) (*model.Agent, error) {
	a, err := u.agents.FindByID(ctx, repository.NoTX, agentID)
	if err != nil {
		return nil, err
	}
	next, ok := model.AgentLifecycle.Apply(a.Status, model.AgentEventActivate)
	if !ok {
		if a.Status == model.AgentStatusActive {
			return a, nil
		}
		return nil, fmt.Errorf("%w: agent %s is %s", domain.ErrInvalidTransition, a.ID, a.Status)
	}
	now := time.Now()
	changed, err := u.agents.TransitionStatus(ctx, repository.NoTX, a.ID, a.Status, next, &now)
	if err != nil {
		return nil, err
	}
	if changed {
		u.log.Info().Str("agent_code", a.AgentCode).Msg("agent approved by admin")
	}
	return u.agents.FindByID(ctx, repository.NoTX, a.ID)
}

func (u *AgentUseCase) Me(ctx context.Context, userID string) (*model.Agent, error) {
	return u.agents.FindByUserID(ctx, repository.NoTX, userID)
}

func (u *AgentUseCase) Packages(ctx context.Context) ([]*model.AgentPackage, error) {
	return u.packages.ListActive(ctx, repository.NoTX)
}

func (u *AgentUseCase) Commissions(ctx context.Context, userID string, limit, offset int) ([]*model.Commission, error) {
	a, err := u.agents.FindByUserID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return u.commissions.ListForAgent(ctx, a.ID, limit, offset)
}

// CreateBusinessForOwner registers a PENDING business on behalf of an owner
// and pushes the activation payment to the owner.
func (u *AgentUseCase) CreateBusinessForOwner(ctx context.Context, agentUserID string, in NewBusinessInput) (*model.Business, *model.Payment, error) {
	defer logging.TraceDuration(u.log, "AgentUseCase.CreateBusinessForOwner")()

	a, err := u.agents.FindByUserID(ctx, repository.NoTX, agentUserID)
	if err != nil {
		return nil, nil, err
	}
	if !a.IsActive() {
		return nil, nil, domain.ErrAgentNotActive
	}
	owner, err := u.users.FindByID(ctx, repository.NoTX, in.OwnerID)
	if err != nil {
		return nil, nil, err
	}

	var b *model.Business
	err = inTx(ctx, u.tm, repository.NoTX, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.businesses.FindLiveByOwner(ctx, tx, owner.ID); err == nil {
			return domain.ErrAlreadyHasBusiness
		} else if !isNotFound(err) {
			return err
		}
		var err error
		b, err = model.NewBusiness(owner.ID, &a.ID, in.Name, in.Category, in.Description, in.Location, model.BusinessStatusPending)
		if err != nil {
			return err
		}
		if err := u.businesses.Save(ctx, tx, b); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrAlreadyHasBusiness
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	phone := in.Phone
	if phone == "" {
		phone = owner.Phone
	}
	p, err := u.payments.Initiate(ctx, InitiatePayment{
		UserID:      owner.ID,
		Amount:      u.fees.BusinessActivation,
		Purpose:     model.PurposeBusinessActivation,
		Phone:       phone,
		Description: "Business activation: " + b.Name,
		Related:     &model.RelatedRef{ID: b.ID, Kind: model.RelatedBusiness},
	})
	if err != nil {
		return b, p, err
	}
	if cur, err := u.businesses.FindByID(ctx, repository.NoTX, b.ID); err == nil {
		b = cur
	}
	return b, p, nil
}
