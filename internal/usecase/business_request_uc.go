package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
)

// SubmitBusinessRequest is a self-service application to open a business.
type SubmitBusinessRequest struct {
	AgentCode    string // optional
	BusinessName string
	Phone        string
	Category     string
	Description  string
	Location     model.Location
}

type BusinessRequestUseCase struct {
	requests    repository.BusinessRequestRepository
	businesses  repository.BusinessRepository
	agents      repository.AgentRepository
	tm          repository.TransactionManager
	payments    PaymentUseCase
	activations *ActivationService
	fee         Fees
	log         *zerolog.Logger
}

func NewBusinessRequestUseCase(
	requests repository.BusinessRequestRepository,
	businesses repository.BusinessRepository,
	agents repository.AgentRepository,
	tm repository.TransactionManager,
	payments PaymentUseCase,
	activations *ActivationService,
	fees Fees,
	logger *zerolog.Logger,
) *BusinessRequestUseCase {
	l := logger.With().Str("component", "BusinessRequestUseCase").Logger()
	return &BusinessRequestUseCase{
		requests:    requests,
		businesses:  businesses,
		agents:      agents,
		tm:          tm,
		payments:    payments,
		activations: activations,
		fee:         fees,
		log:         &l,
	}
}

// Submit records a PENDING request and starts the activation payment.
func (u *BusinessRequestUseCase) Submit(ctx context.Context, userID string, in SubmitBusinessRequest) (*model.BusinessRequest, *model.Payment, error) {
	defer logging.TraceDuration(u.log, "BusinessRequestUseCase.Submit")()

	if _, err := u.businesses.FindLiveByOwner(ctx, repository.NoTX, userID); err == nil {
		return nil, nil, domain.ErrAlreadyHasBusiness
	} else if !isNotFound(err) {
		return nil, nil, err
	}

	var agentID *string
	if in.AgentCode != "" {
		a, err := u.agents.FindByCode(ctx, repository.NoTX, in.AgentCode)
		if err != nil {
			return nil, nil, err
		}
		if !a.IsActive() {
			return nil, nil, domain.ErrAgentNotActive
		}
		agentID = &a.ID
	}

	r, err := model.NewBusinessRequest(userID, agentID, in.BusinessName, in.Phone, in.Category, in.Description, in.Location)
	if err != nil {
		return nil, nil, err
	}
	if err := u.requests.Save(ctx, repository.NoTX, r); err != nil {
		return nil, nil, err
	}

	p, err := u.payments.Initiate(ctx, InitiatePayment{
		UserID:      userID,
		Amount:      u.fee.BusinessActivation,
		Purpose:     model.PurposeBusinessActivation,
		Phone:       in.Phone,
		Description: "Business activation: " + r.BusinessName,
		Related:     &model.RelatedRef{ID: r.ID, Kind: model.RelatedBusinessRequest},
	})
	if p != nil {
		if serr := u.requests.SetPayment(ctx, repository.NoTX, r.ID, p.ID); serr != nil {
			u.log.Warn().Err(serr).Str("request_id", r.ID).Msg("failed to link payment to request")
		}
	}
	if err != nil {
		return r, p, err
	}
	if cur, err := u.requests.FindByID(ctx, repository.NoTX, r.ID); err == nil {
		r = cur
	}
	return r, p, nil
}

// CompleteFromRequest is the agent approval after an in-person visit. It
// shares the conversion path with payment activation, so whichever fires
// first creates the business and the other is a noop.
func (u *BusinessRequestUseCase) CompleteFromRequest(ctx context.Context, agentUserID, requestID string) (*model.Business, error) {
	defer logging.TraceDuration(u.log, "BusinessRequestUseCase.CompleteFromRequest")()

	var b *model.Business
	err := u.tm.WithTx(ctx, readCommitted, func(ctx context.Context, tx repository.Tx) error {
		r, a, err := u.ownedRequest(ctx, tx, agentUserID, requestID)
		if err != nil {
			return err
		}
		switch r.Status {
		case model.RequestStatusPending:
			return domain.ErrRequestNotPaid
		case model.RequestStatusConverted:
			if r.BusinessID == nil {
				return fmt.Errorf("%w: converted request %s has no business", domain.ErrInvalidTransition, r.ID)
			}
			b, err = u.businesses.FindByID(ctx, tx, *r.BusinessID)
			return err
		}
		var out Outcome
		b, out, err = u.activations.ConvertRequest(ctx, tx, r)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("%w: request %s is %s", domain.ErrInvalidTransition, r.ID, r.Status)
		}
		u.log.Info().Str("request_id", r.ID).Str("agent_code", a.AgentCode).Str("outcome", string(out)).Msg("business request approved")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Reject closes a PENDING or PAID request routed to the calling agent.
func (u *BusinessRequestUseCase) Reject(ctx context.Context, agentUserID, requestID string) (*model.BusinessRequest, error) {
	var (
		out     *model.BusinessRequest
		wasPaid bool
	)
	err := u.tm.WithTx(ctx, readCommitted, func(ctx context.Context, tx repository.Tx) error {
		r, _, err := u.ownedRequest(ctx, tx, agentUserID, requestID)
		if err != nil {
			return err
		}
		next, ok := model.BusinessRequestLifecycle.Apply(r.Status, model.RequestEventReject)
		if !ok {
			return fmt.Errorf("%w: request %s is %s", domain.ErrInvalidTransition, r.ID, r.Status)
		}
		changed, err := u.requests.TransitionStatus(ctx, tx, r.ID, r.Status, next, nil)
		if err != nil {
			return err
		}
		if !changed {
			return domain.ErrInvalidTransition
		}
		wasPaid = r.Status == model.RequestStatusPaid
		r.Status = next
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if wasPaid {
		u.log.Warn().Str("request_id", out.ID).Str("payment_id", deref(out.PaymentID)).Msg("paid request rejected; refund needs manual follow-up")
	}
	return out, nil
}

func (u *BusinessRequestUseCase) ListForAgent(ctx context.Context, agentUserID string, status *model.BusinessRequestStatus) ([]*model.BusinessRequest, error) {
	a, err := u.agents.FindByUserID(ctx, repository.NoTX, agentUserID)
	if err != nil {
		return nil, err
	}
	return u.requests.ListByAgent(ctx, repository.NoTX, a.ID, status)
}

func (u *BusinessRequestUseCase) ownedRequest(ctx context.Context, tx repository.Tx, agentUserID, requestID string) (*model.BusinessRequest, *model.Agent, error) {
	a, err := u.agents.FindByUserID(ctx, tx, agentUserID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, domain.ErrForbidden
		}
		return nil, nil, err
	}
	r, err := u.requests.FindByID(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if !r.HasAgent() || *r.AgentID != a.ID {
		return nil, nil, domain.ErrForbidden
	}
	return r, a, nil
}
