package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
)

// ActivationRepos groups the stores the activation handlers mutate.
type ActivationRepos struct {
	Agents        repository.AgentRepository
	AgentPackages repository.AgentPackageRepository
	Businesses    repository.BusinessRepository
	Requests      repository.BusinessRequestRepository
	Subscriptions repository.SubscriptionRepository
	Plans         repository.SubscriptionPlanRepository
	Promotions    repository.PromotionRepository
	CoinPackages  repository.CoinPackageRepository
	Wallets       repository.WalletRepository
	Orders        repository.OrderRepository
}

// ActivationService implements one handler per payment purpose. Every
// handler reads its target under tx, asks the entity's state machine
// whether the event applies, and repeats the guard in the UPDATE.
type ActivationService struct {
	repos      ActivationRepos
	commission *CommissionEngine
	durations  model.PlanDurations
	now        func() time.Time
	log        *zerolog.Logger
}

func NewActivationService(repos ActivationRepos, commission *CommissionEngine, durations model.PlanDurations, logger *zerolog.Logger) *ActivationService {
	if durations == nil {
		durations = model.DefaultPlanDurations()
	}
	l := logger.With().Str("component", "ActivationService").Logger()
	return &ActivationService{
		repos:      repos,
		commission: commission,
		durations:  durations,
		now:        time.Now,
		log:        &l,
	}
}

// Handlers exposes the service as dispatcher slots.
func (s *ActivationService) Handlers() ActivationHandlers {
	return ActivationHandlers{
		AgentRegistration:  ActivationFunc(s.ActivateAgentRegistration),
		AgentPackage:       ActivationFunc(s.ActivateAgentPackage),
		BusinessActivation: ActivationFunc(s.ActivateBusiness),
		Subscription:       ActivationFunc(s.ActivateSubscription),
		Promotion:          ActivationFunc(s.ActivatePromotion),
		Order:              ActivationFunc(s.ActivateOrder),
		CoinPurchase:       ActivationFunc(s.ActivateCoinPurchase),
	}
}

func integrity(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrIntegrityViolation, fmt.Sprintf(format, args...))
}

func (s *ActivationService) payerAgent(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.Agent, error) {
	var (
		a   *model.Agent
		err error
	)
	if p.RelatedIs(model.RelatedAgent) {
		a, err = s.repos.Agents.FindByID(ctx, tx, *p.RelatedID)
	} else {
		a, err = s.repos.Agents.FindByUserID(ctx, tx, p.UserID)
	}
	if isNotFound(err) {
		return nil, integrity("no agent for payment %s", p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}
	return a, nil
}

// activateAgent applies AgentEventActivate; a non-PENDING agent is a noop.
func (s *ActivationService) activateAgent(ctx context.Context, tx repository.Tx, a *model.Agent) (bool, error) {
	next, ok := model.AgentLifecycle.Apply(a.Status, model.AgentEventActivate)
	if !ok {
		return false, nil
	}
	now := s.now()
	changed, err := s.repos.Agents.TransitionStatus(ctx, tx, a.ID, a.Status, next, &now)
	if err != nil {
		return false, fmt.Errorf("activate agent %s: %w", a.ID, err)
	}
	if changed {
		a.Status = next
		a.ApprovedAt = &now
	}
	return changed, nil
}

func (s *ActivationService) ActivateAgentRegistration(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	a, err := s.payerAgent(ctx, tx, p)
	if err != nil {
		return "", err
	}
	changed, err := s.activateAgent(ctx, tx, a)
	if err != nil || !changed {
		return OutcomeNoop, err
	}
	s.log.Info().Str("agent_code", a.AgentCode).Str("payment_id", p.ID).Msg("agent activated after payment")
	return OutcomeApplied, nil
}

// ActivateAgentPackage assigns the paid package and activates a PENDING agent.
func (s *ActivationService) ActivateAgentPackage(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	if !p.RelatedIs(model.RelatedAgentPackage) {
		return "", integrity("package payment %s has no package reference", p.ID)
	}
	pkg, err := s.repos.AgentPackages.FindByID(ctx, tx, *p.RelatedID)
	if isNotFound(err) {
		return "", integrity("agent package %s not found", *p.RelatedID)
	}
	if err != nil {
		return "", fmt.Errorf("load agent package: %w", err)
	}
	if !pkg.IsActive {
		return "", integrity("agent package %s is inactive", pkg.ID)
	}

	a, err := s.repos.Agents.FindByUserID(ctx, tx, p.UserID)
	if isNotFound(err) {
		return "", integrity("no agent for payer %s", p.UserID)
	}
	if err != nil {
		return "", fmt.Errorf("load agent: %w", err)
	}

	out := OutcomeNoop
	if a.PackageID == nil || *a.PackageID != pkg.ID {
		if err := s.repos.Agents.AssignPackage(ctx, tx, a.ID, pkg.ID); err != nil {
			return "", fmt.Errorf("assign package: %w", err)
		}
		a.PackageID = &pkg.ID
		out = OutcomeApplied
	}
	changed, err := s.activateAgent(ctx, tx, a)
	if err != nil {
		return "", err
	}
	if changed {
		out = OutcomeApplied
	}
	if out == OutcomeApplied {
		s.log.Info().Str("agent_code", a.AgentCode).Str("package", pkg.Name).Str("payment_id", p.ID).Msg("agent package applied")
	}
	return out, nil
}

// ActivateBusiness covers both agent-created businesses and self-service
// requests. A payment without a typed reference falls back to the payer's
// live business.
func (s *ActivationService) ActivateBusiness(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	if p.RelatedIs(model.RelatedBusinessRequest) {
		return s.activateRequest(ctx, tx, p)
	}

	var (
		b   *model.Business
		err error
	)
	if p.RelatedIs(model.RelatedBusiness) {
		b, err = s.repos.Businesses.FindByID(ctx, tx, *p.RelatedID)
	} else {
		b, err = s.repos.Businesses.FindLiveByOwner(ctx, tx, p.UserID)
	}
	if isNotFound(err) {
		return "", integrity("no business for payment %s", p.ID)
	}
	if err != nil {
		return "", fmt.Errorf("load business: %w", err)
	}

	next, ok := model.BusinessLifecycle.Apply(b.Status, model.BusinessEventActivate)
	if !ok {
		return OutcomeNoop, nil
	}
	changed, err := s.repos.Businesses.TransitionStatus(ctx, tx, b.ID, b.Status, next)
	if err != nil {
		return "", fmt.Errorf("activate business %s: %w", b.ID, err)
	}
	if !changed {
		return OutcomeNoop, nil
	}
	b.Status = next
	if _, err := s.commission.GrantForBusiness(ctx, tx, b); err != nil {
		return "", err
	}
	s.log.Info().Str("business_id", b.ID).Str("payment_id", p.ID).Msg("business activated after payment")
	return OutcomeApplied, nil
}

func (s *ActivationService) activateRequest(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	r, err := s.repos.Requests.FindByID(ctx, tx, *p.RelatedID)
	if isNotFound(err) {
		return "", integrity("business request %s not found", *p.RelatedID)
	}
	if err != nil {
		return "", fmt.Errorf("load business request: %w", err)
	}

	ev := r.PaymentEvent()
	if ev == model.RequestEventConvert {
		_, out, err := s.ConvertRequest(ctx, tx, r)
		return out, err
	}

	next, ok := model.BusinessRequestLifecycle.Apply(r.Status, ev)
	if !ok {
		return OutcomeNoop, nil
	}
	changed, err := s.repos.Requests.TransitionStatus(ctx, tx, r.ID, r.Status, next, nil)
	if err != nil {
		return "", fmt.Errorf("mark request %s paid: %w", r.ID, err)
	}
	if !changed {
		return OutcomeNoop, nil
	}
	r.Status = next
	s.log.Info().Str("request_id", r.ID).Str("agent_id", *r.AgentID).Msg("business request paid; awaiting agent approval")
	return OutcomeApplied, nil
}

// ConvertRequest turns a request into a live business. Both the payment
// path and agent approval end here. If the owner already has a live
// business the request is linked to it instead of creating a second one.
func (s *ActivationService) ConvertRequest(ctx context.Context, tx repository.Tx, r *model.BusinessRequest) (*model.Business, Outcome, error) {
	next, ok := model.BusinessRequestLifecycle.Apply(r.Status, model.RequestEventConvert)
	if !ok {
		return nil, OutcomeNoop, nil
	}

	existing, err := s.repos.Businesses.FindLiveByOwner(ctx, tx, r.UserID)
	if err != nil && !isNotFound(err) {
		return nil, "", fmt.Errorf("load owner business: %w", err)
	}
	if existing != nil {
		changed, err := s.repos.Requests.TransitionStatus(ctx, tx, r.ID, r.Status, next, &existing.ID)
		if err != nil {
			return nil, "", fmt.Errorf("link request %s: %w", r.ID, err)
		}
		if !changed {
			return existing, OutcomeNoop, nil
		}
		r.Status, r.BusinessID = next, &existing.ID
		// covers a concurrent conversion of the same request
		if existing.Status == model.BusinessStatusActive && r.HasAgent() && existing.AgentRef() == *r.AgentID {
			if _, err := s.commission.GrantForBusiness(ctx, tx, existing); err != nil {
				return nil, "", err
			}
		}
		s.log.Info().Str("request_id", r.ID).Str("business_id", existing.ID).Msg("owner already has a business; request linked")
		return existing, OutcomeNoop, nil
	}

	b, err := model.NewBusiness(r.UserID, r.AgentID, r.BusinessName, r.Category, r.Description, r.Location, model.BusinessStatusActive)
	if err != nil {
		return nil, "", err
	}
	if err := s.repos.Businesses.Save(ctx, tx, b); err != nil {
		return nil, "", fmt.Errorf("create business: %w", err)
	}
	changed, err := s.repos.Requests.TransitionStatus(ctx, tx, r.ID, r.Status, next, &b.ID)
	if err != nil {
		return nil, "", fmt.Errorf("convert request %s: %w", r.ID, err)
	}
	if !changed {
		// the row moved under us; roll the business back with the tx
		return nil, "", fmt.Errorf("%w: request %s no longer %s", domain.ErrInvalidTransition, r.ID, r.Status)
	}
	r.Status, r.BusinessID = next, &b.ID

	if _, err := s.commission.GrantForBusiness(ctx, tx, b); err != nil {
		return nil, "", err
	}
	s.log.Info().
		Str("request_id", r.ID).
		Str("business_id", b.ID).
		Str("owner_phone", logging.RedactPhone(r.OwnerPhone)).
		Msg("business created from request")
	return b, OutcomeApplied, nil
}

// ActivateSubscription starts the paid period. Renewing early extends from
// the current end date. The guard is the payment id recorded on the row,
// so the subscription keeps its status while a renewal is unpaid.
func (s *ActivationService) ActivateSubscription(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	sub, err := s.paidSubscription(ctx, tx, p)
	if err != nil {
		return "", err
	}
	planID, tier := sub.PlanID, sub.Tier
	if p.RelatedIs(model.RelatedPlan) {
		plan, err := s.repos.Plans.FindByID(ctx, tx, *p.RelatedID)
		if isNotFound(err) {
			return "", integrity("plan %s missing for payment %s", *p.RelatedID, p.ID)
		}
		if err != nil {
			return "", fmt.Errorf("load plan: %w", err)
		}
		planID, tier = plan.ID, plan.Tier
	}
	if !sub.Activate(p.ID, s.now(), s.durations.Days(tier)) {
		return OutcomeNoop, nil
	}
	sub.PlanID, sub.Tier = planID, tier
	if err := s.repos.Subscriptions.Save(ctx, tx, sub); err != nil {
		return "", fmt.Errorf("save subscription: %w", err)
	}

	b, err := s.repos.Businesses.FindByID(ctx, tx, sub.BusinessID)
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("load business: %w", err)
	}
	if b != nil {
		if next, ok := model.BusinessLifecycle.Apply(b.Status, model.BusinessEventReactivate); ok {
			if _, err := s.repos.Businesses.TransitionStatus(ctx, tx, b.ID, b.Status, next); err != nil {
				return "", fmt.Errorf("reactivate business: %w", err)
			}
		}
	}
	s.log.Info().
		Str("subscription_id", sub.ID).
		Str("tier", string(sub.Tier)).
		Time("end_date", *sub.EndDate).
		Msg("subscription activated")
	return OutcomeApplied, nil
}

func (s *ActivationService) paidSubscription(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.Subscription, error) {
	var (
		sub *model.Subscription
		err error
	)
	switch {
	case p.RelatedIs(model.RelatedSubscription):
		sub, err = s.repos.Subscriptions.FindByID(ctx, tx, *p.RelatedID)
	case p.RelatedIs(model.RelatedBusiness):
		sub, err = s.repos.Subscriptions.FindByBusiness(ctx, tx, *p.RelatedID)
	default:
		var b *model.Business
		b, err = s.repos.Businesses.FindLiveByOwner(ctx, tx, p.UserID)
		if err == nil {
			sub, err = s.repos.Subscriptions.FindByBusiness(ctx, tx, b.ID)
		}
	}
	if isNotFound(err) {
		return nil, integrity("no subscription for payment %s", p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

// ActivatePromotion marks the promotion paid and queues it for moderation.
func (s *ActivationService) ActivatePromotion(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	promo, err := s.repos.Promotions.FindByPaymentID(ctx, tx, p.ID)
	if isNotFound(err) && p.RelatedIs(model.RelatedPromotion) {
		promo, err = s.repos.Promotions.FindByID(ctx, tx, *p.RelatedID)
	}
	if isNotFound(err) {
		return "", integrity("no promotion for payment %s", p.ID)
	}
	if err != nil {
		return "", fmt.Errorf("load promotion: %w", err)
	}

	next, ok := model.PromotionLifecycle.Apply(promo.Status, model.PromotionEventPaid)
	if !ok {
		return OutcomeNoop, nil
	}
	changed, err := s.repos.Promotions.TransitionStatus(ctx, tx, promo.ID, promo.Status, next, true)
	if err != nil {
		return "", fmt.Errorf("mark promotion paid: %w", err)
	}
	if !changed {
		return OutcomeNoop, nil
	}
	s.log.Info().Str("promotion_id", promo.ID).Str("payment_id", p.ID).Msg("promotion paid; awaiting approval")
	return OutcomeApplied, nil
}

func (s *ActivationService) ActivateOrder(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	if !p.RelatedIs(model.RelatedOrder) {
		return "", integrity("order payment %s has no order reference", p.ID)
	}
	o, err := s.repos.Orders.FindByID(ctx, tx, *p.RelatedID)
	if isNotFound(err) {
		return "", integrity("order %s not found", *p.RelatedID)
	}
	if err != nil {
		return "", fmt.Errorf("load order: %w", err)
	}
	if _, ok := model.OrderLifecycle.Apply(o.Status, model.OrderEventPaid); !ok {
		return OutcomeNoop, nil
	}
	changed, err := s.repos.Orders.MarkPaid(ctx, tx, o.ID, s.now())
	if err != nil {
		return "", fmt.Errorf("mark order paid: %w", err)
	}
	if !changed {
		return OutcomeNoop, nil
	}
	s.log.Info().Str("order_id", o.ID).Str("payment_id", p.ID).Msg("order paid")
	return OutcomeApplied, nil
}

// ActivateCoinPurchase credits coins plus bonus once per payment.
func (s *ActivationService) ActivateCoinPurchase(ctx context.Context, tx repository.Tx, p *model.Payment) (Outcome, error) {
	if !p.RelatedIs(model.RelatedCoinPackage) {
		return "", integrity("coin payment %s has no package reference", p.ID)
	}
	pkg, err := s.repos.CoinPackages.FindByID(ctx, tx, *p.RelatedID)
	if isNotFound(err) {
		return "", integrity("coin package %s not found", *p.RelatedID)
	}
	if err != nil {
		return "", fmt.Errorf("load coin package: %w", err)
	}
	credited, err := s.repos.Wallets.CreditOnce(ctx, tx, p.UserID, p.ID, pkg.TotalCoins())
	if err != nil {
		return "", fmt.Errorf("credit wallet: %w", err)
	}
	if !credited {
		return OutcomeNoop, nil
	}
	s.log.Info().Str("user_id", p.UserID).Int64("coins", pkg.TotalCoins()).Str("package", pkg.Name).Msg("coins credited")
	return OutcomeApplied, nil
}
