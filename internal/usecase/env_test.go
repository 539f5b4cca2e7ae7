//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter/mocks"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/usecase"
)

// testEnv wires the real use cases over in-memory repositories.
type testEnv struct {
	payments      *MockPaymentRepo
	agents        *MockAgentRepo
	agentPackages *MockAgentPackageRepo
	businesses    *MockBusinessRepo
	requests      *MockBusinessRequestRepo
	users         *MockUserRepo
	commissions   *MockCommissionRepo
	subs          *MockSubscriptionRepo
	plans         *MockPlanRepo
	promotions    *MockPromotionRepo
	coinPackages  *MockCoinPackageRepo
	wallets       *MockWalletRepo
	orders        *MockOrderRepo
	tm            *MockTxManager
	locker        *MockLocker
	sink          *MockAuditSink
	alerter       *MockAlerter
	gateway       *mocks.MockPaymentGateway

	events      *usecase.EventPublisher
	ledger      *usecase.PaymentLedger
	commission  *usecase.CommissionEngine
	activations *usecase.ActivationService
	dispatcher  *usecase.ActivationDispatcher
	paymentUC   usecase.PaymentUseCase
	agentUC     *usecase.AgentUseCase
	requestUC   *usecase.BusinessRequestUseCase
	subUC       *usecase.SubscriptionUseCase
	promoUC     *usecase.PromotionUseCase
	walletUC    *usecase.WalletUseCase
	orderUC     *usecase.OrderUseCase
	userUC      usecase.UserUseCase
	notifyUC    usecase.NotificationUseCase
	statsUC     usecase.StatsUseCase
	catalog     *usecase.CatalogUseCase
}

var testFees = usecase.Fees{
	AgentRegistration:  decimal.NewFromInt(20000),
	BusinessActivation: decimal.NewFromInt(10000),
}

var testPolicy = usecase.CommissionPolicy{
	ActivationAmount: decimal.NewFromInt(5000),
	ReferralAmount:   decimal.NewFromInt(2000),
}

func newTestEnv(t *testing.T, demo bool) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := newTestLogger()

	e := &testEnv{
		payments:      NewMockPaymentRepo(),
		agents:        NewMockAgentRepo(),
		agentPackages: NewMockAgentPackageRepo(),
		businesses:    NewMockBusinessRepo(),
		requests:      NewMockBusinessRequestRepo(),
		users:         NewMockUserRepo(),
		commissions:   NewMockCommissionRepo(),
		subs:          NewMockSubscriptionRepo(),
		plans:         NewMockPlanRepo(),
		promotions:    NewMockPromotionRepo(),
		coinPackages:  NewMockCoinPackageRepo(),
		wallets:       NewMockWalletRepo(),
		orders:        NewMockOrderRepo(),
		tm:            NewMockTxManager(),
		locker:        NewMockLocker(),
		sink:          &MockAuditSink{},
		alerter:       &MockAlerter{},
		gateway:       mocks.NewMockPaymentGateway(ctrl),
	}
	e.gateway.EXPECT().Name().Return("mock").AnyTimes()

	e.events = usecase.NewEventPublisher(e.sink, e.alerter, nil, logger)
	e.ledger = usecase.NewPaymentLedger(e.payments, logger)
	e.commission = usecase.NewCommissionEngine(e.commissions, e.agents, e.users, e.tm, e.locker, e.events, testPolicy, logger)
	e.activations = usecase.NewActivationService(usecase.ActivationRepos{
		Agents:        e.agents,
		AgentPackages: e.agentPackages,
		Businesses:    e.businesses,
		Requests:      e.requests,
		Subscriptions: e.subs,
		Plans:         e.plans,
		Promotions:    e.promotions,
		CoinPackages:  e.coinPackages,
		Wallets:       e.wallets,
		Orders:        e.orders,
	}, e.commission, model.DefaultPlanDurations(), logger)
	e.dispatcher = usecase.NewActivationDispatcher(e.activations.Handlers(), e.events, logger)
	e.paymentUC = usecase.NewPaymentUseCase(e.ledger, e.gateway, e.dispatcher, e.tm, e.events, usecase.PaymentSettings{DemoMode: demo}, logger)
	e.agentUC = usecase.NewAgentUseCase(e.agents, e.agentPackages, e.businesses, e.users, e.tm, e.paymentUC, e.commission, testFees, logger)
	e.requestUC = usecase.NewBusinessRequestUseCase(e.requests, e.businesses, e.agents, e.tm, e.paymentUC, e.activations, testFees, logger)
	e.subUC = usecase.NewSubscriptionUseCase(e.plans, e.subs, e.businesses, e.tm, e.paymentUC, logger)
	e.promoUC = usecase.NewPromotionUseCase(e.promotions, e.tm, e.paymentUC, logger)
	e.walletUC = usecase.NewWalletUseCase(e.coinPackages, e.wallets, e.paymentUC, logger)
	e.orderUC = usecase.NewOrderUseCase(e.orders, e.paymentUC, logger)
	e.userUC = usecase.NewUserUseCase(e.users, e.agents, e.tm, logger)
	e.notifyUC = usecase.NewNotificationUseCase(e.subs, e.businesses, e.events, logger)
	e.statsUC = usecase.NewStatsUseCase(e.users, e.payments, time.Hour, logger)
	e.catalog = usecase.NewCatalogUseCase(e.plans, e.agentPackages, e.coinPackages)
	return e
}

// ---- fixtures ----

func (e *testEnv) user(t *testing.T, id, phone string, referredBy *string) *model.User {
	t.Helper()
	u, err := model.NewUser(id, "User "+id, phone, referredBy)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	_ = e.users.Save(context.Background(), nil, u)
	return u
}

func (e *testEnv) activeAgent(t *testing.T, userID, phone string) *model.Agent {
	t.Helper()
	ctx := context.Background()
	seq, _ := e.agents.NextCodeSequence(ctx)
	a, err := model.NewAgent(userID, phone, seq)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	a.Status = model.AgentStatusActive
	if err := e.agents.Save(ctx, nil, a); err != nil {
		t.Fatalf("save agent: %v", err)
	}
	return a
}

func (e *testEnv) agent(t *testing.T, id string) *model.Agent {
	t.Helper()
	a, err := e.agents.FindByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("load agent %s: %v", id, err)
	}
	return a
}

// successPayment stores a SUCCESS payment for direct dispatcher tests.
func (e *testEnv) successPayment(t *testing.T, userID string, purpose model.Purpose, related *model.RelatedRef) *model.Payment {
	t.Helper()
	p, err := model.NewPayment(userID, decimal.NewFromInt(1000), purpose, "0754000000", "test", related)
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	p.Status = model.PaymentStatusSuccess
	e.payments.Force(p)
	return p
}

func (e *testEnv) dispatch(t *testing.T, p *model.Payment) usecase.Outcome {
	t.Helper()
	out, err := e.dispatcher.Dispatch(context.Background(), repository.NoTX, p)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	return out
}
