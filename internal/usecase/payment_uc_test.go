//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/usecase"
)

func orderInput(userID string, orderID string) usecase.InitiatePayment {
	return usecase.InitiatePayment{
		UserID:      userID,
		Amount:      decimal.NewFromInt(7000),
		Purpose:     model.PurposeOrder,
		Phone:       "0754000002",
		Description: "Order",
		Related:     &model.RelatedRef{ID: orderID, Kind: model.RelatedOrder},
	}
}

func TestPaymentUseCase_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("should record a PENDING payment with the gateway order", func(t *testing.T) {
		// --- Arrange ---
		e := newTestEnv(t, false)
		e.gateway.EXPECT().
			Collect(gomock.Any(), "255754000002", dec("7000"), "Order").
			Return(&adapter.CollectResult{OrderID: "ORD-9", Fee: dec("150"), NetAmount: dec("6850"), Raw: "{}"}, nil)

		// --- Act ---
		p, err := e.paymentUC.Initiate(ctx, orderInput("u-1", "o-1"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		stored, _ := e.payments.FindByID(ctx, nil, p.ID)
		if stored.Status != model.PaymentStatusPending {
			t.Errorf("expected PENDING, got %s", stored.Status)
		}
		if stored.OrderRef() != "ORD-9" {
			t.Errorf("expected order ref ORD-9, got %q", stored.OrderRef())
		}
		if stored.Method != model.MethodMpesa {
			t.Errorf("expected M-Pesa for a 75x prefix, got %s", stored.Method)
		}
	})

	t.Run("should mark the payment FAILED when the gateway rejects the push", func(t *testing.T) {
		e := newTestEnv(t, false)
		e.gateway.EXPECT().
			Collect(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, domain.NewGatewayRejected("collect", 400, "invalid msisdn"))

		p, err := e.paymentUC.Initiate(ctx, orderInput("u-1", "o-1"))

		if !errors.Is(err, domain.ErrGatewayRejected) {
			t.Fatalf("expected ErrGatewayRejected, got %v", err)
		}
		if p == nil {
			t.Fatal("expected the failed payment to be returned")
		}
		stored, _ := e.payments.FindByID(ctx, nil, p.ID)
		if stored.Status != model.PaymentStatusFailed {
			t.Errorf("expected FAILED, got %s", stored.Status)
		}
		kinds := e.sink.Kinds()
		if len(kinds) != 1 || kinds[0] != model.AuditPaymentFailed {
			t.Errorf("expected a payment.failed event, got %v", kinds)
		}
	})

	t.Run("should reject an unknown purpose without calling the gateway", func(t *testing.T) {
		e := newTestEnv(t, false)
		in := orderInput("u-1", "o-1")
		in.Purpose = "DONATION"

		_, err := e.paymentUC.Initiate(ctx, in)

		if !errors.Is(err, domain.ErrUnknownPurpose) {
			t.Fatalf("expected ErrUnknownPurpose, got %v", err)
		}
		if len(e.payments.All()) != 0 {
			t.Error("expected no payment row")
		}
	})

	t.Run("should reject an invalid phone", func(t *testing.T) {
		e := newTestEnv(t, false)
		in := orderInput("u-1", "o-1")
		in.Phone = "12345"

		_, err := e.paymentUC.Initiate(ctx, in)

		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPaymentUseCase_DemoMode(t *testing.T) {
	ctx := context.Background()

	t.Run("should activate an agent package in one call without the gateway", func(t *testing.T) {
		// --- Arrange ---
		e := newTestEnv(t, true)
		pkg, _ := model.NewAgentPackage("Starter", decimal.NewFromInt(20000), 5)
		_ = e.agentPackages.Save(ctx, nil, pkg)

		// --- Act ---
		a, p, err := e.agentUC.Register(ctx, "u-1", "0754000001", &pkg.ID)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.Status != model.PaymentStatusSuccess {
			t.Errorf("expected SUCCESS, got %s", p.Status)
		}
		if !p.Amount.Equal(dec("20000")) {
			t.Errorf("expected amount 20000, got %s", p.Amount)
		}
		if len(p.OrderRef()) < 5 || p.OrderRef()[:5] != "DEMO-" {
			t.Errorf("expected a DEMO- order ref, got %q", p.OrderRef())
		}
		got := e.agent(t, a.ID)
		if got.Status != model.AgentStatusActive {
			t.Errorf("expected ACTIVE agent, got %s", got.Status)
		}
		if got.PackageID == nil || *got.PackageID != pkg.ID {
			t.Errorf("expected package assigned, got %v", got.PackageID)
		}
	})

	t.Run("should credit coins immediately", func(t *testing.T) {
		e := newTestEnv(t, true)
		pkg, _ := model.NewCoinPackage("Silver", 50, 5, decimal.NewFromInt(500))
		_ = e.coinPackages.Save(ctx, nil, pkg)

		if _, err := e.walletUC.BuyCoins(ctx, "u-1", pkg.ID, "0754000001"); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		w, _ := e.walletUC.Balance(ctx, "u-1")
		if w.CoinBalance != 55 {
			t.Errorf("expected 55 coins, got %d", w.CoinBalance)
		}
	})

	t.Run("should settle a demo payment on the next poll when inline activation failed", func(t *testing.T) {
		// --- Arrange ---
		e := newTestEnv(t, true)
		e.tm.WithTxFunc = func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
			snapshot := e.payments.All()
			if err := fn(ctx, repository.NoTX); err != nil {
				for _, s := range snapshot {
					e.payments.Force(s)
				}
				return err
			}
			return nil
		}
		calls := 0
		flaky := usecase.NewActivationDispatcher(usecase.ActivationHandlers{
			Order: usecase.ActivationFunc(func(ctx context.Context, tx repository.Tx, p *model.Payment) (usecase.Outcome, error) {
				calls++
				if calls == 1 {
					return "", errors.New("orders table locked")
				}
				return usecase.OutcomeApplied, nil
			}),
		}, e.events, newTestLogger())
		uc := usecase.NewPaymentUseCase(e.ledger, e.gateway, flaky, e.tm, e.events, usecase.PaymentSettings{DemoMode: true}, newTestLogger())

		// --- Act ---
		p, err := uc.Initiate(ctx, orderInput("u-1", "o-1"))
		if err == nil {
			t.Fatal("expected the inline activation error")
		}
		stored, _ := e.payments.FindByID(ctx, nil, p.ID)
		if stored.Status != model.PaymentStatusPending || !model.IsDemoOrder(stored.OrderRef()) {
			t.Fatalf("expected a PENDING demo payment, got %s / %q", stored.Status, stored.OrderRef())
		}
		out, err := uc.Reconcile(ctx, stored)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if out != usecase.ReconcileSucceeded {
			t.Errorf("expected succeeded, got %s", out)
		}
		got, _ := e.payments.FindByID(ctx, nil, p.ID)
		if got.Status != model.PaymentStatusSuccess || calls != 2 {
			t.Errorf("expected SUCCESS after a second activation, got %s with %d calls", got.Status, calls)
		}
	})

	t.Run("should leave demo orders alone once demo mode is off", func(t *testing.T) {
		e := newTestEnv(t, false)
		p, err := model.NewPayment("u-1", dec("7000"), model.PurposeOrder, "0754000002", "Order", nil)
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		ref := model.DemoOrderPrefix + "01J0"
		p.ExternalRef = &ref
		e.payments.Force(p)

		out, err := e.paymentUC.Reconcile(ctx, p)

		if err != nil || out != usecase.ReconcilePending {
			t.Fatalf("expected pending without a provider call, got %s / %v", out, err)
		}
	})

}

func TestPaymentUseCase_Reconcile(t *testing.T) {
	ctx := context.Background()

	// pending stores an ORDER payment waiting on gateway order ORD-1.
	pending := func(t *testing.T, e *testEnv) (*model.Payment, *model.Order) {
		t.Helper()
		o, _ := model.NewOrder("u-1", decimal.NewFromInt(7000))
		_ = e.orders.Save(ctx, nil, o)
		p, err := model.NewPayment("u-1", o.Total, model.PurposeOrder, "0754000002", "Order", &model.RelatedRef{ID: o.ID, Kind: model.RelatedOrder})
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		ref := "ORD-1"
		p.ExternalRef = &ref
		e.payments.Force(p)
		return p, o
	}

	testCases := []struct {
		name        string
		status      model.GatewayStatus
		wantOutcome usecase.ReconcileOutcome
		wantStatus  model.PaymentStatus
		wantOrder   model.OrderStatus
	}{
		{"completed", model.GatewayStatusCompleted, usecase.ReconcileSucceeded, model.PaymentStatusSuccess, model.OrderStatusPaid},
		{"failed", model.GatewayStatusFailed, usecase.ReconcileFailed, model.PaymentStatusFailed, model.OrderStatusPendingPayment},
		{"cancelled", model.GatewayStatusCancelled, usecase.ReconcileFailed, model.PaymentStatusFailed, model.OrderStatusPendingPayment},
		{"pending", model.GatewayStatusPending, usecase.ReconcilePending, model.PaymentStatusPending, model.OrderStatusPendingPayment},
	}

	for _, tc := range testCases {
		t.Run("should map gateway status "+tc.name, func(t *testing.T) {
			// --- Arrange ---
			e := newTestEnv(t, false)
			p, o := pending(t, e)
			e.gateway.EXPECT().
				CheckStatus(gomock.Any(), "ORD-1").
				Return(&adapter.StatusResult{Status: tc.status, Raw: `{"status":"` + string(tc.status) + `"}`}, nil)

			// --- Act ---
			out, err := e.paymentUC.Reconcile(ctx, p)

			// --- Assert ---
			if err != nil {
				t.Fatalf("expected no error, but got: %v", err)
			}
			if out != tc.wantOutcome {
				t.Errorf("expected outcome %s, got %s", tc.wantOutcome, out)
			}
			stored, _ := e.payments.FindByID(ctx, nil, p.ID)
			if stored.Status != tc.wantStatus {
				t.Errorf("expected payment %s, got %s", tc.wantStatus, stored.Status)
			}
			order, _ := e.orders.FindByID(ctx, nil, o.ID)
			if order.Status != tc.wantOrder {
				t.Errorf("expected order %s, got %s", tc.wantOrder, order.Status)
			}
		})
	}

	t.Run("should leave the payment untouched on a gateway error", func(t *testing.T) {
		e := newTestEnv(t, false)
		p, _ := pending(t, e)
		e.gateway.EXPECT().
			CheckStatus(gomock.Any(), "ORD-1").
			Return(nil, domain.NewGatewayUnavailable("status", 503, "maintenance"))

		out, err := e.paymentUC.Reconcile(ctx, p)

		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if out != usecase.ReconcileError {
			t.Errorf("expected outcome error, got %s", out)
		}
		stored, _ := e.payments.FindByID(ctx, nil, p.ID)
		if stored.Status != model.PaymentStatusPending {
			t.Errorf("expected PENDING, got %s", stored.Status)
		}
	})

	t.Run("should be a noop for terminal payments", func(t *testing.T) {
		e := newTestEnv(t, false)
		p, _ := pending(t, e)
		p.Status = model.PaymentStatusFailed
		e.payments.Force(p)

		out, err := e.paymentUC.Reconcile(ctx, p)

		if err != nil || out != usecase.ReconcileNoop {
			t.Fatalf("expected noop, got %s / %v", out, err)
		}
	})

	t.Run("should activate once when polled repeatedly", func(t *testing.T) {
		e := newTestEnv(t, false)
		p, o := pending(t, e)
		e.gateway.EXPECT().
			CheckStatus(gomock.Any(), "ORD-1").
			Return(&adapter.StatusResult{Status: model.GatewayStatusCompleted, Raw: "{}"}, nil).
			Times(3)
		stale1, stale2 := *p, *p

		out1, _ := e.paymentUC.Reconcile(ctx, p)
		out2, _ := e.paymentUC.Reconcile(ctx, &stale1)
		out3, _ := e.paymentUC.Reconcile(ctx, &stale2)

		if out1 != usecase.ReconcileSucceeded || out2 != usecase.ReconcileNoop || out3 != usecase.ReconcileNoop {
			t.Errorf("expected success, noop, noop; got %s, %s, %s", out1, out2, out3)
		}
		order, _ := e.orders.FindByID(ctx, nil, o.ID)
		if order.Status != model.OrderStatusPaid {
			t.Errorf("expected PAID order, got %s", order.Status)
		}
		succeeded := 0
		for _, k := range e.sink.Kinds() {
			if k == model.AuditPaymentSucceeded {
				succeeded++
			}
		}
		if succeeded != 1 {
			t.Errorf("expected one payment.succeeded event, got %d", succeeded)
		}
	})

	t.Run("should roll back to PENDING when activation fails", func(t *testing.T) {
		// --- Arrange ---
		e := newTestEnv(t, false)
		p, _ := pending(t, e)
		// emulate rollback of the in-memory ledger
		e.tm.WithTxFunc = func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
			snapshot := e.payments.All()
			if err := fn(ctx, repository.NoTX); err != nil {
				for _, s := range snapshot {
					e.payments.Force(s)
				}
				return err
			}
			return nil
		}
		boom := errors.New("orders table locked")
		failing := usecase.NewActivationDispatcher(usecase.ActivationHandlers{
			Order: usecase.ActivationFunc(func(ctx context.Context, tx repository.Tx, p *model.Payment) (usecase.Outcome, error) {
				return "", boom
			}),
		}, e.events, newTestLogger())
		uc := usecase.NewPaymentUseCase(e.ledger, e.gateway, failing, e.tm, e.events, usecase.PaymentSettings{}, newTestLogger())
		e.gateway.EXPECT().
			CheckStatus(gomock.Any(), "ORD-1").
			Return(&adapter.StatusResult{Status: model.GatewayStatusCompleted, Raw: "{}"}, nil)

		// --- Act ---
		out, err := uc.Reconcile(ctx, p)

		// --- Assert ---
		if !errors.Is(err, boom) {
			t.Fatalf("expected the handler error, got %v", err)
		}
		if out != usecase.ReconcileError {
			t.Errorf("expected outcome error, got %s", out)
		}
		if p.Status != model.PaymentStatusPending {
			t.Errorf("expected in-memory payment reloaded as PENDING, got %s", p.Status)
		}
	})

	t.Run("should keep SUCCESS when activation hits an integrity violation", func(t *testing.T) {
		env := newTestEnv(t, false)
		// the order row is missing at activation time
		p, err := model.NewPayment("u-1", dec("7000"), model.PurposeOrder, "0754000002", "Order", &model.RelatedRef{ID: "gone", Kind: model.RelatedOrder})
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		ref := "ORD-1"
		p.ExternalRef = &ref
		env.payments.Force(p)
		env.gateway.EXPECT().
			CheckStatus(gomock.Any(), "ORD-1").
			Return(&adapter.StatusResult{Status: model.GatewayStatusCompleted, Raw: "{}"}, nil)

		out, err := env.paymentUC.Reconcile(ctx, p)

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if out != usecase.ReconcileSucceeded {
			t.Errorf("expected success, got %s", out)
		}
		stored, _ := env.payments.FindByID(ctx, nil, p.ID)
		if stored.Status != model.PaymentStatusSuccess {
			t.Errorf("expected SUCCESS to stand, got %s", stored.Status)
		}
		if env.alerter.Count() != 1 {
			t.Errorf("expected an ops alert, got %d", env.alerter.Count())
		}
	})
}

func TestPaymentUseCase_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("should not call the gateway for a terminal payment", func(t *testing.T) {
		e := newTestEnv(t, false)
		p := e.successPayment(t, "u-1", model.PurposeOrder, nil)
		ref := "ORD-7"
		p.ExternalRef = &ref
		e.payments.Force(p)

		got, err := e.paymentUC.Refresh(ctx, "ORD-7")

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got.Status != model.PaymentStatusSuccess {
			t.Errorf("expected SUCCESS, got %s", got.Status)
		}
	})

	t.Run("should swallow gateway errors and return the current row", func(t *testing.T) {
		e := newTestEnv(t, false)
		p, err := model.NewPayment("u-1", dec("1000"), model.PurposeOrder, "0754000002", "x", nil)
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		ref := "ORD-8"
		p.ExternalRef = &ref
		e.payments.Force(p)
		e.gateway.EXPECT().
			CheckStatus(gomock.Any(), "ORD-8").
			Return(nil, domain.NewGatewayUnavailable("status", 0, "timeout"))

		got, err := e.paymentUC.Refresh(ctx, "ORD-8")

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if got.Status != model.PaymentStatusPending {
			t.Errorf("expected PENDING, got %s", got.Status)
		}
	})

	t.Run("should return not found for an unknown order", func(t *testing.T) {
		e := newTestEnv(t, false)

		_, err := e.paymentUC.Refresh(ctx, "nope")

		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPaymentUseCase_Redispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse a payment that is not SUCCESS", func(t *testing.T) {
		e := newTestEnv(t, false)
		p, _ := model.NewPayment("u-1", dec("1000"), model.PurposeOrder, "0754000002", "x", nil)
		e.payments.Force(p)

		_, err := e.paymentUC.Redispatch(ctx, p.ID)

		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("should apply a missed activation once", func(t *testing.T) {
		e := newTestEnv(t, false)
		o, _ := model.NewOrder("u-1", decimal.NewFromInt(7000))
		_ = e.orders.Save(ctx, nil, o)
		p := e.successPayment(t, "u-1", model.PurposeOrder, &model.RelatedRef{ID: o.ID, Kind: model.RelatedOrder})

		first, err1 := e.paymentUC.Redispatch(ctx, p.ID)
		second, err2 := e.paymentUC.Redispatch(ctx, p.ID)

		if err1 != nil || err2 != nil {
			t.Fatalf("expected no errors, got %v / %v", err1, err2)
		}
		if first != usecase.OutcomeApplied || second != usecase.OutcomeNoop {
			t.Errorf("expected applied then noop, got %s then %s", first, second)
		}
	})
}

func TestPaymentUseCase_ConcurrentSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("should settle and activate once when refresh and reconcile race", func(t *testing.T) {
		// --- Arrange ---
		e := newTestEnv(t, false)
		e.user(t, "u-agent", "0754000001", nil)
		a := e.activeAgent(t, "u-agent", "0754000001")
		e.user(t, "owner-1", "0754000002", nil)
		b, _ := model.NewBusiness("owner-1", &a.ID, "Duka", "retail", "", model.Location{}, model.BusinessStatusPending)
		_ = e.businesses.Save(ctx, nil, b)
		p, err := model.NewPayment("owner-1", dec("10000"), model.PurposeBusinessActivation, "0754000002", "Activation", &model.RelatedRef{ID: b.ID, Kind: model.RelatedBusiness})
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		ref := "ORD-1"
		p.ExternalRef = &ref
		e.payments.Force(p)
		e.gateway.EXPECT().
			CheckStatus(gomock.Any(), "ORD-1").
			Return(&adapter.StatusResult{Status: model.GatewayStatusCompleted, Raw: "{}"}, nil).
			AnyTimes()

		const workers = 8
		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make(chan error, workers)
		succeeded := make(chan usecase.ReconcileOutcome, workers)

		// --- Act ---
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				if i%2 == 0 {
					if _, err := e.paymentUC.Refresh(ctx, "ORD-1"); err != nil {
						errs <- err
					}
					return
				}
				cp, err := e.payments.FindByID(ctx, nil, p.ID)
				if err != nil {
					errs <- err
					return
				}
				out, err := e.paymentUC.Reconcile(ctx, cp)
				if err != nil {
					errs <- err
					return
				}
				if out == usecase.ReconcileSucceeded {
					succeeded <- out
				}
			}(i)
		}
		close(start)
		wg.Wait()
		close(errs)
		close(succeeded)

		// --- Assert ---
		for err := range errs {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if n := len(succeeded); n > 1 {
			t.Errorf("expected at most one reconcile to win, got %d", n)
		}
		stored, _ := e.payments.FindByID(ctx, nil, p.ID)
		if stored.Status != model.PaymentStatusSuccess {
			t.Fatalf("expected SUCCESS, got %s", stored.Status)
		}
		transitions := 0
		for _, k := range e.sink.Kinds() {
			if k == model.AuditPaymentSucceeded {
				transitions++
			}
		}
		if transitions != 1 {
			t.Errorf("expected one SUCCESS transition, got %d", transitions)
		}
		got, _ := e.businesses.FindByID(ctx, nil, b.ID)
		if got.Status != model.BusinessStatusActive {
			t.Errorf("expected ACTIVE business, got %s", got.Status)
		}
		if n := e.agent(t, a.ID).BusinessesActivated; n != 1 {
			t.Errorf("expected one activation on the agent, got %d", n)
		}
		if n := e.commissions.Count(a.ID, b.ID, model.CommissionActivation); n != 1 {
			t.Errorf("expected one activation commission, got %d", n)
		}
	})
}
