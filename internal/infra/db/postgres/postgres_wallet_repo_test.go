//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

func TestWalletRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	wallets := NewWalletRepo(testPool)
	tm := NewTxManager(testPool)

	t.Run("should credit a payment exactly once", func(t *testing.T) {
		cleanup(t)
		credit := func() bool {
			var ok bool
			err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
				var err error
				ok, err = wallets.CreditOnce(ctx, tx, "user-1", "pay-1", 120)
				return err
			})
			if err != nil {
				t.Fatalf("CreditOnce: %v", err)
			}
			return ok
		}

		first, second := credit(), credit()

		if !first || second {
			t.Fatalf("expected credit then noop, got %v/%v", first, second)
		}
		w, err := wallets.FindByUser(ctx, nil, "user-1")
		if err != nil || w.CoinBalance != 120 {
			t.Fatalf("expected 120 coins, got %+v / %v", w, err)
		}
	})
}

func TestOrderAndSubscriptionRepos_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()

	t.Run("should mark an order paid once", func(t *testing.T) {
		cleanup(t)
		orders := NewOrderRepo(testPool)
		o, _ := model.NewOrder("buyer-1", decimal.NewFromInt(3000))
		_ = orders.Save(ctx, nil, o)

		ok1, err := orders.MarkPaid(ctx, nil, o.ID, time.Now())
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		ok2, _ := orders.MarkPaid(ctx, nil, o.ID, time.Now())

		if !ok1 || ok2 {
			t.Fatalf("expected paid then noop, got %v/%v", ok1, ok2)
		}
	})

	t.Run("should find lapsed and expiring subscriptions", func(t *testing.T) {
		cleanup(t)
		_, b := seedAgentAndBusiness(t)
		b2, _ := model.NewBusiness("owner-2", nil, "Other", "", "", model.Location{}, model.BusinessStatusActive)
		_ = NewBusinessRepo(testPool).Save(ctx, nil, b2)
		plans := NewPostgresPlanRepo(testPool)
		plan, _ := model.NewSubscriptionPlan("monthly", "Monthly", model.TierMonthly, decimal.NewFromInt(15000))
		_ = plans.Save(ctx, nil, plan)
		subs := NewSubscriptionRepo(testPool)

		now := time.Now()
		lapsed, _ := model.NewSubscription(b.ID, plan)
		start, end := now.AddDate(0, 0, -31), now.Add(-time.Hour)
		lapsed.Status, lapsed.StartDate, lapsed.EndDate = model.SubscriptionStatusActive, &start, &end
		expiring, _ := model.NewSubscription(b2.ID, plan)
		end2 := now.Add(48 * time.Hour)
		expiring.Status, expiring.StartDate, expiring.EndDate = model.SubscriptionStatusActive, &start, &end2
		for _, s := range []*model.Subscription{lapsed, expiring} {
			if err := subs.Save(ctx, nil, s); err != nil {
				t.Fatalf("save subscription: %v", err)
			}
		}

		gone, err := subs.ListLapsed(ctx, nil, now, 10)
		if err != nil || len(gone) != 1 || gone[0].ID != lapsed.ID {
			t.Fatalf("expected one lapsed subscription, got %d / %v", len(gone), err)
		}
		soon, err := subs.ListExpiring(ctx, nil, now, 7*24*time.Hour, 10)
		if err != nil || len(soon) != 1 || soon[0].ID != expiring.ID {
			t.Fatalf("expected one expiring subscription, got %d / %v", len(soon), err)
		}
		byBusiness, err := subs.FindByBusiness(ctx, nil, b2.ID)
		if err != nil || byBusiness.PlanID != plan.ID {
			t.Fatalf("FindByBusiness: %v", err)
		}
	})
}
