package usecase

import (
	"context"
	"time"
)

// SubscriptionMaintainer moves lapsed subscriptions through GRACE to EXPIRED.
type SubscriptionMaintainer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ReminderSender publishes expiry reminders ahead of the end date.
type ReminderSender interface {
	SendExpiryReminders(ctx context.Context, now time.Time) (int, error)
}

// PromotionSweeper completes promotions whose end date has passed.
type PromotionSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}
