package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// SendExpiryReminders publishes one reminder per subscription and
	// threshold (7, 3 and 1 days before the end date). It returns how many
	// reminders went out.
	SendExpiryReminders(ctx context.Context, now time.Time) (int, error)
}

type notificationUC struct {
	subs       repository.SubscriptionRepository
	businesses repository.BusinessRepository
	events     *EventPublisher
	log        *zerolog.Logger
}

func NewNotificationUseCase(subs repository.SubscriptionRepository, businesses repository.BusinessRepository, events *EventPublisher, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUseCase").Logger()
	return &notificationUC{subs: subs, businesses: businesses, events: events, log: &l}
}

func (n *notificationUC) SendExpiryReminders(ctx context.Context, now time.Time) (int, error) {
	window := time.Duration(model.ReminderDays[0]) * 24 * time.Hour
	items, err := n.subs.ListExpiring(ctx, repository.NoTX, now, window, expiryBatch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, s := range items {
		days, ok := s.DueReminder(now)
		if !ok {
			continue
		}
		// flagged before publishing; at most one notice per threshold
		s.MarkReminderSent(days)
		s.UpdatedAt = now
		if err := n.subs.Save(ctx, repository.NoTX, s); err != nil {
			n.log.Warn().Err(err).Str("subscription_id", s.ID).Msg("failed to flag reminder")
			continue
		}

		ev := model.NewAuditEvent(model.AuditSubscriptionExpiry, nil).
			With("subscription_id", s.ID).
			With("business_id", s.BusinessID).
			With("days_left", strconv.Itoa(days)).
			With("end_date", s.EndDate.UTC().Format(time.RFC3339))
		if b, err := n.businesses.FindByID(ctx, repository.NoTX, s.BusinessID); err == nil {
			ev.UserID = b.OwnerID
		}
		n.events.Emit(ev)
		metrics.IncSubscriptionReminder(days)
		sent++
	}
	if sent > 0 {
		n.log.Info().Int("count", sent).Msg("subscription reminders published")
	}
	return sent, nil
}
