package model

import (
	"time"

	"github.com/google/uuid"

	"marketplace-payments/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusGrace     SubscriptionStatus = "GRACE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

type SubscriptionEvent string

const (
	SubscriptionEventActivate SubscriptionEvent = "activate" // a payment for the period succeeded
	SubscriptionEventGrace    SubscriptionEvent = "grace"
	SubscriptionEventExpire   SubscriptionEvent = "expire"
	SubscriptionEventCancel   SubscriptionEvent = "cancel"
)

var SubscriptionLifecycle = NewStateMachine[SubscriptionStatus, SubscriptionEvent]("subscription",
	// A renewal never leaves the paid state before its money arrives; the
	// payment itself moves any state back to ACTIVE.
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusPending, On: SubscriptionEventActivate, To: SubscriptionStatusActive},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusActive, On: SubscriptionEventActivate, To: SubscriptionStatusActive},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusGrace, On: SubscriptionEventActivate, To: SubscriptionStatusActive},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusExpired, On: SubscriptionEventActivate, To: SubscriptionStatusActive},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusCancelled, On: SubscriptionEventActivate, To: SubscriptionStatusActive},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusActive, On: SubscriptionEventGrace, To: SubscriptionStatusGrace},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusActive, On: SubscriptionEventExpire, To: SubscriptionStatusExpired},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusGrace, On: SubscriptionEventExpire, To: SubscriptionStatusExpired},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusPending, On: SubscriptionEventCancel, To: SubscriptionStatusCancelled},
	Transition[SubscriptionStatus, SubscriptionEvent]{From: SubscriptionStatusActive, On: SubscriptionEventCancel, To: SubscriptionStatusCancelled},
)

// Subscription is the single entitlement row of a business.
type Subscription struct {
	ID                string
	BusinessID        string
	PlanID            string
	Tier              PlanTier
	Status            SubscriptionStatus
	StartDate         *time.Time
	EndDate           *time.Time
	AutoRenew         bool
	ReminderSent7Days bool
	ReminderSent3Days bool
	ReminderSent1Day  bool
	PaymentID         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewSubscription(businessID string, plan *SubscriptionPlan) (*Subscription, error) {
	if businessID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		PlanID:     plan.ID,
		Tier:       plan.Tier,
		Status:     SubscriptionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ActivationWindow computes the paid period. An early renewal extends from
// the current end date; otherwise the period starts now.
func (s *Subscription) ActivationWindow(now time.Time, days int) (start, end time.Time) {
	start = now
	base := now
	if s.EndDate != nil && s.EndDate.After(now) {
		base = *s.EndDate
		if s.StartDate != nil {
			start = *s.StartDate
		}
	}
	return start, base.AddDate(0, 0, days)
}

// Activate applies the period funded by paymentID. It reports false when
// that payment was already applied, which makes redelivery a noop.
func (s *Subscription) Activate(paymentID string, now time.Time, days int) bool {
	if s.PaymentID != nil && *s.PaymentID == paymentID {
		return false
	}
	next, ok := SubscriptionLifecycle.Apply(s.Status, SubscriptionEventActivate)
	if !ok {
		return false
	}
	s.PaymentID = &paymentID
	start, end := s.ActivationWindow(now, days)
	s.Status = next
	s.StartDate = &start
	s.EndDate = &end
	s.ReminderSent7Days = false
	s.ReminderSent3Days = false
	s.ReminderSent1Day = false
	s.UpdatedAt = now
	return true
}

// ReminderDays are the days-before-expiry at which owners are reminded.
var ReminderDays = []int{7, 3, 1}

// DueReminder returns the tightest unsent reminder threshold the
// subscription has crossed, or false when nothing is due.
func (s *Subscription) DueReminder(now time.Time) (int, bool) {
	if s.Status != SubscriptionStatusActive || s.EndDate == nil || !s.EndDate.After(now) {
		return 0, false
	}
	left := s.EndDate.Sub(now)
	due := 0
	for _, d := range ReminderDays {
		if left <= time.Duration(d)*24*time.Hour && !s.reminderSent(d) {
			due = d
		}
	}
	return due, due > 0
}

// MarkReminderSent flags threshold days and every wider one, so a late
// sweep does not fire the 7-day notice after the 3-day one.
func (s *Subscription) MarkReminderSent(days int) {
	if days <= 7 {
		s.ReminderSent7Days = true
	}
	if days <= 3 {
		s.ReminderSent3Days = true
	}
	if days <= 1 {
		s.ReminderSent1Day = true
	}
}

func (s *Subscription) reminderSent(days int) bool {
	switch days {
	case 7:
		return s.ReminderSent7Days
	case 3:
		return s.ReminderSent3Days
	case 1:
		return s.ReminderSent1Day
	}
	return true
}
