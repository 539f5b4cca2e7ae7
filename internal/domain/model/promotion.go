package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
)

type PromotionStatus string

const (
	PromotionStatusPending         PromotionStatus = "PENDING"
	PromotionStatusPendingApproval PromotionStatus = "PENDING_APPROVAL"
	PromotionStatusActive          PromotionStatus = "ACTIVE"
	PromotionStatusPaused          PromotionStatus = "PAUSED"
	PromotionStatusCompleted       PromotionStatus = "COMPLETED"
	PromotionStatusCancelled       PromotionStatus = "CANCELLED"
	PromotionStatusRejected        PromotionStatus = "REJECTED"
)

type PromotionEvent string

const (
	PromotionEventPaid     PromotionEvent = "paid"
	PromotionEventApprove  PromotionEvent = "approve"
	PromotionEventReject   PromotionEvent = "reject"
	PromotionEventPause    PromotionEvent = "pause"
	PromotionEventResume   PromotionEvent = "resume"
	PromotionEventComplete PromotionEvent = "complete"
	PromotionEventCancel   PromotionEvent = "cancel"
)

var PromotionLifecycle = NewStateMachine[PromotionStatus, PromotionEvent]("promotion",
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPending, On: PromotionEventPaid, To: PromotionStatusPendingApproval},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPendingApproval, On: PromotionEventApprove, To: PromotionStatusActive},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPendingApproval, On: PromotionEventReject, To: PromotionStatusRejected},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusActive, On: PromotionEventPause, To: PromotionStatusPaused},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPaused, On: PromotionEventResume, To: PromotionStatusActive},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusActive, On: PromotionEventComplete, To: PromotionStatusCompleted},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPaused, On: PromotionEventComplete, To: PromotionStatusCompleted},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPending, On: PromotionEventCancel, To: PromotionStatusCancelled},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusActive, On: PromotionEventCancel, To: PromotionStatusCancelled},
	Transition[PromotionStatus, PromotionEvent]{From: PromotionStatusPaused, On: PromotionEventCancel, To: PromotionStatusCancelled},
)

// Promotion is a paid boost of a business or post for a date range.
type Promotion struct {
	ID         string
	UserID     string
	BusinessID *string
	Title      string
	Budget     decimal.Decimal
	IsPaid     bool
	PaymentID  *string
	Status     PromotionStatus
	StartDate  time.Time
	EndDate    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewPromotion(userID string, businessID *string, title string, budget decimal.Decimal, start, end time.Time) (*Promotion, error) {
	title = strings.TrimSpace(title)
	if userID == "" || title == "" || !IsPositive(budget) || !end.After(start) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Promotion{
		ID:         uuid.NewString(),
		UserID:     userID,
		BusinessID: businessID,
		Title:      title,
		Budget:     CleanAmount(budget),
		Status:     PromotionStatusPending,
		StartDate:  start,
		EndDate:    end,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Ended reports whether the promotion window closed before now.
func (p *Promotion) Ended(now time.Time) bool { return !p.EndDate.After(now) }
