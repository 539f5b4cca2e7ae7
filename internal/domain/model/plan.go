package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
)

// PlanTier fixes the billing period of a subscription plan.
type PlanTier string

const (
	TierWeekly    PlanTier = "WEEKLY"
	TierMonthly   PlanTier = "MONTHLY"
	TierQuarterly PlanTier = "QUARTERLY"
	TierAnnual    PlanTier = "ANNUAL"
)

// PlanDurations maps a tier to its length in days.
type PlanDurations map[PlanTier]int

func DefaultPlanDurations() PlanDurations {
	return PlanDurations{
		TierWeekly:    7,
		TierMonthly:   30,
		TierQuarterly: 90,
		TierAnnual:    365,
	}
}

// Days falls back to the built-in table for tiers missing from d.
func (d PlanDurations) Days(t PlanTier) int {
	if n, ok := d[t]; ok && n > 0 {
		return n
	}
	return DefaultPlanDurations()[t]
}

func ParsePlanTier(s string) (PlanTier, error) {
	t := PlanTier(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := DefaultPlanDurations()[t]; !ok {
		return "", domain.ErrInvalidArgument
	}
	return t, nil
}

// SubscriptionPlan is a purchasable business subscription.
type SubscriptionPlan struct {
	ID        string
	Name      string
	Tier      PlanTier
	Price     decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, tier PlanTier, price decimal.Decimal) (*SubscriptionPlan, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" || !IsPositive(price) {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := ParsePlanTier(string(tier)); err != nil {
		return nil, err
	}
	return &SubscriptionPlan{
		ID:        id,
		Name:      name,
		Tier:      tier,
		Price:     CleanAmount(price),
		IsActive:  true,
		CreatedAt: time.Now(),
	}, nil
}
