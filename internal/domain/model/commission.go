package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
)

type CommissionType string

const (
	CommissionActivation          CommissionType = "ACTIVATION"
	CommissionBusinessActivation  CommissionType = "BUSINESS_ACTIVATION" // legacy alias of ACTIVATION
	CommissionSubscriptionRenewal CommissionType = "SUBSCRIPTION_RENEWAL"
	CommissionReferral            CommissionType = "REFERRAL"
)

// DedupClass folds types that count as the same grant for one
// (agent, business) pair.
func (t CommissionType) DedupClass() CommissionType {
	if t == CommissionBusinessActivation {
		return CommissionActivation
	}
	return t
}

// CommissionLockKey names the critical section for one grant class of an
// agent/business pair.
func CommissionLockKey(agentID, businessID string, typ CommissionType) string {
	return fmt.Sprintf("commission:%s:%s:%s", agentID, businessID, typ.DedupClass())
}

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "PENDING"
	CommissionStatusApproved  CommissionStatus = "APPROVED"
	CommissionStatusPaid      CommissionStatus = "PAID"
	CommissionStatusCancelled CommissionStatus = "CANCELLED"
)

// Commission is a monetary grant to an agent for a business.
type Commission struct {
	ID          string
	AgentID     string
	BusinessID  string
	Type        CommissionType
	Amount      decimal.Decimal
	Status      CommissionStatus
	Description string
	PaidAt      *time.Time
	CreatedAt   time.Time
}

// NewPaidCommission builds a commission that is settled at creation.
func NewPaidCommission(agentID, businessID string, typ CommissionType, amount decimal.Decimal, description string) (*Commission, error) {
	if agentID == "" || businessID == "" || typ == "" || !IsPositive(amount) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Commission{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		BusinessID:  businessID,
		Type:        typ,
		Amount:      CleanAmount(amount),
		Status:      CommissionStatusPaid,
		Description: description,
		PaidAt:      &now,
		CreatedAt:   now,
	}, nil
}

// HasGrant reports whether existing already holds a non-cancelled
// commission of typ's class for businessID.
func HasGrant(existing []*Commission, businessID string, typ CommissionType) bool {
	for _, c := range existing {
		if c == nil || c.BusinessID != businessID || c.Status == CommissionStatusCancelled {
			continue
		}
		if c.Type.DedupClass() == typ.DedupClass() {
			return true
		}
	}
	return false
}

// Counter is the agent statistic a commission type bumps.
func (t CommissionType) Counter() AgentCounter {
	if t == CommissionReferral {
		return CounterTotalReferrals
	}
	return CounterBusinessesActivated
}
