package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
)

type AgentStatus string

const (
	AgentStatusPending   AgentStatus = "PENDING"
	AgentStatusActive    AgentStatus = "ACTIVE"
	AgentStatusSuspended AgentStatus = "SUSPENDED"
)

type AgentEvent string

const (
	AgentEventActivate AgentEvent = "activate" // payment success or admin approval
	AgentEventSuspend  AgentEvent = "suspend"
	AgentEventRestore  AgentEvent = "restore"
)

var AgentLifecycle = NewStateMachine[AgentStatus, AgentEvent]("agent",
	Transition[AgentStatus, AgentEvent]{From: AgentStatusPending, On: AgentEventActivate, To: AgentStatusActive},
	Transition[AgentStatus, AgentEvent]{From: AgentStatusActive, On: AgentEventSuspend, To: AgentStatusSuspended},
	Transition[AgentStatus, AgentEvent]{From: AgentStatusSuspended, On: AgentEventRestore, To: AgentStatusActive},
)

// AgentCounter selects which running counter a credit bumps.
type AgentCounter string

const (
	CounterBusinessesActivated AgentCounter = "businesses_activated"
	CounterTotalReferrals      AgentCounter = "total_referrals"
)

// Agent is a field representative who onboards businesses.
// Earnings and balance are only ever changed through commission credits.
type Agent struct {
	ID                  string
	UserID              string
	AgentCode           string
	Phone               string
	Status              AgentStatus
	PackageID           *string
	TotalEarnings       decimal.Decimal
	AvailableBalance    decimal.Decimal
	BusinessesActivated int
	TotalReferrals      int
	ApprovedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func FormatAgentCode(seq int64) string {
	return fmt.Sprintf("AGT%06d", seq)
}

func NewAgent(userID, phone string, seq int64) (*Agent, error) {
	if userID == "" || seq <= 0 || !ValidPhone(phone) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Agent{
		ID:               uuid.NewString(),
		UserID:           userID,
		AgentCode:        FormatAgentCode(seq),
		Phone:            FormatPhone(phone),
		Status:           AgentStatusPending,
		TotalEarnings:    decimal.Zero,
		AvailableBalance: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (a *Agent) IsActive() bool { return a != nil && a.Status == AgentStatusActive }

// AgentPackage is a paid onboarding bundle.
type AgentPackage struct {
	ID                 string
	Name               string
	Price              decimal.Decimal
	NumberOfBusinesses int
	IsActive           bool
	CreatedAt          time.Time
}

func NewAgentPackage(name string, price decimal.Decimal, businesses int) (*AgentPackage, error) {
	if name == "" || !IsPositive(price) || businesses < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &AgentPackage{
		ID:                 uuid.NewString(),
		Name:               name,
		Price:              CleanAmount(price),
		NumberOfBusinesses: businesses,
		IsActive:           true,
		CreatedAt:          time.Now(),
	}, nil
}
