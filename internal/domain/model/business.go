package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-payments/internal/domain"
)

type BusinessStatus string

const (
	BusinessStatusPending   BusinessStatus = "PENDING"
	BusinessStatusActive    BusinessStatus = "ACTIVE"
	BusinessStatusInactive  BusinessStatus = "INACTIVE"
	BusinessStatusCancelled BusinessStatus = "CANCELLED"
)

type BusinessEvent string

const (
	BusinessEventActivate   BusinessEvent = "activate"
	BusinessEventDeactivate BusinessEvent = "deactivate"
	BusinessEventReactivate BusinessEvent = "reactivate"
	BusinessEventCancel     BusinessEvent = "cancel"
)

var BusinessLifecycle = NewStateMachine[BusinessStatus, BusinessEvent]("business",
	Transition[BusinessStatus, BusinessEvent]{From: BusinessStatusPending, On: BusinessEventActivate, To: BusinessStatusActive},
	Transition[BusinessStatus, BusinessEvent]{From: BusinessStatusActive, On: BusinessEventDeactivate, To: BusinessStatusInactive},
	Transition[BusinessStatus, BusinessEvent]{From: BusinessStatusInactive, On: BusinessEventReactivate, To: BusinessStatusActive},
	Transition[BusinessStatus, BusinessEvent]{From: BusinessStatusPending, On: BusinessEventCancel, To: BusinessStatusCancelled},
	Transition[BusinessStatus, BusinessEvent]{From: BusinessStatusActive, On: BusinessEventCancel, To: BusinessStatusCancelled},
	Transition[BusinessStatus, BusinessEvent]{From: BusinessStatusInactive, On: BusinessEventCancel, To: BusinessStatusCancelled},
)

// Location is the physical address of a business.
type Location struct {
	Region   string
	District string
	Ward     string
	Street   string
}

// Business is owned by one user and optionally by the agent who activated it.
type Business struct {
	ID          string
	OwnerID     string
	AgentID     *string
	Name        string
	Category    string
	Description string
	Location    Location
	Status      BusinessStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewBusiness(ownerID string, agentID *string, name, category, description string, loc Location, status BusinessStatus) (*Business, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	if status == "" {
		status = BusinessStatusPending
	}
	now := time.Now()
	return &Business{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		AgentID:     agentID,
		Name:        name,
		Category:    category,
		Description: description,
		Location:    loc,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (b *Business) AgentRef() string {
	if b.AgentID == nil {
		return ""
	}
	return *b.AgentID
}

type BusinessRequestStatus string

const (
	RequestStatusPending   BusinessRequestStatus = "PENDING"
	RequestStatusPaid      BusinessRequestStatus = "PAID"
	RequestStatusApproved  BusinessRequestStatus = "APPROVED"
	RequestStatusRejected  BusinessRequestStatus = "REJECTED"
	RequestStatusConverted BusinessRequestStatus = "CONVERTED"
)

type BusinessRequestEvent string

const (
	RequestEventPaid    BusinessRequestEvent = "paid"    // payment succeeded, agent visit pending
	RequestEventConvert BusinessRequestEvent = "convert" // business created or linked
	RequestEventReject  BusinessRequestEvent = "reject"
)

// BusinessRequestLifecycle: an agent-routed request goes PENDING -> PAID ->
// CONVERTED; a request without an agent converts straight from PENDING.
var BusinessRequestLifecycle = NewStateMachine[BusinessRequestStatus, BusinessRequestEvent]("business_request",
	Transition[BusinessRequestStatus, BusinessRequestEvent]{From: RequestStatusPending, On: RequestEventPaid, To: RequestStatusPaid},
	Transition[BusinessRequestStatus, BusinessRequestEvent]{From: RequestStatusPending, On: RequestEventConvert, To: RequestStatusConverted},
	Transition[BusinessRequestStatus, BusinessRequestEvent]{From: RequestStatusPaid, On: RequestEventConvert, To: RequestStatusConverted},
	Transition[BusinessRequestStatus, BusinessRequestEvent]{From: RequestStatusApproved, On: RequestEventConvert, To: RequestStatusConverted},
	Transition[BusinessRequestStatus, BusinessRequestEvent]{From: RequestStatusPending, On: RequestEventReject, To: RequestStatusRejected},
	Transition[BusinessRequestStatus, BusinessRequestEvent]{From: RequestStatusPaid, On: RequestEventReject, To: RequestStatusRejected},
)

// BusinessRequest is a user's intent to open a business, optionally via an agent.
type BusinessRequest struct {
	ID           string
	UserID       string
	AgentID      *string
	BusinessName string
	OwnerPhone   string
	Category     string
	Description  string
	Location     Location
	Status       BusinessRequestStatus
	BusinessID   *string // set on conversion
	PaymentID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewBusinessRequest(userID string, agentID *string, name, phone, category, description string, loc Location) (*BusinessRequest, error) {
	name = strings.TrimSpace(name)
	if userID == "" || name == "" || !ValidPhone(phone) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &BusinessRequest{
		ID:           uuid.NewString(),
		UserID:       userID,
		AgentID:      agentID,
		BusinessName: name,
		OwnerPhone:   FormatPhone(phone),
		Category:     category,
		Description:  description,
		Location:     loc,
		Status:       RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *BusinessRequest) HasAgent() bool { return r.AgentID != nil && *r.AgentID != "" }

// PaymentEvent picks the event a successful payment fires on this request.
func (r *BusinessRequest) PaymentEvent() BusinessRequestEvent {
	if r.HasAgent() {
		return RequestEventPaid
	}
	return RequestEventConvert
}
