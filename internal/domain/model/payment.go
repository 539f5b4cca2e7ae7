package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
)

// Purpose identifies which feature a payment funds. The set is closed.
type Purpose string

const (
	PurposeAgentRegistration  Purpose = "AGENT_REGISTRATION"
	PurposeAgentPackage       Purpose = "AGENT_PACKAGE"
	PurposeBusinessActivation Purpose = "BUSINESS_ACTIVATION"
	PurposeSubscription       Purpose = "SUBSCRIPTION"
	PurposePromotion          Purpose = "PROMOTION"
	PurposeOrder              Purpose = "ORDER"
	PurposeCoinPurchase       Purpose = "COIN_PURCHASE"
)

func AllPurposes() []Purpose {
	return []Purpose{
		PurposeAgentRegistration,
		PurposeAgentPackage,
		PurposeBusinessActivation,
		PurposeSubscription,
		PurposePromotion,
		PurposeOrder,
		PurposeCoinPurchase,
	}
}

func (p Purpose) Valid() bool {
	for _, v := range AllPurposes() {
		if v == p {
			return true
		}
	}
	return false
}

func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", domain.ErrUnknownPurpose
	}
	return p, nil
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type PaymentEvent string

const (
	PaymentEventSucceeded PaymentEvent = "succeeded"
	PaymentEventFailed    PaymentEvent = "failed"
)

// PaymentLifecycle: PENDING -> SUCCESS | FAILED. Both targets are terminal.
var PaymentLifecycle = NewStateMachine[PaymentStatus, PaymentEvent]("payment",
	Transition[PaymentStatus, PaymentEvent]{From: PaymentStatusPending, On: PaymentEventSucceeded, To: PaymentStatusSuccess},
	Transition[PaymentStatus, PaymentEvent]{From: PaymentStatusPending, On: PaymentEventFailed, To: PaymentStatusFailed},
)

// GatewayStatus is the provider's view of an order.
type GatewayStatus string

const (
	GatewayStatusCompleted GatewayStatus = "completed"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusCancelled GatewayStatus = "cancelled"
	GatewayStatusPending   GatewayStatus = "pending"
)

func ParseGatewayStatus(s string) GatewayStatus {
	switch GatewayStatus(strings.ToLower(strings.TrimSpace(s))) {
	case GatewayStatusCompleted:
		return GatewayStatusCompleted
	case GatewayStatusFailed:
		return GatewayStatusFailed
	case GatewayStatusCancelled:
		return GatewayStatusCancelled
	default:
		return GatewayStatusPending
	}
}

// Event maps a provider status to a ledger event. Anything but
// completed/failed/cancelled leaves the payment untouched.
func (s GatewayStatus) Event() (PaymentEvent, bool) {
	switch s {
	case GatewayStatusCompleted:
		return PaymentEventSucceeded, true
	case GatewayStatusFailed, GatewayStatusCancelled:
		return PaymentEventFailed, true
	default:
		return "", false
	}
}

// DemoOrderPrefix marks order references minted locally in demo mode.
const DemoOrderPrefix = "DEMO-"

func IsDemoOrder(ref string) bool { return strings.HasPrefix(ref, DemoOrderPrefix) }

// RelatedKind names the aggregate a payment funds.
type RelatedKind string

const (
	RelatedAgent           RelatedKind = "AGENT"
	RelatedAgentPackage    RelatedKind = "AGENT_PACKAGE"
	RelatedBusiness        RelatedKind = "BUSINESS"
	RelatedBusinessRequest RelatedKind = "BUSINESS_REQUEST"
	RelatedSubscription    RelatedKind = "SUBSCRIPTION"
	RelatedPlan            RelatedKind = "SUBSCRIPTION_PLAN"
	RelatedPromotion       RelatedKind = "PROMOTION"
	RelatedCoinPackage     RelatedKind = "COIN_PACKAGE"
	RelatedOrder           RelatedKind = "ORDER"
)

// RelatedRef is a weak pointer resolved at activation time.
type RelatedRef struct {
	ID   string
	Kind RelatedKind
}

// Payment is one attempt to move money through the provider.
type Payment struct {
	ID               string
	UserID           string
	Amount           decimal.Decimal
	Currency         string
	Purpose          Purpose
	Status           PaymentStatus
	Method           PaymentMethod
	Phone            string // normalised 255XXXXXXXXX
	Description      string
	ExternalRef      *string // provider order id; nil until the gateway accepts
	Fee              decimal.Decimal
	NetAmount        decimal.Decimal
	RelatedID        *string
	RelatedKind      *RelatedKind
	ProviderResponse string // diagnostic only
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewPayment(userID string, amount decimal.Decimal, purpose Purpose, phone, description string, related *RelatedRef) (*Payment, error) {
	if userID == "" || !IsPositive(amount) || !purpose.Valid() || !ValidPhone(phone) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	p := &Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      CleanAmount(amount),
		Currency:    DefaultCurrency,
		Purpose:     purpose,
		Status:      PaymentStatusPending,
		Method:      DetectPaymentMethod(phone),
		Phone:       FormatPhone(phone),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if related != nil {
		if related.ID == "" || related.Kind == "" {
			return nil, domain.ErrInvalidArgument
		}
		id, kind := related.ID, related.Kind
		p.RelatedID = &id
		p.RelatedKind = &kind
	}
	return p, nil
}

func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}

// Related returns the weak reference, or nil when the payment has none.
func (p *Payment) Related() *RelatedRef {
	if p.RelatedID == nil || p.RelatedKind == nil {
		return nil
	}
	return &RelatedRef{ID: *p.RelatedID, Kind: *p.RelatedKind}
}

func (p *Payment) RelatedIs(kind RelatedKind) bool {
	return p.RelatedKind != nil && *p.RelatedKind == kind && p.RelatedID != nil
}

func (p *Payment) OrderRef() string {
	if p.ExternalRef == nil {
		return ""
	}
	return *p.ExternalRef
}
