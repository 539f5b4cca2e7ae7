package api

import (
	"time"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
)

type paymentView struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Purpose     model.Purpose   `json:"purpose"`
	Status      string          `json:"status"`
	Method      string          `json:"method"`
	Phone       string          `json:"phone"`
	Description string          `json:"description,omitempty"`
	OrderID     *string         `json:"order_id,omitempty"`
	Fee         decimal.Decimal `json:"fee"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	RelatedID   *string         `json:"related_id,omitempty"`
	RelatedKind *string         `json:"related_kind,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toPaymentView(p *model.Payment) paymentView {
	v := paymentView{
		ID:          p.ID,
		UserID:      p.UserID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Purpose:     p.Purpose,
		Status:      string(p.Status),
		Method:      string(p.Method),
		Phone:       p.Phone,
		Description: p.Description,
		OrderID:     p.ExternalRef,
		Fee:         p.Fee,
		NetAmount:   p.NetAmount,
		RelatedID:   p.RelatedID,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
	}
	if p.RelatedKind != nil {
		k := string(*p.RelatedKind)
		v.RelatedKind = &k
	}
	return v
}

func toPaymentViews(ps []*model.Payment) []paymentView {
	out := make([]paymentView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentView(p))
	}
	return out
}

// paymentOrNil keeps "payment": null when a flow did not need one.
func paymentOrNil(p *model.Payment) *paymentView {
	if p == nil {
		return nil
	}
	v := toPaymentView(p)
	return &v
}

type agentView struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	AgentCode           string          `json:"agent_code"`
	Phone               string          `json:"phone"`
	Status              string          `json:"status"`
	PackageID           *string         `json:"package_id,omitempty"`
	TotalEarnings       decimal.Decimal `json:"total_earnings"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	BusinessesActivated int             `json:"businesses_activated"`
	TotalReferrals      int             `json:"total_referrals"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
}

func toAgentView(a *model.Agent) agentView {
	return agentView{
		ID:                  a.ID,
		UserID:              a.UserID,
		AgentCode:           a.AgentCode,
		Phone:               a.Phone,
		Status:              string(a.Status),
		PackageID:           a.PackageID,
		TotalEarnings:       a.TotalEarnings,
		AvailableBalance:    a.AvailableBalance,
		BusinessesActivated: a.BusinessesActivated,
		TotalReferrals:      a.TotalReferrals,
		ApprovedAt:          a.ApprovedAt,
	}
}

type packageView struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	NumberOfBusinesses int             `json:"number_of_businesses"`
}

type commissionView struct {
	ID          string          `json:"id"`
	BusinessID  string          `json:"business_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type locationBody struct {
	Region   string `json:"region" validate:"required,max=100"`
	District string `json:"district" validate:"max=100"`
	Ward     string `json:"ward" validate:"max=100"`
	Street   string `json:"street" validate:"max=200"`
}

func (l locationBody) model() model.Location {
	return model.Location{Region: l.Region, District: l.District, Ward: l.Ward, Street: l.Street}
}

func toLocation(l model.Location) locationBody {
	return locationBody{Region: l.Region, District: l.District, Ward: l.Ward, Street: l.Street}
}

type businessView struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	AgentID     *string      `json:"agent_id,omitempty"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Description string       `json:"description,omitempty"`
	Location    locationBody `json:"location"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

func toBusinessView(b *model.Business) businessView {
	return businessView{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		AgentID:     b.AgentID,
		Name:        b.Name,
		Category:    b.Category,
		Description: b.Description,
		Location:    toLocation(b.Location),
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}

type businessRequestView struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	AgentID      *string      `json:"agent_id,omitempty"`
	BusinessName string       `json:"business_name"`
	OwnerPhone   string       `json:"owner_phone"`
	Category     string       `json:"category"`
	Description  string       `json:"description,omitempty"`
	Location     locationBody `json:"location"`
	Status       string       `json:"status"`
	BusinessID   *string      `json:"business_id,omitempty"`
	PaymentID    *string      `json:"payment_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func toBusinessRequestView(br *model.BusinessRequest) businessRequestView {
	return businessRequestView{
		ID:           br.ID,
		UserID:       br.UserID,
		AgentID:      br.AgentID,
		BusinessName: br.BusinessName,
		OwnerPhone:   br.OwnerPhone,
		Category:     br.Category,
		Description:  br.Description,
		Location:     toLocation(br.Location),
		Status:       string(br.Status),
		BusinessID:   br.BusinessID,
		PaymentID:    br.PaymentID,
		CreatedAt:    br.CreatedAt,
	}
}

type planView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Tier     string          `json:"tier"`
	Price    decimal.Decimal `json:"price"`
	IsActive bool            `json:"is_active"`
}

func toPlanView(p *model.SubscriptionPlan) planView {
	return planView{ID: p.ID, Name: p.Name, Tier: string(p.Tier), Price: p.Price, IsActive: p.IsActive}
}

type subscriptionView struct {
	ID         string     `json:"id"`
	BusinessID string     `json:"business_id"`
	PlanID     string     `json:"plan_id"`
	Tier       string     `json:"tier"`
	Status     string     `json:"status"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	PaymentID  *string    `json:"payment_id,omitempty"`
}

func toSubscriptionView(s *model.Subscription) subscriptionView {
	return subscriptionView{
		ID:         s.ID,
		BusinessID: s.BusinessID,
		PlanID:     s.PlanID,
		Tier:       string(s.Tier),
		Status:     string(s.Status),
		StartDate:  s.StartDate,
		EndDate:    s.EndDate,
		PaymentID:  s.PaymentID,
	}
}

type promotionView struct {
	ID         string          `json:"id"`
	BusinessID *string         `json:"business_id,omitempty"`
	Title      string          `json:"title"`
	Budget     decimal.Decimal `json:"budget"`
	IsPaid     bool            `json:"is_paid"`
	Status     string          `json:"status"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
}

func toPromotionView(p *model.Promotion) promotionView {
	return promotionView{
		ID:         p.ID,
		BusinessID: p.BusinessID,
		Title:      p.Title,
		Budget:     p.Budget,
		IsPaid:     p.IsPaid,
		Status:     string(p.Status),
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
	}
}

type coinPackageView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CoinAmount int64           `json:"coin_amount"`
	BonusCoins int64           `json:"bonus_coins"`
	Price      decimal.Decimal `json:"price"`
}

type userView struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Phone               string    `json:"phone"`
	ReferredByAgentCode *string   `json:"referred_by_agent_code,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func toUserView(u *model.User) userView {
	return userView{ID: u.ID, Name: u.Name, Phone: u.Phone, ReferredByAgentCode: u.ReferredByAgentCode, CreatedAt: u.CreatedAt}
}
