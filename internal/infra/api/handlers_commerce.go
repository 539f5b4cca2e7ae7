package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/usecase"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.deps.Subscriptions.Plans(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writePlans(w, plans)
}

func writePlans(w http.ResponseWriter, plans []*model.SubscriptionPlan) {
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.deps.Subscriptions.ForOwner(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionView(sub))
}

type purchaseSubscriptionBody struct {
	PlanID string `json:"plan_id" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
}

func (s *Server) handlePurchaseSubscription(w http.ResponseWriter, r *http.Request) {
	var body purchaseSubscriptionBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	sub, p, err := s.deps.Subscriptions.Purchase(r.Context(), claimsFrom(r.Context()).Subject, body.PlanID, body.Phone)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"subscription": toSubscriptionView(sub), "payment": paymentOrNil(p)})
}

type createPromotionBody struct {
	BusinessID *string         `json:"business_id"`
	Title      string          `json:"title" validate:"required,max=200"`
	Budget     decimal.Decimal `json:"budget"`
	StartDate  time.Time       `json:"start_date" validate:"required"`
	EndDate    time.Time       `json:"end_date" validate:"required,gtfield=StartDate"`
	Phone      string          `json:"phone" validate:"required"`
}

func (s *Server) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var body createPromotionBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	promo, p, err := s.deps.Promotions.Create(r.Context(), claimsFrom(r.Context()).Subject, usecase.CreatePromotion{
		BusinessID: body.BusinessID,
		Title:      body.Title,
		Budget:     body.Budget,
		StartDate:  body.StartDate,
		EndDate:    body.EndDate,
		Phone:      body.Phone,
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"promotion": toPromotionView(promo), "payment": paymentOrNil(p)})
}

type promotionAction func(r *http.Request, id string) (*model.Promotion, error)

func (s *Server) promotionHandler(act promotionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, s.log)
			return
		}
		promo, err := act(r, id)
		if err != nil {
			writeError(w, r, err, s.log)
			return
		}
		writeJSON(w, http.StatusOK, toPromotionView(promo))
	}
}

func (s *Server) handlePausePromotion(w http.ResponseWriter, r *http.Request) {
	s.promotionHandler(func(r *http.Request, id string) (*model.Promotion, error) {
		return s.deps.Promotions.Pause(r.Context(), claimsFrom(r.Context()).Subject, id)
	})(w, r)
}

func (s *Server) handleResumePromotion(w http.ResponseWriter, r *http.Request) {
	s.promotionHandler(func(r *http.Request, id string) (*model.Promotion, error) {
		return s.deps.Promotions.Resume(r.Context(), claimsFrom(r.Context()).Subject, id)
	})(w, r)
}

func (s *Server) handleApprovePromotion(w http.ResponseWriter, r *http.Request) {
	s.promotionHandler(func(r *http.Request, id string) (*model.Promotion, error) {
		return s.deps.Promotions.Approve(r.Context(), id)
	})(w, r)
}

func (s *Server) handleRejectPromotion(w http.ResponseWriter, r *http.Request) {
	s.promotionHandler(func(r *http.Request, id string) (*model.Promotion, error) {
		return s.deps.Promotions.Reject(r.Context(), id)
	})(w, r)
}

func (s *Server) handleCoinPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.deps.Wallets.Packages(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	out := make([]coinPackageView, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, coinPackageView{ID: p.ID, Name: p.Name, CoinAmount: p.CoinAmount, BonusCoins: p.BonusCoins, Price: p.Price})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.deps.Wallets.Balance(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coin_balance": wal.CoinBalance, "updated_at": wal.UpdatedAt})
}

type buyCoinsBody struct {
	PackageID string `json:"package_id" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

func (s *Server) handleBuyCoins(w http.ResponseWriter, r *http.Request) {
	var body buyCoinsBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	p, err := s.deps.Wallets.BuyCoins(r.Context(), claimsFrom(r.Context()).Subject, body.PackageID, body.Phone)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentView(p))
}

type payOrderBody struct {
	Phone string `json:"phone" validate:"required"`
}

func (s *Server) handlePayOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var body payOrderBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	p, err := s.deps.Orders.Pay(r.Context(), claimsFrom(r.Context()).Subject, id, body.Phone)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentView(p))
}

func (s *Server) handleAdminListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.deps.Catalog.Plans(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writePlans(w, plans)
}

type savePlanBody struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Tier     string          `json:"tier" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	IsActive *bool           `json:"is_active"`
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var body savePlanBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	tier, err := model.ParsePlanTier(body.Tier)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	plan, err := model.NewSubscriptionPlan(id, body.Name, tier, body.Price)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if body.IsActive != nil {
		plan.IsActive = *body.IsActive
	}
	if err := s.deps.Catalog.SavePlan(r.Context(), plan); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(plan))
}
