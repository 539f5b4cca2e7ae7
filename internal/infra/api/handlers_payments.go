package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/usecase"
)

type initiatePaymentBody struct {
	UserID      string          `json:"user_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Purpose     string          `json:"purpose" validate:"required"`
	Phone       string          `json:"phone" validate:"required"`
	Description string          `json:"description" validate:"max=255"`
	RelatedID   string          `json:"related_id" validate:"required_with=RelatedKind"`
	RelatedKind string          `json:"related_kind" validate:"required_with=RelatedID"`
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var body initiatePaymentBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	purpose, err := model.ParsePurpose(body.Purpose)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var related *model.RelatedRef
	if body.RelatedID != "" {
		related = &model.RelatedRef{ID: body.RelatedID, Kind: model.RelatedKind(body.RelatedKind)}
	}
	p, err := s.deps.Payments.Initiate(r.Context(), usecase.InitiatePayment{
		UserID:      body.UserID,
		Amount:      body.Amount,
		Purpose:     purpose,
		Phone:       body.Phone,
		Description: body.Description,
		Related:     related,
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentView(p))
}

func (s *Server) handleListMyPayments(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r, 20, 100)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	ps, err := s.deps.Payments.ListByUser(r.Context(), claimsFrom(r.Context()).Subject, pg.Limit, pg.Offset)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentViews(ps))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	p, err := s.deps.Payments.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if !canSee(r, p) {
		writeError(w, r, domain.ErrNotFound, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

// handleRefresh polls the provider for one order now. Provider failures
// leave the payment as it was and still return 200 with its current state.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	p, err := s.deps.Payments.Refresh(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if !canSee(r, p) {
		writeError(w, r, domain.ErrNotFound, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

type gatewayCallbackBody struct {
	OrderID string `json:"order_id" validate:"required,max=128"`
}

// handleGatewayCallback treats the provider notification as a hint and
// re-checks the order through the status API.
func (s *Server) handleGatewayCallback(w http.ResponseWriter, r *http.Request) {
	var body gatewayCallbackBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	l := logging.With(r.Context(), s.log)
	p, err := s.deps.Payments.Refresh(r.Context(), body.OrderID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		l.Warn().Str("order_id", body.OrderID).Msg("callback for unknown order")
	case err != nil:
		l.Error().Err(err).Str("order_id", body.OrderID).Msg("callback refresh failed")
	default:
		l.Info().Str("order_id", body.OrderID).Str("payment_id", p.ID).Str("status", string(p.Status)).Msg("callback processed")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r, 100, 500)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	ps, err := s.deps.Payments.Outstanding(r.Context(), nil, pg.Limit)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentViews(ps))
}

func (s *Server) handleRedispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	out, err := s.deps.Payments.Redispatch(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payment_id": id, "outcome": string(out)})
}

func (s *Server) handleGatewayBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.deps.Payments.GatewayBalance(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": bal, "checked_at": time.Now().UTC()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-30 * 24 * time.Hour)
	if v, err := optionalQuery(r, "since"); err != nil {
		writeError(w, r, err, s.log)
		return
	} else if v != nil {
		t, perr := time.Parse(time.RFC3339, *v)
		if perr != nil {
			writeError(w, r, domain.ErrInvalidArgument, s.log)
			return
		}
		since = t
	}
	stats, err := s.deps.Stats.Payments(r.Context(), since)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	week, month, year, err := s.deps.Stats.Revenue(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": stats,
		"revenue": map[string]decimal.Decimal{
			"week":  week,
			"month": month,
			"year":  year,
		},
	})
}

func canSee(r *http.Request, p *model.Payment) bool {
	c := claimsFrom(r.Context())
	return c != nil && (c.Role == RoleAdmin || c.Subject == p.UserID)
}
