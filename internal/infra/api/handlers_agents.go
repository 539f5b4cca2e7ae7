package api

import (
	"net/http"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/usecase"
)

type registerAgentBody struct {
	Phone     string  `json:"phone" validate:"required"`
	PackageID *string `json:"package_id" validate:"omitempty,uuid"`
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var body registerAgentBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	a, p, err := s.deps.Agents.Register(r.Context(), claimsFrom(r.Context()).Subject, body.Phone, body.PackageID)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"agent": toAgentView(a), "payment": paymentOrNil(p)})
}

func (s *Server) handleAgentPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.deps.Agents.Packages(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	out := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, packageView{ID: p.ID, Name: p.Name, Price: p.Price, NumberOfBusinesses: p.NumberOfBusinesses})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAgentMe(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Agents.Me(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(a))
}

func (s *Server) handleAgentCommissions(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r, 50, 200)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	cs, err := s.deps.Agents.Commissions(r.Context(), claimsFrom(r.Context()).Subject, pg.Limit, pg.Offset)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	out := make([]commissionView, 0, len(cs))
	for _, c := range cs {
		out = append(out, commissionView{
			ID:          c.ID,
			BusinessID:  c.BusinessID,
			Type:        string(c.Type),
			Amount:      c.Amount,
			Status:      string(c.Status),
			Description: c.Description,
			PaidAt:      c.PaidAt,
			CreatedAt:   c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type agentBusinessBody struct {
	OwnerID     string       `json:"owner_id" validate:"required"`
	Name        string       `json:"name" validate:"required,max=200"`
	Category    string       `json:"category" validate:"required,max=100"`
	Description string       `json:"description" validate:"max=2000"`
	Location    locationBody `json:"location"`
	Phone       string       `json:"phone"`
}

func (s *Server) handleAgentCreateBusiness(w http.ResponseWriter, r *http.Request) {
	var body agentBusinessBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	b, p, err := s.deps.Agents.CreateBusinessForOwner(r.Context(), claimsFrom(r.Context()).Subject, usecase.NewBusinessInput{
		OwnerID:     body.OwnerID,
		Name:        body.Name,
		Category:    body.Category,
		Description: body.Description,
		Location:    body.Location.model(),
		Phone:       body.Phone,
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"business": toBusinessView(b), "payment": paymentOrNil(p)})
}

func (s *Server) handleAgentListRequests(w http.ResponseWriter, r *http.Request) {
	raw, err := optionalQuery(r, "status")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var status *model.BusinessRequestStatus
	if raw != nil {
		st := model.BusinessRequestStatus(*raw)
		switch st {
		case model.RequestStatusPending, model.RequestStatusPaid, model.RequestStatusApproved,
			model.RequestStatusRejected, model.RequestStatusConverted:
			status = &st
		default:
			writeError(w, r, domain.ErrInvalidArgument, s.log)
			return
		}
	}
	reqs, err := s.deps.BusinessRequests.ListForAgent(r.Context(), claimsFrom(r.Context()).Subject, status)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	out := make([]businessRequestView, 0, len(reqs))
	for _, br := range reqs {
		out = append(out, toBusinessRequestView(br))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAgentApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	b, err := s.deps.BusinessRequests.CompleteFromRequest(r.Context(), claimsFrom(r.Context()).Subject, id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessView(b))
}

func (s *Server) handleAgentRejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	br, err := s.deps.BusinessRequests.Reject(r.Context(), claimsFrom(r.Context()).Subject, id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessRequestView(br))
}

type submitRequestBody struct {
	AgentCode    string       `json:"agent_code" validate:"omitempty,max=16"`
	BusinessName string       `json:"business_name" validate:"required,max=200"`
	Phone        string       `json:"phone" validate:"required"`
	Category     string       `json:"category" validate:"required,max=100"`
	Description  string       `json:"description" validate:"max=2000"`
	Location     locationBody `json:"location"`
}

func (s *Server) handleSubmitBusinessRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	br, p, err := s.deps.BusinessRequests.Submit(r.Context(), claimsFrom(r.Context()).Subject, usecase.SubmitBusinessRequest{
		AgentCode:    body.AgentCode,
		BusinessName: body.BusinessName,
		Phone:        body.Phone,
		Category:     body.Category,
		Description:  body.Description,
		Location:     body.Location.model(),
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request": toBusinessRequestView(br), "payment": paymentOrNil(p)})
}

func (s *Server) handleApproveAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	a, err := s.deps.Agents.Approve(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(a))
}
