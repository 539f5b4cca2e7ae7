package api

import "net/http"

type registerMeBody struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Phone        string  `json:"phone" validate:"required"`
	ReferralCode *string `json:"referral_code" validate:"omitempty,max=16"`
}

// handleRegisterMe records the caller on first sight. Repeated calls return
// the stored user unchanged.
func (s *Server) handleRegisterMe(w http.ResponseWriter, r *http.Request) {
	var body registerMeBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	u, err := s.deps.Users.RegisterOrFetch(r.Context(), claimsFrom(r.Context()).Subject, body.Name, body.Phone, body.ReferralCode)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.Get(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}
