package api

import (
	"net/http"

	"github.com/org/credvault/pkg/models"
)

// RegisterHandler handles POST /v1/accounts
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login        string `json:"login"`
		Password     string `json:"password"`
		Contact      string `json:"contact"`
		MasterSecret string `json:"master_secret"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" || req.Contact == "" || req.MasterSecret == "" {
		writeError(w, http.StatusBadRequest, "login, password, contact and master_secret are required")
		return
	}

	id, err := s.accounts.Register(r.Context(), req.Login, req.Password, req.Contact, []byte(req.MasterSecret))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.refreshGauges(r.Context())
	writeData(w, http.StatusCreated, "account registered", map[string]any{"id": id})
}

// LoginHandler handles POST /v1/login
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.accounts.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "login successful", view)
}

// AccountInfoHandler handles GET /v1/accounts/{id}
func (s *Server) AccountInfoHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.accounts.GetInfo(r.Context(), urlParamInt(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "ok", view)
}

// ChangePasswordHandler handles POST /v1/accounts/{id}/password
func (s *Server) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.accounts.ChangePassword(r.Context(), urlParamInt(r, "id"), req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "password changed", nil)
}

// UpdateProfileHandler handles PATCH /v1/accounts/{id}/profile
func (s *Server) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.accounts.UpdateProfile(r.Context(), urlParamInt(r, "id"), upd); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "profile updated", nil)
}

// DeactivateHandler handles POST /v1/accounts/{id}/deactivate
func (s *Server) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.accounts.Deactivate(r.Context(), urlParamInt(r, "id"), req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshGauges(r.Context())
	writeData(w, http.StatusOK, "account deactivated", nil)
}

// ResetRequestHandler handles POST /v1/password-reset. The token is
// returned to the caller; delivering it out of band is not this
// service's concern.
func (s *Server) ResetRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contact string `json:"contact"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.accounts.CreateResetToken(r.Context(), req.Contact)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "reset token issued", map[string]any{"reset_token": token})
}

// ResetConfirmHandler handles POST /v1/password-reset/confirm
func (s *Server) ResetConfirmHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "password reset", nil)
}
