package api

import (
	"net/http"

	"github.com/org/credvault/pkg/models"
)

// CredentialAddHandler handles POST /v1/accounts/{id}/credentials
func (s *Server) CredentialAddHandler(w http.ResponseWriter, r *http.Request) {
	var req models.NewCredential
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, "title and secret are required")
		return
	}

	id, err := s.vault.Add(r.Context(), urlParamInt(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.refreshGauges(r.Context())
	writeData(w, http.StatusCreated, "credential added", map[string]any{"id": id})
}

// CredentialGetHandler handles GET /v1/accounts/{id}/credentials/{credID}
func (s *Server) CredentialGetHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := s.vault.Get(r.Context(), urlParamInt(r, "credID"), urlParamInt(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "ok", detail)
}

// CredentialListHandler handles GET /v1/accounts/{id}/credentials?category=
func (s *Server) CredentialListHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.vault.List(r.Context(), urlParamInt(r, "id"), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "ok", summaries)
}

// CredentialSearchHandler handles GET /v1/accounts/{id}/credentials/search?q=&field=
func (s *Server) CredentialSearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	field := r.URL.Query().Get("field")

	summaries, err := s.vault.Search(r.Context(), urlParamInt(r, "id"), field, q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "ok", summaries)
}

// CredentialUpdateHandler handles PATCH /v1/accounts/{id}/credentials/{credID}
func (s *Server) CredentialUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var upd models.CredentialUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.vault.Update(r.Context(), urlParamInt(r, "credID"), urlParamInt(r, "id"), upd); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "credential updated", nil)
}

// CredentialDeleteHandler handles DELETE /v1/accounts/{id}/credentials/{credID}
func (s *Server) CredentialDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.vault.Delete(r.Context(), urlParamInt(r, "credID"), urlParamInt(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	s.refreshGauges(r.Context())
	writeData(w, http.StatusOK, "credential deleted", nil)
}
