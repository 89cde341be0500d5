package http

import (
	"context"
	"net/http"

	"franchisee-hub/internal/accounts"
	"franchisee-hub/internal/common/validation"
	"franchisee-hub/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var form models.ApplicationForm
	if !s.decodeValidated(w, r, validation.SchemaApplication, &form) {
		return
	}

	a, err := s.lifecycle.Submit(r.Context(), form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, true, "Application submitted", map[string]interface{}{"doc": a})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	s.login(w, r, s.accounts.AdminLogin)
}

func (s *Server) handleFranchiseeLogin(w http.ResponseWriter, r *http.Request) {
	s.login(w, r, s.accounts.FranchiseeLogin)
}

type loginFunc func(ctx context.Context, email, password string) (*accounts.Session, error)

func (s *Server) login(w http.ResponseWriter, r *http.Request, fn loginFunc) {
	var req loginRequest
	if !s.decodeValidated(w, r, validation.SchemaLogin, &req) {
		return
	}

	sess, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Login successful", map[string]interface{}{
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt,
		"role":      sess.Role,
		"email":     sess.Email,
	})
}
