package http

import (
	"net/http"
	"net/url"
	"strconv"

	"franchisee-hub/internal/common/validation"
	"franchisee-hub/internal/lifecycle"
	"franchisee-hub/internal/models"

	"github.com/go-chi/chi/v5"
)

type credentialRequest struct {
	Email string `json:"email"`
}

type adminProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ==========================
// Applicants
// ==========================

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	list, err := s.applicants.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Applicant{}
	}
	writeOK(w, "", map[string]interface{}{"doc": list})
}

func (s *Server) handleSearchApplicants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	hits, err := s.search.Search(r.Context(), q.Get("q"), models.Status(q.Get("status")), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "", map[string]interface{}{"doc": hits.Applicants, "total": hits.Total})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	counts, err := s.applicants.CountByStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeOK(w, "", map[string]interface{}{"counts": counts, "total": total})
}

// ==========================
// Transitions
// ==========================

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	res, err := s.lifecycle.Accept(r.Context(), actor(r), pathEmail(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, transitionMessage("Application accepted", res), transitionFields(res))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	res, err := s.lifecycle.Reject(r.Context(), actor(r), pathEmail(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, transitionMessage("Application rejected", res), transitionFields(res))
}

// handleGrant returns the secret in the body only when the credentials email
// was not delivered.
func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	res, err := s.lifecycle.Grant(r.Context(), actor(r), pathEmail(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fields := transitionFields(&res.TransitionResult)
	fields["created"] = res.Created
	if res.Credential != nil {
		fields["email"] = res.Credential.Email
		fields["password"] = res.Credential.Password
	}
	writeOK(w, transitionMessage("Access granted", &res.TransitionResult), fields)
}

func (s *Server) handleEnsureCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !s.decodeValidated(w, r, validation.SchemaCredentialRequest, &req) {
		return
	}

	cred, err := s.lifecycle.EnsureCredential(r.Context(), actor(r), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg := "Credential already exists"
	if cred.Created {
		msg = "Credential created"
	}
	writeOK(w, msg, map[string]interface{}{"pwd": cred.Password, "created": cred.Created})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.lifecycle.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Reconcile finished", map[string]interface{}{"report": report})
}

// ==========================
// Admin account
// ==========================

func (s *Server) handleAdminProfile(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.AdminProfile(r.Context(), actor(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "", map[string]interface{}{"doc": a})
}

func (s *Server) handleUpdateAdminProfile(w http.ResponseWriter, r *http.Request) {
	var req adminProfileRequest
	if !s.decodeValidated(w, r, validation.SchemaAdminProfile, &req) {
		return
	}

	a, err := s.accounts.UpdateAdminProfile(r.Context(), actor(r).Email, req.FirstName, req.LastName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Profile updated successfully", map[string]interface{}{"doc": a})
}

func (s *Server) handleAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !s.decodeValidated(w, r, validation.SchemaPasswordChange, &req) {
		return
	}

	if err := s.accounts.ChangeAdminPassword(r.Context(), actor(r).Email, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Password changed successfully", nil)
}

func (s *Server) handleAdminSales(w http.ResponseWriter, r *http.Request) {
	s.querySales(w, r, pathEmail(r))
}

// ==========================
// Helpers
// ==========================

func pathEmail(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	if email, err := url.PathUnescape(raw); err == nil {
		return models.NormalizeEmail(email)
	}
	return models.NormalizeEmail(raw)
}

func transitionFields(res *lifecycle.TransitionResult) map[string]interface{} {
	fields := map[string]interface{}{
		"status":    res.Status,
		"emailSent": res.NotificationSent,
	}
	if res.NotificationError != "" {
		fields["emailError"] = res.NotificationError
	}
	return fields
}

func transitionMessage(done string, res *lifecycle.TransitionResult) string {
	if res.NotificationSent {
		return done + " and email sent"
	}
	return done + " but email could not be sent"
}
