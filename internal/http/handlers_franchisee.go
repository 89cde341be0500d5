package http

import (
	"net/http"

	"franchisee-hub/internal/common/validation"
	"franchisee-hub/internal/ledger"
	"franchisee-hub/internal/models"
)

type salesRequest struct {
	Date      string  `json:"date"`
	Sale      float64 `json:"sale"`
	Customers int     `json:"customers"`
	Orders    int     `json:"orders"`
	ItemsSold int     `json:"itemsSold"`
}

func (s *Server) handleFranchiseeProfile(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.FranchiseeProfile(r.Context(), actor(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "", map[string]interface{}{"doc": a})
}

func (s *Server) handleUpdateFranchiseeProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !s.decodeValidated(w, r, validation.SchemaFranchiseeProfile, &req) {
		return
	}

	a, err := s.accounts.UpdateFranchiseeProfile(r.Context(), actor(r).Email, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Profile updated successfully", map[string]interface{}{"doc": a})
}

func (s *Server) handleFranchiseePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !s.decodeValidated(w, r, validation.SchemaPasswordChange, &req) {
		return
	}

	if err := s.accounts.ChangeFranchiseePassword(r.Context(), actor(r).Email, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Password changed successfully", nil)
}

// handleUpsertSales writes the caller's metrics for one day. The email
// always comes from the session.
func (s *Server) handleUpsertSales(w http.ResponseWriter, r *http.Request) {
	var req salesRequest
	if !s.decodeValidated(w, r, validation.SchemaSalesEntry, &req) {
		return
	}

	day, err := s.ledger.ParseDay(req.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.ledger.Upsert(r.Context(), actor(r).Email, day, models.SalesMetrics{
		Sale:      req.Sale,
		Customers: req.Customers,
		Orders:    req.Orders,
		ItemsSold: req.ItemsSold,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, "Sales saved", map[string]interface{}{"doc": rec})
}

func (s *Server) handleQuerySales(w http.ResponseWriter, r *http.Request) {
	s.querySales(w, r, actor(r).Email)
}

func (s *Server) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.loadSales(w, r, actor(r).Email)
	if !ok {
		return
	}
	writeOK(w, "", map[string]interface{}{"summary": ledger.Summarize(recs)})
}

func (s *Server) querySales(w http.ResponseWriter, r *http.Request, email string) {
	recs, ok := s.loadSales(w, r, email)
	if !ok {
		return
	}
	writeOK(w, "", map[string]interface{}{"doc": recs})
}

func (s *Server) loadSales(w http.ResponseWriter, r *http.Request, email string) ([]*models.SalesRecord, bool) {
	q := r.URL.Query()
	rng, err := s.ledger.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}

	recs, err := s.ledger.Query(r.Context(), email, rng)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return recs, true
}
