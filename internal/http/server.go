// Package http exposes the franchise workflow, accounts and sales ledger
// as a JSON API. Every response body is an envelope {"stat", "msg", ...}.
package http

import (
	"context"
	"net/http"
	"time"

	"franchisee-hub/internal/accounts"
	"franchisee-hub/internal/common/auth"
	"franchisee-hub/internal/common/config"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/validation"
	"franchisee-hub/internal/ledger"
	"franchisee-hub/internal/lifecycle"
	"franchisee-hub/internal/models"
	"franchisee-hub/internal/search"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type Lifecycle interface {
	Submit(ctx context.Context, form models.ApplicationForm) (*models.Applicant, error)
	Accept(ctx context.Context, actor auth.Actor, email string) (*lifecycle.TransitionResult, error)
	Reject(ctx context.Context, actor auth.Actor, email string) (*lifecycle.TransitionResult, error)
	Grant(ctx context.Context, actor auth.Actor, email string) (*lifecycle.GrantResult, error)
	EnsureCredential(ctx context.Context, actor auth.Actor, email string) (*models.IssuedCredential, error)
	Reconcile(ctx context.Context) (*lifecycle.ReconcileReport, error)
}

type ApplicantReader interface {
	List(ctx context.Context) ([]*models.Applicant, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, status models.Status, limit int) (*search.Hits, error)
}

type Accounts interface {
	AdminLogin(ctx context.Context, email, password string) (*accounts.Session, error)
	AdminProfile(ctx context.Context, email string) (*models.Admin, error)
	UpdateAdminProfile(ctx context.Context, email, firstName, lastName string) (*models.Admin, error)
	ChangeAdminPassword(ctx context.Context, email, current, next string) error
	FranchiseeLogin(ctx context.Context, email, password string) (*accounts.Session, error)
	FranchiseeProfile(ctx context.Context, email string) (*models.Applicant, error)
	UpdateFranchiseeProfile(ctx context.Context, email string, u models.ProfileUpdate) (*models.Applicant, error)
	ChangeFranchiseePassword(ctx context.Context, email, current, next string) error
}

type Ledger interface {
	ParseDay(s string) (time.Time, error)
	ParseRange(start, end string) (ledger.Range, error)
	Upsert(ctx context.Context, email string, day time.Time, m models.SalesMetrics) (*models.SalesRecord, error)
	Query(ctx context.Context, email string, r ledger.Range) ([]*models.SalesRecord, error)
}

type TokenParser interface {
	Parse(token string) (*auth.Actor, error)
}

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Dependencies struct {
	Lifecycle  Lifecycle
	Applicants ApplicantReader
	Search     Searcher
	Accounts   Accounts
	Ledger     Ledger
	Tokens     TokenParser
	Validator  *validation.Validator
	Checks     []Check
	Logger     logger.Logger
}

type Server struct {
	lifecycle  Lifecycle
	applicants ApplicantReader
	search     Searcher
	accounts   Accounts
	ledger     Ledger
	tokens     TokenParser
	validator  *validation.Validator
	checks     []Check
	logger     logger.Logger
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		lifecycle:  deps.Lifecycle,
		applicants: deps.Applicants,
		search:     deps.Search,
		accounts:   deps.Accounts,
		ledger:     deps.Ledger,
		tokens:     deps.Tokens,
		validator:  deps.Validator,
		checks:     deps.Checks,
		logger:     deps.Logger.WithFields(map[string]interface{}{"component": "http"}),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.instrument)
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/applications", s.handleSubmit)
		r.Post("/admin/login", s.handleAdminLogin)
		r.Post("/franchisee/login", s.handleFranchiseeLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, s.requireRole(auth.RoleAdmin))

			r.Get("/admin/applicants", s.handleListApplicants)
			r.Get("/admin/applicants/search", s.handleSearchApplicants)
			r.Get("/admin/overview", s.handleOverview)
			r.Post("/admin/applicants/{email}/accept", s.handleAccept)
			r.Post("/admin/applicants/{email}/reject", s.handleReject)
			r.Post("/admin/applicants/{email}/grant", s.handleGrant)
			r.Post("/admin/credentials", s.handleEnsureCredential)
			r.Post("/admin/reconcile", s.handleReconcile)
			r.Get("/admin/profile", s.handleAdminProfile)
			r.Put("/admin/profile", s.handleUpdateAdminProfile)
			r.Post("/admin/password", s.handleAdminPassword)
			r.Get("/admin/sales/{email}", s.handleAdminSales)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, s.requireRole(auth.RoleFranchisee))

			r.Get("/franchisee/profile", s.handleFranchiseeProfile)
			r.Put("/franchisee/profile", s.handleUpdateFranchiseeProfile)
			r.Post("/franchisee/password", s.handleFranchiseePassword)
			r.Put("/franchisee/sales", s.handleUpsertSales)
			r.Get("/franchisee/sales", s.handleQuerySales)
			r.Get("/franchisee/sales/summary", s.handleSalesSummary)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusMethodNotAllowed, false, "Method not allowed", nil)
	})

	return r
}

// NewHTTPServer wraps the router with the configured timeouts.
func (s *Server) NewHTTPServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Router(),
		ReadTimeout:       config.GetDuration(cfg.ReadTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.WriteTimeout),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady runs every readiness probe with a shared deadline and reports
// each result.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Probe(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[c.Name] = err.Error()
			s.logger.Warn("readiness check failed", map[string]interface{}{"check": c.Name, "error": err})
			continue
		}
		results[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}
