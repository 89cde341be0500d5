// Package accounts handles sign-in, profile and password management for
// admins and franchisees.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"franchisee-hub/internal/common/auth"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"
)

const DefaultMinPassword = 8

type AdminStore interface {
	Get(ctx context.Context, email string) (*models.Admin, error)
	UpdateProfile(ctx context.Context, email, firstName, lastName string) error
	SetPasswordHash(ctx context.Context, email string, hash []byte) error
}

type ApplicantStore interface {
	Get(ctx context.Context, email string) (*models.Applicant, error)
	UpdateProfile(ctx context.Context, email string, u models.ProfileUpdate) (*models.Applicant, error)
}

type CredentialStore interface {
	Verify(ctx context.Context, email, secret string) error
	Replace(ctx context.Context, email, newSecret string) error
}

type TokenIssuer interface {
	Issue(email, role string) (string, time.Time, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Dependencies struct {
	Admins      AdminStore
	Applicants  ApplicantStore
	Credentials CredentialStore
	Tokens      TokenIssuer
	MinPassword int
	Logger      logger.Logger
}

type Service struct {
	admins      AdminStore
	applicants  ApplicantStore
	credentials CredentialStore
	tokens      TokenIssuer
	minPassword int
	logger      logger.Logger
	hash        func(string) ([]byte, error)
}

func New(deps Dependencies) *Service {
	minPassword := deps.MinPassword
	if minPassword <= 0 {
		minPassword = DefaultMinPassword
	}
	return &Service{
		admins:      deps.Admins,
		applicants:  deps.Applicants,
		credentials: deps.Credentials,
		tokens:      deps.Tokens,
		minPassword: minPassword,
		logger:      deps.Logger.WithFields(map[string]interface{}{"component": "accounts"}),
		hash:        auth.HashPassword,
	}
}

// ==========================
// Admin
// ==========================

// AdminLogin checks the password and returns a session token. An unknown
// email and a wrong password produce the same error.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)

	a, err := s.admins.Get(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Warn("admin login rejected", map[string]interface{}{"email": email, "reason": "unknown"})
		return nil, apperrors.NewUnauthorizedError(email)
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(a.PasswordHash, password); err != nil {
		s.logger.Warn("admin login rejected", map[string]interface{}{"email": email, "reason": "password"})
		return nil, apperrors.NewUnauthorizedError(email)
	}

	return s.session(a.Email, auth.RoleAdmin)
}

// AdminProfile returns the admin record. The password hash is never
// serialized.
func (s *Service) AdminProfile(ctx context.Context, email string) (*models.Admin, error) {
	return s.admins.Get(ctx, email)
}

func (s *Service) UpdateAdminProfile(ctx context.Context, email, firstName, lastName string) (*models.Admin, error) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, apperrors.NewValidationError("firstName is required")
	}
	if err := s.admins.UpdateProfile(ctx, email, firstName, strings.TrimSpace(lastName)); err != nil {
		return nil, err
	}
	return s.admins.Get(ctx, email)
}

func (s *Service) ChangeAdminPassword(ctx context.Context, email, current, next string) error {
	if err := s.checkNewPassword(next); err != nil {
		return err
	}

	a, err := s.admins.Get(ctx, email)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(a.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorizedError("current password is incorrect")
	}

	hash, err := s.hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.admins.SetPasswordHash(ctx, email, hash); err != nil {
		return err
	}
	s.logger.Info("admin password changed", map[string]interface{}{"email": a.Email})
	return nil
}

// ==========================
// Franchisee
// ==========================

// FranchiseeLogin verifies the issued credential and returns a session.
func (s *Service) FranchiseeLogin(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)

	if err := s.credentials.Verify(ctx, email, password); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			s.logger.Warn("franchisee login rejected", map[string]interface{}{"email": email})
			return nil, apperrors.NewUnauthorizedError(email)
		}
		return nil, err
	}

	return s.session(email, auth.RoleFranchisee)
}

func (s *Service) FranchiseeProfile(ctx context.Context, email string) (*models.Applicant, error) {
	a, err := s.applicants.Get(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewApplicantNotFoundError(email)
	}
	return a, err
}

// UpdateFranchiseeProfile applies the non-empty fields of u to the record.
// Status, email and site details outside u are not editable here.
func (s *Service) UpdateFranchiseeProfile(ctx context.Context, email string, u models.ProfileUpdate) (*models.Applicant, error) {
	current, err := s.FranchiseeProfile(ctx, email)
	if err != nil {
		return nil, err
	}

	existing := models.ProfileUpdate{
		FirstName:          current.FirstName,
		LastName:           current.LastName,
		Phone:              current.Phone,
		ResidentialAddress: current.ResidentialAddress,
		BusinessName:       current.BusinessName,
		SiteAddress:        current.SiteAddress,
		SiteCity:           current.SiteCity,
		SitePostal:         current.SitePostal,
	}
	merged := models.ProfileUpdate{
		FirstName:          pick(u.FirstName, existing.FirstName),
		LastName:           pick(u.LastName, existing.LastName),
		Phone:              pick(u.Phone, existing.Phone),
		ResidentialAddress: pick(u.ResidentialAddress, existing.ResidentialAddress),
		BusinessName:       pick(u.BusinessName, existing.BusinessName),
		SiteAddress:        pick(u.SiteAddress, existing.SiteAddress),
		SiteCity:           pick(u.SiteCity, existing.SiteCity),
		SitePostal:         pick(u.SitePostal, existing.SitePostal),
	}
	if merged == existing {
		return current, nil
	}

	updated, err := s.applicants.UpdateProfile(ctx, email, merged)
	if err != nil {
		return nil, err
	}
	s.logger.Info("franchisee profile updated", map[string]interface{}{"email": updated.Email})
	return updated, nil
}

func (s *Service) ChangeFranchiseePassword(ctx context.Context, email, current, next string) error {
	if err := s.checkNewPassword(next); err != nil {
		return err
	}

	if err := s.credentials.Verify(ctx, email, current); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			return apperrors.NewUnauthorizedError("current password is incorrect")
		}
		return err
	}
	if err := s.credentials.Replace(ctx, email, next); err != nil {
		return err
	}
	s.logger.Info("franchisee password changed", map[string]interface{}{"email": models.NormalizeEmail(email)})
	return nil
}

// ==========================
// Helpers
// ==========================

func (s *Service) session(email, role string) (*Session, error) {
	token, expires, err := s.tokens.Issue(email, role)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &Session{Email: email, Role: role, Token: token, ExpiresAt: expires}, nil
}

func (s *Service) checkNewPassword(p string) error {
	if len(p) < s.minPassword {
		return apperrors.NewValidationError(fmt.Sprintf("new password must be at least %d characters", s.minPassword))
	}
	// bcrypt ignores input past 72 bytes
	if len(p) > 72 {
		return apperrors.NewValidationError("new password must be at most 72 bytes")
	}
	return nil
}

func pick(next, current string) string {
	if v := strings.TrimSpace(next); v != "" {
		return v
	}
	return current
}
