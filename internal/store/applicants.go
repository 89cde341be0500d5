// Package store holds the Postgres-backed repositories.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const applicantColumns = `email, first_name, last_name, phone, residential_address, business_name,
	site_address, site_city, site_postal, site_floor, site_area_sqft, ownership,
	status, date_applied, updated_at`

// ApplicantStore persists franchise applications keyed by email.
type ApplicantStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewApplicantStore(db *sql.DB) *ApplicantStore {
	return &ApplicantStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplicant(row rowScanner) (*models.Applicant, error) {
	var a models.Applicant
	var ownership, status string
	err := row.Scan(
		&a.Email, &a.FirstName, &a.LastName, &a.Phone, &a.ResidentialAddress, &a.BusinessName,
		&a.SiteAddress, &a.SiteCity, &a.SitePostal, &a.SiteFloor, &a.SiteAreaSqft, &ownership,
		&status, &a.DateApplied, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Ownership = models.Ownership(ownership)
	a.Status = models.Status(status)
	return &a, nil
}

func (s *ApplicantStore) Get(ctx context.Context, email string) (*models.Applicant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicantColumns+` FROM applicants WHERE email = $1`,
		models.NormalizeEmail(email))

	a, err := scanApplicant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: applicant %s", apperrors.ErrNotFound, email)
	}
	if err != nil {
		return nil, apperrors.NewStoreFaultError("get applicant", err)
	}
	return a, nil
}

// Create inserts a new applicant. A second application for the same email
// fails with ErrConflict and leaves the existing row untouched.
func (s *ApplicantStore) Create(ctx context.Context, a *models.Applicant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applicants (`+applicantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.Email, a.FirstName, a.LastName, a.Phone, a.ResidentialAddress, a.BusinessName,
		a.SiteAddress, a.SiteCity, a.SitePostal, a.SiteFloor, a.SiteAreaSqft, string(a.Ownership),
		string(a.Status), a.DateApplied, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: applicant %s already exists", apperrors.ErrConflict, a.Email)
		}
		return apperrors.NewStoreFaultError("create applicant", err)
	}
	return nil
}

func (s *ApplicantStore) SetStatus(ctx context.Context, email string, status models.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applicants SET status = $2, updated_at = $3 WHERE email = $1`,
		models.NormalizeEmail(email), string(status), s.now().UTC())
	if err != nil {
		return apperrors.NewStoreFaultError("set applicant status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreFaultError("set applicant status", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: applicant %s", apperrors.ErrNotFound, email)
	}
	return nil
}

// List returns every applicant, newest application first.
func (s *ApplicantStore) List(ctx context.Context) ([]*models.Applicant, error) {
	return s.query(ctx, "list applicants",
		`SELECT `+applicantColumns+` FROM applicants ORDER BY date_applied DESC, email`)
}

// ListGrantedWithoutCredential finds applicants left granted by a grant that
// failed between the status write and credential issue.
func (s *ApplicantStore) ListGrantedWithoutCredential(ctx context.Context) ([]*models.Applicant, error) {
	return s.query(ctx, "list granted without credential", `
		SELECT `+qualified("a", applicantColumns)+`
		FROM applicants a
		LEFT JOIN credentials c ON c.email = a.email
		WHERE a.status = 'granted' AND c.email IS NULL
		ORDER BY a.date_applied`)
}

func (s *ApplicantStore) query(ctx context.Context, op, q string, args ...interface{}) ([]*models.Applicant, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.NewStoreFaultError(op, err)
	}
	defer rows.Close()

	out := []*models.Applicant{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, apperrors.NewStoreFaultError(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFaultError(op, err)
	}
	return out, nil
}

func (s *ApplicantStore) UpdateProfile(ctx context.Context, email string, u models.ProfileUpdate) (*models.Applicant, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE applicants SET
			first_name = $2, last_name = $3, phone = $4, residential_address = $5,
			business_name = $6, site_address = $7, site_city = $8, site_postal = $9,
			updated_at = $10
		WHERE email = $1
		RETURNING `+applicantColumns,
		models.NormalizeEmail(email), u.FirstName, u.LastName, u.Phone, u.ResidentialAddress,
		u.BusinessName, u.SiteAddress, u.SiteCity, u.SitePostal, s.now().UTC(),
	)

	a, err := scanApplicant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: applicant %s", apperrors.ErrNotFound, email)
	}
	if err != nil {
		return nil, apperrors.NewStoreFaultError("update applicant profile", err)
	}
	return a, nil
}

// CountByStatus returns the number of applicants per status. Every status
// is present in the result, zero when unused.
func (s *ApplicantStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM applicants GROUP BY status`)
	if err != nil {
		return nil, apperrors.NewStoreFaultError("count applicants", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.NewStoreFaultError("count applicants", err)
		}
		counts[models.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFaultError("count applicants", err)
	}
	return counts, nil
}

// qualified prefixes every column in a comma-separated list with alias.
func qualified(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
