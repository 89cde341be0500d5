package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/models"

	"github.com/lib/pq"
)

type AdminStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db, now: time.Now}
}

const adminColumns = `email, password_hash, first_name, last_name, role, created_at`

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var a models.Admin
	if err := row.Scan(&a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminStore) Get(ctx context.Context, email string) (*models.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1`, models.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: admin %s", apperrors.ErrNotFound, email)
	}
	if err != nil {
		return nil, apperrors.NewStoreFaultError("get admin", err)
	}
	return a, nil
}

// List returns every admin account. New-application notices go to each.
func (s *AdminStore) List(ctx context.Context) ([]*models.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY email`)
	if err != nil {
		return nil, apperrors.NewStoreFaultError("list admins", err)
	}
	defer rows.Close()

	var out []*models.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, apperrors.NewStoreFaultError("list admins", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFaultError("list admins", err)
	}
	return out, nil
}

func (s *AdminStore) Create(ctx context.Context, a *models.Admin) error {
	if a.Role == "" {
		a.Role = models.RoleAdmin
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (`+adminColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		models.NormalizeEmail(a.Email), a.PasswordHash, a.FirstName, a.LastName, a.Role, a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: admin %s already exists", apperrors.ErrConflict, a.Email)
		}
		return apperrors.NewStoreFaultError("create admin", err)
	}
	return nil
}

func (s *AdminStore) UpdateProfile(ctx context.Context, email, firstName, lastName string) error {
	return s.exec(ctx, "update admin profile",
		`UPDATE admins SET first_name = $2, last_name = $3 WHERE email = $1`,
		models.NormalizeEmail(email), firstName, lastName)
}

func (s *AdminStore) SetPasswordHash(ctx context.Context, email string, hash []byte) error {
	return s.exec(ctx, "set admin password",
		`UPDATE admins SET password_hash = $2 WHERE email = $1`,
		models.NormalizeEmail(email), hash)
}

func (s *AdminStore) exec(ctx context.Context, op, q string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return apperrors.NewStoreFaultError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreFaultError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: admin %v", apperrors.ErrNotFound, args[0])
	}
	return nil
}
