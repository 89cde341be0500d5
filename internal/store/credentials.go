package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"franchisee-hub/internal/common/auth"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/models"
)

// CredentialStore issues and verifies franchisee login secrets. Plaintext
// secrets never reach a query predicate: lookups are by email and
// comparison happens in process against the bcrypt hash.
type CredentialStore struct {
	db       *sql.DB
	sealer   *auth.Sealer
	generate func() (string, error)
	hash     func(string) ([]byte, error)
	now      func() time.Time
}

func NewCredentialStore(db *sql.DB, sealer *auth.Sealer) *CredentialStore {
	return &CredentialStore{
		db:       db,
		sealer:   sealer,
		generate: auth.GenerateSecret,
		hash:     auth.HashPassword,
		now:      time.Now,
	}
}

func (s *CredentialStore) Get(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT email, password_hash, sealed_secret, issued_at, updated_at
		FROM credentials WHERE email = $1`,
		models.NormalizeEmail(email),
	).Scan(&c.Email, &c.PasswordHash, &c.SealedSecret, &c.IssuedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: credential %s", apperrors.ErrNotFound, email)
	}
	if err != nil {
		return nil, apperrors.NewStoreFaultError("get credential", err)
	}
	return &c, nil
}

// Issue returns the credential for email, creating one only when none
// exists. Concurrent issuers converge on the first inserted row.
func (s *CredentialStore) Issue(ctx context.Context, email string) (*models.IssuedCredential, error) {
	email = models.NormalizeEmail(email)

	existing, err := s.Get(ctx, email)
	switch {
	case err == nil:
		return s.reveal(existing)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	secret, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	hash, sealed, err := s.protect(secret)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var inserted string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO credentials (email, password_hash, sealed_secret, issued_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING email`,
		email, hash, sealed, now,
	).Scan(&inserted)

	if errors.Is(err, sql.ErrNoRows) {
		// lost the race to another issuer
		winner, err := s.Get(ctx, email)
		if err != nil {
			return nil, err
		}
		return s.reveal(winner)
	}
	if err != nil {
		return nil, apperrors.NewStoreFaultError("insert credential", err)
	}

	return &models.IssuedCredential{Email: email, Password: secret, Created: true}, nil
}

// Verify checks secret against the stored hash. Unknown emails and
// mismatches are indistinguishable to the caller.
func (s *CredentialStore) Verify(ctx context.Context, email, secret string) error {
	c, err := s.Get(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: no credential for %s", apperrors.ErrUnauthorized, email)
	}
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(c.PasswordHash, secret); err != nil {
		return fmt.Errorf("%w: secret mismatch for %s", apperrors.ErrUnauthorized, email)
	}
	return nil
}

// Replace stores newSecret as the current credential for email.
func (s *CredentialStore) Replace(ctx context.Context, email, newSecret string) error {
	hash, sealed, err := s.protect(newSecret)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials SET password_hash = $2, sealed_secret = $3, updated_at = $4
		WHERE email = $1`,
		models.NormalizeEmail(email), hash, sealed, s.now().UTC())
	if err != nil {
		return apperrors.NewStoreFaultError("replace credential", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreFaultError("replace credential", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: credential %s", apperrors.ErrNotFound, email)
	}
	return nil
}

func (s *CredentialStore) protect(secret string) ([]byte, []byte, error) {
	hash, err := s.hash(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("hash secret: %w", err)
	}
	sealed, err := s.sealer.Seal(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("seal secret: %w", err)
	}
	return hash, sealed, nil
}

func (s *CredentialStore) reveal(c *models.Credential) (*models.IssuedCredential, error) {
	secret, err := s.sealer.Open(c.SealedSecret)
	if err != nil {
		return nil, fmt.Errorf("open credential for %s: %w", c.Email, err)
	}
	return &models.IssuedCredential{Email: c.Email, Password: secret, Created: false}, nil
}
