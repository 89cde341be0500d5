package models

import "time"

// Credential is the login secret issued to a granted franchisee. The
// secret is kept twice: a bcrypt hash for verification and a sealed copy so
// re-issue can hand back the same value.
type Credential struct {
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	SealedSecret []byte    `json:"-"`
	IssuedAt     time.Time `json:"issuedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IssuedCredential is a credential together with its plaintext secret.
type IssuedCredential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Created  bool   `json:"created"`
}
