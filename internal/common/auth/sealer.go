package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrUnseal = errors.New("sealed secret could not be opened")

// Sealer encrypts issued secrets at rest so they can be handed back on
// re-issue without storing plaintext.
type Sealer struct {
	key [32]byte
}

// NewSealer accepts a 64-char hex key; any other non-empty value is
// stretched to 32 bytes with SHA-256.
func NewSealer(key string) (*Sealer, error) {
	if key == "" {
		return nil, errors.New("credential key is empty")
	}
	s := &Sealer{}
	if raw, err := hex.DecodeString(key); err == nil && len(raw) == 32 {
		copy(s.key[:], raw)
		return s, nil
	}
	s.key = sha256.Sum256([]byte(key))
	return s, nil
}

// Seal returns nonce || secretbox(secret).
func (s *Sealer) Seal(secret string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(secret), &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(out), nil
}
