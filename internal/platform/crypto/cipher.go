package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purposes select independent subkeys derived from the same master key.
const (
	PurposeLocation = "staffhub/location/v1"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer encrypts small values at rest with AES-256-GCM. A Sealer without a
// key passes values through unchanged, which is only accepted outside production.
type Sealer struct {
	aead cipher.AEAD
}

// New derives the subkey for purpose from master with HKDF-SHA256.
func New(master, purpose string) (*Sealer, error) {
	if master == "" {
		return &Sealer{}, nil
	}
	secret := decodeKey(master)
	if len(secret) < 16 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must carry at least 16 bytes of key material")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Configured() bool {
	return s != nil && s.aead != nil
}

// Seal binds the ciphertext to aad (typically the owning row id).
func (s *Sealer) Seal(plain, aad []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, aad), nil
}

func (s *Sealer) Open(ciphertext, aad []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return ciphertext, nil
	}
	size := s.aead.NonceSize()
	if len(ciphertext) < size {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, ciphertext[:size], ciphertext[size:], aad)
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
