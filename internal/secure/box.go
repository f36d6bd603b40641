// Package secure seals small JSON documents for storage at rest.
package secure

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const tokenPrefix = "v1."

// ErrMalformedToken is returned when a sealed token cannot be decoded.
var ErrMalformedToken = errors.New("malformed sealed token")

// Box encrypts and decrypts JSON documents with XChaCha20-Poly1305.
type Box struct {
	key []byte
}

// NewBox derives a 256-bit key from the configured secret.
func NewBox(secret string) (*Box, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("encryption secret is empty")
	}
	sum := sha256.Sum256([]byte(secret))
	return &Box{key: sum[:]}, nil
}

// Seal marshals v to JSON and returns an opaque token.
func (b *Box) Seal(v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal into v.
func (b *Box) Open(token string, v any) error {
	if !strings.HasPrefix(token, tokenPrefix) {
		return ErrMalformedToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil {
		return ErrMalformedToken
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return err
	}
	if len(raw) < aead.NonceSize() {
		return ErrMalformedToken
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("open sealed token: %w", err)
	}
	return json.Unmarshal(plain, v)
}
