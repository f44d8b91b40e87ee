// Package payloadcrypto seals and opens telemetry reports exchanged between the
// agent and the server. A report travels as base64(nonce || AES-256-GCM ciphertext).
package payloadcrypto

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
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize = 32

	hkdfInfo = "fleet-telemetry-v1"
)

var (
	ErrEmptySecret      = errors.New("shared secret is empty")
	ErrInvalidEncoding  = errors.New("payload is not valid base64")
	ErrShortCiphertext  = errors.New("ciphertext shorter than nonce")
	ErrAuthFailed       = errors.New("payload authentication failed")
	ErrInvalidKeyLength = errors.New("key must be 32 bytes")
)

// DeriveKey turns the configured shared secret into an AES-256 key. A secret of
// exactly 64 hex characters is taken as the raw key; anything else goes
// through HKDF-SHA256.
func DeriveKey(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrEmptySecret
	}

	if len(secret) == 2*KeySize {
		if raw, err := hex.DecodeString(secret); err == nil {
			return raw, nil
		}
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Cipher seals and opens payloads with one key. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewFromSecret is DeriveKey followed by New.
func NewFromSecret(secret string) (*Cipher, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return New(key)
}

func (c *Cipher) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Surrounding whitespace in the encoded text is ignored.
func (c *Cipher) Open(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrShortCiphertext
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
