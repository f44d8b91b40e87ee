package payloadcrypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	c, err := NewFromSecret("fleet-shared-secret")
	require.NoError(t, err)

	sealed, err := c.Seal([]byte(`{"client_id":"x"}`))
	require.NoError(t, err)

	opened, err := c.Open(sealed + "\n")
	require.NoError(t, err)
	assert.Equal(t, `{"client_id":"x"}`, string(opened))
}

func TestSealUsesFreshNonce(t *testing.T) {
	c, err := NewFromSecret("fleet-shared-secret")
	require.NoError(t, err)

	a, err := c.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := c.Seal([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpenFailures(t *testing.T) {
	c, err := NewFromSecret("right-secret")
	require.NoError(t, err)
	other, err := NewFromSecret("wrong-secret")
	require.NoError(t, err)

	sealed, err := other.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = c.Open(sealed)
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = c.Open("%%% not base64 %%%")
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = c.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrShortCiphertext)
}

func TestDeriveKey(t *testing.T) {
	_, err := DeriveKey("   ")
	assert.ErrorIs(t, err, ErrEmptySecret)

	k1, err := DeriveKey("APConsultSecretKey123456789012345678901")
	require.NoError(t, err)
	assert.Len(t, k1, KeySize)

	k2, err := DeriveKey("APConsultSecretKey123456789012345678901")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	hexKey := strings.Repeat("ab", KeySize)
	raw, err := DeriveKey(hexKey)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), raw[0])
	assert.Len(t, raw, KeySize)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New([]byte("too-short"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}
