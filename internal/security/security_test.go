package security

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestHashID(t *testing.T) {
	h := HashID(12347)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashID(12347))
	assert.Equal(t, HashString("12347"), h)
	assert.NotEqual(t, h, HashID(12348))
}

func TestCipher(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		enc, err := c.Encrypt("nick")
		require.NoError(t, err)
		assert.NotEqual(t, "nick", enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, "nick", dec)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, _ := c.Encrypt("matti")
		b, _ := c.Encrypt("matti")
		other, _ := c.Encrypt("maija")
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, other)
	})

	t.Run("Tampered", func(t *testing.T) {
		enc, _ := c.Encrypt("nick")
		raw, err := base64.RawURLEncoding.DecodeString(enc)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		_, err = c.Decrypt(base64.RawURLEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := c.Decrypt("!!")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
		_, err = c.Decrypt("abc")
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})
}

func TestNewCipher_BadKey(t *testing.T) {
	_, err := NewCipher("zz")
	assert.Error(t, err)
	_, err = NewCipher(strings.Repeat("ab", 16))
	assert.Error(t, err)
}
