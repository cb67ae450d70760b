package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte("patient reports fever"))
	require.NoError(t, err)
	assert.NotEqual(t, "patient reports fever", string(sealed))

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "patient reports fever", string(plain))
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	enc, err := NewAESEncryptor([]byte("0123456789abcdef"))
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestInvalidKeySize(t *testing.T) {
	_, err := NewAESEncryptor([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptRejectsTamperedData(t *testing.T) {
	enc, err := NewAESEncryptor([]byte("0123456789abcdef"))
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte("clinical note"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = enc.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecryptRejectsTruncatedData(t *testing.T) {
	enc, err := NewAESEncryptor([]byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = enc.Decrypt([]byte("too short"))
	assert.ErrorIs(t, err, ErrDecryption)
}
