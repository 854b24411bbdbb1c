package vault

import (
	"encoding/hex"
	"strings"
	"testing"

	apperrors "wainbox/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "correct-horse-battery-staple-0123456789"

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
		wantCode   apperrors.ErrorCode
	}{
		{
			name:       "valid passphrase",
			passphrase: testPassphrase,
		},
		{
			name:       "missing passphrase",
			passphrase: "",
			wantErr:    true,
			wantCode:   apperrors.ErrCodeMissingConfig,
		},
		{
			name:       "short passphrase",
			passphrase: "too-short",
			wantErr:    true,
			wantCode:   apperrors.ErrCodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.passphrase)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, v)
				assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	plaintexts := []string{
		"EAAG...long-lived-access-token",
		"",
		"short",
		strings.Repeat("x", 4096),
		"token with spaces and unicode ☎",
	}

	for _, plaintext := range plaintexts {
		envelope, err := v.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotNil(t, envelope)

		decrypted, err := v.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptProducesFreshSaltAndIV(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	first, err := v.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := v.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)

	salt, err := hex.DecodeString(first.Salt)
	require.NoError(t, err)
	assert.Len(t, salt, saltSize)

	iv, err := hex.DecodeString(first.IV)
	require.NoError(t, err)
	assert.Len(t, iv, ivSize)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	envelope, err := v.Encrypt("secret token")
	require.NoError(t, err)

	other, err := New("a-completely-different-passphrase-9876543210")
	require.NoError(t, err)

	plaintext, err := other.Decrypt(envelope)
	require.Error(t, err)
	assert.Empty(t, plaintext)
	assert.True(t, apperrors.IsAuthentication(err))
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	envelope, err := v.Encrypt("secret token")
	require.NoError(t, err)

	raw, err := hex.DecodeString(envelope.Ciphertext)
	require.NoError(t, err)
	raw[0] ^= 0xff
	envelope.Ciphertext = hex.EncodeToString(raw)

	plaintext, err := v.Decrypt(envelope)
	require.Error(t, err)
	assert.Empty(t, plaintext)
	assert.True(t, apperrors.IsAuthentication(err))
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	envelope, err := v.Encrypt("secret token")
	require.NoError(t, err)

	envelope.IV = "not-hex"
	_, err = v.Decrypt(envelope)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetCode(err))
}

func TestTokenEnvelopeRoundTrip(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	stored, err := v.EncryptToken("EAAG-access-token")
	require.NoError(t, err)
	assert.Contains(t, stored, `"encrypted"`)
	assert.Contains(t, stored, `"iv"`)
	assert.Contains(t, stored, `"salt"`)
	assert.NotContains(t, stored, "EAAG-access-token")

	token, err := v.DecryptToken(stored)
	require.NoError(t, err)
	assert.Equal(t, "EAAG-access-token", token)
}

func TestDecryptTokenInvalidJSON(t *testing.T) {
	v, err := New(testPassphrase)
	require.NoError(t, err)

	_, err = v.DecryptToken("{not json")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetCode(err))
}
