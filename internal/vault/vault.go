package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"wainbox/internal/constants"
	apperrors "wainbox/internal/errors"
	"wainbox/internal/models"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16
	ivSize   = 16
	keySize  = 32

	// scrypt cost parameters, tuned so key derivation takes tens of
	// milliseconds on commodity hardware
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// Vault encrypts access tokens for storage at rest with AES-256-GCM under a
// key derived per call from the process passphrase and a random salt.
type Vault struct {
	passphrase []byte
}

// New creates a Vault. A missing or weak passphrase is a configuration
// error; callers treat it as startup-fatal.
func New(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingConfig, "token encryption passphrase is required")
	}
	if len(passphrase) < constants.MinPassphraseLength {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("token encryption passphrase must be at least %d characters long", constants.MinPassphraseLength))
	}
	return &Vault{passphrase: []byte(passphrase)}, nil
}

// Encrypt seals plaintext with a fresh random salt and IV. The GCM
// authentication tag is appended to the ciphertext.
func (v *Vault) Encrypt(plaintext string) (*models.EncryptedToken, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	gcm, err := v.aead(salt)
	if err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, iv, []byte(plaintext), nil)

	return &models.EncryptedToken{
		Ciphertext: hex.EncodeToString(ciphertext),
		IV:         hex.EncodeToString(iv),
		Salt:       hex.EncodeToString(salt),
	}, nil
}

// Decrypt opens an envelope produced by Encrypt. Tag verification failures
// (tampered data or a different passphrase) fail closed; no partial
// plaintext is ever returned.
func (v *Vault) Decrypt(token *models.EncryptedToken) (string, error) {
	ciphertext, err := hex.DecodeString(token.Ciphertext)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, "malformed ciphertext encoding")
	}
	iv, err := hex.DecodeString(token.IV)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, "malformed IV encoding")
	}
	salt, err := hex.DecodeString(token.Salt)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, "malformed salt encoding")
	}
	if len(iv) != ivSize {
		return "", apperrors.New(apperrors.ErrCodeValidationFailed, "unexpected IV length")
	}

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeAuthentication, "token decryption failed")
	}

	return string(plaintext), nil
}

// EncryptToken seals an access token and serializes the envelope for
// storage in a single database column.
func (v *Vault) EncryptToken(accessToken string) (string, error) {
	envelope, err := v.Encrypt(accessToken)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token envelope: %w", err)
	}
	return string(data), nil
}

// DecryptToken reverses EncryptToken.
func (v *Vault) DecryptToken(stored string) (string, error) {
	var envelope models.EncryptedToken
	if err := json.Unmarshal([]byte(stored), &envelope); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidationFailed, "invalid encrypted token format")
	}
	return v.Decrypt(&envelope)
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(v.passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}
